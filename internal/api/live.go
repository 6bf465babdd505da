package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tabular/shotsmarts/internal/labels"
)

// Client is one websocket connection recalculating as its inputs change.
type Client struct {
	ID         string
	Conn       *websocket.Conn
	RemoteAddr string
	StartTime  time.Time
	LastPing   time.Time
	Messages   int64
}

// liveMessage is an inbound frame. Frames without a type are inputs.
type liveMessage struct {
	Type     string `json:"type"`
	Language string `json:"lang"`
	calculateRequest
}

type liveResponse struct {
	Type  string             `json:"type"`
	Seq   int64              `json:"seq"`
	Error string             `json:"error,omitempty"`
	Data  *calculateResponse `json:"data,omitempty"`
}

var clientSeq int64

func (s *Service) handleLiveCalculate(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	clientID := fmt.Sprintf("live_%d_%d", time.Now().Unix(), atomic.AddInt64(&clientSeq, 1))
	client := &Client{
		ID:         clientID,
		Conn:       conn,
		RemoteAddr: r.RemoteAddr,
		StartTime:  time.Now(),
		LastPing:   time.Now(),
	}

	s.clientsMux.Lock()
	s.clients[clientID] = client
	s.clientsMux.Unlock()

	s.logger.Info("WebSocket client connected", "client_id", clientID, "remote_addr", r.RemoteAddr)

	defer func() {
		s.clientsMux.Lock()
		delete(s.clients, clientID)
		s.clientsMux.Unlock()

		conn.Close()
		s.logger.Info("WebSocket client disconnected",
			"client_id", clientID,
			"messages", client.Messages,
			"duration", time.Since(client.StartTime).String(),
		)
	}()

	// labels default to the handshake's language
	catalog := s.catalogFor(r)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("WebSocket read error", "client_id", clientID, "error", err)
			}
			return
		}
		client.LastPing = time.Now()
		if messageType != websocket.TextMessage {
			continue
		}
		client.Messages++

		var resp liveResponse
		resp, catalog = s.processLiveMessage(data, catalog)
		resp.Seq = client.Messages
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Error("WebSocket write error", "client_id", clientID, "error", err)
			return
		}
	}
}

// processLiveMessage answers one frame. A frame may switch the label
// language for the rest of the connection.
func (s *Service) processLiveMessage(data []byte, catalog *labels.Catalog) (liveResponse, *labels.Catalog) {
	var msg liveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return liveResponse{Type: "error", Error: "invalid JSON message"}, catalog
	}

	switch msg.Type {
	case "ping":
		return liveResponse{Type: "pong"}, catalog
	case "", "input":
		if msg.Language != "" {
			catalog = labels.For(msg.Language)
		}
		in, err := msg.input()
		if err != nil {
			return liveResponse{Type: "error", Error: err.Error()}, catalog
		}
		result := s.calculate(in, catalog)
		return liveResponse{Type: "result", Data: &result}, catalog
	default:
		return liveResponse{Type: "error", Error: fmt.Sprintf("unknown message type %q", msg.Type)}, catalog
	}
}
