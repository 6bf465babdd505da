// Package api serves the calculator, history and optics tools over local
// HTTP and a websocket for live recalculation.
package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tabular/shotsmarts/internal/exposure"
	"github.com/tabular/shotsmarts/internal/logging"
	"github.com/tabular/shotsmarts/internal/optics"
	"github.com/tabular/shotsmarts/internal/storage"
)

type Service struct {
	history    *storage.History
	logger     *logging.Logger
	version    string
	locale     string
	upgrader   websocket.Upgrader
	clients    map[string]*Client
	clientsMux sync.RWMutex
	StartTime  time.Time
}

// NewService builds the service. locale is the fallback language for
// display labels when a request names none.
func NewService(history *storage.History, logger *logging.Logger, version, locale string) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		history: history,
		logger:  logger,
		version: version,
		locale:  locale,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local single-user server
			},
		},
		clients:   make(map[string]*Client),
		StartTime: time.Now(),
	}
}

func (s *Service) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/ws/calculate", s.handleLiveCalculate).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/calculate", s.HandleCalculate).Methods("GET", "POST")

	apiRouter.HandleFunc("/records", s.HandleListRecords).Methods("GET")
	apiRouter.HandleFunc("/records", s.HandleCreateRecord).Methods("POST")
	apiRouter.HandleFunc("/records/{record_id}", s.HandleGetRecord).Methods("GET")
	apiRouter.HandleFunc("/records/{record_id}", s.HandleUpdateRecord).Methods("PUT")
	apiRouter.HandleFunc("/records/{record_id}", s.HandleDeleteRecord).Methods("DELETE")
	apiRouter.HandleFunc("/records/{record_id}/name", s.HandleRenameRecord).Methods("PATCH")
	apiRouter.HandleFunc("/records/{record_id}/summary", s.HandleRecordSummary).Methods("GET")

	apiRouter.HandleFunc("/stats", s.HandleGetStats).Methods("GET")

	apiRouter.HandleFunc("/optics/hyperfocal", s.HandleHyperfocal).Methods("GET")
	apiRouter.HandleFunc("/optics/depth-of-field", s.HandleDepthOfField).Methods("GET")
	apiRouter.HandleFunc("/optics/equivalent-focal-length", s.HandleEquivalentFocalLength).Methods("GET")

	// Enable CORS
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// Request logging middleware
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			s.logger.Info("HTTP request",
				"method", r.Method,
				"url", r.URL.String(),
				"status", rec.status,
				"duration", time.Since(start).String(),
				"remote_addr", r.RemoteAddr,
			)
		})
	})

	return router
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMux.RLock()
	activeClients := len(s.clients)
	s.clientsMux.RUnlock()

	health := map[string]interface{}{
		"status":             "healthy",
		"timestamp":          time.Now().Format(time.RFC3339),
		"version":            s.version,
		"uptime":             time.Since(s.StartTime).String(),
		"records":            s.history.Len(),
		"dirty":              s.history.Dirty(),
		"active_connections": activeClients,
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Service) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.history.Stats(r.Context())
	if err != nil {
		s.logger.Error("Failed to get history stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// statusRecorder captures the status code for request logging. It
// forwards Hijack so websocket upgrades still work behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error  string          `json:"error"`
	Record *storage.Record `json:"record,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, exposure.ErrInvalidInput),
		errors.Is(err, optics.ErrInvalidInput),
		errors.Is(err, storage.ErrInvalidRecord),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")
