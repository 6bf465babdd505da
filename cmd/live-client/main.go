package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tabular/shotsmarts/internal/exposure"
	"github.com/tabular/shotsmarts/internal/logging"
)

// liveFrame mirrors the server's reply on /ws/calculate.
type liveFrame struct {
	Type  string `json:"type"`
	Seq   int64  `json:"seq"`
	Error string `json:"error"`
	Data  *struct {
		Result    exposure.Result    `json:"result"`
		Formatted exposure.Formatted `json:"formatted"`
		Labels    struct {
			LightCondition string `json:"lightCondition"`
			SceneMode      string `json:"sceneMode"`
			MeteringMode   string `json:"meteringMode"`
		} `json:"labels"`
	} `json:"data"`
}

// live-client walks the ISO range the way a user dragging the ISO picker
// would, printing the server's recalculation for every step.
func main() {
	var (
		urlFlag = flag.String("url", "ws://127.0.0.1:9080/ws/calculate", "WebSocket URL")
		light   = flag.String("light", "sunny", "Light condition")
		scene   = flag.String("scene", "sport", "Scene mode")
		lang    = flag.String("lang", "en", "Label language")
		step    = flag.Int("step", 400, "ISO increment between messages")
		delay   = flag.Duration("delay", 200*time.Millisecond, "Pause between messages")
	)
	flag.Parse()

	logger := logging.NewLogger("info")
	defer logger.Sync()

	u, err := url.Parse(*urlFlag)
	if err != nil {
		logger.Fatal("Invalid URL", "url", *urlFlag, "error", err)
	}
	if *step < exposure.ISOStep || *step%exposure.ISOStep != 0 {
		logger.Fatal("Step must be a positive multiple of the ISO step", "step", *step, "iso_step", exposure.ISOStep)
	}

	fmt.Printf("Connecting to %s\n", u.String())
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatal("Dial error", "error", err)
	}
	defer c.Close()

	failed := false
	for iso := exposure.MinISO; iso <= exposure.MaxISO; iso += *step {
		msg := map[string]interface{}{
			"type":           "input",
			"lang":           *lang,
			"lightCondition": *light,
			"iso":            iso,
			"sceneMode":      *scene,
		}
		if err := c.WriteJSON(msg); err != nil {
			logger.Fatal("Write error", "error", err)
		}

		_, data, err := c.ReadMessage()
		if err != nil {
			logger.Fatal("Read error", "error", err)
		}
		var frame liveFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Fatal("Malformed reply", "error", err)
		}

		switch {
		case frame.Type == "error":
			failed = true
			fmt.Printf("#%d ISO %-5d error: %s\n", frame.Seq, iso, frame.Error)
		case frame.Data != nil:
			f := frame.Data.Formatted
			fmt.Printf("#%d ISO %-5d %-6s %-8s %-5s %s\n",
				frame.Seq, iso, f.Aperture, f.ShutterSpeed, f.ExposureCompensation, frame.Data.Labels.MeteringMode)
		}
		time.Sleep(*delay)
	}

	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if failed {
		os.Exit(1)
	}
}
