// Package monitor exposes debugging endpoints for a live session: a
// websocket stream of per-sample metrics and quick go-echarts renderings of
// rep history and the retrospective pass. These endpoints bypass the app UI
// entirely; they exist to eyeball engine behavior without a frontend.
package monitor

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/liftlab-data/rom.engine/internal/httputil"
	"github.com/liftlab-data/rom.engine/internal/monitoring"
	"github.com/liftlab-data/rom.engine/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // debug-only server, no origin policy
	},
}

// WebServer serves the session debug endpoints.
type WebServer struct {
	ctrl *session.Controller

	// LiveInterval is the websocket push period. Zero means 100ms.
	LiveInterval time.Duration
}

// NewWebServer wraps a controller for inspection.
func NewWebServer(ctrl *session.Controller) *WebServer {
	return &WebServer{ctrl: ctrl}
}

// Routes registers the debug endpoints on mux.
func (ws *WebServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/live", ws.handleLive)
	mux.HandleFunc("/debug/stats", ws.handleStats)
	mux.HandleFunc("/debug/reps", ws.handleRepChart)
	mux.HandleFunc("/debug/correction", ws.handleCorrectionChart)
}

// handleLive upgrades to a websocket and pushes the live metrics snapshot on
// a fixed interval until the client goes away.
func (ws *WebServer) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("monitor: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	interval := ws.LiveInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(ws.ctrl.Live()); err != nil {
				return
			}
		}
	}
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, ws.ctrl.Stats())
}
