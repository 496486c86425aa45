package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/appolinair2355/Apdepo/db"
	"github.com/appolinair2355/Apdepo/telemetry"
)

// statusResponse is the JSON shape of /status.
type statusResponse struct {
	Service     string         `json:"service"`
	Predictions map[string]int `json:"predictions"`
	QueueDepth  int            `json:"queue_depth"`
	LastEventAt *time.Time     `json:"last_event_at,omitempty"`
	Recent      []db.AuditRow  `json:"recent,omitempty"`
}

// HandleStatus summarizes engine and queue state, plus recent terminal
// predictions when the audit store is wired.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	pending, confirmed, expired := h.engine.Counts()
	resp := statusResponse{
		Service: "apdepo",
		Predictions: map[string]int{
			"pending":   pending,
			"confirmed": confirmed,
			"expired":   expired,
		},
		QueueDepth: h.queue.Depth(),
	}
	if t := h.engine.LastEventAt(); !t.IsZero() {
		resp.LastEventAt = &t
	}
	if h.db != nil {
		recent, err := db.RecentTerminal(r.Context(), h.db, 10)
		if err != nil {
			telemetry.LoggerWithCorr(r.Context()).Warn("recent terminal query failed", slog.Any("err", err))
		} else {
			resp.Recent = recent
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleRoot reports the service is up; kept for platform default probes
// that hit /.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"service": "apdepo", "status": "active"})
}
