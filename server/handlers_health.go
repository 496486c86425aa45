package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxReadyQueueDepth is the backlog above which the service reports not
// ready; a queue this deep means the messaging API has been rejecting
// deliveries for a long time.
const maxReadyQueueDepth = 1000

// HandleHealthz responds to liveness probe requests by checking the engine's
// processing predicate and, when wired, database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Healthy() {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"engine", func() error {
			if !h.engine.Healthy() {
				return fmt.Errorf("engine not processing")
			}
			return nil
		}},
		{"delivery_queue", func() error {
			if depth := h.queue.Depth(); depth > maxReadyQueueDepth {
				return fmt.Errorf("delivery backlog too deep: %d", depth)
			}
			return nil
		}},
		{"database", func() error {
			if h.db == nil {
				return nil // audit store not wired; nothing to check
			}
			return h.db.PingContext(r.Context())
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
