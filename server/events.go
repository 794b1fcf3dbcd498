package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const heartbeatInterval = 25 * time.Second

// handleEvents streams bookmark changes for one mounted view. The view
// stays mounted while the stream is open and is unmounted when it closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, sess *Session) {
	view := sess.View(r.URL.Query().Get("view"))
	if view == nil || !view.Mounted() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "view not mounted"})
		return
	}
	defer sess.Unmount(view)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Warn("Failed to clear write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": mounted\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		s.logger.Warn("Event stream cannot flush", "error", err)
		return
	}

	s.logger.Debug("View mounted", "view", view.ID(), "screen", view.Screen())
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("View unmounted", "view", view.ID(), "screen", view.Screen())
			return
		case change, open := <-view.Updates():
			if !open {
				// Evicted by newer views in the same session.
				_, _ = fmt.Fprint(w, "event: unmounted\ndata: {}\n\n")
				_ = rc.Flush()
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				s.logger.Error("Failed to encode bookmark change", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: bookmark\ndata: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
