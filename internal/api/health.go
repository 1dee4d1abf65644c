package api

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

// handleHealthz reports whether the store answers a ping.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.serverError(w, r, err, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"status": "ok"})
}
