package api

import (
	"net/http"
)

// handleListEvents returns the event catalog ordered by name.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.db.ListEvents(r.Context())
	if err != nil {
		s.serverError(w, r, err, "Failed to load events")
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}
