package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/highlandgames/gathering/internal/database"
)

// handleListResults returns the leaderboard, most recent date first and then by position.
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.db.ListResults(r.Context())
	if err != nil {
		s.serverError(w, r, err, "Failed to load results")
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleCreateResult(w http.ResponseWriter, r *http.Request) {
	var payload resultPayload
	if err := s.readJSON(w, r, &payload); err != nil {
		s.errorJSON(w, r, err, http.StatusBadRequest)
		return
	}
	payload.normalize()

	if err := validateStruct(payload); err != nil {
		s.invalidPayload(w, r, err)
		return
	}

	result, err := s.db.CreateResult(r.Context(), payload.toCommand())
	if err != nil {
		if errors.Is(err, database.ErrUnknownEvent) {
			s.errorJSON(w, r, errors.New("Unknown event"), http.StatusBadRequest)
			return
		}
		s.serverError(w, r, err, "Failed to save result")
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("result_id", result.ID).Str("event_id", result.EventID).Msg("result recorded")
	s.writeJSON(w, http.StatusCreated, result)
}

// handleDeleteResult removes a result. Unknown ids are reported as deleted: 0.
func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := s.db.DeleteResult(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err, "Failed to delete result")
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "deleted": deleted})
}

// invalidPayload answers 400 with the individual field issues when there are any.
func (s *Server) invalidPayload(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *validationError
	if !errors.As(err, &vErr) {
		s.errorJSON(w, r, err, http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusBadRequest, envelope{
		"error":  "Invalid payload",
		"issues": vErr.Issues,
	})
}
