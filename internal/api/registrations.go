package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/highlandgames/gathering/internal/database"
	"github.com/highlandgames/gathering/internal/metrics"
)

// handleSubmitRegistration is the public sign-up form endpoint.
func (s *Server) handleSubmitRegistration(w http.ResponseWriter, r *http.Request) {
	var payload registrationPayload
	if err := s.readJSON(w, r, &payload); err != nil {
		s.errorJSON(w, r, err, http.StatusBadRequest)
		return
	}
	payload.normalize()

	if err := validateStruct(payload); err != nil {
		s.invalidPayload(w, r, err)
		return
	}

	reg, err := s.db.SubmitRegistration(r.Context(), payload.toCommand())
	if err != nil {
		if errors.Is(err, database.ErrUnknownEvent) {
			s.errorJSON(w, r, errors.New("Unknown event"), http.StatusBadRequest)
			return
		}
		// Duplicates (same email already registered for the event) land here too.
		s.serverError(w, r, err, "Failed to save registration")
		return
	}

	metrics.RegistrationsSubmitted.Inc()
	zerolog.Ctx(r.Context()).Info().
		Str("registration_id", reg.ID).
		Str("event_id", reg.EventID).
		Msg("registration submitted")
	s.writeJSON(w, http.StatusCreated, envelope{"id": reg.ID})
}

func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	registrations, err := s.db.ListRegistrations(r.Context())
	if err != nil {
		s.serverError(w, r, err, "Failed to load registrations")
		return
	}
	s.writeJSON(w, http.StatusOK, registrations)
}

// handleUpdateRegistrationStatus moderates a registration. Any of the three
// statuses may be set from any other; an unknown id reports updated: 0.
func (s *Server) handleUpdateRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload statusPayload
	if err := s.readJSON(w, r, &payload); err != nil {
		s.errorJSON(w, r, errors.New("Bad status"), http.StatusBadRequest)
		return
	}

	change, err := s.db.UpdateRegistrationStatus(r.Context(), id, payload.Status)
	if err != nil {
		if errors.Is(err, database.ErrInvalidStatus) {
			s.errorJSON(w, r, errors.New("Bad status"), http.StatusBadRequest)
			return
		}
		s.serverError(w, r, err, "Failed to update registration")
		return
	}

	// Only a real transition is counted and announced; repeating the current
	// status still reports the matched row as updated.
	if change.Changed(payload.Status) {
		metrics.RegistrationStatusChanges.WithLabelValues(string(payload.Status)).Inc()
		event := zerolog.Ctx(r.Context()).Info().
			Str("registration_id", id).
			Str("from", string(change.Previous)).
			Str("status", string(payload.Status))
		if admin, ok := principalFromContext(r.Context()); ok {
			event = event.Str("moderator", admin.Email)
		}
		event.Msg("registration status changed")
		s.notifyCompetitor(r, id)
	}

	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "updated": change.Updated})
}

// notifyCompetitor emails the competitor about an approval or rejection.
// Failures are logged and never affect the response.
func (s *Server) notifyCompetitor(r *http.Request, id string) {
	if s.notifier == nil {
		return
	}
	logger := zerolog.Ctx(r.Context())

	reg, err := s.db.GetRegistration(r.Context(), id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error().Err(err).Str("registration_id", id).Msg("could not load registration for notification")
		}
		return
	}
	if reg.Status != database.StatusApproved && reg.Status != database.StatusRejected {
		return
	}

	if err := s.notifier.NotifyRegistrationStatus(reg); err != nil {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Str("registration_id", id).Msg("failed to notify competitor")
		return
	}
	metrics.NotificationsSent.WithLabelValues("sent").Inc()
}

func (s *Server) handleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := s.db.DeleteRegistration(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err, "Failed to delete registration")
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "deleted": deleted})
}
