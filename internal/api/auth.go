package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/highlandgames/gathering/internal/auth"
)

// handleLogin exchanges admin credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := s.readJSON(w, r, &payload); err != nil {
		s.errorJSON(w, r, errors.New("Missing email/password"), http.StatusBadRequest)
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" || payload.Password == "" {
		s.errorJSON(w, r, errors.New("Missing email/password"), http.StatusBadRequest)
		return
	}

	token, user, err := s.authenticator.Authenticate(r.Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.errorJSON(w, r, errors.New("Invalid credentials"), http.StatusUnauthorized)
		return
	case errors.Is(err, auth.ErrMisconfigured):
		s.serverError(w, r, err, "Server misconfigured")
		return
	case err != nil:
		s.serverError(w, r, err, "Auth failed")
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		"token": token,
		"user":  toUserResponse(user),
	})
}
