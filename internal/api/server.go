package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/highlandgames/gathering/internal/auth"
	"github.com/highlandgames/gathering/internal/config"
	"github.com/highlandgames/gathering/internal/database"
)

// maxBodyBytes caps every JSON request body at 1 MB. Larger bodies are rejected
// by readJSON before they are fully read into memory.
const maxBodyBytes = 1 << 20

// Notifier tells a competitor about a moderation decision.
// The email service satisfies it in production and tests substitute a recorder.
type Notifier interface {
	NotifyRegistrationStatus(reg *database.Registration) error
}

// Server is the main struct for the API. It holds every dependency the HTTP
// handlers need: configuration, the store, token handling, the notifier and the
// base logger. Handlers are methods on Server, so tests can build one around a
// temporary database and exercise the real routes.
type Server struct {
	config        *config.Config
	db            *database.Service
	tokens        *auth.TokenManager
	authenticator *auth.Authenticator
	notifier      Notifier
	logger        zerolog.Logger
}

// NewServer creates a Server and wires its dependencies together. The
// authenticator is built here from the store and token manager, so callers only
// pass the pieces they own. notifier may be nil, in which case status changes
// are recorded without sending anything.
func NewServer(cfg *config.Config, db *database.Service, tokens *auth.TokenManager, notifier Notifier, logger zerolog.Logger) *Server {
	return &Server{
		config:        cfg,
		db:            db,
		tokens:        tokens,
		authenticator: auth.NewAuthenticator(db, tokens),
		notifier:      notifier,
		logger:        logger,
	}
}

// Handler returns the fully routed HTTP handler, middleware included.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterRoutes(r)
	return r
}

// envelope is a named map used for structured JSON responses,
// e.g. envelope{"ok": true, "deleted": n}.
type envelope map[string]interface{}

// writeJSON is the single place responses are written. It marshals data, copies
// any extra headers, sets the JSON content type and writes the status code.
// Marshalling happens before anything is sent, so a failure can still turn into
// a clean 500 instead of a half written body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}, headers ...http.Header) {
	// 1. Marshal first. Nothing has been written to the client yet.
	js, err := json.Marshal(data)
	if err != nil {
		// Our own JSON failed to encode, so fall back to plain text.
		http.Error(w, "Internal Server Error: Failed to marshal JSON", http.StatusInternalServerError)
		return
	}

	// 2. Append any additional headers passed by the caller.
	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	// 3. Set the content type and status, then send the body.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
}

// errorJSON sends a standardized error response of the form {"error": "message"},
// so every failure the API reports has the same shape. The message is err's text
// and is shown to the client, so callers pass errors written for the public.
// 5xx responses are logged at error level and everything else at warn, using the
// request-scoped logger so the entry carries the request id.
func (s *Server) errorJSON(w http.ResponseWriter, r *http.Request, err error, status ...int) {
	// Default to 500 Internal Server Error if no status is provided.
	statusCode := http.StatusInternalServerError
	if len(status) > 0 {
		statusCode = status[0]
	}

	logger := zerolog.Ctx(r.Context())
	if statusCode >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", statusCode).Msg("request failed")
	} else {
		logger.Warn().Err(err).Int("status", statusCode).Msg("request rejected")
	}

	s.writeJSON(w, statusCode, envelope{"error": err.Error()})
}

// serverError is for failures whose cause must not reach the client, such as
// database errors. The cause is logged in full and the response carries only
// the fixed public message.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, cause error, message string) {
	zerolog.Ctx(r.Context()).Error().Err(cause).Msg(message)
	s.writeJSON(w, http.StatusInternalServerError, envelope{"error": message})
}

// readJSON decodes a single JSON object from the request body into dst.
// The returned errors describe what was wrong with the body. Handlers map them to
// their own public messages rather than echoing them.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	// 1. Cap the body size. Reading past the limit fails with *http.MaxBytesError.
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	// 2. Decode and translate the common failures into readable errors.
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesErr.Limit)
		default:
			return fmt.Errorf("could not decode JSON: %w", err)
		}
	}
	// 3. Reject trailing data such as a second object after the first.
	if dec.More() {
		return errors.New("body must only contain a single JSON object")
	}
	return nil
}
