package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/highlandgames/gathering/internal/auth"
	"github.com/highlandgames/gathering/internal/database"
)

// contextKey is a custom type used for keys in context.Context. Using a custom
// type prevents collisions between context keys defined in different packages.
type contextKey string

const (
	requestIDContextKey = contextKey("requestID")
	principalContextKey = contextKey("principal")
)

const requestIDHeader = "X-Request-ID"

// correlationID tags each request with an id (reusing one supplied by a proxy)
// and stores a logger carrying that id in the request context.
func (s *Server) correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		reqLogger := s.logger.With().Str("request_id", requestID).Logger()
		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		ctx = reqLogger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger writes one access log line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// requireAdmin only lets through requests bearing a valid token with the admin role.
// Without a signing secret nothing can be verified, so every request fails with 500.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.tokens.Configured() {
			s.serverError(w, r, auth.ErrMisconfigured, "Server misconfigured")
			return
		}

		tokenString, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			s.errorJSON(w, r, errors.New("Missing token"), http.StatusUnauthorized)
			return
		}

		claims, err := s.tokens.Validate(tokenString)
		if err != nil {
			s.errorJSON(w, r, errors.New("Invalid token"), http.StatusUnauthorized)
			return
		}

		principal := claims.Principal()
		if principal.Role != string(database.RoleAdmin) {
			s.errorJSON(w, r, errors.New("Forbidden"), http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Int64("user_id", principal.UserID)
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principalFromContext returns the admin stored by requireAdmin.
func principalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(auth.Principal)
	return p, ok
}
