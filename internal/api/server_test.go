package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highlandgames/gathering/internal/auth"
	"github.com/highlandgames/gathering/internal/config"
	"github.com/highlandgames/gathering/internal/database"
)

const (
	adminEmail    = "admin@x.test"
	adminPassword = "secret123"
	testSecret    = "test-secret"
)

func TestMain(m *testing.M) {
	auth.DefaultParams = auth.ArgonParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	os.Exit(m.Run())
}

type stubNotifier struct {
	calls []database.Registration
	err   error
}

func (n *stubNotifier) NotifyRegistrationStatus(reg *database.Registration) error {
	n.calls = append(n.calls, *reg)
	return n.err
}

type testEnv struct {
	handler  http.Handler
	store    *database.Service
	tokens   *auth.TokenManager
	notifier *stubNotifier
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := database.NewService(filepath.Join(t.TempDir(), "api.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Bootstrap(ctx))

	_, err = auth.ReconcileAdmin(ctx, store, adminEmail, adminPassword)
	require.NoError(t, err)

	cfg := &config.Config{AdminEmail: adminEmail, AdminPassword: adminPassword, JwtSecret: secret, TokenTTL: time.Hour}
	tokens := auth.NewTokenManager(secret, cfg.TokenTTL)
	notifier := &stubNotifier{}

	return &testEnv{
		handler:  NewServer(cfg, store, tokens, notifier, zerolog.Nop()).Handler(),
		store:    store,
		tokens:   tokens,
		notifier: notifier,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// adminToken logs in through the API and returns the issued token.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": adminEmail, "password": adminPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	decode(t, rec, &resp)
	return resp.Error
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, testSecret)

	rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": adminEmail, "password": adminPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, adminEmail, resp.User.Email)
	assert.Equal(t, "admin", resp.User.Role)

	claims, err := env.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, adminEmail, claims.Email)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t, testSecret)

	tests := []struct {
		name   string
		body   interface{}
		status int
		msg    string
	}{
		{name: "wrong password", body: map[string]string{"email": adminEmail, "password": "nope"}, status: http.StatusUnauthorized, msg: "Invalid credentials"},
		{name: "unknown user", body: map[string]string{"email": "who@x.test", "password": adminPassword}, status: http.StatusUnauthorized, msg: "Invalid credentials"},
		{name: "blank email", body: map[string]string{"email": "   ", "password": adminPassword}, status: http.StatusBadRequest, msg: "Missing email/password"},
		{name: "missing password", body: map[string]string{"email": adminEmail}, status: http.StatusBadRequest, msg: "Missing email/password"},
		{name: "empty body", body: "", status: http.StatusBadRequest, msg: "Missing email/password"},
		{name: "malformed json", body: "{", status: http.StatusBadRequest, msg: "Missing email/password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/login", tt.body, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, errorMessage(t, rec))
		})
	}
}

func TestMissingSecretFailsClosed(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": adminEmail, "password": adminPassword}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server misconfigured", errorMessage(t, rec))

	forged, _, err := auth.NewTokenManager("guess", time.Hour).Generate(auth.Principal{UserID: 1, Email: adminEmail, Role: "admin"})
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/registrations", nil, forged)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testSecret)

	// Seed real rows so that a gate letting a request through would be visible.
	reg, err := env.store.SubmitRegistration(ctx, database.NewRegistration{
		FirstName: "Ailsa", LastName: "Grant", Email: "ailsa@x.test", EventID: "caber",
	})
	require.NoError(t, err)
	res, err := env.store.CreateResult(ctx, database.NewResult{
		Athlete: "Callum", EventID: "stone", EventName: "Stone Put", Position: 1, Score: 11.2, Date: "2024-06-01",
	})
	require.NoError(t, err)

	userToken, _, err := env.tokens.Generate(auth.Principal{UserID: 99, Email: "fan@x.test", Role: "user"})
	require.NoError(t, err)
	foreignToken, _, err := auth.NewTokenManager("other", time.Hour).Generate(auth.Principal{UserID: 1, Email: adminEmail, Role: "admin"})
	require.NoError(t, err)

	newResult := map[string]interface{}{
		"athlete": "A", "eventId": "caber", "eventName": "Caber Toss", "position": 1, "score": 10.5, "date": "2024-06-01",
	}
	routes := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/api/results", newResult},
		{http.MethodDelete, "/api/results/" + res.ID, nil},
		{http.MethodGet, "/api/registrations", nil},
		{http.MethodPatch, "/api/registrations/" + reg.ID, map[string]string{"status": "approved"}},
		{http.MethodDelete, "/api/registrations/" + reg.ID, nil},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := env.do(t, rt.method, rt.path, rt.body, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Missing token", errorMessage(t, rec))

			rec = env.do(t, rt.method, rt.path, rt.body, foreignToken)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid token", errorMessage(t, rec))

			rec = env.do(t, rt.method, rt.path, rt.body, userToken)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, "Forbidden", errorMessage(t, rec))
		})
	}

	regs, err := env.store.ListRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, *reg, regs[0])
	assert.Equal(t, database.StatusPending, regs[0].Status)

	results, err := env.store.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, *res, results[0])

	assert.Empty(t, env.notifier.calls)
}

func TestListEventsOrderedByName(t *testing.T) {
	env := newTestEnv(t, testSecret)

	rec := env.do(t, http.MethodGet, "/api/events", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []database.Event
	decode(t, rec, &events)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"Caber Toss", "Stone Put", "Tug o’ War"},
		[]string{events[0].Name, events[1].Name, events[2].Name})
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t, testSecret)

	rec := env.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gathering_http_requests_total")
}

func TestRequestIDIsPropagated(t *testing.T) {
	env := newTestEnv(t, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
