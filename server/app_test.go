package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-agent-auth"
	"github.com/goliatone/go-agent-auth/agents"
	"github.com/goliatone/go-agent-auth/config"
	"github.com/goliatone/go-agent-auth/persistence"
	"github.com/goliatone/go-agent-auth/server"
)

func testSettings(t *testing.T, env map[string]string) *config.Settings {
	t.Helper()
	values := map[string]string{
		"APP_NAME":       "Agents Test",
		"DEBUG":          "false",
		"JWT_SECRET_KEY": "server-test-secret",
	}
	for k, v := range env {
		values[k] = v
	}

	s, err := config.Load(
		config.WithEnvDir(t.TempDir()),
		config.WithLookup(func(key string) (string, bool) {
			v, ok := values[key]
			return v, ok
		}),
	)
	require.NoError(t, err)
	return s
}

func memoryDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := persistence.OpenMemory(context.Background(), uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestApp(t *testing.T) (*server.App, *bun.DB) {
	t.Helper()
	db := memoryDB(t)

	app, err := server.New(context.Background(), testSettings(t, nil),
		server.WithDB(db),
		server.WithLogger(auth.NopLogger()),
		server.WithHasher(auth.BcryptHasher{Cost: bcrypt.MinCost}),
	)
	require.NoError(t, err)
	return app, db
}

type result struct {
	status int
	header http.Header
	body   string
}

func do(t *testing.T, app *server.App, method, path, token, body string) result {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.HTTP.WrappedRouter().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{status: resp.StatusCode, header: resp.Header, body: string(data)}
}

func TestHomePage(t *testing.T) {
	app, _ := newTestApp(t)

	res := do(t, app, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Contains(t, res.header.Get("Content-Type"), "text/html")
	assert.Contains(t, res.body, "<title>Agents Test</title>")
	assert.Contains(t, res.body, "Python Agent")
	assert.Contains(t, res.body, "wikipedia_agent")
}

func TestHealth(t *testing.T) {
	app, db := newTestApp(t)

	res := do(t, app, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, res.status)

	var status server.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(res.body), &status))
	assert.Equal(t, server.HealthStatus{Status: "ok", App: "Agents Test", Environment: "dev"}, status)

	require.NoError(t, db.Close())

	res = do(t, app, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.status)
	assert.Contains(t, res.body, `"status":"unavailable"`)
}

func TestEndToEnd(t *testing.T) {
	app, _ := newTestApp(t)

	res := do(t, app, http.MethodPost, "/register", "", `{"email":"a@x.com","password":"p1"}`)
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.JSONEq(t, `{"id":1,"email":"a@x.com"}`, res.body)

	res = do(t, app, http.MethodPost, "/register", "", `{"email":"a@x.com","password":"p1"}`)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.JSONEq(t, `{"detail":"User already exists"}`, res.body)

	res = do(t, app, http.MethodPost, "/login", "", `{"email":"a@x.com","password":"p1"}`)
	require.Equal(t, http.StatusOK, res.status, res.body)

	var login auth.LoginResult
	require.NoError(t, json.Unmarshal([]byte(res.body), &login))
	token := login.AccessToken.Token

	claims, err := app.Tokens.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims["sub"])

	res = do(t, app, http.MethodGet, "/me", token, "")
	assert.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `{"id":1,"email":"a@x.com"}`, res.body)

	res = do(t, app, http.MethodGet, "/users/1", "", "")
	assert.Equal(t, http.StatusOK, res.status)

	res = do(t, app, http.MethodGet, "/users/99", "", "")
	assert.Equal(t, http.StatusNotFound, res.status)

	res = do(t, app, http.MethodGet, "/agents", "", "")
	require.Equal(t, http.StatusOK, res.status)
	var catalogue agents.Catalogue
	require.NoError(t, json.Unmarshal([]byte(res.body), &catalogue))
	assert.Len(t, catalogue.Agents, 4)

	res = do(t, app, http.MethodGet, "/agents/web_agent/sessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Bearer", res.header.Get("WWW-Authenticate"))

	res = do(t, app, http.MethodPost, "/agents/web_agent/sessions", token, `{"session_id":"s1","message":"hello agent"}`)
	require.Equal(t, http.StatusOK, res.status, res.body)

	res = do(t, app, http.MethodGet, "/agents/web_agent/sessions", token, "")
	require.Equal(t, http.StatusOK, res.status)
	var sessions agents.SessionsList
	require.NoError(t, json.Unmarshal([]byte(res.body), &sessions))
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, "hello agent", sessions.Sessions[0].Title)
	assert.Equal(t, int64(1), sessions.Sessions[0].UserID)

	res = do(t, app, http.MethodDelete, "/agents/web_agent/sessions/s1", token, "")
	assert.Equal(t, http.StatusNoContent, res.status)

	res = do(t, app, http.MethodPost, "/logout", token, "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Logout successful")

	res = do(t, app, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `agents_api_auth_events_total{event="auth.login.success"} 1`)
	assert.Contains(t, res.body, `agents_api_auth_events_total{event="auth.register.failure"} 1`)
	assert.Contains(t, res.body, `route="/register"`)
}

func TestCORS(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := app.HTTP.WrappedRouter().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:4200", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestNewOpensConfiguredDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "agents.db")
	settings := testSettings(t, map[string]string{
		"DATABASE_URL": "sqlite:///" + path,
	})

	app, err := server.New(context.Background(), settings, server.WithLogger(auth.NopLogger()))
	require.NoError(t, err)

	version, err := persistence.Version(context.Background(), app.DB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))

	assert.Error(t, app.DB.Ping())
	assert.FileExists(t, path)
}

func TestNewRejectsBadDatabaseURL(t *testing.T) {
	settings := testSettings(t, map[string]string{
		"DATABASE_URL": "mysql://localhost/agents",
	})

	_, err := server.New(context.Background(), settings, server.WithLogger(auth.NopLogger()))
	assert.Error(t, err)
}
