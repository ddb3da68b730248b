package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-agent-auth"
	"github.com/goliatone/go-agent-auth/metrics"
)

func newMetricsApp(m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: auth.NewFiberErrorHandler(auth.NopLogger()),
	})
	app.Use(m.Middleware())
	app.Get("/metrics", m.Handler())
	app.Get("/users/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "99" {
			return auth.ErrUserNotFound
		}
		return c.SendString("ok")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return io.ErrUnexpectedEOF
	})
	return app
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := metrics.New("test")
	app := newMetricsApp(m)

	status, _ := get(t, app, "/users/1")
	assert.Equal(t, http.StatusOK, status)
	status, _ = get(t, app, "/users/2")
	assert.Equal(t, http.StatusOK, status)
	status, _ = get(t, app, "/users/99")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = get(t, app, "/boom")
	assert.Equal(t, http.StatusInternalServerError, status)
	status, _ = get(t, app, "/missing")
	assert.Equal(t, http.StatusNotFound, status)

	status, body := get(t, app, "/metrics")
	require.Equal(t, http.StatusOK, status)

	tests := []string{
		`test_http_requests_total{method="GET",route="/users/:id",status="200"} 2`,
		`test_http_requests_total{method="GET",route="/users/:id",status="404"} 1`,
		`test_http_requests_total{method="GET",route="/boom",status="500"} 1`,
		`test_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`test_http_request_duration_seconds_count{method="GET",route="/users/:id"} 3`,
		`go_goroutines`,
	}

	for _, want := range tests {
		t.Run(want, func(t *testing.T) {
			assert.Contains(t, body, want)
		})
	}
}

func TestRecordCountsAuthEvents(t *testing.T) {
	m := metrics.New("")
	ctx := context.Background()

	var sink auth.ActivitySink = m
	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess}))
	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess}))
	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLoginFailure}))

	expected := `
# HELP agents_api_auth_events_total Authentication outcomes by event type.
# TYPE agents_api_auth_events_total counter
agents_api_auth_events_total{event="auth.login.failure"} 1
agents_api_auth_events_total{event="auth.login.success"} 2
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "agents_api_auth_events_total")
	assert.NoError(t, err)
}

func TestRegistriesAreIndependent(t *testing.T) {
	first := metrics.New("dup")
	second := metrics.New("dup")

	require.NoError(t, first.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout}))

	n, err := testutil.GatherAndCount(second.Registry(), "dup_auth_events_total")
	require.NoError(t, err)
	assert.Zero(t, n)
}
