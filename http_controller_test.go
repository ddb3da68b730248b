package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-agent-auth"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func TestAuthControllerFlow(t *testing.T) {
	fx := newAuthFixture(t)
	app := newTestServer(t, fx)

	var token string

	t.Run("register", func(t *testing.T) {
		resp := call(t, app, http.MethodPost, "/register", "", credentials{"a@x.com", "p1"})
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		var user auth.UserSummary
		resp.decode(t, &user)
		assert.Equal(t, auth.UserSummary{ID: 1, Email: "a@x.com"}, user)
	})

	t.Run("register again", func(t *testing.T) {
		resp := call(t, app, http.MethodPost, "/register", "", credentials{"a@x.com", "p2"})
		assert.Equal(t, http.StatusBadRequest, resp.status)

		var body auth.ErrorResponse
		resp.decode(t, &body)
		assert.Equal(t, "User already exists", body.Detail)
	})

	t.Run("login", func(t *testing.T) {
		resp := call(t, app, http.MethodPost, "/login", "", credentials{"a@x.com", "p1"})
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		var result auth.LoginResult
		resp.decode(t, &result)
		assert.Equal(t, "bearer", result.AccessToken.TokenType)
		assert.Equal(t, auth.UserSummary{ID: 1, Email: "a@x.com"}, result.User)
		token = result.AccessToken.Token
	})

	t.Run("login wrong password", func(t *testing.T) {
		resp := call(t, app, http.MethodPost, "/login", "", credentials{"a@x.com", "nope"})
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, "Bearer", resp.header.Get("WWW-Authenticate"))

		var body auth.ErrorResponse
		resp.decode(t, &body)
		assert.Equal(t, "Incorrect username or password", body.Detail)
	})

	t.Run("me", func(t *testing.T) {
		resp := call(t, app, http.MethodGet, "/me", token, nil)
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		var user auth.UserSummary
		resp.decode(t, &user)
		assert.Equal(t, "a@x.com", user.Email)
	})

	t.Run("me without token", func(t *testing.T) {
		resp := call(t, app, http.MethodGet, "/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, "Bearer", resp.header.Get("WWW-Authenticate"))
	})

	t.Run("get user", func(t *testing.T) {
		resp := call(t, app, http.MethodGet, "/users/1", "", nil)
		require.Equal(t, http.StatusOK, resp.status)

		var user auth.UserSummary
		resp.decode(t, &user)
		assert.Equal(t, auth.UserSummary{ID: 1, Email: "a@x.com"}, user)
	})

	t.Run("get unknown user", func(t *testing.T) {
		resp := call(t, app, http.MethodGet, "/users/99", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.status)

		var body auth.ErrorResponse
		resp.decode(t, &body)
		assert.Equal(t, "User not found", body.Detail)
	})

	t.Run("get user with bad id", func(t *testing.T) {
		resp := call(t, app, http.MethodGet, "/users/abc", "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.status)

		var body auth.ErrorResponse
		resp.decode(t, &body)
		assert.Contains(t, body.Errors, "id")
	})

	t.Run("list users", func(t *testing.T) {
		_, err := fx.auther.Register(t.Context(), "b@x.com", "p2")
		require.NoError(t, err)

		resp := call(t, app, http.MethodGet, "/users/", "", nil)
		require.Equal(t, http.StatusOK, resp.status)

		var list auth.UsersList
		resp.decode(t, &list)
		assert.Equal(t, []auth.UserSummary{
			{ID: 1, Email: "a@x.com"},
			{ID: 2, Email: "b@x.com"},
		}, list.Users)
	})

	t.Run("logout", func(t *testing.T) {
		resp := call(t, app, http.MethodPost, "/logout", token, nil)
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		var confirmation auth.LogoutConfirmation
		resp.decode(t, &confirmation)
		assert.Equal(t, "Logout successful", confirmation.Message)
	})

	t.Run("logout without token", func(t *testing.T) {
		resp := call(t, app, http.MethodPost, "/logout", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.status)
	})
}

func TestAuthControllerValidation(t *testing.T) {
	fx := newAuthFixture(t)
	app := newTestServer(t, fx)

	tests := []struct {
		name  string
		path  string
		body  any
		field string
	}{
		{name: "register bad email", path: "/register", body: credentials{"nope", "p1"}, field: "email"},
		{name: "register no password", path: "/register", body: credentials{"a@x.com", ""}, field: "password"},
		{name: "login no email", path: "/login", body: credentials{"", "p1"}, field: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, app, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.status)

			var body auth.ErrorResponse
			resp.decode(t, &body)
			assert.Equal(t, "Invalid request payload", body.Detail)
			assert.Contains(t, body.Errors, tt.field)
		})
	}
}

func TestNewAuthControllerRequiresServices(t *testing.T) {
	assert.Panics(t, func() {
		auth.NewAuthController()
	})

	fx := newAuthFixture(t)
	assert.Panics(t, func() {
		auth.NewAuthController(auth.WithAuthService(fx.auther))
	})
}
