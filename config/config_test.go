package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-agent-auth"
	"github.com/goliatone/go-agent-auth/config"
)

func lookupFrom(env map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	s, err := config.Load(
		config.WithEnvDir(t.TempDir()),
		config.WithLookup(lookupFrom(nil)),
	)
	require.NoError(t, err)

	assert.Equal(t, "Proyecto Agentes", s.App.Name)
	assert.Equal(t, "dev", s.App.Environment)
	assert.True(t, s.App.Debug)
	assert.Equal(t, ":8000", s.App.HTTPAddr)
	assert.Equal(t, []string{
		"http://localhost:4200",
		"http://127.0.0.1:4200",
		"http://localhost:3000",
		"https://frontagentexam-585785395737.europe-west1.run.app",
	}, s.App.AllowedOrigins)
	assert.Equal(t, "sqlite:///./tmp/agents.db", s.Database.URL)
	assert.Equal(t, "agentes_db", s.Database.Name)
	assert.Equal(t, config.DefaultSecretKey, s.JWT.SecretKey)
	assert.Equal(t, "HS256", s.JWT.Algorithm)
	assert.Equal(t, 60, s.JWT.ExpirationMinutes)
	assert.Equal(t, "llama-3.3-70b-versatile", s.Agents.ModelID)
	assert.Equal(t, "GROQ_API_KEY", s.Agents.APIKeyEnv)
	assert.Empty(t, s.Files)
	assert.True(t, s.UsesDefaultSecret())
	assert.True(t, s.IsDevelopment())
}

func TestLoadEnvFiles(t *testing.T) {
	s, err := config.Load(
		config.WithEnvDir("testdata"),
		config.WithLookup(lookupFrom(map[string]string{
			"ENVIRONMENT":    "test",
			"JWT_SECRET_KEY": "process-secret",
		})),
	)
	require.NoError(t, err)

	assert.Len(t, s.Files, 4)
	assert.Equal(t, filepath.Join("testdata", "envs", ".app.test.env"), s.Files[0])

	assert.Equal(t, "Agents Test", s.App.Name)
	assert.Equal(t, "test", s.App.Environment)
	assert.False(t, s.App.Debug)
	assert.Equal(t, []string{"http://localhost:4200", "http://example.com"}, s.App.AllowedOrigins)
	assert.Equal(t, "sqlite:///:memory:", s.Database.URL)
	assert.Equal(t, "agents_test", s.Database.Name)

	assert.Equal(t, "process-secret", s.JWT.SecretKey, "process env wins over files")
	assert.Equal(t, 30, s.JWT.ExpirationMinutes, ".env is loaded last")
	assert.False(t, s.IsDevelopment())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "non hmac algorithm", env: map[string]string{"JWT_ALGORITHM": "RS256"}},
		{name: "negative expiration", env: map[string]string{"JWT_EXPIRATION_MINUTES": "-5"}},
		{name: "zero expiration", env: map[string]string{"JWT_EXPIRATION_MINUTES": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(
				config.WithEnvDir(t.TempDir()),
				config.WithLookup(lookupFrom(tt.env)),
			)
			assert.Error(t, err)
		})
	}
}

func TestSettingsImplementsAuthConfig(t *testing.T) {
	s, err := config.Load(
		config.WithEnvDir(t.TempDir()),
		config.WithLookup(lookupFrom(map[string]string{"JWT_ISSUER": "agents"})),
	)
	require.NoError(t, err)

	var cfg auth.Config = s
	assert.Equal(t, config.DefaultSecretKey, cfg.GetSigningKey())
	assert.Equal(t, "HS256", cfg.GetSigningMethod())
	assert.Equal(t, 60, cfg.GetTokenExpiration())
	assert.Equal(t, "user", cfg.GetContextKey())
	assert.Equal(t, "header:Authorization,query:token", cfg.GetTokenLookup())
	assert.Equal(t, "Bearer", cfg.GetAuthScheme())
	assert.Equal(t, "agents", cfg.GetIssuer())
}
