package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
)

const (
	DefaultEnvironment = "dev"
	DefaultSecretKey   = "tu_clave_secreta_muy_segura_cambiala_en_produccion"
)

// AppSettings holds the application level settings
type AppSettings struct {
	Name           string
	Environment    string
	Debug          bool
	HTTPAddr       string
	AllowedOrigins []string
}

// DatabaseSettings holds the connection settings
type DatabaseSettings struct {
	URL  string
	Name string
}

// JWTSettings holds the token signing settings
type JWTSettings struct {
	SecretKey         string
	Algorithm         string
	ExpirationMinutes int
	Issuer            string
}

// AgentSettings holds what the agent definitions need from the environment
type AgentSettings struct {
	ModelID              string
	APIKeyEnv            string
	DBFile               string
	WebCollection        string
	WikipediaCollection  string
	HackernewsCollection string
	PythonCollection     string
}

// Settings is the full configuration of the service
type Settings struct {
	App      AppSettings
	Database DatabaseSettings
	JWT      JWTSettings
	Agents   AgentSettings

	// Files lists the env files that were found and loaded
	Files []string
}

// LookupFunc resolves a single configuration key
type LookupFunc func(key string) (string, bool)

type loader struct {
	dir    string
	lookup LookupFunc
}

// Option configures Load
type Option func(*loader)

// WithEnvDir sets the directory that holds the envs/ folder and .env file
func WithEnvDir(dir string) Option {
	return func(l *loader) {
		l.dir = dir
	}
}

// WithLookup replaces the process environment as the top priority source
func WithLookup(fn LookupFunc) Option {
	return func(l *loader) {
		if fn != nil {
			l.lookup = fn
		}
	}
}

// Load resolves settings from defaults, env files and the environment.
// Later files override earlier ones and the environment overrides every
// file:
//
//	envs/.app.<ENVIRONMENT>.env
//	envs/.db.<ENVIRONMENT>.env
//	envs/.jwt.env
//	.env
func Load(opts ...Option) (*Settings, error) {
	l := &loader{
		dir:    ".",
		lookup: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}

	env := DefaultEnvironment
	if v, ok := l.lookup("ENVIRONMENT"); ok && strings.TrimSpace(v) != "" {
		env = strings.TrimSpace(v)
	}

	values := map[string]string{}
	var loaded []string
	for _, name := range envFiles(env) {
		path := filepath.Join(l.dir, name)
		fileValues, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for k, v := range fileValues {
			values[k] = v
		}
		loaded = append(loaded, path)
	}

	src := source{values: values, lookup: l.lookup}

	s := &Settings{
		App: AppSettings{
			Name:        src.str("APP_NAME", "Proyecto Agentes"),
			Environment: src.str("ENVIRONMENT", env),
			Debug:       src.boolean("DEBUG", true),
			HTTPAddr:    src.str("HTTP_ADDR", ":8000"),
			AllowedOrigins: src.list("ALLOWED_ORIGINS", []string{
				"http://localhost:4200",
				"http://127.0.0.1:4200",
				"http://localhost:3000",
				"https://frontagentexam-585785395737.europe-west1.run.app",
			}),
		},
		Database: DatabaseSettings{
			URL:  src.str("DATABASE_URL", "sqlite:///./tmp/agents.db"),
			Name: src.str("DB_NAME", "agentes_db"),
		},
		JWT: JWTSettings{
			SecretKey:         src.str("JWT_SECRET_KEY", DefaultSecretKey),
			Algorithm:         src.str("JWT_ALGORITHM", "HS256"),
			ExpirationMinutes: src.integer("JWT_EXPIRATION_MINUTES", 60),
			Issuer:            src.str("JWT_ISSUER", ""),
		},
		Agents: AgentSettings{
			ModelID:              src.str("AGENTS_MODEL_ID", "llama-3.3-70b-versatile"),
			APIKeyEnv:            "GROQ_API_KEY",
			DBFile:               src.str("AGENTS_DB_FILE", "tmp/agents.db"),
			WebCollection:        src.str("WEB_AGENT_COLLECTION_NAME", "web_agent"),
			WikipediaCollection:  src.str("WIKIPEDIA_AGENT_COLLECTION_NAME", "wikipedia_agent"),
			HackernewsCollection: src.str("HACKERNEWS_AGENT_COLLECTION_NAME", "hackernews_agent"),
			PythonCollection:     src.str("PYTHON_AGENT_COLLECTION_NAME", "python_agent"),
		},
		Files: loaded,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate will run validation rules
func (s *Settings) Validate() error {
	if err := validation.ValidateStruct(&s.App,
		validation.Field(&s.App.Name, validation.Required),
		validation.Field(&s.App.HTTPAddr, validation.Required),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&s.Database,
		validation.Field(&s.Database.URL, validation.Required),
	); err != nil {
		return err
	}

	return validation.ValidateStruct(&s.JWT,
		validation.Field(&s.JWT.SecretKey, validation.Required),
		validation.Field(&s.JWT.Algorithm, validation.Required, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&s.JWT.ExpirationMinutes, validation.Required, validation.Min(1)),
	)
}

// UsesDefaultSecret reports whether the shipped signing key is in use
func (s *Settings) UsesDefaultSecret() bool {
	return s.JWT.SecretKey == DefaultSecretKey
}

// IsDevelopment reports whether the service runs in the dev environment
func (s *Settings) IsDevelopment() bool {
	return s.App.Environment == DefaultEnvironment
}

func envFiles(env string) []string {
	return []string{
		filepath.Join("envs", ".app."+env+".env"),
		filepath.Join("envs", ".db."+env+".env"),
		filepath.Join("envs", ".jwt.env"),
		".env",
	}
}

type source struct {
	values map[string]string
	lookup LookupFunc
}

func (s source) get(key string) (string, bool) {
	if v, ok := s.lookup(key); ok {
		return strings.TrimSpace(v), true
	}
	if v, ok := s.values[key]; ok {
		return strings.TrimSpace(v), true
	}
	return "", false
}

func (s source) str(key, def string) string {
	if v, ok := s.get(key); ok && v != "" {
		return v
	}
	return def
}

func (s source) integer(key string, def int) int {
	if v, ok := s.get(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (s source) boolean(key string, def bool) bool {
	if v, ok := s.get(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (s source) list(key string, def []string) []string {
	v, ok := s.get(key)
	if !ok || v == "" {
		return def
	}

	v = strings.Trim(v, "[]")
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
