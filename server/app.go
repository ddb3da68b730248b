package server

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-agent-auth"
	"github.com/goliatone/go-agent-auth/activitymap"
	"github.com/goliatone/go-agent-auth/agents"
	"github.com/goliatone/go-agent-auth/config"
	"github.com/goliatone/go-agent-auth/metrics"
	"github.com/goliatone/go-agent-auth/persistence"
	"github.com/goliatone/go-agent-auth/repository"
)

//go:embed views
var viewsFS embed.FS

const healthTimeout = 2 * time.Second

// App holds every long lived component of the service
type App struct {
	Settings *config.Settings
	Logger   auth.Logger

	DB       *bun.DB
	Repo     auth.RepositoryManager
	Tokens   *auth.TokenServiceImpl
	Auth     *auth.Auther
	Users    *auth.UserService
	Agents   *agents.Registry
	Sessions *agents.SessionService
	Metrics  *metrics.Metrics

	HTTP router.Server[*fiber.App]

	hasher auth.PasswordAuthenticator
	clock  auth.Clock
	ownsDB bool
}

type Option func(*App)

func WithLogger(logger auth.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.Logger = logger
		}
	}
}

// WithDB uses an already opened database instead of DATABASE_URL. The
// caller keeps ownership of db.
func WithDB(db *bun.DB) Option {
	return func(a *App) {
		a.DB = db
	}
}

func WithHasher(hasher auth.PasswordAuthenticator) Option {
	return func(a *App) {
		a.hasher = hasher
	}
}

func WithClock(clock auth.Clock) Option {
	return func(a *App) {
		a.clock = clock
	}
}

// New wires persistence, services and the HTTP server
func New(ctx context.Context, settings *config.Settings, opts ...Option) (*App, error) {
	app := &App{
		Settings: settings,
		Logger:   auth.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := WithPersistence(ctx, app); err != nil {
		return nil, err
	}

	if err := WithServices(ctx, app); err != nil {
		app.closeDB()
		return nil, err
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		app.closeDB()
		return nil, err
	}

	Routes(app)

	return app, nil
}

func WithPersistence(ctx context.Context, app *App) error {
	if app.DB == nil {
		db, err := persistence.Open(ctx, app.Settings.Database.URL)
		if err != nil {
			return err
		}
		app.DB = db
		app.ownsDB = true
	}

	applied, err := persistence.Migrate(ctx, app.DB)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		app.Logger.Info("applied migrations", "versions", applied, "dialect", persistence.DialectOf(app.DB))
	}

	app.Repo = auth.NewRepositoryManager(app.DB)
	return app.Repo.Validate()
}

func WithServices(_ context.Context, app *App) error {
	if app.Settings.UsesDefaultSecret() && !app.Settings.IsDevelopment() {
		app.Logger.Warn("JWT_SECRET_KEY is the default value, set a private key outside dev",
			"environment", app.Settings.App.Environment,
		)
	}

	tokenOpts := []auth.TokenServiceOption{
		auth.WithTokenLogger(app.Logger),
	}
	if app.clock != nil {
		tokenOpts = append(tokenOpts, auth.WithClock(app.clock))
	}

	tokens, err := auth.NewTokenServiceFromConfig(app.Settings, tokenOpts...)
	if err != nil {
		return err
	}
	app.Tokens = tokens

	app.Metrics = metrics.New(metrics.DefaultNamespace)

	sink := auth.MultiActivitySink{
		app.Metrics,
		activitymap.NewLogSink(app.Logger, activitymap.WithDefaultChannel("http")),
	}

	app.Auth = auth.NewAuthenticator(app.Repo, tokens).
		WithLogger(app.Logger).
		WithHasher(app.hasher).
		WithActivitySink(sink)

	app.Users = auth.NewUserService(app.Repo.Users()).WithLogger(app.Logger)

	registry, err := agents.NewRegistry(agents.Builtins(app.Settings.Agents)...)
	if err != nil {
		return err
	}
	app.Agents = registry

	sessionOpts := []agents.SessionServiceOption{
		agents.WithSessionLogger(app.Logger),
	}
	if app.clock != nil {
		sessionOpts = append(sessionOpts, agents.WithSessionClock(app.clock))
	}
	app.Sessions = agents.NewSessionService(
		repository.NewChatSessionRepository(app.DB),
		registry,
		sessionOpts...,
	)

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(views), ".html")
	engine.Reload(app.Settings.App.Debug)

	app.HTTP = router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		f := router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               app.Settings.App.Name,
			ErrorHandler:          auth.NewFiberErrorHandler(app.Logger),
			Views:                 engine,
			StrictRouting:         false,
			DisableStartupMessage: !app.Settings.App.Debug,
		}))

		f.Use(recover.New(recover.Config{
			EnableStackTrace: app.Settings.App.Debug,
		}))
		f.Use(corsMiddleware(app.Settings.App.AllowedOrigins))
		f.Use(app.Metrics.Middleware())
		f.Get("/metrics", app.Metrics.Handler()).Name("metrics")

		return f
	})

	return nil
}

// Routes mounts every endpoint on app.HTTP
func Routes(app *App) {
	r := app.HTTP.Router()

	r.Get("/", app.Home).SetName("home")
	r.Get("/health", app.Health).SetName("health")

	auth.RegisterAuthRoutes(r,
		auth.WithAuthService(app.Auth),
		auth.WithUserQueries(app.Users),
		auth.WithControllerLogger(app.Logger),
		auth.WithControllerDebug(app.Settings.App.Debug),
	)

	protected := auth.NewHTTPAuthenticator(app.Settings, app.Tokens, app.Repo.Users()).
		WithLogger(app.Logger).
		ProtectedRoute()

	agents.RegisterRoutes(r, protected, app.Agents, app.Sessions, app.Logger)

	app.HTTP.Init()
}

// Home renders the landing page with the agent catalogue
func (a *App) Home(ctx router.Context) error {
	defs := a.Agents.List()
	summaries := make([]agents.Summary, 0, len(defs))
	for _, def := range defs {
		summaries = append(summaries, agents.NewSummary(def))
	}

	return ctx.Render("index", router.ViewContext{
		"app_name":    a.Settings.App.Name,
		"environment": a.Settings.App.Environment,
		"agents":      summaries,
	})
}

type HealthStatus struct {
	Status      string `json:"status"`
	App         string `json:"app"`
	Environment string `json:"environment"`
}

// Health reports whether the database is reachable
func (a *App) Health(c router.Context) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthTimeout)
	defer cancel()

	status := HealthStatus{
		Status:      "ok",
		App:         a.Settings.App.Name,
		Environment: a.Settings.App.Environment,
	}

	if err := persistence.Ping(ctx, a.DB); err != nil {
		a.Logger.Error("health check failed", "error", err)
		status.Status = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, status)
	}

	return c.JSON(router.StatusOK, status)
}

// Listen blocks serving HTTP on the configured address
func (a *App) Listen() error {
	return a.HTTP.Serve(a.Settings.App.HTTPAddr)
}

// Shutdown stops the HTTP server and releases the database
func (a *App) Shutdown(ctx context.Context) error {
	err := a.HTTP.Shutdown(ctx)
	a.closeDB()
	return err
}

func (a *App) closeDB() {
	if a.ownsDB && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("close database", "error", err)
		}
	}
}

func corsMiddleware(origins []string) fiber.Handler {
	wildcard := slices.Contains(origins, "*")
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: !wildcard,
	})
}
