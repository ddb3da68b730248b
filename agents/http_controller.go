package agents

import (
	"net/http"

	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-agent-auth"
)

// Summary is the public view of an agent definition
type Summary struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	Model               ModelRef `json:"model"`
	Tool                ToolKind `json:"tool"`
	Instructions        []string `json:"instructions"`
	Markdown            bool     `json:"markdown"`
	ShowToolCalls       bool     `json:"show_tool_calls"`
	NumHistoryResponses int      `json:"num_history_responses"`
}

// NewSummary builds the public view of def
func NewSummary(def Definition) Summary {
	return Summary{
		ID:                  def.ID,
		Name:                def.Name,
		Description:         def.Description,
		Model:               def.Model,
		Tool:                def.Tool().Kind,
		Instructions:        def.Instructions,
		Markdown:            def.Markdown,
		ShowToolCalls:       def.ShowToolCalls,
		NumHistoryResponses: def.NumHistoryResponses,
	}
}

// Catalogue wraps a listing of agents
type Catalogue struct {
	Agents []Summary `json:"agents"`
}

// ClearedSessions is returned when all sessions of an agent are removed
type ClearedSessions struct {
	Deleted int64 `json:"deleted"`
}

// Router is the subset of router.Router the controller mounts routes on
type Router interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

type Controller struct {
	Registry     *Registry
	Sessions     *SessionService
	Logger       auth.Logger
	ErrorHandler router.ErrorHandler
}

// RegisterRoutes mounts the agent catalogue and, behind protected, the
// chat session endpoints.
func RegisterRoutes(r Router, protected router.MiddlewareFunc, registry *Registry, sessions *SessionService, logger auth.Logger) *Controller {
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	c := &Controller{
		Registry:     registry,
		Sessions:     sessions,
		Logger:       logger,
		ErrorHandler: auth.NewErrorHandler(logger),
	}

	r.Get("/agents", c.List).SetName("agents.list")
	r.Get("/agents/:id", c.Get).SetName("agents.get")

	if sessions != nil {
		r.Get("/agents/:id/sessions", c.SessionsList, protected).
			SetName("agents.sessions.list")
		r.Post("/agents/:id/sessions", c.SessionsSave, protected).
			SetName("agents.sessions.save")
		r.Delete("/agents/:id/sessions", c.SessionsClear, protected).
			SetName("agents.sessions.clear")
		r.Delete("/agents/:id/sessions/:sid", c.SessionsDelete, protected).
			SetName("agents.sessions.delete")
	}

	return c
}

func (a *Controller) List(ctx router.Context) error {
	defs := a.Registry.List()
	out := Catalogue{Agents: make([]Summary, 0, len(defs))}
	for _, def := range defs {
		out.Agents = append(out.Agents, NewSummary(def))
	}
	return ctx.JSON(router.StatusOK, out)
}

func (a *Controller) Get(ctx router.Context) error {
	def, err := a.Registry.Get(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, NewSummary(def))
}

func (a *Controller) SessionsList(ctx router.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	list, err := a.Sessions.List(ctx.Context(), user.ID, ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, list)
}

func (a *Controller) SessionsSave(ctx router.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(SaveSessionRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, auth.NewValidationError(err))
	}

	session, err := a.Sessions.Save(ctx.Context(), user.ID, ctx.Param("id"), *payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, session)
}

func (a *Controller) SessionsDelete(ctx router.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Sessions.Delete(ctx.Context(), user.ID, ctx.Param("id"), ctx.Param("sid")); err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (a *Controller) SessionsClear(ctx router.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	n, err := a.Sessions.Clear(ctx.Context(), user.ID, ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(router.StatusOK, ClearedSessions{Deleted: n})
}

func currentUser(ctx router.Context) (*auth.User, error) {
	user, ok := auth.CurrentUser(ctx)
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return user, nil
}
