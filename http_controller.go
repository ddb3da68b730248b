package auth

import (
	"context"
	"errors"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// AuthService is what the HTTP layer needs from Auther
type AuthService interface {
	Register(ctx context.Context, email, password string) (UserSummary, error)
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Identify(ctx context.Context, token string) (*User, error)
	Logout(ctx context.Context, token string) (LogoutConfirmation, error)
}

// UserQueries is what the HTTP layer needs from UserService
type UserQueries interface {
	GetByID(ctx context.Context, id int64) (UserSummary, error)
	GetAll(ctx context.Context) (UsersList, error)
}

var (
	_ AuthService = (*Auther)(nil)
	_ UserQueries = (*UserService)(nil)
)

type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Me       string
	Users    string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Auth         AuthService
	Users        UserQueries
	Routes       *AuthControllerRoutes
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithAuthService(svc AuthService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auth = svc
		return c
	}
}

func WithUserQueries(svc UserQueries) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Users = svc
		return c
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ErrorHandler = handler
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
			Me:       "/me",
			Users:    "/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auth == nil {
		panic("Missing AuthService in auth controller...")
	}

	if c.Users == nil {
		panic("Missing UserQueries in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = NewErrorHandler(c.Logger)
	}

	return c
}

// RegisterAuthRoutes mounts the auth and user endpoints on app
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegisterPost).
		SetName("auth.register")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")
	app.Get(controller.Routes.Me, controller.MeGet).
		SetName("auth.me")
	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout")

	app.Get(controller.Routes.Users, controller.UsersList).
		SetName("users.list")
	app.Get(controller.Routes.Users+"/:id", controller.UserGet).
		SetName("users.get")

	return controller
}

// CredentialsRequest is the payload of register and login
type CredentialsRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r CredentialsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) bindCredentials(ctx router.Context) (*CredentialsRequest, error) {
	payload := new(CredentialsRequest)

	if err := ctx.Bind(payload); err != nil {
		return nil, NewValidationError(err)
	}

	if a.Debug {
		a.Logger.Debug("credentials payload", "payload", print.MaybePrettyJSON(map[string]any{
			"email":    payload.Email,
			"password": "********",
		}))
	}

	if err := payload.Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	return payload, nil
}

func (a *AuthController) RegisterPost(ctx router.Context) error {
	payload, err := a.bindCredentials(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Auth.Register(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload, err := a.bindCredentials(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	result, err := a.Auth.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (a *AuthController) MeGet(ctx router.Context) error {
	token := TokenFromRequest(ctx)
	if token == "" {
		return a.ErrorHandler(ctx, ErrUnauthorized)
	}

	user, err := a.Auth.Identify(ctx.Context(), token)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user.Summary())
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	token := TokenFromRequest(ctx)
	if token == "" {
		return a.ErrorHandler(ctx, ErrUnauthorized)
	}

	confirmation, err := a.Auth.Logout(ctx.Context(), token)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, confirmation)
}

func (a *AuthController) UserGet(ctx router.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return a.ErrorHandler(ctx, NewValidationError(validation.Errors{
			"id": errors.New("must be an integer"),
		}))
	}

	user, err := a.Users.GetByID(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

func (a *AuthController) UsersList(ctx router.Context) error {
	list, err := a.Users.GetAll(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, list)
}
