package auth

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-agent-auth/middleware/jwtware"
)

// UserLocalsKey is where protected routes keep the resolved *User
const UserLocalsKey = "current_user"

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

// RouteAuthenticator guards routes with bearer tokens
type RouteAuthenticator struct {
	cfg          Config
	tokens       TokenValidator
	users        UserFinder
	listeners    []ValidationListener
	Logger       Logger
	ErrorHandler router.ErrorHandler
}

func NewHTTPAuthenticator(cfg Config, tokens TokenValidator, users UserFinder) *RouteAuthenticator {
	a := &RouteAuthenticator{
		cfg:    cfg,
		tokens: tokens,
		users:  users,
		Logger: defLogger{},
	}
	a.ErrorHandler = NewErrorHandler(a.Logger)
	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
		a.ErrorHandler = NewErrorHandler(logger)
	}
	return a
}

// WithValidationListeners adds checks that run after the user is resolved
func (a *RouteAuthenticator) WithValidationListeners(listeners ...ValidationListener) *RouteAuthenticator {
	a.listeners = append(a.listeners, listeners...)
	return a
}

// ProtectedRoute rejects requests without a valid token whose subject
// still resolves to a user.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	cfg := jwtware.Config{
		ErrorHandler: a.authErrorHandler,
		ContextKey:   a.cfg.GetContextKey(),
		TokenLookup:  a.cfg.GetTokenLookup(),
		AuthScheme:   a.cfg.GetAuthScheme(),
		TokenValidator: jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
			claims, err := a.tokens.Validate(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
	}

	RegisterValidationListeners(&cfg, a.requireSubject)
	RegisterValidationListeners(&cfg, a.listeners...)

	return jwtware.New(cfg)
}

func (a *RouteAuthenticator) requireSubject(ctx router.Context, claims jwtware.AuthClaims) error {
	sub := claims.Subject()
	if sub == "" {
		return ErrUnauthorized
	}

	user, err := a.users.GetByEmail(ctx.Context(), sub)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrUnauthorized
		}
		return err
	}

	ctx.SetContext(WithContext(ctx.Context(), user))
	ctx.Locals(UserLocalsKey, user)
	return nil
}

func (a *RouteAuthenticator) authErrorHandler(ctx router.Context, err error) error {
	switch {
	case IsTokenExpiredError(err):
		err = ErrTokenExpired
	case errors.Is(err, jwtware.ErrJWTMissingOrMalformed), IsTokenInvalidError(err):
		err = withSource(ErrUnauthorized, err)
	}
	return a.ErrorHandler(ctx, err)
}

// CurrentUser returns the user resolved by ProtectedRoute
func CurrentUser(ctx router.Context) (*User, bool) {
	if user, ok := ctx.Locals(UserLocalsKey).(*User); ok && user != nil {
		return user, true
	}
	return FromContext(ctx.Context())
}

// NewErrorHandler renders errors as {"detail": ...} with a status derived
// from the error.
func NewErrorHandler(logger Logger) router.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(ctx router.Context, err error) error {
		status, body := ErrorToResponse(err)
		logRequestError(logger, ctx.Method(), ctx.Path(), status, body, err)

		if wantsBearerChallenge(status, err) {
			ctx.SetHeader(fiber.HeaderWWWAuthenticate, "Bearer")
		}

		return ctx.JSON(status, body)
	}
}

// NewFiberErrorHandler is NewErrorHandler for errors that reach the
// underlying fiber app, such as unmatched routes and recovered panics.
func NewFiberErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		status, body := ErrorToResponse(err)
		logRequestError(logger, c.Method(), c.Path(), status, body, err)

		if wantsBearerChallenge(status, err) {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}

		return c.Status(status).JSON(body)
	}
}

func wantsBearerChallenge(status int, err error) bool {
	return status == http.StatusUnauthorized && !IsTokenExpiredError(err)
}

func logRequestError(logger Logger, method, path string, status int, body ErrorResponse, err error) {
	if status < http.StatusInternalServerError {
		logger.Debug("request rejected",
			"method", method,
			"path", path,
			"status", status,
			"detail", body.Detail,
		)
		return
	}

	var richErr *goerrors.Error
	details := ""
	if goerrors.As(err, &richErr) {
		details = print.MaybePrettyJSON(richErr.Metadata)
	}
	logger.Error("request failed",
		"method", method,
		"path", path,
		"error", err,
		"details", details,
	)
}

// ErrorToResponse maps an error to its HTTP status and body
func ErrorToResponse(err error) (int, ErrorResponse) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse{Detail: fiberErr.Message}
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError, ErrorResponse{Detail: "Internal Server Error"}
	}

	status := richErr.Code
	if status == 0 {
		status = statusForCategory(richErr.Category)
	}

	if status >= http.StatusInternalServerError {
		return status, ErrorResponse{Detail: "Internal Server Error"}
	}

	body := ErrorResponse{Detail: richErr.Message}
	if fields, ok := richErr.Metadata["fields"].(map[string]string); ok {
		body.Errors = fields
	}

	return status, body
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError converts ozzo validation errors into a rich error
func NewValidationError(err error) *goerrors.Error {
	fields := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	}

	msg := "Invalid request payload"
	if len(fields) == 0 && err != nil {
		msg = err.Error()
	}

	return goerrors.New(msg, goerrors.CategoryValidation).
		WithTextCode("VALIDATION_ERROR").
		WithCode(http.StatusUnprocessableEntity).
		WithMetadata(map[string]any{"fields": fields})
}

// TokenFromRequest looks for a token in the token query parameter and then
// in an Authorization bearer header.
func TokenFromRequest(ctx router.Context) string {
	if token := strings.TrimSpace(ctx.Query("token", "")); token != "" {
		return token
	}

	header := ctx.Header(router.HeaderAuthorization)
	const scheme = "bearer "
	if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}

	return ""
}
