package auth

import (
	"context"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	logoutMessage       = "Logout successful"
	logoutDetail        = "Session closed successfully. Please remove the token from client."
	logoutExpiredDetail = "Token was already expired."
)

// Auther orchestrates registration, login, identification and logout
type Auther struct {
	repo         RepositoryManager
	provider     IdentityProvider
	tokenService TokenService
	registrar    *RegisterUserHandler
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(repo RepositoryManager, tokenService TokenService) *Auther {
	return &Auther{
		repo:         repo,
		provider:     NewUserProvider(repo.Users()),
		tokenService: tokenService,
		registrar:    NewRegisterUserHandler(repo, BcryptHasher{}),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger == nil {
		return s
	}
	s.logger = logger
	if up, ok := s.provider.(*UserProvider); ok {
		up.WithLogger(logger)
	}
	return s
}

// WithHasher replaces the password hasher used for registration and login
func (s *Auther) WithHasher(hasher PasswordAuthenticator) *Auther {
	if hasher == nil {
		return s
	}
	s.registrar = NewRegisterUserHandler(s.repo, hasher)
	if up, ok := s.provider.(*UserProvider); ok {
		up.WithHasher(hasher)
	}
	return s
}

// WithIdentityProvider overrides how credentials and subjects are resolved
func (s *Auther) WithIdentityProvider(provider IdentityProvider) *Auther {
	if provider != nil {
		s.provider = provider
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Register creates a user unless the email is already taken
func (s *Auther) Register(ctx context.Context, email, password string) (UserSummary, error) {
	user, err := s.registrar.Handle(ctx, RegisterUserMessage{
		Email:    email,
		Password: password,
	})
	if err != nil {
		s.logger.Info("register failed", "email", email, "error", err)
		s.emit(ctx, ActivityEventRegisterFailure, "", map[string]any{"error": err.Error()})
		return UserSummary{}, err
	}

	s.emit(ctx, ActivityEventRegisterSuccess, formatUserID(user.ID), nil)
	return user.Summary(), nil
}

// Login verifies credentials and issues a bearer token
func (s *Auther) Login(ctx context.Context, email, password string) (LoginResult, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Info("login verify identity error", "error", err)
		s.emit(ctx, ActivityEventLoginFailure, "", map[string]any{"error": err.Error()})
		return LoginResult{}, err
	}

	token, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("login failed to generate token", "error", err)
		s.emit(ctx, ActivityEventLoginFailure, identity.ID(), map[string]any{"error": err.Error()})
		return LoginResult{}, err
	}

	s.emit(ctx, ActivityEventLoginSuccess, identity.ID(), nil)

	return LoginResult{
		AccessToken: AccessToken{
			Token:     token,
			TokenType: TokenTypeBearer,
		},
		User: summaryFromIdentity(identity),
	}, nil
}

// Identify resolves the user behind token. Expired tokens fail with
// ErrTokenExpired, anything else untrusted fails with ErrUnauthorized.
func (s *Auther) Identify(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokenService.Decode(token)
	if err != nil {
		s.emit(ctx, ActivityEventIdentifyFailure, "", map[string]any{"error": err.Error()})
		if IsTokenExpiredError(err) {
			return nil, ErrTokenExpired
		}
		return nil, withSource(ErrUnauthorized, err)
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		s.emit(ctx, ActivityEventIdentifyFailure, "", map[string]any{"error": err.Error()})
		return nil, err
	}

	return user, nil
}

// Logout is advisory. No revocation state is kept, an expired token counts
// as already logged out.
func (s *Auther) Logout(ctx context.Context, token string) (LogoutConfirmation, error) {
	claims, err := s.tokenService.Decode(token)
	if err != nil {
		if IsTokenExpiredError(err) {
			s.emit(ctx, ActivityEventLogoutExpired, "", nil)
			return LogoutConfirmation{
				Message: logoutMessage,
				Detail:  logoutExpiredDetail,
			}, nil
		}
		return LogoutConfirmation{}, withSource(ErrUnauthorized, err)
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return LogoutConfirmation{}, err
	}

	s.emit(ctx, ActivityEventLogout, formatUserID(user.ID), nil)

	return LogoutConfirmation{
		Message: logoutMessage,
		Detail:  logoutDetail,
	}, nil
}

func (s *Auther) userFromClaims(ctx context.Context, claims map[string]any) (*User, error) {
	sub, ok := SubjectFromClaims(claims)
	if !ok {
		return nil, ErrUnauthorized
	}

	identity, err := s.provider.FindIdentityBySubject(ctx, sub)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve token subject")
	}

	if identity == nil {
		return nil, ErrUnauthorized
	}

	if user, ok := UserFromIdentity(identity); ok {
		return user, nil
	}

	id, _ := strconv.ParseInt(identity.ID(), 10, 64)
	return &User{ID: id, Email: identity.Email()}, nil
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(s.activitySink).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}

func summaryFromIdentity(identity Identity) UserSummary {
	if user, ok := UserFromIdentity(identity); ok {
		return user.Summary()
	}
	id, _ := strconv.ParseInt(identity.ID(), 10, 64)
	return UserSummary{ID: id, Email: identity.Email()}
}
