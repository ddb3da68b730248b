package agents

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-agent-auth"
)

const (
	// MaxSessionsPerAgent caps the sessions kept per user and agent
	MaxSessionsPerAgent = 50
	titleWords          = 6
)

// ChatSession is a user's conversation thread with one agent
type ChatSession struct {
	ID           int64     `json:"-"`
	SessionID    string    `json:"session_id"`
	AgentID      string    `json:"agent_id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"last_message,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionsList wraps a listing of sessions
type SessionsList struct {
	Sessions []*ChatSession `json:"sessions"`
}

// SessionRepository stores chat sessions. Find returns ErrSessionNotFound
// on a miss.
type SessionRepository interface {
	List(ctx context.Context, userID int64, agentID string) ([]*ChatSession, error)
	Find(ctx context.Context, userID int64, agentID, sessionID string) (*ChatSession, error)
	Create(ctx context.Context, session *ChatSession) error
	Update(ctx context.Context, session *ChatSession) error
	Delete(ctx context.Context, userID int64, agentID, sessionID string) (int64, error)
	Clear(ctx context.Context, userID int64, agentID string) (int64, error)
	Prune(ctx context.Context, userID int64, agentID string, keep int) (int64, error)
}

// SaveSessionRequest is the payload to create or touch a session
type SaveSessionRequest struct {
	SessionID    string `json:"session_id" form:"session_id"`
	Message      string `json:"message,omitempty" form:"message"`
	MessageCount *int   `json:"message_count,omitempty" form:"message_count"`
}

// Validate will run validation rules
func (r SaveSessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SessionID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.MessageCount, validation.Min(0)),
	)
}

// SessionService keeps the per agent chat history index of each user
type SessionService struct {
	repo     SessionRepository
	registry *Registry
	clock    auth.Clock
	limit    int
	logger   auth.Logger
}

type SessionServiceOption func(*SessionService)

func WithSessionClock(clock auth.Clock) SessionServiceOption {
	return func(s *SessionService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithSessionLimit(limit int) SessionServiceOption {
	return func(s *SessionService) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func WithSessionLogger(logger auth.Logger) SessionServiceOption {
	return func(s *SessionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSessionService(repo SessionRepository, registry *Registry, opts ...SessionServiceOption) *SessionService {
	s := &SessionService{
		repo:     repo,
		registry: registry,
		clock:    func() time.Time { return time.Now().UTC() },
		limit:    MaxSessionsPerAgent,
		logger:   auth.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the sessions of userID with agentID, newest first
func (s *SessionService) List(ctx context.Context, userID int64, agentID string) (SessionsList, error) {
	if _, err := s.registry.Get(agentID); err != nil {
		return SessionsList{}, err
	}

	sessions, err := s.repo.List(ctx, userID, agentID)
	if err != nil {
		return SessionsList{}, wrapStoreErr(err, "list chat sessions")
	}
	if sessions == nil {
		sessions = []*ChatSession{}
	}
	return SessionsList{Sessions: sessions}, nil
}

// Save creates the session on first sight and updates it afterwards. The
// oldest sessions beyond the limit are pruned.
func (s *SessionService) Save(ctx context.Context, userID int64, agentID string, req SaveSessionRequest) (*ChatSession, error) {
	if _, err := s.registry.Get(agentID); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, auth.NewValidationError(err)
	}

	session, err := s.upsert(ctx, userID, agentID, req)
	if err != nil {
		return nil, err
	}

	pruned, err := s.repo.Prune(ctx, userID, agentID, s.limit)
	if err != nil {
		return nil, wrapStoreErr(err, "prune chat sessions")
	}
	if pruned > 0 {
		s.logger.Debug("pruned chat sessions", "user_id", userID, "agent_id", agentID, "count", pruned)
	}

	return session, nil
}

func (s *SessionService) upsert(ctx context.Context, userID int64, agentID string, req SaveSessionRequest) (*ChatSession, error) {
	now := s.clock()

	existing, err := s.repo.Find(ctx, userID, agentID, req.SessionID)
	switch {
	case err == nil:
		return s.touch(ctx, existing, req, now)
	case !IsSessionNotFoundError(err):
		return nil, wrapStoreErr(err, "find chat session")
	}

	session := &ChatSession{
		SessionID:    req.SessionID,
		AgentID:      agentID,
		UserID:       userID,
		Title:        SessionTitle(req.Message, now),
		LastMessage:  req.Message,
		MessageCount: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.MessageCount != nil {
		session.MessageCount = *req.MessageCount
	}

	if err := s.repo.Create(ctx, session); err != nil {
		if !auth.IsUniqueViolation(err) {
			return nil, wrapStoreErr(err, "create chat session")
		}
		// lost a race with a concurrent create of the same session
		existing, err := s.repo.Find(ctx, userID, agentID, req.SessionID)
		if err != nil {
			return nil, wrapStoreErr(err, "find chat session")
		}
		return s.touch(ctx, existing, req, now)
	}

	return session, nil
}

func (s *SessionService) touch(ctx context.Context, session *ChatSession, req SaveSessionRequest, now time.Time) (*ChatSession, error) {
	session.UpdatedAt = now
	if req.MessageCount != nil {
		session.MessageCount = *req.MessageCount
	} else {
		session.MessageCount++
	}
	if req.Message != "" {
		session.LastMessage = req.Message
	}

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, wrapStoreErr(err, "update chat session")
	}
	return session, nil
}

// Delete removes one session or returns ErrSessionNotFound
func (s *SessionService) Delete(ctx context.Context, userID int64, agentID, sessionID string) error {
	if _, err := s.registry.Get(agentID); err != nil {
		return err
	}

	n, err := s.repo.Delete(ctx, userID, agentID, sessionID)
	if err != nil {
		return wrapStoreErr(err, "delete chat session")
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Clear removes every session of userID with agentID
func (s *SessionService) Clear(ctx context.Context, userID int64, agentID string) (int64, error) {
	if _, err := s.registry.Get(agentID); err != nil {
		return 0, err
	}

	n, err := s.repo.Clear(ctx, userID, agentID)
	if err != nil {
		return 0, wrapStoreErr(err, "clear chat sessions")
	}
	return n, nil
}

// SessionTitle derives a title from the first message: its first six words,
// with an ellipsis when the message had six or more. An empty message
// yields "Chat <date>".
func SessionTitle(message string, now time.Time) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return "Chat " + now.Format(time.DateOnly)
	}

	if len(words) >= titleWords {
		return strings.Join(words[:titleWords], " ") + "..."
	}
	return strings.Join(words, " ")
}

func wrapStoreErr(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
