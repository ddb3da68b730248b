package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-agent-auth/agents"
)

// ChatSessionModel is the Bun model for chat sessions.
type ChatSessionModel struct {
	bun.BaseModel `bun:"table:chat_sessions,alias:cs"`

	ID           int64     `bun:"id,pk,autoincrement"`
	SessionID    string    `bun:"session_id,notnull"`
	AgentID      string    `bun:"agent_id,notnull"`
	UserID       int64     `bun:"user_id,notnull"`
	Title        string    `bun:"title,notnull"`
	LastMessage  string    `bun:"last_message"`
	MessageCount int       `bun:"message_count,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// ChatSessionRepository implements agents.SessionRepository using Bun.
type ChatSessionRepository struct {
	db bun.IDB
}

var _ agents.SessionRepository = (*ChatSessionRepository)(nil)

// NewChatSessionRepository creates a new repository.
func NewChatSessionRepository(db bun.IDB) *ChatSessionRepository {
	return &ChatSessionRepository{db: db}
}

// List implements agents.SessionRepository.
func (r *ChatSessionRepository) List(ctx context.Context, userID int64, agentID string) ([]*agents.ChatSession, error) {
	var models []ChatSessionModel
	err := r.db.NewSelect().
		Model(&models).
		Where("?TableAlias.user_id = ? AND ?TableAlias.agent_id = ?", userID, agentID).
		OrderExpr("?TableAlias.updated_at DESC, ?TableAlias.id DESC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*agents.ChatSession{}, nil
		}
		return nil, err
	}

	sessions := make([]*agents.ChatSession, len(models))
	for i := range models {
		sessions[i] = toChatSession(&models[i])
	}
	return sessions, nil
}

// Find implements agents.SessionRepository.
func (r *ChatSessionRepository) Find(ctx context.Context, userID int64, agentID, sessionID string) (*agents.ChatSession, error) {
	var model ChatSessionModel
	err := r.db.NewSelect().
		Model(&model).
		Where("?TableAlias.user_id = ? AND ?TableAlias.agent_id = ? AND ?TableAlias.session_id = ?", userID, agentID, sessionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, agents.ErrSessionNotFound
		}
		return nil, err
	}
	return toChatSession(&model), nil
}

// Create implements agents.SessionRepository.
func (r *ChatSessionRepository) Create(ctx context.Context, session *agents.ChatSession) error {
	model := fromChatSession(session)

	_, err := r.db.NewInsert().
		Model(model).
		Exec(ctx)
	if err != nil {
		return err
	}

	session.ID = model.ID
	return nil
}

// Update implements agents.SessionRepository.
func (r *ChatSessionRepository) Update(ctx context.Context, session *agents.ChatSession) error {
	model := fromChatSession(session)

	_, err := r.db.NewUpdate().
		Model(model).
		Column("title", "last_message", "message_count", "updated_at").
		Where("user_id = ? AND agent_id = ? AND session_id = ?", model.UserID, model.AgentID, model.SessionID).
		Exec(ctx)
	return err
}

// Delete implements agents.SessionRepository.
func (r *ChatSessionRepository) Delete(ctx context.Context, userID int64, agentID, sessionID string) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*ChatSessionModel)(nil)).
		Where("user_id = ? AND agent_id = ? AND session_id = ?", userID, agentID, sessionID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Clear implements agents.SessionRepository.
func (r *ChatSessionRepository) Clear(ctx context.Context, userID int64, agentID string) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*ChatSessionModel)(nil)).
		Where("user_id = ? AND agent_id = ?", userID, agentID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Prune implements agents.SessionRepository.
func (r *ChatSessionRepository) Prune(ctx context.Context, userID int64, agentID string, keep int) (int64, error) {
	newest := r.db.NewSelect().
		TableExpr("chat_sessions AS newest").
		ColumnExpr("newest.id").
		Where("newest.user_id = ? AND newest.agent_id = ?", userID, agentID).
		OrderExpr("newest.updated_at DESC, newest.id DESC").
		Limit(keep)

	res, err := r.db.NewDelete().
		Model((*ChatSessionModel)(nil)).
		Where("user_id = ? AND agent_id = ?", userID, agentID).
		Where("id NOT IN (?)", newest).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func toChatSession(m *ChatSessionModel) *agents.ChatSession {
	return &agents.ChatSession{
		ID:           m.ID,
		SessionID:    m.SessionID,
		AgentID:      m.AgentID,
		UserID:       m.UserID,
		Title:        m.Title,
		LastMessage:  m.LastMessage,
		MessageCount: m.MessageCount,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func fromChatSession(s *agents.ChatSession) *ChatSessionModel {
	return &ChatSessionModel{
		ID:           s.ID,
		SessionID:    s.SessionID,
		AgentID:      s.AgentID,
		UserID:       s.UserID,
		Title:        s.Title,
		LastMessage:  s.LastMessage,
		MessageCount: s.MessageCount,
		CreatedAt:    s.CreatedAt.UTC(),
		UpdatedAt:    s.UpdatedAt.UTC(),
	}
}
