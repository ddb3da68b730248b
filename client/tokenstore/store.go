package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	auth "github.com/goliatone/go-agent-auth"
)

var (
	bucketAuth = []byte("auth")
	currentKey = []byte("current")
)

// ErrNotLoggedIn is returned when no session is stored
var ErrNotLoggedIn = errors.New("not logged in")

// Session is what the CLI keeps between invocations
type Session struct {
	BaseURL   string           `json:"base_url"`
	Token     string           `json:"token"`
	TokenType string           `json:"token_type"`
	User      auth.UserSummary `json:"user"`
	SavedAt   time.Time        `json:"saved_at"`
}

// Store persists the current session in a bbolt file
type Store struct {
	db *bbolt.DB
}

// DefaultPath returns ~/.agentctl/session.db
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".agentctl", "session.db")
	}
	return filepath.Join(home, ".agentctl", "session.db")
}

// Open opens or creates the store at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAuth)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the stored session
func (s *Store) Save(session *Session) error {
	if session.SavedAt.IsZero() {
		session.SavedAt = time.Now().UTC()
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAuth).Put(currentKey, data)
	})
}

// Load returns the stored session or ErrNotLoggedIn
func (s *Store) Load() (*Session, error) {
	var session *Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAuth).Get(currentKey)
		if data == nil {
			return ErrNotLoggedIn
		}
		session = &Session{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Delete removes the stored session. Deleting nothing is not an error.
func (s *Store) Delete() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAuth).Delete(currentKey)
	})
}
