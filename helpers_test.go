package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-agent-auth"
	"github.com/goliatone/go-agent-auth/persistence"
)

const testSigningKey = "test-signing-key"

var fastHasher = auth.BcryptHasher{Cost: bcrypt.MinCost}

// testClock is a settable time source
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	db, err := persistence.OpenMemory(ctx, uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = persistence.Migrate(ctx, db)
	require.NoError(t, err)

	return db
}

func newTestTokenService(t *testing.T, clock *testClock, opts ...auth.TokenServiceOption) *auth.TokenServiceImpl {
	t.Helper()
	opts = append([]auth.TokenServiceOption{
		auth.WithClock(clock.Now),
		auth.WithTokenLogger(auth.NopLogger()),
	}, opts...)

	ts, err := auth.NewTokenService([]byte(testSigningKey), "HS256", 60, opts...)
	require.NoError(t, err)
	return ts
}

type authFixture struct {
	db     *bun.DB
	repo   auth.RepositoryManager
	tokens *auth.TokenServiceImpl
	auther *auth.Auther
	users  *auth.UserService
	clock  *testClock
	events *eventRecorder
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	clock := newTestClock()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := newTestTokenService(t, clock)
	events := &eventRecorder{}

	auther := auth.NewAuthenticator(repo, tokens).
		WithLogger(auth.NopLogger()).
		WithHasher(fastHasher).
		WithActivitySink(events)

	return &authFixture{
		db:     db,
		repo:   repo,
		tokens: tokens,
		auther: auther,
		users:  auth.NewUserService(repo.Users()).WithLogger(auth.NopLogger()),
		clock:  clock,
		events: events,
	}
}

// tamper replaces one character in the middle of the signature segment
func tamper(token string) string {
	b := []byte(token)
	lastDot := 0
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == '.' {
			lastDot = i
			break
		}
	}
	i := lastDot + (len(b)-lastDot)/2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *eventRecorder) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) Types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
