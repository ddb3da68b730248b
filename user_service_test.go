package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-agent-auth"
)

type MockUsers struct {
	mock.Mock
}

var _ auth.Users = (*MockUsers)(nil)

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByIDTx(ctx context.Context, _ bun.IDB, id int64) (*auth.User, error) {
	return m.GetByID(ctx, id)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, _ bun.IDB, email string) (*auth.User, error) {
	return m.GetByEmail(ctx, email)
}

func (m *MockUsers) List(ctx context.Context) ([]*auth.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*auth.User)
	return users, args.Error(1)
}

func (m *MockUsers) ListTx(ctx context.Context, _ bun.IDB) ([]*auth.User, error) {
	return m.List(ctx)
}

func (m *MockUsers) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	out, _ := args.Get(0).(*auth.User)
	return out, args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, _ bun.IDB, user *auth.User) (*auth.User, error) {
	return m.Register(ctx, user)
}

func TestUserServiceGetByID(t *testing.T) {
	ctx := context.Background()
	errDB := errors.New("db down")

	tests := []struct {
		name     string
		user     *auth.User
		err      error
		want     auth.UserSummary
		notFound bool
		wantErr  error
	}{
		{
			name: "found",
			user: &auth.User{ID: 3, Email: "c@x.com", PasswordHash: "secret"},
			want: auth.UserSummary{ID: 3, Email: "c@x.com"},
		},
		{
			name:     "missing",
			err:      auth.NewRecordNotFound(),
			notFound: true,
		},
		{
			name:    "store failure",
			err:     errDB,
			wantErr: errDB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUsers)
			users.On("GetByID", ctx, int64(3)).Return(tt.user, tt.err)

			svc := auth.NewUserService(users).WithLogger(auth.NopLogger())
			got, err := svc.GetByID(ctx, 3)

			switch {
			case tt.notFound:
				require.Error(t, err)
				assert.True(t, auth.IsUserNotFoundError(err))
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			users.AssertExpectations(t)
		})
	}
}

func TestUserServiceGetAll(t *testing.T) {
	ctx := context.Background()

	users := new(MockUsers)
	users.On("List", ctx).Return([]*auth.User{
		{ID: 1, Email: "a@x.com"},
		{ID: 2, Email: "b@x.com"},
	}, nil)

	list, err := auth.NewUserService(users).WithLogger(auth.NopLogger()).GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []auth.UserSummary{
		{ID: 1, Email: "a@x.com"},
		{ID: 2, Email: "b@x.com"},
	}, list.Users)
	users.AssertExpectations(t)
}

func TestUserServiceGetAllEmpty(t *testing.T) {
	fx := newAuthFixture(t)

	list, err := fx.users.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list.Users)
	assert.Empty(t, list.Users)
}

func TestUserProviderWithMockStore(t *testing.T) {
	ctx := context.Background()
	hash, err := fastHasher.HashPassword("p1")
	require.NoError(t, err)

	users := new(MockUsers)
	users.On("GetByEmail", ctx, "a@x.com").Return(&auth.User{ID: 5, Email: "a@x.com", PasswordHash: hash}, nil)
	users.On("GetByEmail", ctx, "b@x.com").Return(nil, auth.NewRecordNotFound())
	users.On("GetByEmail", ctx, "c@x.com").Return(nil, errors.New("db down"))

	provider := auth.NewUserProvider(users).WithLogger(auth.NopLogger()).WithHasher(fastHasher)

	identity, err := provider.VerifyIdentity(ctx, "a@x.com", "p1")
	require.NoError(t, err)
	assert.Equal(t, "5", identity.ID())
	assert.Equal(t, "a@x.com", identity.Email())

	_, err = provider.VerifyIdentity(ctx, "a@x.com", "p2")
	assert.Same(t, auth.ErrInvalidCredentials, err)

	_, err = provider.VerifyIdentity(ctx, "b@x.com", "p1")
	assert.Same(t, auth.ErrInvalidCredentials, err)

	_, err = provider.VerifyIdentity(ctx, "c@x.com", "p1")
	require.Error(t, err)
	assert.False(t, auth.IsUnauthorizedError(err))

	users.AssertExpectations(t)
}
