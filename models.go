package auth

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Summary returns the outward facing view of the user
func (u *User) Summary() UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{ID: u.ID, Email: u.Email}
}

// UserSummary is what the API exposes about a user
type UserSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// UsersList wraps a listing of users
type UsersList struct {
	Users []UserSummary `json:"users"`
}

// AccessToken is the token envelope returned on login
type AccessToken struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken AccessToken `json:"access_token"`
	User        UserSummary `json:"user"`
}

// LogoutConfirmation is returned by logout
type LogoutConfirmation struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// TokenTypeBearer is the only token type issued
const TokenTypeBearer = "bearer"

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}
