package auth

import (
	"context"
)

// UserService provides read-only lookups over the user store
type UserService struct {
	users  Users
	logger Logger
}

func NewUserService(users Users) *UserService {
	return &UserService{
		users:  users,
		logger: defLogger{},
	}
}

func (s *UserService) WithLogger(logger Logger) *UserService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// GetByID returns the user summary or ErrUserNotFound
func (s *UserService) GetByID(ctx context.Context, id int64) (UserSummary, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if IsRecordNotFound(err) {
			return UserSummary{}, ErrUserNotFound
		}
		s.logger.Error("get user by id failed", "id", id, "error", err)
		return UserSummary{}, err
	}
	return user.Summary(), nil
}

// GetAll lists every user in primary key order
func (s *UserService) GetAll(ctx context.Context) (UsersList, error) {
	records, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		return UsersList{}, err
	}

	out := UsersList{Users: make([]UserSummary, 0, len(records))}
	for _, u := range records {
		out.Users = append(out.Users, u.Summary())
	}
	return out, nil
}
