package auth

// UserIdentity adapts a User into the Identity interface for token generation.
type UserIdentity struct {
	user *User
}

var _ Identity = UserIdentity{}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return formatUserID(u.user.ID)
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// User returns the wrapped record
func (u UserIdentity) User() *User {
	return u.user
}

// UserFromIdentity unwraps identities produced by this package
func UserFromIdentity(identity Identity) (*User, bool) {
	ui, ok := identity.(UserIdentity)
	if !ok || ui.user == nil {
		return nil, false
	}
	return ui.user, true
}
