package agents

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeAgentNotFound   = "AGENT_NOT_FOUND"
	TextCodeSessionNotFound = "SESSION_NOT_FOUND"
	TextCodeInvalidRegistry = "INVALID_AGENT_REGISTRY"
)

var ErrAgentNotFound = goerrors.New("Agent not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAgentNotFound).
	WithCode(goerrors.CodeNotFound)

var ErrSessionNotFound = goerrors.New("Session not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeNotFound)

// IsAgentNotFoundError reports lookups of unknown agent ids
func IsAgentNotFoundError(err error) bool {
	return hasTextCode(err, TextCodeAgentNotFound)
}

// IsSessionNotFoundError reports lookups of unknown chat sessions
func IsSessionNotFoundError(err error) bool {
	return hasTextCode(err, TextCodeSessionNotFound)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
