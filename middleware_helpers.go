package auth

import (
	"github.com/goliatone/go-agent-auth/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// RegisterValidationListeners appends the non nil listeners to cfg
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil {
		return
	}
	for _, listener := range listeners {
		if listener != nil {
			cfg.ValidationListeners = append(cfg.ValidationListeners, listener)
		}
	}
}
