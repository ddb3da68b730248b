package agents

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Registry holds agent definitions keyed by id, in registration order.
// It is read only once built.
type Registry struct {
	order []string
	defs  map[string]Definition
}

// NewRegistry builds a registry and validates it
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		defs: make(map[string]Definition, len(defs)),
	}

	for _, def := range defs {
		if _, ok := r.defs[def.ID]; ok {
			return nil, invalidRegistry(fmt.Sprintf("duplicate agent id %q", def.ID))
		}
		r.defs[def.ID] = def
		r.order = append(r.order, def.ID)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks every definition
func (r *Registry) Validate() error {
	if len(r.order) == 0 {
		return invalidRegistry("registry has no agents")
	}

	for _, id := range r.order {
		if err := r.defs[id].Validate(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, fmt.Sprintf("agent %q", id)).
				WithTextCode(TextCodeInvalidRegistry)
		}
	}
	return nil
}

// Get returns the definition for id or ErrAgentNotFound
func (r *Registry) Get(id string) (Definition, error) {
	def, ok := r.defs[id]
	if !ok {
		return Definition{}, ErrAgentNotFound
	}
	return def, nil
}

// Has reports whether id is registered
func (r *Registry) Has(id string) bool {
	_, err := r.Get(id)
	return err == nil
}

// List returns the definitions in registration order
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

func invalidRegistry(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidRegistry)
}
