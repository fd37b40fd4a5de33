package diag

import "sync"

// Registry maps codes to long-form explanations.
type Registry struct {
	mu   sync.RWMutex
	long map[Code]string
}

// NewRegistry returns a registry preloaded with the lowering explanations.
func NewRegistry() *Registry {
	r := &Registry{long: make(map[Code]string)}
	for code, text := range lowerExplanations {
		r.long[code] = text
	}
	return r
}

// Register adds or replaces an explanation.
func (r *Registry) Register(code Code, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.long[code] = text
}

// Find returns the explanation for code.
func (r *Registry) Find(code Code) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	text, ok := r.long[code]
	return text, ok
}

var lowerExplanations = map[Code]string{
	LowMissingDefinition: `A call or coercion named a function, trait or impl that is not present
in the crate being lowered, or whose metadata is incomplete. A generic
external function must carry its body so that it can be instantiated.`,
	LowUnresolvedGeneric: `After applying the substitution of the instance being lowered, a type
still mentioned a generic parameter. Every type argument and capability
passed to a generic call must be concrete by the time it is lowered.`,
	LowUnsupportedShape: `The lowering engine met a type or expression form it cannot handle, for
example structural iteration over a function type.`,
	LowInvalidState: `A function was lowered out of order: its frame, arguments and body must
be produced in that sequence exactly once.`,
	LowScopeDiscipline: `Cleanup scopes nest strictly. A scope was popped while an inner scope
was still open, or the function ended with scopes left on the stack.`,
}
