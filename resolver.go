package modular

// Resolver maps a step's (kind, component) pair to a runnable. Returned
// runnables may be cached and shared; callers never own their lifecycle.
//
// Implementations signal a missing component with an error wrapping
// [ErrUnknownComponent].
type Resolver interface {
	Resolve(kind StepKind, component string) (Runnable, error)
}

// ResolverFunc adapts a function to [Resolver].
type ResolverFunc func(kind StepKind, component string) (Runnable, error)

// Resolve calls f(kind, component).
func (f ResolverFunc) Resolve(kind StepKind, component string) (Runnable, error) {
	return f(kind, component)
}
