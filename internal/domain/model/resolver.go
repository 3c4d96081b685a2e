package model

// Resolver is a configuration value that is either fixed or computed from
// the pull request being processed. The zero Resolver is unset and yields
// T's zero value.
type Resolver[T any] struct {
	value   T
	compute func(PullRequest) T
	set     bool
}

// Constant returns a Resolver that always yields v.
func Constant[T any](v T) Resolver[T] {
	return Resolver[T]{value: v, set: true}
}

// Computed returns a Resolver that calls fn for every pull request.
// A nil fn behaves like the zero Resolver.
func Computed[T any](fn func(PullRequest) T) Resolver[T] {
	return Resolver[T]{compute: fn, set: fn != nil}
}

// Resolve returns the value for pr.
func (r Resolver[T]) Resolve(pr PullRequest) T {
	if r.compute != nil {
		return r.compute(pr)
	}
	return r.value
}

// IsComputed reports whether the value depends on the pull request.
func (r Resolver[T]) IsComputed() bool {
	return r.compute != nil
}

// IsSet reports whether the Resolver was built with Constant or Computed.
func (r Resolver[T]) IsSet() bool {
	return r.set
}
