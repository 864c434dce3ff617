package rpc

import "fmt"

// Factory reconstructs a rich local wrapper from a remote object handle. The
// channel is provided so wrappers can dispatch further calls through it.
type Factory func(ch *Channel, h Handle) (interface{}, error)

// Registry maps wire-level object kinds to reconstruction functions. One
// registry is built during startup, populated once per known kind, and passed
// to every channel; it is not session-scoped.
type Registry struct {
	factories map[Kind]Factory
}

// NewRegistry creates an empty type converter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Kind]Factory),
	}
}

// Register installs the reconstruction function for a kind. Registration is
// expected to happen during deterministic startup sequencing, before any
// session is created; registering the same kind twice is an error.
func (r *Registry) Register(kind Kind, factory Factory) error {
	if kind == "" {
		return NewUsageError("cannot register a type converter for an empty kind")
	}
	if factory == nil {
		return NewUsageError("cannot register a nil type converter for kind %q", kind)
	}
	if _, ok := r.factories[kind]; ok {
		return NewUsageError("a type converter for kind %q is already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// Known reports whether a converter has been registered for the kind.
func (r *Registry) Known(kind Kind) bool {
	_, ok := r.factories[kind]
	return ok
}

// Reconstruct turns a remote object handle into its rich local wrapper.
func (r *Registry) Reconstruct(ch *Channel, h Handle) (interface{}, error) {
	factory, ok := r.factories[h.Kind]
	if !ok {
		return nil, NewRPCError(fmt.Sprintf("remote returned an object of unknown kind %q", h.Kind), nil)
	}
	return factory(ch, h)
}
