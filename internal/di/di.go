// Package di provides the lightweight, token-based service container used to
// wire bounded-context modules together at startup.
package di

import "fmt"

// ServiceRegistry is the read side of the container: modules pull their
// dependencies out by name.
type ServiceRegistry interface {
	Get(name string) any
	Has(name string) bool
}

// Container is the read-write side, used during module registration.
type Container interface {
	ServiceRegistry
	Register(name string, value any)
}

type container struct {
	values map[string]any
}

// NewContainer returns an empty Container.
func NewContainer() Container {
	return &container{values: make(map[string]any)}
}

func (c *container) Register(name string, value any) {
	c.values[name] = value
}

func (c *container) Get(name string) any {
	v, ok := c.values[name]
	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}
	return v
}

func (c *container) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// RegisterToken registers a lazily-typed factory under token: the factory is
// invoked once, immediately, with the registry so it can resolve its own
// dependencies, and the result is stored under token for later Get[T] calls.
func RegisterToken[T any](c Container, token string, factory func(ServiceRegistry) T) {
	c.Register(token, factory(c))
}

// Get resolves a previously RegisterToken'd value by token, panicking with a
// clear message on a type mismatch rather than a bare type-assertion panic.
func Get[T any](sr ServiceRegistry, token string) T {
	v := sr.Get(token)
	typed, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has type %T, not %T", token, v, *new(T)))
	}
	return typed
}
