package plugins

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/platinummonkey/switcher/pkg/observability"
)

// Status codes reported by the loader itself.
const (
	StatusNotSupported       = 50
	StatusClassNotRegistered = 54
	StatusNoInterface        = 55
	StatusNilInstance        = 56
	StatusPanic              = 57
)

// ActivationRequest is passed to a Factory.
type ActivationRequest struct {
	ClassID   uuid.UUID
	Name      string
	Directory string
	// Scope resolves dependencies inside the plugin's isolation context. It
	// is only valid for the duration of the factory call.
	Scope Scope
	// Context carries tracing and logging values, it is never canceled.
	Context context.Context
}

// Factory constructs a fresh plugin instance.
type Factory func(req *ActivationRequest) (any, error)

// ClassRegistry maps class identifiers to factories.
type ClassRegistry struct {
	mu        sync.RWMutex
	factories map[uuid.UUID]Factory
}

// NewClassRegistry returns an empty class registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		factories: make(map[uuid.UUID]Factory),
	}
}

// Register adds a factory for id. Registering the same id twice fails.
func (r *ClassRegistry) Register(id uuid.UUID, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil factory for class %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("class already registered: %s", id)
	}

	r.factories[id] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (r *ClassRegistry) MustRegister(id uuid.UUID, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered for id.
func (r *ClassRegistry) Lookup(id uuid.UUID) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[id]
	return factory, ok
}

// Len returns the number of registered classes.
func (r *ClassRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.factories)
}

// activate constructs the class named by req and checks it implements T.
// Any instance that does not make it back to the caller is closed.
func activate[T any](classes *ClassRegistry, req *ActivationRequest) (T, error) {
	var zero T

	factory, ok := classes.Lookup(req.ClassID)
	if !ok {
		return zero, &LoadError{
			Kind:   KindActivationFailed,
			Plugin: req.Name,
			Status: StatusClassNotRegistered,
			Err:    fmt.Errorf("class %s is not registered", req.ClassID),
		}
	}

	instance, err := construct(factory, req)
	if err != nil {
		discard(instance)
		return zero, newLoadError(KindActivationFailed, req.Name, err)
	}
	if instance == nil {
		return zero, &LoadError{
			Kind:   KindActivationFailed,
			Plugin: req.Name,
			Status: StatusNilInstance,
			Err:    fmt.Errorf("factory for class %s returned no instance", req.ClassID),
		}
	}

	typed, ok := instance.(T)
	if !ok {
		discard(instance)
		return zero, &LoadError{
			Kind:   KindActivationFailed,
			Plugin: req.Name,
			Status: StatusNoInterface,
			Err:    fmt.Errorf("class %s does not implement %T", req.ClassID, (*T)(nil)),
		}
	}

	return typed, nil
}

// construct calls factory, turning a panic into an error.
func construct(factory Factory, req *ActivationRequest) (instance any, err error) {
	defer func() {
		if perr := observability.MustRecover(recover()); perr != nil {
			instance = nil
			err = &StatusError{Code: StatusPanic, Err: perr}
		}
	}()

	return factory(req)
}

func discard(instance any) {
	if c, ok := instance.(io.Closer); ok {
		_ = c.Close()
	}
}
