package plugins

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Cookie identifies one activation of an isolation context.
type Cookie uint64

// Scope resolves the dependencies a plugin may bind to while it is activated.
type Scope interface {
	// Resolve returns the file bound to a dependency name.
	Resolve(dependency string) (string, bool)
}

// IsolationRequest describes the context an engine asks for.
type IsolationRequest struct {
	Plugin   string
	Dir      string
	Manifest string
	Resource ResourceSelector
}

// IsolationProvider creates per-plugin dependency resolution contexts.
type IsolationProvider interface {
	Acquire(req IsolationRequest) (IsolationContext, error)
}

// IsolationContext is an acquired dependency resolution context. Activate and
// Deactivate must be paired; Release drops the acquisition.
type IsolationContext interface {
	Activate() (Cookie, error)
	Deactivate(cookie Cookie) error
	Release() error
	Scope() Scope
}

type defaultScope struct{}

func (defaultScope) Resolve(string) (string, bool) {
	return "", false
}

// DefaultScope is the shared scope used by plugins without a manifest.
var DefaultScope Scope = defaultScope{}

// unavailableProvider fails every acquisition; it is used when the loader has
// no provider configured and an engine still declares a manifest.
type unavailableProvider struct{}

func (unavailableProvider) Acquire(req IsolationRequest) (IsolationContext, error) {
	return nil, NewStatusError(StatusNotSupported, "no isolation provider configured")
}

// isolationGuard holds an acquired and activated context. It only exists in
// the fully entered state.
type isolationGuard struct {
	req    IsolationRequest
	ctx    IsolationContext
	cookie Cookie
}

func enterIsolation(provider IsolationProvider, req IsolationRequest, log logrus.FieldLogger) (*isolationGuard, error) {
	ctx, err := provider.Acquire(req)
	if err != nil {
		return nil, isolationError(KindIsolationSetupFailed, req, err)
	}
	if ctx == nil {
		return nil, isolationError(KindIsolationSetupFailed, req, fmt.Errorf("provider returned no context"))
	}

	cookie, err := ctx.Activate()
	if err != nil {
		if rerr := ctx.Release(); rerr != nil {
			log.Debugf("Ignoring release failure for %s: %v", req.Plugin, rerr)
		}
		return nil, isolationError(KindIsolationActivationFailed, req, err)
	}

	return &isolationGuard{req: req, ctx: ctx, cookie: cookie}, nil
}

// exit tears the context down after a successful body.
func (g *isolationGuard) exit(log logrus.FieldLogger) error {
	if err := g.ctx.Deactivate(g.cookie); err != nil {
		if rerr := g.ctx.Release(); rerr != nil {
			log.Debugf("Ignoring release failure for %s: %v", g.req.Plugin, rerr)
		}
		return isolationError(KindIsolationTeardownFailed, g.req, err)
	}

	if err := g.ctx.Release(); err != nil {
		log.Warnf("Failed to release isolation context for %s: %v", g.req.Plugin, err)
	}
	return nil
}

// abandon tears the context down while another failure is propagating.
// Its own failures are logged and dropped.
func (g *isolationGuard) abandon(log logrus.FieldLogger) {
	if err := g.ctx.Deactivate(g.cookie); err != nil {
		log.Debugf("Ignoring deactivation failure for %s: %v", g.req.Plugin, err)
	}
	if err := g.ctx.Release(); err != nil {
		log.Debugf("Ignoring release failure for %s: %v", g.req.Plugin, err)
	}
}

// Isolate runs body inside the isolation context described by req. Without a
// manifest body runs directly in DefaultScope. The context is deactivated and
// released on every exit path, including a panic in body.
func Isolate(provider IsolationProvider, req IsolationRequest, log logrus.FieldLogger, body func(Scope) error) error {
	if req.Manifest == "" {
		return body(DefaultScope)
	}
	if provider == nil {
		provider = unavailableProvider{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	guard, err := enterIsolation(provider, req, log)
	if err != nil {
		return err
	}

	done := false
	defer func() {
		if !done {
			guard.abandon(log)
		}
	}()

	if err := body(guard.ctx.Scope()); err != nil {
		return err
	}

	done = true
	return guard.exit(log)
}

func isolationError(kind Kind, req IsolationRequest, err error) *LoadError {
	return &LoadError{
		Kind:     kind,
		Plugin:   req.Plugin,
		Manifest: req.Manifest,
		Resource: req.Resource,
		Status:   StatusOf(err),
		Err:      err,
	}
}
