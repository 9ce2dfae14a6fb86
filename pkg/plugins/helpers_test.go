package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func writeDescriptor(t *testing.T, dir, file, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
	return dir
}

// writeEngine creates Engines/<name>/Engine.ini below root
func writeEngine(t *testing.T, root, name, body string) string {
	t.Helper()
	return writeDescriptor(t, filepath.Join(root, EnginesDirectory, name), EngineDescriptorFile, "[Engine]\n"+body)
}

// writeSwitch creates Switches/<name>/Switch.ini below root
func writeSwitch(t *testing.T, root, name, body string) string {
	t.Helper()
	return writeDescriptor(t, filepath.Join(root, SwitchesDirectory, name), SwitchDescriptorFile, "[Switch]\n"+body)
}

func idLine(key string, id uuid.UUID) string {
	return key + " = {" + id.String() + "}\n"
}

type fakeSwitchType struct {
	props *SwitchTypeProperties
}

func (st *fakeSwitchType) NewSwitch(ctx context.Context, editor SwitchEditor) (Switch, error) {
	return nil, ErrSwitchCanceled
}

type fakeEngine struct {
	id      uuid.UUID
	scope   Scope
	closed  bool
	loadErr error
	nilType bool
	panics  bool
	loaded  []*SwitchTypeProperties
}

func (e *fakeEngine) LoadSwitchType(ctx context.Context, props *SwitchTypeProperties) (SwitchType, error) {
	if e.panics {
		panic("engine exploded")
	}
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	e.loaded = append(e.loaded, props)
	if e.nilType {
		return nil, nil
	}
	return &fakeSwitchType{props: props}, nil
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

// engineClasses registers a fakeEngine factory for every id. The created
// engines are collected in the returned map.
func engineClasses(t *testing.T, ids ...uuid.UUID) (*ClassRegistry, map[uuid.UUID]*fakeEngine) {
	t.Helper()
	classes := NewClassRegistry()
	created := make(map[uuid.UUID]*fakeEngine)

	for _, id := range ids {
		id := id
		require.NoError(t, classes.Register(id, func(req *ActivationRequest) (any, error) {
			e := &fakeEngine{id: id, scope: req.Scope}
			created[id] = e
			return e, nil
		}))
	}

	return classes, created
}

type fakeProvider struct {
	requests []IsolationRequest

	acquired    int
	activated   int
	deactivated int
	released    int

	acquireErr    error
	activateErr   error
	deactivateErr error
	releaseErr    error
}

func (p *fakeProvider) Acquire(req IsolationRequest) (IsolationContext, error) {
	p.requests = append(p.requests, req)
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return &fakeContext{p: p}, nil
}

type fakeContext struct {
	p *fakeProvider
}

func (c *fakeContext) Activate() (Cookie, error) {
	if c.p.activateErr != nil {
		return 0, c.p.activateErr
	}
	c.p.activated++
	return Cookie(c.p.activated), nil
}

func (c *fakeContext) Deactivate(Cookie) error {
	if c.p.deactivateErr != nil {
		return c.p.deactivateErr
	}
	c.p.deactivated++
	return nil
}

func (c *fakeContext) Release() error {
	c.p.released++
	return c.p.releaseErr
}

func (c *fakeContext) Scope() Scope {
	return fakeScope{"helper": "/engines/helper.so"}
}

type fakeScope map[string]string

func (s fakeScope) Resolve(dep string) (string, bool) {
	p, ok := s[dep]
	return p, ok
}

var errBoom = errors.New("boom")
