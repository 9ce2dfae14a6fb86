package isolation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/platinummonkey/switcher/pkg/plugins"
)

// Provider creates isolation contexts from engine manifests. All contexts of
// a provider share one activation stack.
type Provider struct {
	stack    *Stack
	acquired atomic.Int64
	released atomic.Int64
}

// NewProvider returns a provider activating its contexts on stack. A nil
// stack gets a fresh one.
func NewProvider(stack *Stack) *Provider {
	if stack == nil {
		stack = NewStack()
	}
	return &Provider{stack: stack}
}

// Stack returns the activation stack used by the provider
func (p *Provider) Stack() *Stack {
	return p.stack
}

// Acquired returns the number of contexts handed out
func (p *Provider) Acquired() int64 {
	return p.acquired.Load()
}

// Released returns the number of contexts released
func (p *Provider) Released() int64 {
	return p.released.Load()
}

// Outstanding returns the number of contexts acquired but not yet released
func (p *Provider) Outstanding() int64 {
	return p.acquired.Load() - p.released.Load()
}

// Acquire parses the manifest of req and binds every selected dependency to
// a file below the engine directory.
func (p *Provider) Acquire(req plugins.IsolationRequest) (plugins.IsolationContext, error) {
	manifest, err := LoadManifest(req.Manifest)
	if err != nil {
		return nil, err
	}

	deps, err := manifest.Select(req.Resource)
	if err != nil {
		return nil, err
	}

	bindings, err := bind(req.Dir, deps)
	if err != nil {
		return nil, err
	}

	p.acquired.Add(1)
	return &Context{provider: p, plugin: req.Plugin, bindings: bindings}, nil
}

func bind(dir string, deps []Dependency) (map[string]string, error) {
	bindings := make(map[string]string, len(deps))

	for _, dep := range deps {
		if dep.Name == "" {
			return nil, plugins.NewStatusError(StatusInvalidData, "dependency without a name")
		}
		key := strings.ToLower(dep.Name)
		if _, exists := bindings[key]; exists {
			return nil, plugins.NewStatusError(StatusInvalidData, "dependency %s listed twice", dep.Name)
		}

		path, err := resolvePath(dir, dep)
		if err != nil {
			return nil, err
		}
		bindings[key] = path
	}

	return bindings, nil
}

func resolvePath(dir string, dep Dependency) (string, error) {
	if dep.Path == "" || filepath.IsAbs(dep.Path) {
		return "", plugins.NewStatusError(StatusInvalidData,
			"dependency %s must name a path relative to the engine directory", dep.Name)
	}

	path := filepath.Join(dir, dep.Path)
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", plugins.NewStatusError(StatusInvalidData,
			"dependency %s escapes the engine directory", dep.Name)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", plugins.NewStatusError(StatusDependencyMissing,
			"dependency %s %s not found at %s", dep.Name, dep.Version, path)
	}

	return path, nil
}

// Context is an acquired isolation context
type Context struct {
	provider *Provider
	plugin   string
	bindings map[string]string

	mu       sync.Mutex
	released bool
}

// Activate pushes the context onto the activation stack
func (c *Context) Activate() (plugins.Cookie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return 0, plugins.NewStatusError(StatusInvalidHandle, "context for %s was released", c.plugin)
	}

	return c.provider.stack.push(c), nil
}

// Deactivate pops the activation identified by cookie. It must be the
// innermost active context.
func (c *Context) Deactivate(cookie plugins.Cookie) error {
	if err := c.provider.stack.pop(cookie, c); err != nil {
		return fmt.Errorf("deactivate %s: %w", c.plugin, err)
	}
	return nil
}

// Release drops the acquisition. A context may be released once.
func (c *Context) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return plugins.NewStatusError(StatusInvalidHandle, "context for %s already released", c.plugin)
	}

	c.released = true
	c.provider.released.Add(1)
	return nil
}

// Scope returns the context itself; it resolves the manifest dependencies.
func (c *Context) Scope() plugins.Scope {
	return c
}

// Resolve returns the file bound to a dependency name, ignoring case
func (c *Context) Resolve(dependency string) (string, bool) {
	path, ok := c.bindings[strings.ToLower(dependency)]
	return path, ok
}

var _ plugins.IsolationProvider = (*Provider)(nil)
