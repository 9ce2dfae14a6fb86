package isolation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/switcher/pkg/plugins"
)

// Status codes reported by the provider
const (
	StatusFileNotFound        = 2
	StatusInvalidHandle       = 6
	StatusInvalidData         = 13
	StatusResourceNotFound    = 1813
	StatusDependencyMissing   = 14001
	StatusEarlyDeactivation   = 14084
	StatusInvalidDeactivation = 14085
)

// DefaultResourceID is the resource used when a manifest holds several
// resources and the engine selects none.
const DefaultResourceID = 1

// Manifest lists the private dependencies of an engine. A manifest either
// holds its dependencies directly or a set of selectable resources.
type Manifest struct {
	Dependencies []Dependency `yaml:"dependencies"`
	Resources    []Resource   `yaml:"resources"`
}

// Resource is one selectable dependency set inside a manifest
type Resource struct {
	ID           uint16       `yaml:"id"`
	Name         string       `yaml:"name"`
	Dependencies []Dependency `yaml:"dependencies"`
}

// Dependency binds a dependency name to a file shipped with the engine
type Dependency struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Path    string `yaml:"path"` // Relative to the engine directory
}

// LoadManifest reads and parses a manifest file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, plugins.NewStatusError(StatusFileNotFound, "manifest %s not found", path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, &plugins.StatusError{
			Code: StatusInvalidData,
			Err:  fmt.Errorf("failed to parse manifest %s: %w", path, err),
		}
	}

	return &manifest, nil
}

// Select returns the dependencies chosen by sel
func (m *Manifest) Select(sel plugins.ResourceSelector) ([]Dependency, error) {
	switch {
	case sel.IsID():
		for _, r := range m.Resources {
			if r.ID == sel.ID() {
				return r.Dependencies, nil
			}
		}
	case !sel.IsZero():
		for _, r := range m.Resources {
			if r.Name != "" && strings.EqualFold(r.Name, sel.Name()) {
				return r.Dependencies, nil
			}
		}
	case len(m.Resources) == 0:
		return m.Dependencies, nil
	default:
		for _, r := range m.Resources {
			if r.ID == DefaultResourceID {
				return r.Dependencies, nil
			}
		}
		if len(m.Resources) == 1 {
			return m.Resources[0].Dependencies, nil
		}
		return nil, plugins.NewStatusError(StatusResourceNotFound,
			"manifest has %d resources and none is selected", len(m.Resources))
	}

	return nil, plugins.NewStatusError(StatusResourceNotFound, "manifest resource %s not found", sel)
}
