// Package engines registers the engines built into the switcher binary.
package engines

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/switcher/pkg/engines/command"
	"github.com/platinummonkey/switcher/pkg/plugins"
)

type builtin struct {
	name    string
	id      uuid.UUID
	factory plugins.Factory
}

func builtins(log logrus.FieldLogger) []builtin {
	return []builtin{
		{name: "command", id: command.EngineID, factory: command.Factory(log)},
	}
}

// Register adds every built-in engine class to classes
func Register(classes *plugins.ClassRegistry, log logrus.FieldLogger) error {
	for _, b := range builtins(log) {
		if err := classes.Register(b.id, b.factory); err != nil {
			return fmt.Errorf("failed to register %s engine: %w", b.name, err)
		}
	}
	return nil
}

// Names returns the class identifiers of the built-in engines keyed by name
func Names() map[string]uuid.UUID {
	names := make(map[string]uuid.UUID)
	for _, b := range builtins(nil) {
		names[b.name] = b.id
	}
	return names
}
