package plugins

// Catalog is the result of a successful load. It is immutable and may be
// shared between goroutines without locking.
type Catalog struct {
	engines     *EngineRegistry
	switchTypes *SwitchTypeRegistry
}

func newCatalog(engines *EngineRegistry, switchTypes *SwitchTypeRegistry) *Catalog {
	engines.Seal()
	switchTypes.Seal()
	return &Catalog{engines: engines, switchTypes: switchTypes}
}

// Engines returns the engine registry.
func (c *Catalog) Engines() *EngineRegistry {
	return c.engines
}

// SwitchTypes returns the switch-type registry.
func (c *Catalog) SwitchTypes() *SwitchTypeRegistry {
	return c.switchTypes
}
