// Package plugins discovers, activates and registers switcher plugins.
//
// # Overview
//
// Two kinds of plugin live below the install directory:
//
//	Engines/<name>/Engine.ini     engine plugins, one per directory
//	Switches/<name>/Switch.ini    switch types, each bound to one engine
//
// An engine is created from a factory registered in a ClassRegistry under the
// engine's ID. A switch type is created by the engine it names.
//
// # Descriptors
//
// Engine.ini:
//
//	[Engine]
//	ID = {6f1c2a4e-8d5b-4c1e-9a37-2b0f5d8e7c13}
//	Manifest = engine.yaml
//	ManifestResourceID = 1
//	ManifestResourceName = Default
//
// Switch.ini:
//
//	[Switch]
//	ID = {2d9b7f3a-51c4-4e0b-8f6a-9c1d3e5b7a20}
//	Engine = {6f1c2a4e-8d5b-4c1e-9a37-2b0f5d8e7c13}
//
// Keys are case-insensitive. Manifest is optional; when present the engine is
// activated inside an isolation context acquired from the IsolationProvider.
// A numeric ManifestResourceID takes precedence over ManifestResourceName.
//
// # Loading
//
//	classes := plugins.NewClassRegistry()
//	classes.MustRegister(engineID, factory)
//
//	loader := plugins.NewLoader(installDir, classes,
//		plugins.WithLogger(log),
//		plugins.WithIsolationProvider(provider),
//	)
//	catalog, err := loader.Load(ctx)
//
// Engines load first, then switch types. The first failure stops loading and
// is returned as a *LoadError. Match it with errors.Is against the Err*
// sentinels, or turn it into a process exit code with ExitCode.
//
// # Isolation
//
// Isolate pairs every Acquire with a Release and every Activate with a
// Deactivate, also when the activation body fails or panics. A context is
// only active for the duration of the engine factory call.
//
// # Catalog
//
// A Catalog is sealed after loading and may be read from any goroutine.
//
//	for _, st := range catalog.SwitchTypes().ByEngine(engineID) {
//		sw, err := st.NewSwitch(ctx, editor)
//	}
package plugins
