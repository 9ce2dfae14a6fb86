// Package cli provides the switcher command-line interface.
//
// # Commands
//
// check: load every engine and switch type (also the default command)
//
//	switcher check --install-dir /opt/switcher
//
// engines: list the loaded engines with their manifests
//
//	switcher engines
//
// switch-types: list the loaded switch types and their owning engines
//
//	switcher switch-types
//
// new-switch: create a switch through the switch type's edit flow
//
//	switcher new-switch Lamp --yes --name "Desk lamp" --set unit=lamp.service --turn on
//
// Every command loads the whole plugin set first. A load failure is returned
// unchanged so the caller can render it with RenderError and exit with
// plugins.ExitCode.
package cli
