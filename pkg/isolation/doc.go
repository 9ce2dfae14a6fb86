// Package isolation binds an engine to the private dependencies listed in its
// manifest.
//
// A manifest is a YAML file shipped next to Engine.ini. It either lists the
// dependencies directly:
//
//	dependencies:
//	  - name: helper
//	    version: 1.2.0
//	    path: lib/helper.so
//
// or groups them into resources that Engine.ini selects with
// ManifestResourceID or ManifestResourceName:
//
//	resources:
//	  - id: 1
//	    name: default
//	    dependencies:
//	      - name: helper
//	        path: lib/helper.so
//
// Contexts created by a Provider are activated on a shared Stack and must be
// deactivated in reverse order.
package isolation
