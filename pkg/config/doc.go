// Package config provides switcher configuration from environment variables
// and an optional YAML file.
//
// # Sources
//
// Values are taken from defaults, then from the YAML file named by
// SWITCHER_CONFIG (or the --config flag), then from the environment. Later
// sources win.
//
// Plugin settings:
//
//	SWITCHER_INSTALL_DIR="/opt/switcher"  # defaults to the executable's directory
//	SWITCHER_ENGINES_DIR="Engines"
//	SWITCHER_SWITCHES_DIR="Switches"
//	SWITCHER_ISOLATION="true"
//
// Observability settings:
//
//	SWITCHER_LOG_LEVEL="info"  # debug, info, warn, error
//	SWITCHER_LOG_FORMAT="text" # text, json
//	SWITCHER_METRICS_FILE="/var/lib/node_exporter/switcher.prom"
//	SWITCHER_OTEL_ENABLED="true"
//	SWITCHER_OTEL_ENDPOINT="otel-collector:4317"
//
// The same settings in a file:
//
//	plugins:
//	  install_dir: /opt/switcher
//	  isolation: true
//	observability:
//	  log_level: debug
//	  otel:
//	    enabled: true
//	    endpoint: otel-collector:4317
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Engines: %s\n", filepath.Join(cfg.Plugins.InstallDir, cfg.Plugins.EnginesDir))
package config
