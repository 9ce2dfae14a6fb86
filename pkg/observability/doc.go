// Package observability provides structured logging, Prometheus metrics and
// OpenTelemetry tracing for the plugin loader and the switcher command.
//
// # Structured Logging
//
// Create logger:
//
//	log := observability.NewLogger(observability.InfoLevel, observability.JSONFormat, os.Stderr)
//	log.WithField("plugin", "Hue").Info("Loaded engine")
//
// Attach the active span to a log entry:
//
//	observability.WithTraceContext(ctx, log).Debug("Activating engine")
//
// # Prometheus Metrics
//
// The loader counts loaded and failed plugins per kind, load durations,
// isolated activations and the final registry sizes:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordPluginLoad(observability.PluginKindEngine, elapsed, err, kind)
//
// A command runs once, so metrics are written to a textfile for the node
// exporter textfile collector instead of being served:
//
//	observability.WriteTextfile("/var/lib/node_exporter/switcher.prom", registry)
//
// # OpenTelemetry
//
//	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "localhost:4317",
//		ServiceName: "switcher",
//		Insecure:    true,
//	}, log)
//	defer observability.ShutdownTracing(ctx, tp, log)
//
// InitTracing returns a nil provider when tracing is disabled.
//
// # Shutdown
//
// ShutdownManager runs teardown functions concurrently under one timeout:
//
//	shutdown := observability.NewShutdownManager(log, observability.DefaultShutdownTimeout)
//	shutdown.Register("metrics", func(context.Context) error {
//		return observability.WriteTextfile(path, registry)
//	})
//	defer shutdown.Shutdown(context.Background())
package observability
