package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/switcher/pkg/config"
	"github.com/platinummonkey/switcher/pkg/engines"
	"github.com/platinummonkey/switcher/pkg/isolation"
	"github.com/platinummonkey/switcher/pkg/observability"
	"github.com/platinummonkey/switcher/pkg/plugins"
)

// loadConfig reads the configuration and applies the flags that were set
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv("SWITCHER_CONFIG")
	}

	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("install-dir") {
		cfg.Plugins.InstallDir = opts.installDir
	}
	if flags.Changed("log-level") {
		cfg.Observability.LogLevel = observability.ParseLogLevel(opts.logLevel)
	}
	if flags.Changed("log-format") {
		cfg.Observability.LogFormat = observability.LogFormat(opts.logFormat)
	}
	if flags.Changed("metrics-file") {
		cfg.Observability.MetricsFile = opts.metricsFile
	}
	if flags.Changed("no-isolation") {
		cfg.Plugins.Isolation = !opts.noIsolation
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadCatalog builds the runtime from the configuration and runs the plugin
// loader once. Metrics are written even when loading fails.
func loadCatalog(cmd *cobra.Command, opts *options) (*plugins.Catalog, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	shutdown := observability.NewShutdownManager(log, observability.DefaultShutdownTimeout)
	defer func() {
		_ = shutdown.Shutdown(context.Background())
	}()

	tp, err := observability.InitTracing(ctx, cfg.OTel(), log)
	if err != nil {
		return nil, err
	}
	if tp != nil {
		shutdown.Register("tracing", func(ctx context.Context) error {
			return observability.ShutdownTracing(ctx, tp, log)
		})
	}

	registry := prometheus.NewRegistry()
	if path := cfg.Observability.MetricsFile; path != "" {
		shutdown.Register("metrics", func(context.Context) error {
			return observability.WriteTextfile(path, registry)
		})
	}

	classes := plugins.NewClassRegistry()
	if err := engines.Register(classes, log); err != nil {
		return nil, err
	}

	loaderOpts := []plugins.Option{
		plugins.WithLogger(log),
		plugins.WithMetrics(observability.NewMetrics(registry)),
		plugins.WithDirectories(cfg.Plugins.EnginesDir, cfg.Plugins.SwitchesDir),
	}
	if tp != nil {
		loaderOpts = append(loaderOpts, plugins.WithTracerProvider(tp))
	}
	if cfg.Plugins.Isolation {
		loaderOpts = append(loaderOpts, plugins.WithIsolationProvider(isolation.NewProvider(nil)))
	}

	log.WithFields(logrus.Fields{
		"install_dir": cfg.Plugins.InstallDir,
		"isolation":   cfg.Plugins.Isolation,
	}).Debug("Loading plugins")

	loader := plugins.NewLoader(cfg.Plugins.InstallDir, classes, loaderOpts...)
	return loader.Load(ctx)
}
