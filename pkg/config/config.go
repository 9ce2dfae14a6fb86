package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/switcher/pkg/observability"
	"github.com/platinummonkey/switcher/pkg/plugins"
)

// Config holds all application configuration
type Config struct {
	// Plugin discovery
	Plugins PluginsConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// PluginsConfig locates the installed engines and switch types
type PluginsConfig struct {
	InstallDir  string
	EnginesDir  string // Relative to InstallDir unless absolute
	SwitchesDir string // Relative to InstallDir unless absolute

	// Isolation enables manifest-driven isolation contexts for engines
	Isolation bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  observability.LogLevel
	LogFormat observability.LogFormat

	// Metrics are written in the Prometheus text format when set
	MetricsFile string

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// fileConfig is the layout of the optional YAML configuration file
type fileConfig struct {
	Plugins struct {
		InstallDir  string `yaml:"install_dir"`
		EnginesDir  string `yaml:"engines_dir"`
		SwitchesDir string `yaml:"switches_dir"`
		Isolation   *bool  `yaml:"isolation"`
	} `yaml:"plugins"`
	Observability struct {
		LogLevel    string `yaml:"log_level"`
		LogFormat   string `yaml:"log_format"`
		MetricsFile string `yaml:"metrics_file"`
		OTel        struct {
			Enabled        *bool  `yaml:"enabled"`
			Endpoint       string `yaml:"endpoint"`
			ServiceName    string `yaml:"service_name"`
			ServiceVersion string `yaml:"service_version"`
			Insecure       *bool  `yaml:"insecure"`
		} `yaml:"otel"`
	} `yaml:"observability"`
}

// LoadConfig loads configuration from the file named by SWITCHER_CONFIG, if
// any, and the environment
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("SWITCHER_CONFIG"))
}

// Load reads the configuration like Read and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Read reads defaults, then the YAML file at path (skipped when empty), then
// SWITCHER_* environment variables. Later sources win. The result is not
// validated, so callers can apply further overrides before Validate.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	return cfg, nil
}

// Default returns the configuration used when nothing is set. Plugins are
// looked up next to the executable.
func Default() *Config {
	return &Config{
		Plugins: PluginsConfig{
			InstallDir:  executableDir(),
			EnginesDir:  plugins.EnginesDirectory,
			SwitchesDir: plugins.SwitchesDirectory,
			Isolation:   true,
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			LogFormat:          observability.TextFormat,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "switcher",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// An empty file decodes to io.EOF
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	p := &c.Plugins
	setString(&p.InstallDir, fc.Plugins.InstallDir)
	setString(&p.EnginesDir, fc.Plugins.EnginesDir)
	setString(&p.SwitchesDir, fc.Plugins.SwitchesDir)
	setBool(&p.Isolation, fc.Plugins.Isolation)

	o := &c.Observability
	if fc.Observability.LogLevel != "" {
		o.LogLevel = observability.ParseLogLevel(fc.Observability.LogLevel)
	}
	if fc.Observability.LogFormat != "" {
		o.LogFormat = observability.LogFormat(strings.ToLower(fc.Observability.LogFormat))
	}
	setString(&o.MetricsFile, fc.Observability.MetricsFile)
	setBool(&o.OTelEnabled, fc.Observability.OTel.Enabled)
	setString(&o.OTelEndpoint, fc.Observability.OTel.Endpoint)
	setString(&o.OTelServiceName, fc.Observability.OTel.ServiceName)
	setString(&o.OTelServiceVersion, fc.Observability.OTel.ServiceVersion)
	setBool(&o.OTelInsecure, fc.Observability.OTel.Insecure)

	// A relative install directory is taken relative to the file
	if dir := fc.Plugins.InstallDir; dir != "" && !filepath.IsAbs(dir) {
		p.InstallDir = filepath.Join(filepath.Dir(path), dir)
	}

	return nil
}

func (c *Config) applyEnv() {
	p := &c.Plugins
	p.InstallDir = getEnv("SWITCHER_INSTALL_DIR", p.InstallDir)
	p.EnginesDir = getEnv("SWITCHER_ENGINES_DIR", p.EnginesDir)
	p.SwitchesDir = getEnv("SWITCHER_SWITCHES_DIR", p.SwitchesDir)
	p.Isolation = getEnvBool("SWITCHER_ISOLATION", p.Isolation)

	o := &c.Observability
	if level := getEnv("SWITCHER_LOG_LEVEL", ""); level != "" {
		o.LogLevel = observability.ParseLogLevel(level)
	}
	if format := getEnv("SWITCHER_LOG_FORMAT", ""); format != "" {
		o.LogFormat = observability.LogFormat(strings.ToLower(format))
	}
	o.MetricsFile = getEnv("SWITCHER_METRICS_FILE", o.MetricsFile)
	o.OTelEnabled = getEnvBool("SWITCHER_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("SWITCHER_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("SWITCHER_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("SWITCHER_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("SWITCHER_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Plugins.InstallDir == "" {
		return fmt.Errorf("install directory is required")
	}
	if c.Plugins.EnginesDir == "" {
		return fmt.Errorf("engines directory is required")
	}
	if c.Plugins.SwitchesDir == "" {
		return fmt.Errorf("switches directory is required")
	}

	switch c.Observability.LogFormat {
	case observability.TextFormat, observability.JSONFormat:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// OTel returns the tracing settings
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
