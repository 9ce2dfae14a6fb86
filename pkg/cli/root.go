package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// options are the persistent flags shared by all commands
type options struct {
	configPath  string
	installDir  string
	logLevel    string
	logFormat   string
	metricsFile string
	noIsolation bool
}

// NewRootCommand creates the switcher command tree. Running it without a
// subcommand behaves like check.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "switcher",
		Short: "Switcher - load and inspect switch engines and switch types",
		Long: `Switcher discovers the engines and switch types installed next to it,
activates every plugin and reports the first problem that prevents startup.

Engines live in Engines/<name>/Engine.ini and switch types in
Switches/<name>/Switch.ini below the install directory.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file path (default is $SWITCHER_CONFIG)")
	flags.StringVar(&opts.installDir, "install-dir", "", "Directory holding Engines and Switches (default is the executable's directory)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text, json")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after loading")
	flags.BoolVar(&opts.noIsolation, "no-isolation", false, "Fail engines that declare an isolation manifest instead of isolating them")

	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newEnginesCommand(opts))
	rootCmd.AddCommand(newSwitchTypesCommand(opts))
	rootCmd.AddCommand(newNewSwitchCommand(opts))

	return rootCmd
}

// Execute runs the command tree with args and returns the first error. Output
// goes to out and errOut.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	return rootCmd.ExecuteContext(ctx)
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}
