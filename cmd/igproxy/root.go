package main

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"igproxy/pkg/config"
	"igproxy/pkg/logger"
	"igproxy/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igproxy",
	Short: "Authenticated, rate-limited gateway for Instagram media lookups",
	Long: `igproxy runs an HTTP gateway that turns an Instagram post, reel or IGTV
URL into a list of downloadable media files.

Requests must carry a bearer token, are rate limited per token and are
validated before being forwarded to the upstream extraction service.

The same binary also works as a client for a running gateway:
  igproxy serve                      start the gateway
  igproxy fetch <instagram-url>      look up a URL through the gateway
  igproxy history                    show recent lookups`,
	Version:       version + " (commit: " + gitCommit + ", built: " + buildDate + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetOutput(cmd.OutOrStdout())
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.SetNoColor(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .igproxy.yaml or ~/.config/igproxy/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`igproxy {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration from every source, letting flags that
// were explicitly set on cmd win
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	for _, name := range []string{"host", "allowed-origins", "upstream", "base-url", "api-key"} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = f.Value.String()
		}
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		if port, err := cmd.Flags().GetInt("port"); err == nil {
			flags["port"] = port
		}
	}
	if f := cmd.Flags().Lookup("enforce-origin"); f != nil && f.Changed {
		if enforce, err := cmd.Flags().GetBool("enforce-origin"); err == nil {
			flags["enforce-origin"] = enforce
		}
	}

	return config.Load(configFile, flags)
}

// initLogging configures the global logger and returns it
func initLogging(cfg *config.Config) (logger.Logger, error) {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, err
	}
	return logger.GetLogger(), nil
}
