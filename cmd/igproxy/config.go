package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igproxy/pkg/config"
	"igproxy/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igproxy configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (ALLOWED_ORIGINS, API_KEY, RATE_LIMIT_*, IGPROXY_*)
  - .env and ~/.igproxy.env
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file containing every option at its default.

The file is written to '.igproxy.yaml' unless --config names another path.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after all sources are merged. Secrets are masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".igproxy.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Set allowed origins and rate limits in the file")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Store the shared secret with 'igproxy auth set-key' or API_KEY")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start the gateway with 'igproxy serve'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.Auth.APIKey == "" && !cfg.Auth.UseKeyring {
		ui.PrintWarning("No API key source configured, any bearer token will be accepted")
	}
	for _, origin := range cfg.CORS.AllowedOrigins {
		if origin == "*" && cfg.CORS.EnforceOrigin {
			ui.PrintWarning("enforce_origin has no effect while * is allowed")
		}
	}

	ui.PrintSuccess("Configuration is valid")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Listen: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(out, "  Allowed origins: %v\n", cfg.CORS.AllowedOrigins)
	fmt.Fprintf(out, "  Rate limit: %d requests per %s\n", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	fmt.Fprintf(out, "  Upstream: %s (timeout %s)\n", cfg.Upstream.Endpoint, cfg.Upstream.Timeout)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
