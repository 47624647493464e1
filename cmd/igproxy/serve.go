package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igproxy/internal/server"
	"igproxy/pkg/auth"
	"igproxy/pkg/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long: `Run the HTTP gateway until interrupted.

The shared API key is taken from API_KEY or auth.api_key, then from the
system keychain (see 'igproxy auth set-key'). Without a key any bearer
token is accepted.

Environment:
  ALLOWED_ORIGINS              comma-separated origins, or * (default *)
  API_KEY                      shared secret for bearer tokens
  RATE_LIMIT_WINDOW_SECONDS    window length (default 60)
  RATE_LIMIT_MAX_REQUESTS      requests per window (default 10)
  ENFORCE_ALLOWED_ORIGINS      reject disallowed origins with 403`,
	Example: `  igproxy serve --port 8080
  API_KEY=secret ALLOWED_ORIGINS=https://app.example igproxy serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "listen host")
	serveCmd.Flags().Int("port", 0, "listen port")
	serveCmd.Flags().String("allowed-origins", "", "comma-separated allowed origins, or *")
	serveCmd.Flags().Bool("enforce-origin", false, "reject disallowed origins with 403")
	serveCmd.Flags().String("upstream", "", "upstream extraction endpoint")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := initLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	ui.PrintBanner()
	ui.PrintInfo("Listening", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))

	apiKey := auth.NewManagerFromConfig(&cfg.Auth, log).ResolveAPIKey()
	if apiKey == "" {
		ui.PrintWarning("No API key configured, any bearer token will be accepted")
	}

	srv := server.New(cfg, server.Options{
		Logger: log,
		APIKey: apiKey,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return err
	}

	ui.PrintSuccess("Gateway stopped")
	return nil
}
