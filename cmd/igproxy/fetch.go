package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"igproxy/pkg/client"
	"igproxy/pkg/history"
	"igproxy/pkg/instagram"
	"igproxy/pkg/logger"
	"igproxy/pkg/ui"
)

var (
	fetchJSON      bool
	fetchNoHistory bool
	fetchCheck     bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <instagram-url>",
	Short: "Look up the download options for a URL through a running gateway",
	Long: `Send an Instagram post, reel or IGTV URL to a running gateway and print
the download options it returns. Successful lookups are added to the
local history.`,
	Example: `  igproxy fetch https://www.instagram.com/p/ABC123/
  igproxy fetch --base-url http://gateway:8080 --api-key secret https://instagram.com/reel/XYZ/`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().String("base-url", "", "gateway base URL")
	fetchCmd.Flags().String("api-key", "", "bearer token sent to the gateway")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the raw result as JSON")
	fetchCmd.Flags().BoolVar(&fetchNoHistory, "no-history", false, "do not record the result in history")
	fetchCmd.Flags().BoolVar(&fetchCheck, "check", false, "check the gateway health endpoint before the lookup")
}

func runFetch(cmd *cobra.Command, args []string) error {
	postURL := args[0]
	if err := instagram.ValidateURL(postURL); err != nil {
		return err
	}
	ref, err := instagram.ParseContentURL(postURL)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewNopLogger()
	if logLevel != "" {
		if log, err = initLogging(cfg); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	if !fetchJSON {
		ui.PrintInfo("Content", fmt.Sprintf("%s %s", ref.Kind.MediaType(), ref.Shortcode))
		if cfg.Client.APIKey == "" {
			ui.PrintWarning("No API key set, sending an anonymous token (use --api-key or client.api_key)")
		}
	}

	c := client.New(&cfg.Client, log)
	if fetchCheck {
		if err := c.Health(cmd.Context()); err != nil {
			return fmt.Errorf("gateway at %s is not available: %w", cfg.Client.BaseURL, err)
		}
	}

	result, err := c.Fetch(cmd.Context(), postURL)
	if err != nil {
		return err
	}

	if fetchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		ui.PrintResult(result)
	}

	if fetchNoHistory {
		return nil
	}

	h, err := history.NewManager(cfg.Client.HistoryFile, log)
	if err != nil {
		ui.PrintWarning("History unavailable", err.Error())
		return nil
	}
	if _, err := h.Add(result); err != nil {
		ui.PrintWarning("Failed to record history", err.Error())
	}
	return nil
}
