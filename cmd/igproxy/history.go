package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"igproxy/pkg/config"
	"igproxy/pkg/history"
	"igproxy/pkg/logger"
	"igproxy/pkg/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent lookups",
	Long: fmt.Sprintf(`Show the last %d distinct URLs fetched with 'igproxy fetch', most recent first.`,
		history.DefaultMaxEntries),
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all recent lookups",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func historyManager() (*history.Manager, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return history.NewManager(cfg.Client.HistoryFile, logger.NewNopLogger())
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	h, err := historyManager()
	if err != nil {
		return err
	}

	entries, err := h.Load()
	if err != nil {
		return err
	}
	ui.PrintHistory(entries)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	h, err := historyManager()
	if err != nil {
		return err
	}
	if err := h.Clear(); err != nil {
		return err
	}
	ui.PrintSuccess("History cleared")
	return nil
}
