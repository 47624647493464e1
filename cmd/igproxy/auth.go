package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igproxy/pkg/auth"
	"igproxy/pkg/config"
	"igproxy/pkg/logger"
	"igproxy/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the gateway's shared API key",
	Long: `Manage the shared secret that bearer tokens are checked against.

The key is resolved in this order:
  - API_KEY environment variable or auth.api_key in the config file
  - System keychain entry written by 'igproxy auth set-key'

When no key is found the gateway accepts any bearer token.`,
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the API key in the system keychain",
	Long: `Store the API key in the system keychain. The key is read from the
terminal without echo, or from standard input when it is not a terminal.`,
	Example: `  igproxy auth set-key
  echo -n "$SECRET" | igproxy auth set-key`,
	Args: cobra.NoArgs,
	RunE: runSetKey,
}

var deleteKeyCmd = &cobra.Command{
	Use:   "delete-key",
	Short: "Remove the API key from the system keychain",
	Args:  cobra.NoArgs,
	RunE:  runDeleteKey,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the API key would be loaded from",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setKeyCmd)
	authCmd.AddCommand(deleteKeyCmd)
	authCmd.AddCommand(statusCmd)
}

func runSetKey(cmd *cobra.Command, args []string) error {
	fmt.Fprint(cmd.OutOrStdout(), "API key: ")
	key, err := readSecret(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if key == "" {
		return auth.ErrInvalidKey
	}

	manager := auth.NewManager(logger.NewNopLogger(), auth.NewKeyringStore())
	store, err := manager.Store(key)
	if err != nil {
		return err
	}

	ui.PrintSuccess("API key stored in " + store)
	ui.PrintInfo("Fingerprint", auth.Fingerprint(key))
	return nil
}

func runDeleteKey(cmd *cobra.Command, args []string) error {
	manager := auth.NewManager(logger.NewNopLogger(), auth.NewKeyringStore())
	if err := manager.Delete(); err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			ui.PrintWarning("No API key stored in the keychain")
			return nil
		}
		return err
	}
	ui.PrintSuccess("API key removed from keychain")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	stores := []auth.KeyStore{
		auth.NewEnvironmentStore(auth.DefaultKeyEnvVar),
		auth.NewStaticStore("config", cfg.Auth.APIKey),
	}
	if cfg.Auth.UseKeyring {
		stores = append(stores, auth.NewKeyringStore())
	}

	for _, store := range stores {
		key, err := store.Get()
		switch {
		case err == nil:
			ui.PrintInfo(store.Name(), "set (fingerprint "+auth.Fingerprint(key)+")")
		case errors.Is(err, auth.ErrKeyNotFound):
			ui.PrintInfo(store.Name(), "not set")
		default:
			ui.PrintInfo(store.Name(), "unavailable: "+err.Error())
		}
	}

	key, source, err := auth.NewManager(logger.NewNopLogger(), stores...).Resolve()
	if err != nil {
		ui.PrintWarning("No API key configured, the gateway accepts any bearer token")
		return nil
	}
	ui.PrintSuccess(fmt.Sprintf("Gateway will use the key from %s (%s)", source, auth.Fingerprint(key)))
	return nil
}

// readSecret reads a line without echo when in is an interactive terminal
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
