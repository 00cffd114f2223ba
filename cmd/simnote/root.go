package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simnote/core/internal/config"
	"github.com/simnote/core/internal/journal"
	"github.com/simnote/core/internal/logging"
)

const version = "1.0.0"

var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool

	svc *journal.Service
)

var rootCmd = &cobra.Command{
	Use:     "simnote",
	Short:   "Simnote is an encrypted, offline-first personal journal",
	Version: version,
	Long: `Simnote stores journal entries in a local SQLite database with a
human-readable file mirror, optionally sealed under a passcode-derived
key. All data stays on this machine.`,
	PersistentPreRunE:  initService,
	PersistentPostRunE: closeService,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: data directory)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: ~/.simnote)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(favoriteCmd)
	rootCmd.AddCommand(moodCmd)
	rootCmd.AddCommand(metaCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(securityCmd)
}

// initService loads config, configures logging and constructs the
// journal service every command talks to.
func initService(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfigDir)
	if err != nil {
		return err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}

	logging.Init(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	svc, err = journal.New(journal.Options{
		DataDir:         cfg.DataDir,
		AutoLockMinutes: cfg.AutoLockMinutes,
	})
	if err != nil {
		return err
	}
	return nil
}

func closeService(cmd *cobra.Command, args []string) error {
	if svc != nil {
		return svc.Close()
	}
	return nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ensureUnlocked prompts for the passcode and unlocks the journal when
// security is enabled and the journal is still locked. Commands that
// touch entry content call this before doing any work.
func ensureUnlocked() error {
	if !svc.IsSecurityEnabled() || svc.IsUnlocked() {
		return nil
	}
	passcode, err := readSecret("Passcode: ")
	if err != nil {
		return err
	}
	return svc.UnlockWithPasscode(passcode)
}

// stdin is the prompt input source, swapped out in tests.
var stdin io.Reader = os.Stdin

// readSecret prompts on stderr and reads one line from stdin. Used
// for passcodes so they never appear in shell history via flags.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
