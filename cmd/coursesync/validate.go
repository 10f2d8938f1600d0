package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/artpar/coursesync/adapters/sqlite"
	"github.com/artpar/coursesync/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the coursesync configuration file.

Checks:
  - YAML syntax is valid
  - Values are in range
  - Remote authority is reachable (optional)
  - SQLite draft database is writable (optional)

Examples:
  coursesync validate
  coursesync validate --config /etc/coursesync/config.yaml --check-remote`,
	RunE: runValidate,
}

var (
	validateCheckRemote   bool
	validateCheckDatabase bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckRemote, "check-remote", false, "check if the remote authority is reachable")
	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if the sqlite draft database is writable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config syntax valid\n", checkMark)

	remote := cfg.Remote.URL
	if remote == "" {
		remote = "none (local only)"
	}
	fmt.Fprintf(out, "  %s Remote authority: %s\n", checkMark, remote)
	fmt.Fprintf(out, "  %s Draft store: %s\n", checkMark, cfg.Drafts.Backend)
	fmt.Fprintf(out, "  %s Autosave: local %s, remote %s\n", checkMark, cfg.Autosave.LocalDelay, cfg.Autosave.RemoteDelay)

	if validateCheckRemote && cfg.Remote.URL != "" {
		if err := checkRemoteReachable(cfg.Remote.URL); err != nil {
			fmt.Fprintf(out, "  %s Remote reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Remote reachable\n", checkMark)
		}
	}

	if validateCheckDatabase && cfg.Drafts.Backend == config.BackendSQLite {
		if err := checkDatabaseWritable(cfg.Drafts.DSN); err != nil {
			fmt.Fprintf(out, "  %s Database writable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Database writable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkRemoteReachable(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(url, "/")+"/health", nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func checkDatabaseWritable(dsn string) error {
	db, err := sqlite.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Migrate()
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
