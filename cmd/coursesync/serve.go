package main

import (
	"fmt"

	"github.com/artpar/coursesync/bootstrap"
	"github.com/artpar/coursesync/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference course authority",
	Long: `Run an in-memory course authority over HTTP.

The authority validates saves with the same rules as the editor, enforces
unique slugs (suggesting the next free one), replays responses for repeated
Idempotency-Key headers and is seeded with the sample catalogue.

The server will:
  - Load configuration from coursesync.yaml (or --config)
  - Or load configuration from COURSESYNC_* environment variables
  - Serve /courses, /health, /version and /metrics

Examples:
  coursesync serve
  coursesync serve --config /etc/coursesync/config.yaml
  COURSESYNC_SERVER_PORT=9000 coursesync serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	srv := bootstrap.NewServer(cfg, bootstrap.ServerOptions{Version: version})
	return srv.Run()
}
