package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pcr/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pcr server",
	Long: `Start the pcr HTTP server.

The server provides:
  - POST /report_create - Extract a report from {"text": "..."}
  - /health             - Basic server health check
  - /ready              - Readiness check (LLM client configured)
  - /status             - Version, providers and extraction settings
  - /swagger            - API documentation

The server starts even without an API key; /report_create then answers 503
until the config file is fixed. Config file edits are applied without a restart.

Examples:
  pcr serve                    # Start on 0.0.0.0:8000
  pcr serve --port 3000        # Start on custom port
  pcr serve --host 127.0.0.1   # Bind to loopback only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, h, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		logger, err := newLogger(os.Stdout, cfg.Log)
		if err != nil {
			return err
		}
		if used := mgr.ConfigFileUsed(); used != "" {
			logger.Info("loaded config", "file", used)
		}

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			CORSOrigins:   cfg.Server.CORSOrigins,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		mgr.WatchConfig()

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host to bind to (overrides server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "8000", "Port to listen on (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}
