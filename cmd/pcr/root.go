package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pcr/internal/api"
	"github.com/jackzampolin/pcr/internal/config"
	"github.com/jackzampolin/pcr/internal/home"
	"github.com/jackzampolin/pcr/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "pcr",
	Short: "Patient care report extraction with an LLM",
	Long: `pcr turns a free-text EMS narrative into a structured patient care report.

The narrative is sent to an LLM (Gemini by default) together with a fixed
extraction prompt. The model's reply is repaired into a JSON value and
returned as-is, or null when nothing usable came back.

Set GEMINI_API_KEY in the environment or in a .env file, then:
  pcr serve                              # Serve POST /report_create on :8000
  pcr extract --file narrative.txt       # Extract locally without a server
  pcr api report-create "45 yo male..."  # Call a running server`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pcr/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pcr home directory (default: ~/.pcr)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "json", "output format: json or yaml",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (default: from config)",
	)

	// Load .env files and set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := api.SetOutputFormat(outputFormat); err != nil {
			return err
		}

		dirs := []string{"."}
		if h, err := home.New(homeDir); err == nil {
			dirs = append(dirs, h.Path())
		}
		if _, err := config.LoadDotEnv(dirs...); err != nil {
			return err
		}
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the config file from --config, then the home directory.
func loadConfig() (*config.Manager, *home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}

	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, nil, err
	}
	return mgr, h, nil
}

// newLogger builds the process logger. --log-level overrides log.level.
func newLogger(w io.Writer, cfg config.LogCfg) (*slog.Logger, error) {
	levelName := cfg.Level
	if logLevel != "" {
		levelName = logLevel
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
}

// stderrLogger is used by one-shot commands so stdout stays machine-readable.
func stderrLogger(cfg config.LogCfg) (*slog.Logger, error) {
	return newLogger(os.Stderr, cfg)
}
