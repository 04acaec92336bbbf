package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pcr/internal/api"
	"github.com/jackzampolin/pcr/internal/extract"
	"github.com/jackzampolin/pcr/internal/providers"
	"github.com/jackzampolin/pcr/internal/report"
)

var (
	extractFile    string
	extractSummary bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [text...]",
	Short: "Extract a report locally without a server",
	Long: `Run one extraction in-process using the configured default provider.

The narrative is read from --file, the positional arguments, or stdin.
The repaired value is printed to stdout (null when repair failed).
The repair status, token usage and an optional summary go to stderr.

Examples:
  pcr extract --file narrative.txt
  echo "45 yo male, BP 140/90" | pcr extract --summary`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := api.ReadInput(extractFile, args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		mgr, _, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		logger, err := stderrLogger(cfg.Log)
		if err != nil {
			return err
		}

		registry := providers.NewRegistry()
		registry.SetLogger(logger)
		registry.Reload(cfg.ToProviderRegistryConfig())

		agent, err := extract.FromConfig(registry, cfg, extract.Options{Logger: logger})
		if err != nil {
			return err
		}

		out, err := agent.Extract(cmd.Context(), text)
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "repair status: %s\n", out.Status())
		if out.Chat != nil {
			fmt.Fprintf(stderr, "provider: %s  model: %s  tokens: %d in / %d out  time: %s\n",
				out.Chat.Provider, out.Chat.ModelUsed,
				out.Chat.PromptTokens, out.Chat.CompletionTokens, out.Chat.TotalTime)
		}
		for _, issue := range out.Issues {
			fmt.Fprintf(stderr, "schema: %s\n", issue)
		}

		if extractSummary && out.Value() != nil {
			if r, err := report.Decode(out.Value()); err == nil {
				fmt.Fprintln(stderr, r.Summary())
			} else {
				fmt.Fprintf(stderr, "summary unavailable: %v\n", err)
			}
		}

		return api.Output(out.Value())
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Read narrative from file (- for stdin)")
	extractCmd.Flags().BoolVar(&extractSummary, "summary", false, "Print a human-readable summary to stderr")

	rootCmd.AddCommand(extractCmd)
}
