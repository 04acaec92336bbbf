package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pcr/internal/api"
	"github.com/jackzampolin/pcr/internal/report"
)

var (
	validateFile   string
	validateSchema bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [json...]",
	Short: "Check a report against the report schema",
	Long: `Validate a JSON report against the schema the extraction prompt describes.

The check is advisory: it lists issues and exits non-zero when any exist.
Use --schema to print the schema itself.

Examples:
  pcr extract -f narrative.txt | pcr validate
  pcr validate --schema > schema.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateSchema {
			_, err := cmd.OutOrStdout().Write(report.Schema())
			return err
		}

		text, err := api.ReadInput(validateFile, args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		var value any
		if err := api.Decode([]byte(text), &value); err != nil {
			return fmt.Errorf("input is not JSON: %w", err)
		}

		issues := report.Validate(value)
		if err := api.Output(issues); err != nil {
			return err
		}
		if len(issues) > 0 {
			return fmt.Errorf("%d schema issue(s)", len(issues))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Read JSON from file (- for stdin)")
	validateCmd.Flags().BoolVar(&validateSchema, "schema", false, "Print the report schema and exit")

	rootCmd.AddCommand(validateCmd)
}
