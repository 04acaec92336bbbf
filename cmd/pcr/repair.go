package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pcr/internal/api"
	"github.com/jackzampolin/pcr/internal/repair"
)

var (
	repairFile      string
	repairCandidate bool
)

var repairCmd = &cobra.Command{
	Use:   "repair [text...]",
	Short: "Repair raw model output into JSON",
	Long: `Apply the JSON repair steps to raw text, without calling a model.

Useful for replaying a logged model reply. Prints the value, or null.

Examples:
  pcr repair --file reply.txt
  pcr repair "{'age': '45',}"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := api.ReadInput(repairFile, args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		res := repair.Fix(text)
		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "repair status: %s\n", res.Reason.Status())
		if res.Err != nil {
			fmt.Fprintf(stderr, "error: %v\n", res.Err)
		}
		if repairCandidate {
			fmt.Fprintf(stderr, "candidate: %s\n", res.Candidate)
		}

		return api.Output(res.Value)
	},
}

func init() {
	repairCmd.Flags().StringVarP(&repairFile, "file", "f", "", "Read raw text from file (- for stdin)")
	repairCmd.Flags().BoolVar(&repairCandidate, "candidate", false, "Print the text handed to the decoder")

	rootCmd.AddCommand(repairCmd)
}
