package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm the total clear")
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the entire library and all derived data",
	Long: `Delete the library index, all PDFs, summaries, extracted text, the
summarization progress file, and the BibTeX export. Requires --yes.`,
	RunE: runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	a := mustApp()

	if !clearYes {
		exitWithError(ExitError, "refusing to clear %d entries without --yes", a.index.Len())
	}

	cleared := a.index.Len()
	if err := a.index.Clear(); err != nil {
		exitWithError(ExitError, "clear: %v", err)
	}

	if humanOutput {
		fmt.Printf("cleared %d entries and all derived data\n", cleared)
	} else {
		outputJSON(map[string]interface{}{"status": "cleared", "entries_removed": cleared})
	}
	return nil
}
