package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalit/metalit/internal/extract"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract text from downloaded PDFs",
	Long: `Extract plain text from every downloaded PDF into
data/extracted_text/{citation_key}.txt, skipping keys already extracted.
PDFs found on disk without a library record are adopted as orphaned
entries.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	a := mustApp()

	ext := extract.New(a.cfg, a.index, a.log)
	summary, err := ext.Run()
	if err != nil {
		exitWithError(ExitError, "extract: %v", err)
	}

	if humanOutput {
		fmt.Printf("%d extracted, %d skipped, %d failed, %d orphans adopted\n",
			summary.Extracted, summary.Skipped, summary.Failed, len(summary.Orphans))
	} else {
		outputJSON(summary)
	}
	return nil
}
