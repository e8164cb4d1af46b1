package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove entries without PDFs and orphaned data files",
	Long: `Remove library entries whose PDF is missing from disk, then delete
data files no surviving entry accounts for: orphaned PDFs, summaries,
extracted text, and stale partial downloads.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a := mustApp()

	report, err := a.index.Cleanup()
	if err != nil {
		exitWithError(ExitError, "cleanup: %v", err)
	}

	if humanOutput {
		fmt.Printf("removed %d entries, %d files\n", len(report.RemovedEntries), len(report.RemovedFiles))
		for _, key := range report.RemovedEntries {
			fmt.Printf("  entry %s\n", key)
		}
		for _, path := range report.RemovedFiles {
			fmt.Printf("  file  %s\n", path)
		}
	} else {
		outputJSON(report)
	}
	return nil
}
