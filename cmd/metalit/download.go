package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalit/metalit/internal/htmlparse"
	"github.com/metalit/metalit/internal/search"
)

var downloadRetryFailed bool

func init() {
	downloadCmd.Flags().BoolVar(&downloadRetryFailed, "retry-failed", false, "Also retry downloads with non-retriable failure records")
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download PDFs for library entries that lack one",
	Long: `Download PDFs for every library entry without one on disk. Failed
downloads are recorded in data/failed_downloads.json; retriable failures
(network errors, timeouts) are retried on the next run, others only with
--retry-failed.

Examples:
  metalit download
  metalit download --retry-failed`,
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	a := mustApp()

	dl := search.NewDownloader(a.cfg, a.registry(), a.index, a.tracker(), htmlparse.NewRegistry(), a.log)
	summary, err := dl.DownloadAll(context.Background(), downloadRetryFailed)
	if err != nil {
		exitWithError(ExitError, "download: %v", err)
	}

	if humanOutput {
		fmt.Printf("%d attempted, %d succeeded, %d already on disk, %d failed\n",
			summary.Attempted, summary.Succeeded, summary.AlreadyExisted, summary.Failed)
		for _, r := range summary.Results {
			if r.Success {
				continue
			}
			fmt.Printf("  %-24s %s: %s\n", r.CitationKey, r.FailureReason, r.FailureMessage)
		}
	} else {
		outputJSON(summary)
	}
	return nil
}
