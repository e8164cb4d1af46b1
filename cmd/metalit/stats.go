package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalit/metalit/internal/library"
	"github.com/metalit/metalit/internal/storage"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Long: `Show library statistics cross-checked against the filesystem. The
SQLite query cache is rebuilt as a side effect; per-source counts and the
year histogram come from it.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	a := mustApp()

	stats := a.index.Stats()

	// The mirror is disposable; rebuilding keeps it aligned with the
	// library for later list --match queries.
	cache, err := storage.Open(a.cfg.CacheDBPath())
	if err != nil {
		exitWithError(ExitError, "opening query cache: %v", err)
	}
	defer cache.Close()

	if _, err := cache.Rebuild(a.index.ListEntries(), a.index.HasPDF); err != nil {
		exitWithError(ExitError, "rebuilding query cache: %v", err)
	}
	if bySource, err := cache.CountBySource(); err == nil {
		stats.Sources = bySource
	}
	if hist, err := cache.YearHistogram(); err == nil {
		years := make([]library.YearCount, 0, len(hist))
		// Newest first, matching the index's own ordering.
		for i := len(hist) - 1; i >= 0; i-- {
			years = append(years, library.YearCount{Year: hist[i].Year, Count: hist[i].Count})
		}
		stats.Years = years
	}

	if humanOutput {
		fmt.Printf("%d entries, %d with PDFs (%.1f%%), %d summarized (%.1f%%)\n",
			stats.TotalEntries, stats.DownloadedPDFs, stats.PDFPercentage,
			stats.SummariesGenerated, stats.SummaryPercentage)
		fmt.Printf("%d PDFs on disk, %.1f MB\n", stats.PDFCountFilesystem, stats.PDFSizeMB)
		if stats.OldestYear > 0 {
			fmt.Printf("years %d-%d\n", stats.OldestYear, stats.NewestYear)
		}
		for source, n := range stats.Sources {
			fmt.Printf("  %-20s %d\n", source, n)
		}
	} else {
		outputJSON(stats)
	}
	return nil
}
