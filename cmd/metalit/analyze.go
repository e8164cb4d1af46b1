package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalit/metalit/internal/aggregate"
	"github.com/metalit/metalit/internal/analysis"
	"github.com/metalit/metalit/internal/extract"
	"github.com/metalit/metalit/internal/htmlparse"
	"github.com/metalit/metalit/internal/search"
)

var (
	analyzeLimit            int
	analyzeSources          []string
	analyzeComponents       int
	analyzeClusters         int
	analyzeAbstractKeywords bool
	analyzeRetryFailed      bool
)

func init() {
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "Maximum search results per keyword per source (0 = LITERATURE_DEFAULT_LIMIT)")
	analyzeCmd.Flags().StringSliceVar(&analyzeSources, "sources", nil, "Restrict search to the named sources (default: all)")
	analyzeCmd.Flags().IntVar(&analyzeComponents, "components", 0, "PCA components (default 5)")
	analyzeCmd.Flags().IntVar(&analyzeClusters, "clusters", 0, "K-means clusters (default 5)")
	analyzeCmd.Flags().BoolVar(&analyzeAbstractKeywords, "include-abstracts", false, "Extend keyword extraction to abstracts")
	analyzeCmd.Flags().BoolVar(&analyzeRetryFailed, "retry-failed", false, "Also retry downloads with non-retriable failure records")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [<keyword>...]",
	Short: "Run the full pipeline: search, download, extract, analyze",
	Long: `Run the full meta-analysis pipeline. With keywords, new papers are
searched and merged first; without keywords the analysis runs over the
existing library. Figures, loadings, and reports land in data/output/.

Examples:
  metalit analyze "coral bleaching" --limit 30
  metalit analyze --components 3 --clusters 4`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a := mustApp()
	ctx := context.Background()

	if len(args) > 0 {
		keywords := make([]string, 0, len(args))
		for _, arg := range args {
			keywords = append(keywords, search.QuoteKeyword(arg))
		}
		fed := search.NewFederator(a.cfg, a.registry(), a.index, a.log)
		if _, err := fed.Search(ctx, search.Options{
			Keywords: keywords,
			Sources:  analyzeSources,
			Limit:    analyzeLimit,
		}); err != nil {
			exitWithError(ExitError, "search: %v", err)
		}
	}

	dl := search.NewDownloader(a.cfg, a.registry(), a.index, a.tracker(), htmlparse.NewRegistry(), a.log)
	if _, err := dl.DownloadAll(ctx, analyzeRetryFailed); err != nil {
		exitWithError(ExitError, "download: %v", err)
	}

	ext := extract.New(a.cfg, a.index, a.log)
	if _, err := ext.Run(); err != nil {
		exitWithError(ExitError, "extract: %v", err)
	}

	entries := a.index.ListEntries()
	if len(entries) == 0 {
		exitWithError(ExitError, "library is empty; nothing to analyze")
	}

	agg := aggregate.New(a.cfg, a.index, a.log)
	engine := analysis.NewEngine(a.cfg, agg, a.log)
	result, err := engine.Run(entries, analysis.Options{
		NComponents:             analyzeComponents,
		NClusters:               analyzeClusters,
		IncludeAbstractKeywords: analyzeAbstractKeywords,
	})
	if err != nil {
		exitWithError(ExitError, "analysis: %v", err)
	}
	if len(result.Artifacts) == 0 {
		exitWithError(ExitError, "no artifacts could be produced")
	}

	if humanOutput {
		fmt.Printf("%d artifacts written to %s\n", len(result.Artifacts), a.cfg.OutputPath())
		for name, path := range result.Artifacts {
			fmt.Printf("  %-24s %s\n", name, path)
		}
		for name, reason := range result.Skipped {
			fmt.Printf("  skipped %-16s %s\n", name, reason)
		}
	} else {
		outputJSON(result)
	}
	return nil
}
