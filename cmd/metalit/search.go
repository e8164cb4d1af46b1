package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalit/metalit/internal/search"
)

var (
	searchLimit   int
	searchSources []string
)

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results per keyword per source (0 = LITERATURE_DEFAULT_LIMIT)")
	searchCmd.Flags().StringSliceVar(&searchSources, "sources", nil, "Restrict to the named sources (default: all)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>...",
	Short: "Search academic sources and add results to the library",
	Long: `Search the registered academic sources and merge the results into the
library index. Multi-word keywords are quoted automatically so
phrase-capable backends see phrases.

Examples:
  metalit search "coral bleaching"
  metalit search microbiome --sources arxiv,pubmed --limit 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	a := mustApp()

	keywords := make([]string, 0, len(args))
	for _, arg := range args {
		keywords = append(keywords, search.QuoteKeyword(arg))
	}

	fed := search.NewFederator(a.cfg, a.registry(), a.index, a.log)
	summary, err := fed.Search(context.Background(), search.Options{
		Keywords: keywords,
		Sources:  searchSources,
		Limit:    searchLimit,
	})
	if err != nil {
		exitWithError(ExitError, "search: %v", err)
	}

	if humanOutput {
		fmt.Printf("%d results, %d new, %d duplicates, %d source errors\n",
			summary.TotalResults, len(summary.NewEntries), summary.Duplicates, summary.Errors)
		for _, key := range summary.NewEntries {
			entry := a.index.GetEntry(key)
			if entry == nil {
				continue
			}
			fmt.Printf("  %-24s %s\n", key, truncateString(entry.Title, 70))
		}
	} else {
		outputJSON(summary)
	}
	return nil
}
