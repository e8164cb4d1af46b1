package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalit/metalit/internal/library"
	"github.com/metalit/metalit/internal/selector"
	"github.com/metalit/metalit/internal/storage"
)

var (
	listConfig string
	listMatch  string
	listLimit  int
)

func init() {
	listCmd.Flags().StringVar(&listConfig, "config", "", "Paper-selection YAML file to filter by")
	listCmd.Flags().StringVar(&listMatch, "match", "", "Full-text match over titles, abstracts, and authors")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum results to return (0 = all)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List library entries",
	Long: `List library entries, optionally filtered by a paper-selection YAML
file and a full-text match.

Examples:
  metalit list
  metalit list --config selection.yaml
  metalit list --match "coral bleaching" --limit 20`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	a := mustApp()

	sel := selector.Selection{}
	if listConfig != "" {
		loaded, err := selector.LoadSelection(listConfig)
		if err != nil {
			exitWithError(ExitConfigError, "loading selection: %v", err)
		}
		sel = loaded
	}

	entries := selector.New(a.cfg, a.index, sel).Select(a.index.ListEntries())

	if listMatch != "" {
		matched, err := matchKeys(a, listMatch)
		if err != nil {
			exitWithError(ExitError, "matching: %v", err)
		}
		var filtered []*library.Entry
		for _, entry := range entries {
			if matched[entry.CitationKey] {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	if listLimit > 0 && len(entries) > listLimit {
		entries = entries[:listLimit]
	}

	if humanOutput {
		if len(entries) == 0 {
			fmt.Println("No matching entries")
			return nil
		}
		fmt.Printf("%d entries:\n\n", len(entries))
		for _, entry := range entries {
			fmt.Printf("  %-24s %s\n", entry.CitationKey, truncateString(entry.Title, 60))
		}
	} else {
		if entries == nil {
			entries = []*library.Entry{}
		}
		outputJSON(entries)
	}
	return nil
}

// matchKeys rebuilds the query cache and returns the keys matching the
// full-text query.
func matchKeys(a *app, query string) (map[string]bool, error) {
	cache, err := storage.Open(a.cfg.CacheDBPath())
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	if _, err := cache.Rebuild(a.index.ListEntries(), a.index.HasPDF); err != nil {
		return nil, err
	}
	keys, err := cache.Match(query, a.index.Len())
	if err != nil {
		return nil, err
	}
	matched := make(map[string]bool, len(keys))
	for _, key := range keys {
		matched[key] = true
	}
	return matched, nil
}
