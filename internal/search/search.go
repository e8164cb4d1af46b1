// Package search federates keyword queries across the registered paper
// sources, merges the hits into the library, and downloads PDFs.
package search

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/library"
	"github.com/metalit/metalit/internal/sources"
)

// Options configures one federated search run.
type Options struct {
	// Keywords are the search terms; multi-word terms should arrive
	// quoted (QuoteKeyword) so phrase-capable backends see phrases.
	Keywords []string

	// Sources restricts the fan-out to the named sources; empty means
	// every registered source.
	Sources []string

	// Limit caps results per (keyword, source) pair.
	Limit int
}

// Summary reports one federated search run.
type Summary struct {
	Keywords     []string `json:"keywords"`
	TotalResults int      `json:"total_results"`
	NewEntries   []string `json:"new_entries"`
	Duplicates   int      `json:"duplicates"`
	Errors       int      `json:"errors"`
}

// Federator runs keyword fan-out and merges results into the library.
type Federator struct {
	cfg      config.Config
	registry *sources.Registry
	index    *library.Index
	log      zerolog.Logger
}

// NewFederator wires a federator.
func NewFederator(cfg config.Config, registry *sources.Registry, index *library.Index, log zerolog.Logger) *Federator {
	return &Federator{cfg: cfg, registry: registry, index: index, log: log}
}

// Search fans every keyword out across the enabled sources and folds the
// combined results into the library. A result whose DOI or case-folded
// title is already present counts as a duplicate; the first-seen source
// keeps the source field.
func (f *Federator) Search(ctx context.Context, opts Options) (Summary, error) {
	if opts.Limit <= 0 {
		opts.Limit = f.cfg.DefaultLimit
	}

	summary := Summary{Keywords: opts.Keywords}
	for _, keyword := range opts.Keywords {
		outcomes := f.registry.SearchAll(ctx, opts.Sources, keyword, opts.Limit)
		for _, outcome := range outcomes {
			if outcome.Err != nil {
				summary.Errors++
				continue
			}
			for _, r := range outcome.Results {
				summary.TotalResults++
				if f.index.HasPaper(r.DOI, r.Title) {
					summary.Duplicates++
					continue
				}
				key, err := f.index.AddEntry(library.Paper{
					Title:         r.Title,
					Authors:       r.Authors,
					Year:          r.Year,
					DOI:           r.DOI,
					Source:        r.Source,
					URL:           r.URL,
					Abstract:      r.Abstract,
					Venue:         r.Venue,
					CitationCount: r.CitationCount,
					PDFURL:        r.PDFURL,
				})
				if err != nil {
					f.log.Error().Err(err).Str("title", r.Title).Msg("persisting entry failed")
					summary.Errors++
					continue
				}
				summary.NewEntries = append(summary.NewEntries, key)
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
	}

	f.log.Info().Int("results", summary.TotalResults).
		Int("new", len(summary.NewEntries)).
		Int("duplicates", summary.Duplicates).
		Msg("search complete")
	return summary, nil
}

// QuoteKeyword wraps multi-word keywords in phrase quotes unless the
// caller quoted them already.
func QuoteKeyword(keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if strings.ContainsAny(keyword, " \t") &&
		!(strings.HasPrefix(keyword, `"`) && strings.HasSuffix(keyword, `"`)) {
		return `"` + keyword + `"`
	}
	return keyword
}
