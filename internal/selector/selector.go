// Package selector filters library entries for downstream analysis. All
// filters are pure conjunctions; limit truncates last.
package selector

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/library"
)

// Years bounds the publication year; nil ends are open.
type Years struct {
	Min *int `yaml:"min"`
	Max *int `yaml:"max"`
}

// Selection holds the configured filters. Absent fields disable the
// corresponding filter; the zero value selects everything.
type Selection struct {
	CitationKeys []string `yaml:"citation_keys"`
	Years        *Years   `yaml:"years"`
	Sources      []string `yaml:"sources"`
	HasPDF       *bool    `yaml:"has_pdf"`
	HasSummary   *bool    `yaml:"has_summary"`
	Keywords     []string `yaml:"keywords"`
	Limit        *int     `yaml:"limit"`
}

type selectionFile struct {
	Selection Selection `yaml:"selection"`
}

// LoadSelection reads a selection YAML file. An empty file selects all.
func LoadSelection(path string) (Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Selection{}, fmt.Errorf("reading selection config: %w", err)
	}
	var file selectionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Selection{}, fmt.Errorf("parsing selection config: %w", err)
	}
	return file.Selection, nil
}

// Selector applies a Selection to library entries. PDF presence checks
// go through the index so recorded paths are honored; summary presence
// checks against the configured summaries directory.
type Selector struct {
	cfg   config.Config
	index *library.Index
	sel   Selection
}

// New creates a selector for one configured selection.
func New(cfg config.Config, index *library.Index, sel Selection) *Selector {
	return &Selector{cfg: cfg, index: index, sel: sel}
}

// Select filters entries, applying every configured filter as a logical
// AND and the limit last. The input order is preserved.
func (s *Selector) Select(entries []*library.Entry) []*library.Entry {
	keySet := toSet(s.sel.CitationKeys)
	sourceSet := toSet(s.sel.Sources)
	keywordPatterns := make([]*regexp.Regexp, 0, len(s.sel.Keywords))
	for _, kw := range s.sel.Keywords {
		keywordPatterns = append(keywordPatterns, keywordPattern(kw))
	}

	var selected []*library.Entry
	for _, entry := range entries {
		if len(keySet) > 0 && !keySet[entry.CitationKey] {
			continue
		}
		if s.sel.Years != nil && !yearMatches(entry.Year, s.sel.Years) {
			continue
		}
		if len(sourceSet) > 0 && !sourceSet[entry.Source] {
			continue
		}
		if s.sel.HasPDF != nil && s.index.HasPDF(entry) != *s.sel.HasPDF {
			continue
		}
		if s.sel.HasSummary != nil && s.hasSummary(entry) != *s.sel.HasSummary {
			continue
		}
		if !keywordsMatch(entry, keywordPatterns) {
			continue
		}
		selected = append(selected, entry)
	}

	if s.sel.Limit != nil && *s.sel.Limit >= 0 && len(selected) > *s.sel.Limit {
		selected = selected[:*s.sel.Limit]
	}
	return selected
}

func (s *Selector) hasSummary(entry *library.Entry) bool {
	_, err := os.Stat(s.cfg.SummaryPath(entry.CitationKey))
	return err == nil
}

// yearMatches applies the years filter; entries without a year are
// dropped whenever the filter is configured at all.
func yearMatches(year int, bounds *Years) bool {
	if year == 0 {
		return false
	}
	if bounds.Min != nil && year < *bounds.Min {
		return false
	}
	if bounds.Max != nil && year > *bounds.Max {
		return false
	}
	return true
}

// keywordPattern matches the keyword as a word-boundary prefix,
// case-insensitively.
func keywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(keyword)))
}

// keywordsMatch requires every keyword to match in title ∪ abstract.
func keywordsMatch(entry *library.Entry, patterns []*regexp.Regexp) bool {
	if len(patterns) == 0 {
		return true
	}
	haystack := entry.Title + " " + entry.Abstract
	for _, p := range patterns {
		if !p.MatchString(haystack) {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
