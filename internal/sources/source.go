// Package sources provides rate-limited clients for the academic paper
// databases the pipeline federates across.
//
// Each adapter implements Source; adapters that can resolve a direct PDF
// URL for one of their own results additionally implement PDFResolver.
// Unpaywall is lookup-only: it implements PDFResolver but not Source.
package sources

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
)

// Source names as stored in library entries.
const (
	NameArxiv           = "arxiv"
	NameSemanticScholar = "semanticscholar"
	NamePubMed          = "pubmed"
	NameEuropePMC       = "europepmc"
	NameCrossRef        = "crossref"
	NameOpenAlex        = "openalex"
	NameDBLP            = "dblp"
	NameBioRxiv         = "biorxiv"
	NameUnpaywall       = "unpaywall"
)

// ErrNoPDFURL is returned by resolvers that found no open-access PDF.
var ErrNoPDFURL = errors.New("no pdf url available")

// Result is the normalized search hit shared by every adapter.
type Result struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     int      `json:"year,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	URL      string   `json:"url,omitempty"`
	PDFURL   string   `json:"pdf_url,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	Source   string   `json:"source"`

	// CitationCount is nil when the source does not report one.
	CitationCount *int `json:"citation_count,omitempty"`
}

// Source is the adapter contract for a searchable paper database.
type Source interface {
	// Name returns the source tag stored on library entries.
	Name() string

	// Healthy reports whether the source has not failed this run.
	Healthy() bool

	// Search returns up to limit normalized results for the query.
	// Multi-word queries arriving quoted are passed through verbatim to
	// backends with phrase search; others strip the quotes.
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// PDFResolver resolves a direct PDF URL for a result.
type PDFResolver interface {
	ResolvePDFURL(ctx context.Context, r Result) (string, error)
}

// health is embedded by adapters to track per-run availability. A failed
// search marks the source unhealthy so the federation skips it for the
// remaining keywords.
type health struct {
	unhealthy atomic.Bool
}

// Healthy reports whether the adapter has failed this run.
func (h *health) Healthy() bool { return !h.unhealthy.Load() }

// markUnhealthy records a failure.
func (h *health) markUnhealthy() { h.unhealthy.Store(true) }

// stripQuotes removes surrounding phrase quotes for backends without
// phrase-search support.
func stripQuotes(query string) string {
	return strings.Trim(query, `"`)
}

// splitAuthorString splits a comma-separated author line like
// "Smith J, Lee K." into individual names.
func splitAuthorString(s string) []string {
	var authors []string
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "."))
		if name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

// isQuoted reports whether the query is a quoted phrase.
func isQuoted(query string) bool {
	return len(query) >= 2 && strings.HasPrefix(query, `"`) && strings.HasSuffix(query, `"`)
}
