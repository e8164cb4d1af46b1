// Package htmlparse extracts candidate PDF URLs from publisher landing
// pages. Parsers are best-effort: no candidate is promised to resolve, and
// parser errors never propagate — they yield an empty list.
package htmlparse

import (
	"net/url"
	"sort"
	"strings"
)

// Parser extracts PDF URL candidates for one publisher family.
type Parser interface {
	// Name identifies the parser in logs.
	Name() string

	// Priority orders parser selection; higher wins.
	Priority() int

	// DetectPublisher reports whether this parser handles the URL's host.
	DetectPublisher(pageURL string) bool

	// ExtractPDFURLs returns candidate PDF URLs from raw HTML, resolved
	// against baseURL, in preference order.
	ExtractPDFURLs(html []byte, baseURL string) []string
}

// Registry holds parsers sorted by descending priority. Selection is total:
// the generic parser matches any URL.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns a registry with the standard publisher parsers.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(&ElsevierParser{})
	r.Register(&SpringerParser{})
	r.Register(&IEEEParser{})
	r.Register(&ACMParser{})
	r.Register(&WileyParser{})
	r.Register(&GenericParser{})
	return r
}

// Register adds a parser, keeping the descending priority order.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
	sort.SliceStable(r.parsers, func(i, j int) bool {
		return r.parsers[i].Priority() > r.parsers[j].Priority()
	})
}

// Select returns the first parser whose DetectPublisher accepts the URL.
func (r *Registry) Select(pageURL string) Parser {
	for _, p := range r.parsers {
		if p.DetectPublisher(pageURL) {
			return p
		}
	}
	// Unreachable with the generic parser registered; callers still get a
	// usable parser if a custom registry omits it.
	return &GenericParser{}
}

// ExtractPDFURLs selects a parser for the URL and extracts candidates,
// shielding callers from parser panics.
func (r *Registry) ExtractPDFURLs(html []byte, pageURL string) (urls []string) {
	defer func() {
		if recover() != nil {
			urls = nil
		}
	}()
	return r.Select(pageURL).ExtractPDFURLs(html, pageURL)
}

// hostMatches reports whether the URL's host equals or is a subdomain of
// any of the given domains.
func hostMatches(pageURL string, domains ...string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// filterURLs drops empty, non-http(s), ftp, and file URLs and dedups
// preserving first-seen order.
func filterURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		lower := strings.ToLower(u)
		if strings.HasPrefix(lower, "ftp://") || strings.HasPrefix(lower, "file://") {
			continue
		}
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// resolveURL resolves href against base; returns href unchanged when base
// is unparseable, empty string when href is.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
