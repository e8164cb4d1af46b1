package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// arXiv asks for 3 seconds between requests.
const arxivInterval = 3 * time.Second

// arxivAbsPattern extracts the arXiv ID from an abs URL.
var arxivAbsPattern = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Arxiv searches the arXiv Atom API and resolves PDF URLs from abs links.
type Arxiv struct {
	health
	client  *Client
	baseURL string
}

// NewArxiv creates the arXiv adapter.
func NewArxiv() *Arxiv {
	return &Arxiv{
		client:  NewClient(ClientConfig{Interval: arxivInterval}),
		baseURL: "https://export.arxiv.org/api/query",
	}
}

// NewArxivWithBase creates the adapter against a custom endpoint (tests).
func NewArxivWithBase(baseURL string) *Arxiv {
	a := NewArxiv()
	a.client = NewClient(ClientConfig{Interval: time.Millisecond, RetryDelay: time.Millisecond})
	a.baseURL = baseURL
	return a
}

// Name implements Source.
func (a *Arxiv) Name() string { return NameArxiv }

// atom feed subset returned by the arXiv API.
type arxivFeed struct {
	Entries []struct {
		ID        string `xml:"id"`
		Title     string `xml:"title"`
		Summary   string `xml:"summary"`
		Published string `xml:"published"`
		Authors   []struct {
			Name string `xml:"name"`
		} `xml:"author"`
		Links []struct {
			Href  string `xml:"href,attr"`
			Title string `xml:"title,attr"`
			Type  string `xml:"type,attr"`
		} `xml:"link"`
		DOI string `xml:"doi"`
	} `xml:"entry"`
}

// Search implements Source. Quoted queries are passed through for phrase
// search; arXiv supports them natively in all: queries.
func (a *Arxiv) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	q := query
	if !isQuoted(q) && strings.ContainsAny(q, " \t") {
		q = `"` + q + `"`
	}

	searchURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d",
		a.baseURL, url.QueryEscape("all:"+q), limit)

	body, err := a.client.Get(ctx, searchURL)
	if err != nil {
		a.markUnhealthy()
		return nil, fmt.Errorf("arxiv search: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		a.markUnhealthy()
		return nil, fmt.Errorf("arxiv response: %w", err)
	}

	results := make([]Result, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		r := Result{
			Title:    strings.Join(strings.Fields(entry.Title), " "),
			Abstract: strings.TrimSpace(entry.Summary),
			URL:      strings.TrimSpace(entry.ID),
			DOI:      entry.DOI,
			Source:   NameArxiv,
		}
		for _, author := range entry.Authors {
			r.Authors = append(r.Authors, author.Name)
		}
		if len(entry.Published) >= 4 {
			r.Year = pubYear(entry.Published[:4])
		}
		for _, link := range entry.Links {
			if link.Title == "pdf" || link.Type == "application/pdf" {
				r.PDFURL = link.Href
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// ResolvePDFURL implements PDFResolver by rewriting abs URLs to pdf URLs.
func (a *Arxiv) ResolvePDFURL(_ context.Context, r Result) (string, error) {
	if r.PDFURL != "" {
		return r.PDFURL, nil
	}
	if m := arxivAbsPattern.FindStringSubmatch(r.URL); m != nil {
		return "https://arxiv.org/pdf/" + m[1], nil
	}
	return "", ErrNoPDFURL
}
