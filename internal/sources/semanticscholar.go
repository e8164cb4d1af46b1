package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const (
	// Unauthenticated baseline is one request per 1.5 seconds; an API key
	// raises the cap.
	s2Interval        = 1500 * time.Millisecond
	s2IntervalWithKey = time.Second

	s2Fields = "title,abstract,authors,year,externalIds,openAccessPdf,url,venue,citationCount"
)

// SemanticScholar searches the Semantic Scholar Graph API.
type SemanticScholar struct {
	health
	client  *Client
	baseURL string
}

// NewSemanticScholar creates the adapter; apiKey may be empty.
func NewSemanticScholar(apiKey string) *SemanticScholar {
	interval := s2Interval
	if apiKey != "" {
		interval = s2IntervalWithKey
	}
	return &SemanticScholar{
		client: NewClient(ClientConfig{
			Interval:     interval,
			APIKey:       apiKey,
			APIKeyHeader: "x-api-key",
		}),
		baseURL: "https://api.semanticscholar.org/graph/v1",
	}
}

// NewSemanticScholarWithBase creates the adapter against a custom endpoint.
func NewSemanticScholarWithBase(baseURL string) *SemanticScholar {
	s := NewSemanticScholar("")
	s.client = NewClient(ClientConfig{Interval: time.Millisecond, RetryDelay: time.Millisecond})
	s.baseURL = baseURL
	return s
}

// Name implements Source.
func (s *SemanticScholar) Name() string { return NameSemanticScholar }

type s2SearchResponse struct {
	Data []struct {
		Title    string `json:"title"`
		Abstract string `json:"abstract"`
		Year     int    `json:"year"`
		URL      string `json:"url"`
		Venue    string `json:"venue"`
		Authors  []struct {
			Name string `json:"name"`
		} `json:"authors"`
		ExternalIDs struct {
			DOI string `json:"DOI"`
		} `json:"externalIds"`
		OpenAccessPDF struct {
			URL string `json:"url"`
		} `json:"openAccessPdf"`
		CitationCount int `json:"citationCount"`
	} `json:"data"`
}

// Search implements Source.
func (s *SemanticScholar) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	searchURL := fmt.Sprintf("%s/paper/search?query=%s&limit=%d&fields=%s",
		s.baseURL, url.QueryEscape(stripQuotes(query)), limit, s2Fields)

	body, err := s.client.Get(ctx, searchURL)
	if err != nil {
		s.markUnhealthy()
		return nil, fmt.Errorf("semantic scholar search: %w", err)
	}

	var resp s2SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.markUnhealthy()
		return nil, fmt.Errorf("semantic scholar response: %w", err)
	}

	results := make([]Result, 0, len(resp.Data))
	for _, paper := range resp.Data {
		r := Result{
			Title:    paper.Title,
			Abstract: paper.Abstract,
			Year:     paper.Year,
			DOI:      paper.ExternalIDs.DOI,
			URL:      paper.URL,
			Venue:    paper.Venue,
			PDFURL:   paper.OpenAccessPDF.URL,
			Source:   NameSemanticScholar,
		}
		count := paper.CitationCount
		r.CitationCount = &count
		for _, author := range paper.Authors {
			r.Authors = append(r.Authors, author.Name)
		}
		results = append(results, r)
	}
	return results, nil
}

// ResolvePDFURL implements PDFResolver; Semantic Scholar results carry
// their open-access PDF URL inline when one exists.
func (s *SemanticScholar) ResolvePDFURL(_ context.Context, r Result) (string, error) {
	if r.PDFURL != "" {
		return r.PDFURL, nil
	}
	return "", ErrNoPDFURL
}
