package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// OpenAlex allows 10 requests per second; stay well under it.
const openalexInterval = 200 * time.Millisecond

// OpenAlex searches the OpenAlex works API.
type OpenAlex struct {
	health
	client  *Client
	baseURL string
	mailto  string
}

// NewOpenAlex creates the adapter; mailto joins the polite pool when set.
func NewOpenAlex(mailto string) *OpenAlex {
	return &OpenAlex{
		client:  NewClient(ClientConfig{Interval: openalexInterval}),
		baseURL: "https://api.openalex.org",
		mailto:  mailto,
	}
}

// NewOpenAlexWithBase creates the adapter against a custom endpoint.
func NewOpenAlexWithBase(baseURL string) *OpenAlex {
	o := NewOpenAlex("")
	o.client = NewClient(ClientConfig{Interval: time.Millisecond, RetryDelay: time.Millisecond})
	o.baseURL = baseURL
	return o
}

// Name implements Source.
func (o *OpenAlex) Name() string { return NameOpenAlex }

type openalexResponse struct {
	Results []struct {
		Title           string `json:"title"`
		DOI             string `json:"doi"`
		PublicationYear int    `json:"publication_year"`
		Authorships     []struct {
			Author struct {
				DisplayName string `json:"display_name"`
			} `json:"author"`
		} `json:"authorships"`
		PrimaryLocation struct {
			LandingPageURL string `json:"landing_page_url"`
			PDFURL         string `json:"pdf_url"`
			Source         struct {
				DisplayName string `json:"display_name"`
			} `json:"source"`
		} `json:"primary_location"`
		OpenAccess struct {
			OAURL string `json:"oa_url"`
		} `json:"open_access"`
		AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	} `json:"results"`
}

// Search implements Source.
func (o *OpenAlex) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	searchURL := fmt.Sprintf("%s/works?search=%s&per-page=%d",
		o.baseURL, url.QueryEscape(stripQuotes(query)), limit)
	if o.mailto != "" {
		searchURL += "&mailto=" + url.QueryEscape(o.mailto)
	}

	body, err := o.client.Get(ctx, searchURL)
	if err != nil {
		o.markUnhealthy()
		return nil, fmt.Errorf("openalex search: %w", err)
	}

	var resp openalexResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		o.markUnhealthy()
		return nil, fmt.Errorf("openalex response: %w", err)
	}

	results := make([]Result, 0, len(resp.Results))
	for _, work := range resp.Results {
		r := Result{
			Title:    work.Title,
			Year:     work.PublicationYear,
			DOI:      strings.TrimPrefix(work.DOI, "https://doi.org/"),
			URL:      work.PrimaryLocation.LandingPageURL,
			Venue:    work.PrimaryLocation.Source.DisplayName,
			Abstract: reconstructAbstract(work.AbstractInvertedIndex),
			Source:   NameOpenAlex,
		}
		for _, a := range work.Authorships {
			if a.Author.DisplayName != "" {
				r.Authors = append(r.Authors, a.Author.DisplayName)
			}
		}
		if work.PrimaryLocation.PDFURL != "" {
			r.PDFURL = work.PrimaryLocation.PDFURL
		} else if work.OpenAccess.OAURL != "" {
			r.PDFURL = work.OpenAccess.OAURL
		}
		results = append(results, r)
	}
	return results, nil
}

// reconstructAbstract rebuilds prose from OpenAlex's inverted index,
// which maps each word to the positions it occupies in the abstract.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type positioned struct {
		pos  int
		word string
	}
	var words []positioned
	for word, positions := range index {
		for _, p := range positions {
			words = append(words, positioned{pos: p, word: word})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].pos < words[j].pos })
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.word
	}
	return strings.Join(parts, " ")
}
