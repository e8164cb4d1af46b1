package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// CrossRef polite pool: 1 request per second with a mailto identifier.
const crossrefInterval = time.Second

// jatsTagPattern strips JATS markup from CrossRef abstracts.
var jatsTagPattern = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// CrossRef searches the CrossRef works API.
type CrossRef struct {
	health
	client  *Client
	baseURL string
	mailto  string
}

// NewCrossRef creates the adapter; mailto joins the polite pool when set.
func NewCrossRef(mailto string) *CrossRef {
	return &CrossRef{
		client:  NewClient(ClientConfig{Interval: crossrefInterval}),
		baseURL: "https://api.crossref.org",
		mailto:  mailto,
	}
}

// NewCrossRefWithBase creates the adapter against a custom endpoint.
func NewCrossRefWithBase(baseURL string) *CrossRef {
	c := NewCrossRef("")
	c.client = NewClient(ClientConfig{Interval: time.Millisecond, RetryDelay: time.Millisecond})
	c.baseURL = baseURL
	return c
}

// Name implements Source.
func (c *CrossRef) Name() string { return NameCrossRef }

type crossrefResponse struct {
	Message struct {
		Items []struct {
			Title          []string `json:"title"`
			Abstract       string   `json:"abstract"`
			DOI            string   `json:"DOI"`
			URL            string   `json:"URL"`
			ContainerTitle []string `json:"container-title"`
			Author         []struct {
				Given  string `json:"given"`
				Family string `json:"family"`
			} `json:"author"`
			Issued struct {
				DateParts [][]int `json:"date-parts"`
			} `json:"issued"`
			Link []struct {
				URL         string `json:"URL"`
				ContentType string `json:"content-type"`
			} `json:"link"`
		} `json:"items"`
	} `json:"message"`
}

// Search implements Source.
func (c *CrossRef) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	searchURL := fmt.Sprintf("%s/works?query=%s&rows=%d",
		c.baseURL, url.QueryEscape(stripQuotes(query)), limit)
	if c.mailto != "" {
		searchURL += "&mailto=" + url.QueryEscape(c.mailto)
	}

	body, err := c.client.Get(ctx, searchURL)
	if err != nil {
		c.markUnhealthy()
		return nil, fmt.Errorf("crossref search: %w", err)
	}

	var resp crossrefResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.markUnhealthy()
		return nil, fmt.Errorf("crossref response: %w", err)
	}

	results := make([]Result, 0, len(resp.Message.Items))
	for _, item := range resp.Message.Items {
		r := Result{
			DOI:      item.DOI,
			URL:      item.URL,
			Abstract: stripJATS(item.Abstract),
			Source:   NameCrossRef,
		}
		if len(item.Title) > 0 {
			r.Title = item.Title[0]
		}
		if len(item.ContainerTitle) > 0 {
			r.Venue = item.ContainerTitle[0]
		}
		for _, author := range item.Author {
			name := strings.TrimSpace(author.Given + " " + author.Family)
			if name != "" {
				r.Authors = append(r.Authors, name)
			}
		}
		if parts := item.Issued.DateParts; len(parts) > 0 && len(parts[0]) > 0 {
			r.Year = parts[0][0]
		}
		for _, link := range item.Link {
			if link.ContentType == "application/pdf" {
				r.PDFURL = link.URL
				break
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// stripJATS removes JATS XML tags from CrossRef abstracts.
func stripJATS(abstract string) string {
	return strings.TrimSpace(jatsTagPattern.ReplaceAllString(abstract, ""))
}
