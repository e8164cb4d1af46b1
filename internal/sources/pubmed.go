package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NCBI allows 3 requests per second without an API key.
const pubmedInterval = 334 * time.Millisecond

// PubMed searches NCBI's E-utilities: esearch for PMIDs, esummary for
// metadata. PubMed has no abstract in esummary; entries get titles,
// authors, venue, and year, and the pipeline falls back to other
// sources for text.
type PubMed struct {
	health
	client  *Client
	baseURL string
}

// NewPubMed creates the adapter.
func NewPubMed() *PubMed {
	return &PubMed{
		client:  NewClient(ClientConfig{Interval: pubmedInterval}),
		baseURL: "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
	}
}

// NewPubMedWithBase creates the adapter against a custom endpoint.
func NewPubMedWithBase(baseURL string) *PubMed {
	p := NewPubMed()
	p.client = NewClient(ClientConfig{Interval: time.Millisecond, RetryDelay: time.Millisecond})
	p.baseURL = baseURL
	return p
}

// Name implements Source.
func (p *PubMed) Name() string { return NamePubMed }

type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedDocSummary struct {
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Source  string `json:"source"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

// Search implements Source.
func (p *PubMed) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	searchURL := fmt.Sprintf("%s/esearch.fcgi?db=pubmed&term=%s&retmax=%d&retmode=json",
		p.baseURL, url.QueryEscape(query), limit)
	body, err := p.client.Get(ctx, searchURL)
	if err != nil {
		p.markUnhealthy()
		return nil, fmt.Errorf("pubmed esearch: %w", err)
	}

	var search pubmedSearchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		p.markUnhealthy()
		return nil, fmt.Errorf("pubmed esearch response: %w", err)
	}
	ids := search.ESearchResult.IDList
	if len(ids) == 0 {
		return nil, nil
	}

	summaryURL := fmt.Sprintf("%s/esummary.fcgi?db=pubmed&id=%s&retmode=json",
		p.baseURL, strings.Join(ids, ","))
	body, err = p.client.Get(ctx, summaryURL)
	if err != nil {
		p.markUnhealthy()
		return nil, fmt.Errorf("pubmed esummary: %w", err)
	}

	var summary pubmedSummaryResponse
	if err := json.Unmarshal(body, &summary); err != nil {
		p.markUnhealthy()
		return nil, fmt.Errorf("pubmed esummary response: %w", err)
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		raw, ok := summary.Result[id]
		if !ok {
			continue
		}
		var doc pubmedDocSummary
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		r := Result{
			Title:  doc.Title,
			Year:   pubYear(doc.PubDate),
			Venue:  doc.Source,
			URL:    "https://pubmed.ncbi.nlm.nih.gov/" + id + "/",
			Source: NamePubMed,
		}
		for _, a := range doc.Authors {
			if a.Name != "" {
				r.Authors = append(r.Authors, a.Name)
			}
		}
		for _, aid := range doc.ArticleIDs {
			if aid.IDType == "doi" {
				r.DOI = aid.Value
				break
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// pubYear extracts the year from a pubdate like "2023 Mar 15".
func pubYear(pubdate string) int {
	fields := strings.Fields(pubdate)
	if len(fields) == 0 {
		return 0
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return year
}
