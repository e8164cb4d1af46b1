package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const europePMCInterval = time.Second

// EuropePMC searches the Europe PMC REST API with core result type so
// abstracts and full-text links come back in one request.
type EuropePMC struct {
	health
	client  *Client
	baseURL string

	// name and extraQuery let the bioRxiv adapter reuse this client
	// with a publisher filter.
	name       string
	extraQuery string
}

// NewEuropePMC creates the adapter.
func NewEuropePMC() *EuropePMC {
	return &EuropePMC{
		client:  NewClient(ClientConfig{Interval: europePMCInterval}),
		baseURL: "https://www.ebi.ac.uk/europepmc/webservices/rest",
		name:    NameEuropePMC,
	}
}

// NewEuropePMCWithBase creates the adapter against a custom endpoint.
func NewEuropePMCWithBase(baseURL string) *EuropePMC {
	e := NewEuropePMC()
	e.client = NewClient(ClientConfig{Interval: time.Millisecond, RetryDelay: time.Millisecond})
	e.baseURL = baseURL
	return e
}

// Name implements Source.
func (e *EuropePMC) Name() string { return e.name }

type europePMCResponse struct {
	ResultList struct {
		Result []struct {
			Title        string `json:"title"`
			AuthorString string `json:"authorString"`
			PubYear      string `json:"pubYear"`
			DOI          string `json:"doi"`
			AbstractText string `json:"abstractText"`
			JournalInfo  struct {
				Journal struct {
					Title string `json:"title"`
				} `json:"journal"`
			} `json:"journalInfo"`
			FullTextURLList struct {
				FullTextURL []struct {
					DocumentStyle string `json:"documentStyle"`
					URL           string `json:"url"`
				} `json:"fullTextUrl"`
			} `json:"fullTextUrlList"`
			AuthorList struct {
				Author []struct {
					FullName string `json:"fullName"`
				} `json:"author"`
			} `json:"authorList"`
		} `json:"result"`
	} `json:"resultList"`
}

// Search implements Source.
func (e *EuropePMC) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	q := query
	if e.extraQuery != "" {
		q = fmt.Sprintf("%s AND %s", query, e.extraQuery)
	}
	searchURL := fmt.Sprintf("%s/search?query=%s&format=json&resultType=core&pageSize=%d",
		e.baseURL, url.QueryEscape(q), limit)

	body, err := e.client.Get(ctx, searchURL)
	if err != nil {
		e.markUnhealthy()
		return nil, fmt.Errorf("%s search: %w", e.name, err)
	}

	var resp europePMCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		e.markUnhealthy()
		return nil, fmt.Errorf("%s response: %w", e.name, err)
	}

	results := make([]Result, 0, len(resp.ResultList.Result))
	for _, item := range resp.ResultList.Result {
		r := Result{
			Title:    item.Title,
			Year:     pubYear(item.PubYear),
			DOI:      item.DOI,
			Abstract: item.AbstractText,
			Venue:    item.JournalInfo.Journal.Title,
			Source:   e.name,
		}
		if item.DOI != "" {
			r.URL = "https://doi.org/" + item.DOI
		}
		for _, a := range item.AuthorList.Author {
			if a.FullName != "" {
				r.Authors = append(r.Authors, a.FullName)
			}
		}
		if len(r.Authors) == 0 && item.AuthorString != "" {
			r.Authors = splitAuthorString(item.AuthorString)
		}
		for _, ft := range item.FullTextURLList.FullTextURL {
			if ft.DocumentStyle == "pdf" {
				r.PDFURL = ft.URL
				break
			}
		}
		results = append(results, r)
	}
	return results, nil
}
