package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const dblpInterval = time.Second

// DBLP searches the DBLP publication API. DBLP indexes computer
// science venues only and carries no abstracts.
type DBLP struct {
	health
	client  *Client
	baseURL string
}

// NewDBLP creates the adapter.
func NewDBLP() *DBLP {
	return &DBLP{
		client:  NewClient(ClientConfig{Interval: dblpInterval}),
		baseURL: "https://dblp.org",
	}
}

// NewDBLPWithBase creates the adapter against a custom endpoint.
func NewDBLPWithBase(baseURL string) *DBLP {
	d := NewDBLP()
	d.client = NewClient(ClientConfig{Interval: time.Millisecond, RetryDelay: time.Millisecond})
	d.baseURL = baseURL
	return d
}

// Name implements Source.
func (d *DBLP) Name() string { return NameDBLP }

// dblpAuthors absorbs DBLP's one-author quirk: "authors.author" is an
// object for single-author papers and an array otherwise.
type dblpAuthors struct {
	names []string
}

func (a *dblpAuthors) UnmarshalJSON(data []byte) error {
	var wrapper struct {
		Author json.RawMessage `json:"author"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return err
	}
	if len(wrapper.Author) == 0 {
		return nil
	}
	type dblpAuthor struct {
		Text string `json:"text"`
	}
	var many []dblpAuthor
	if err := json.Unmarshal(wrapper.Author, &many); err == nil {
		for _, au := range many {
			if au.Text != "" {
				a.names = append(a.names, au.Text)
			}
		}
		return nil
	}
	var one dblpAuthor
	if err := json.Unmarshal(wrapper.Author, &one); err != nil {
		return err
	}
	if one.Text != "" {
		a.names = append(a.names, one.Text)
	}
	return nil
}

type dblpResponse struct {
	Result struct {
		Hits struct {
			Hit []struct {
				Info struct {
					Title   string      `json:"title"`
					Venue   string      `json:"venue"`
					Year    string      `json:"year"`
					DOI     string      `json:"doi"`
					EE      string      `json:"ee"`
					URL     string      `json:"url"`
					Authors dblpAuthors `json:"authors"`
				} `json:"info"`
			} `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

// Search implements Source.
func (d *DBLP) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	searchURL := fmt.Sprintf("%s/search/publ/api?q=%s&h=%d&format=json",
		d.baseURL, url.QueryEscape(stripQuotes(query)), limit)

	body, err := d.client.Get(ctx, searchURL)
	if err != nil {
		d.markUnhealthy()
		return nil, fmt.Errorf("dblp search: %w", err)
	}

	var resp dblpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		d.markUnhealthy()
		return nil, fmt.Errorf("dblp response: %w", err)
	}

	results := make([]Result, 0, len(resp.Result.Hits.Hit))
	for _, hit := range resp.Result.Hits.Hit {
		info := hit.Info
		r := Result{
			Title:   info.Title,
			Authors: info.Authors.names,
			Year:    pubYear(info.Year),
			DOI:     info.DOI,
			Venue:   info.Venue,
			URL:     info.EE,
			Source:  NameDBLP,
		}
		if r.URL == "" {
			r.URL = info.URL
		}
		results = append(results, r)
	}
	return results, nil
}
