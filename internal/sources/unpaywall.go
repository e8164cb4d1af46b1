package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const unpaywallInterval = time.Second

// Unpaywall resolves open-access PDF URLs by DOI. It is lookup-only:
// the API has no keyword search, so the adapter implements PDFResolver
// but not Source.
type Unpaywall struct {
	client  *Client
	baseURL string
	email   string
}

// NewUnpaywall creates the resolver. The API requires a contact email;
// an empty email disables the resolver.
func NewUnpaywall(email string) *Unpaywall {
	return &Unpaywall{
		client:  NewClient(ClientConfig{Interval: unpaywallInterval}),
		baseURL: "https://api.unpaywall.org/v2",
		email:   email,
	}
}

// NewUnpaywallWithBase creates the resolver against a custom endpoint.
func NewUnpaywallWithBase(baseURL, email string) *Unpaywall {
	u := NewUnpaywall(email)
	u.client = NewClient(ClientConfig{Interval: time.Millisecond, RetryDelay: time.Millisecond})
	u.baseURL = baseURL
	return u
}

type unpaywallResponse struct {
	BestOALocation struct {
		URLForPDF string `json:"url_for_pdf"`
		URL       string `json:"url"`
	} `json:"best_oa_location"`
	OALocations []struct {
		URLForPDF string `json:"url_for_pdf"`
	} `json:"oa_locations"`
}

// ResolvePDFURL implements PDFResolver; it requires the result to
// carry a DOI.
func (u *Unpaywall) ResolvePDFURL(ctx context.Context, r Result) (string, error) {
	if u.email == "" || r.DOI == "" {
		return "", ErrNoPDFURL
	}
	lookupURL := fmt.Sprintf("%s/%s?email=%s",
		u.baseURL, url.PathEscape(r.DOI), url.QueryEscape(u.email))

	body, err := u.client.Get(ctx, lookupURL)
	if err != nil {
		return "", fmt.Errorf("unpaywall lookup: %w", err)
	}

	var resp unpaywallResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unpaywall response: %w", err)
	}
	if resp.BestOALocation.URLForPDF != "" {
		return resp.BestOALocation.URLForPDF, nil
	}
	for _, loc := range resp.OALocations {
		if loc.URLForPDF != "" {
			return loc.URLForPDF, nil
		}
	}
	return "", ErrNoPDFURL
}
