package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/htmlparse"
	"github.com/metalit/metalit/internal/library"
	"github.com/metalit/metalit/internal/sources"
	"github.com/metalit/metalit/internal/tracker"
)

// DownloadResult is the outcome of one PDF download attempt chain.
type DownloadResult struct {
	CitationKey    string                `json:"citation_key"`
	Success        bool                  `json:"success"`
	PDFPath        string                `json:"pdf_path,omitempty"`
	AlreadyExisted bool                  `json:"already_existed"`
	FailureReason  tracker.FailureReason `json:"failure_reason,omitempty"`
	FailureMessage string                `json:"failure_message,omitempty"`
	AttemptedURLs  []string              `json:"attempted_urls,omitempty"`
	Retriable      bool                  `json:"is_retriable"`
}

// DownloadSummary aggregates a download run.
type DownloadSummary struct {
	Attempted      int             `json:"attempted"`
	Succeeded      int             `json:"succeeded"`
	AlreadyExisted int             `json:"already_existed"`
	Failed         int             `json:"failed"`
	Results        []DownloadResult `json:"results"`
}

// Downloader resolves PDF URLs for library entries and fetches them.
// It never mutates the library beyond pdf_path.
type Downloader struct {
	cfg      config.Config
	registry *sources.Registry
	index    *library.Index
	tracker  *tracker.Tracker
	parsers  *htmlparse.Registry
	http     *http.Client
	log      zerolog.Logger
}

// NewDownloader wires a downloader with a 60-second per-request timeout.
func NewDownloader(cfg config.Config, registry *sources.Registry, index *library.Index, tr *tracker.Tracker, parsers *htmlparse.Registry, log zerolog.Logger) *Downloader {
	return &Downloader{
		cfg:      cfg,
		registry: registry,
		index:    index,
		tracker:  tr,
		parsers:  parsers,
		http:     &http.Client{Timeout: 60 * time.Second},
		log:      log,
	}
}

// SetHTTPClient swaps the HTTP client (tests).
func (d *Downloader) SetHTTPClient(c *http.Client) { d.http = c }

// DownloadAll fetches PDFs for every entry that needs one. Entries with a
// failure record are skipped unless retryFailed is set, and then only
// records classified retriable are re-queued.
func (d *Downloader) DownloadAll(ctx context.Context, retryFailed bool) (DownloadSummary, error) {
	var summary DownloadSummary
	for _, entry := range d.index.EntriesWithoutPDF() {
		if record, failed := d.tracker.LoadFailed()[entry.CitationKey]; failed {
			if !retryFailed || !record.Retriable {
				continue
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := d.Download(ctx, entry)
		summary.Attempted++
		summary.Results = append(summary.Results, result)
		switch {
		case result.AlreadyExisted:
			summary.AlreadyExisted++
			summary.Succeeded++
		case result.Success:
			summary.Succeeded++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}

// Download runs the download protocol for one entry: existence check, URL
// assembly, attempt loop, failure classification, and bookkeeping.
func (d *Downloader) Download(ctx context.Context, entry *library.Entry) DownloadResult {
	result := DownloadResult{CitationKey: entry.CitationKey}
	expected := d.cfg.PDFPath(entry.CitationKey)
	relative := filepath.ToSlash(filepath.Join(config.DataDir, config.PDFDir, entry.CitationKey+".pdf"))

	// A file already on disk wins without touching the network.
	if _, err := os.Stat(expected); err == nil {
		result.Success = true
		result.AlreadyExisted = true
		result.PDFPath = relative
		d.record(result, entry)
		return result
	}

	candidates := d.assembleURLs(ctx, entry, &result)
	if len(candidates) == 0 {
		result.FailureReason = tracker.ReasonNoPDFURL
		result.FailureMessage = "no candidate pdf urls"
		d.record(result, entry)
		return result
	}

	for _, candidate := range candidates {
		result.AttemptedURLs = append(result.AttemptedURLs, candidate)
		reason, message := d.fetchPDF(ctx, candidate, expected)
		if reason == "" {
			result.Success = true
			result.PDFPath = relative
			result.FailureReason = ""
			result.FailureMessage = ""
			d.record(result, entry)
			return result
		}
		result.FailureReason = reason
		result.FailureMessage = message
		d.log.Debug().Str("citation_key", entry.CitationKey).Str("url", candidate).
			Str("reason", string(reason)).Msg("pdf attempt failed")
	}

	result.Retriable = result.FailureReason.Retriable()
	d.record(result, entry)
	return result
}

// record applies the bookkeeping step: pdf_path and tracker updates.
func (d *Downloader) record(result DownloadResult, entry *library.Entry) {
	if result.Success {
		if entry.PDFPath != result.PDFPath {
			if err := d.index.UpdatePDFPath(entry.CitationKey, result.PDFPath); err != nil {
				d.log.Error().Err(err).Str("citation_key", entry.CitationKey).Msg("recording pdf path failed")
			}
		}
		if err := d.tracker.RemoveSuccessful(entry.CitationKey); err != nil {
			d.log.Error().Err(err).Str("citation_key", entry.CitationKey).Msg("clearing failure record failed")
		}
		return
	}
	err := d.tracker.SaveFailed(entry.CitationKey, result.FailureReason,
		result.FailureMessage, result.AttemptedURLs, entry.Title, entry.Source)
	if err != nil {
		d.log.Error().Err(err).Str("citation_key", entry.CitationKey).Msg("recording failure failed")
	}
}

// assembleURLs builds the candidate list in protocol order: stored
// metadata URL, the source's own resolver, Unpaywall by DOI, and finally
// PDF links scraped from the landing page.
func (d *Downloader) assembleURLs(ctx context.Context, entry *library.Entry, result *DownloadResult) []string {
	var candidates []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			candidates = append(candidates, u)
		}
	}

	add(entry.PDFURL())

	asResult := sources.Result{
		Title:  entry.Title,
		DOI:    entry.DOI,
		URL:    entry.URL,
		Source: entry.Source,
	}
	if resolver, ok := d.registry.Resolver(entry.Source); ok {
		if u, err := resolver.ResolvePDFURL(ctx, asResult); err == nil {
			add(u)
		}
	}
	if entry.DOI != "" {
		if resolver, ok := d.registry.Resolver(sources.NameUnpaywall); ok {
			if u, err := resolver.ResolvePDFURL(ctx, asResult); err == nil {
				add(u)
			}
		}
	}

	if entry.URL != "" {
		for _, u := range d.landingPageURLs(ctx, entry.URL, result) {
			add(u)
		}
	}
	return candidates
}

// landingPageURLs fetches the entry's landing page and runs it through
// the publisher-aware parser registry.
func (d *Downloader) landingPageURLs(ctx context.Context, pageURL string, result *DownloadResult) []string {
	result.AttemptedURLs = append(result.AttemptedURLs, pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil
	}
	resp, err := d.http.Do(req)
	if err != nil {
		d.log.Debug().Err(err).Str("url", pageURL).Msg("landing page fetch failed")
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil
	}
	return d.parsers.ExtractPDFURLs(body, pageURL)
}

// pdfMagic is the required prefix of a PDF body.
var pdfMagic = []byte("%PDF-")

// fetchPDF downloads one candidate URL to path, streaming through a .part
// sibling renamed only after the response proves to be a PDF. It returns
// an empty reason on success.
func (d *Downloader) fetchPDF(ctx context.Context, url, path string) (tracker.FailureReason, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tracker.ReasonNetworkError, err.Error()
	}
	req.Header.Set("User-Agent", "metalit/1.0 (literature meta-analysis pipeline)")

	resp, err := d.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return tracker.ReasonTimeout, err.Error()
		}
		return tracker.ReasonNetworkError, err.Error()
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return tracker.ReasonHTTP4xx, fmt.Sprintf("status %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return tracker.ReasonHTTP5xx, fmt.Sprintf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return tracker.ReasonParseError, fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}

	head := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return tracker.ReasonNetworkError, err.Error()
	}
	head = head[:n]

	contentType := resp.Header.Get("Content-Type")
	if !bytes.HasPrefix(head, pdfMagic) && !strings.Contains(contentType, "pdf") {
		return tracker.ReasonParseError, fmt.Sprintf("not a pdf (content-type %q)", contentType)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tracker.ReasonNetworkError, err.Error()
	}
	part := path + ".part"
	f, err := os.Create(part)
	if err != nil {
		return tracker.ReasonNetworkError, err.Error()
	}
	if _, err := f.Write(head); err == nil {
		_, err = io.Copy(f, resp.Body)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(part)
		if isTimeout(err) {
			return tracker.ReasonTimeout, err.Error()
		}
		return tracker.ReasonNetworkError, err.Error()
	}
	if err := os.Rename(part, path); err != nil {
		os.Remove(part)
		return tracker.ReasonNetworkError, err.Error()
	}
	return "", ""
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
