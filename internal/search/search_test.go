package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/htmlparse"
	"github.com/metalit/metalit/internal/library"
	"github.com/metalit/metalit/internal/sources"
	"github.com/metalit/metalit/internal/tracker"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.FromEnv(t.TempDir())
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return cfg
}

// stubSource returns canned results for every query.
type stubSource struct {
	name    string
	results []sources.Result
	err     error
	healthy bool
	calls   int
}

func (s *stubSource) Name() string  { return s.name }
func (s *stubSource) Healthy() bool { return s.healthy }
func (s *stubSource) Search(_ context.Context, _ string, _ int) ([]sources.Result, error) {
	s.calls++
	return s.results, s.err
}

func TestFederatedSearchDedupsAcrossSources(t *testing.T) {
	cfg := testConfig(t)
	idx := library.Load(cfg, testLogger())

	first := &stubSource{name: "alpha", healthy: true, results: []sources.Result{
		{Title: "Shared Paper", Authors: []string{"Ann Smith"}, Year: 2020,
			DOI: "10.1000/shared", Source: "alpha"},
		{Title: "Alpha Only", Authors: []string{"Bob King"}, Year: 2021, Source: "alpha"},
	}}
	second := &stubSource{name: "beta", healthy: true, results: []sources.Result{
		{Title: "Shared Paper", Authors: []string{"Ann Smith"}, Year: 2020,
			DOI: "https://doi.org/10.1000/shared", Source: "beta"},
	}}

	reg := sources.NewRegistry(testLogger())
	reg.Register(first)
	reg.Register(second)

	fed := NewFederator(cfg, reg, idx, testLogger())
	summary, err := fed.Search(context.Background(), Options{
		Keywords: []string{"shared"},
		Sources:  []string{"alpha", "beta"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if summary.TotalResults != 3 {
		t.Errorf("total = %d, want 3", summary.TotalResults)
	}
	if len(summary.NewEntries) != 2 {
		t.Fatalf("new entries = %v, want 2", summary.NewEntries)
	}
	if summary.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", summary.Duplicates)
	}

	// First-seen source keeps the source field.
	entry := idx.GetEntry("smith2020shared")
	if entry == nil {
		t.Fatal("smith2020shared missing")
	}
	if entry.Source != "alpha" {
		t.Errorf("source = %q, want alpha (first seen wins)", entry.Source)
	}
}

func TestFederatedSearchSkipsFailingSource(t *testing.T) {
	cfg := testConfig(t)
	idx := library.Load(cfg, testLogger())

	ok := &stubSource{name: "alpha", healthy: true, results: []sources.Result{
		{Title: "Fine Paper", Authors: []string{"Cara Diaz"}, Year: 2022, Source: "alpha"},
	}}
	bad := &stubSource{name: "beta", healthy: true, err: context.DeadlineExceeded}

	reg := sources.NewRegistry(testLogger())
	reg.Register(ok)
	reg.Register(bad)

	summary, err := NewFederator(cfg, reg, idx, testLogger()).Search(context.Background(),
		Options{Keywords: []string{"anything"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if summary.Errors != 1 {
		t.Errorf("errors = %d, want 1", summary.Errors)
	}
	if len(summary.NewEntries) != 1 {
		t.Errorf("new entries = %v, want the healthy source's hit", summary.NewEntries)
	}
}

func TestQuoteKeyword(t *testing.T) {
	cases := []struct{ in, want string }{
		{"transformers", "transformers"},
		{"protein folding", `"protein folding"`},
		{`"already quoted"`, `"already quoted"`},
		{"  spaced out  ", `"spaced out"`},
	}
	for _, c := range cases {
		if got := QuoteKeyword(c.in); got != c.want {
			t.Errorf("QuoteKeyword(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func newDownloader(t *testing.T, cfg config.Config, idx *library.Index, tr *tracker.Tracker) *Downloader {
	t.Helper()
	reg := sources.NewRegistry(testLogger())
	return NewDownloader(cfg, reg, idx, tr, htmlparse.NewRegistry(), testLogger())
}

// failingTransport makes any HTTP use a test failure.
type failingTransport struct{ t *testing.T }

func (f failingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.t.Errorf("unexpected HTTP request to %s", r.URL)
	return nil, http.ErrNotSupported
}

func TestDownloadAlreadyOnDisk(t *testing.T) {
	cfg := testConfig(t)
	idx := library.Load(cfg, testLogger())
	tr := tracker.Load(cfg.FailedPath(), testLogger())

	key, err := idx.AddEntry(library.Paper{
		Title: "Cached Paper", Authors: []string{"Dana Evans"}, Year: 2020, Source: "arxiv",
	})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := tr.SaveFailed(key, tracker.ReasonNetworkError, "was down", nil, "Cached Paper", "arxiv"); err != nil {
		t.Fatalf("SaveFailed: %v", err)
	}
	if err := os.WriteFile(cfg.PDFPath(key), []byte("%PDF-1.7 body"), 0o644); err != nil {
		t.Fatalf("writing pdf: %v", err)
	}

	d := newDownloader(t, cfg, idx, tr)
	d.SetHTTPClient(&http.Client{Transport: failingTransport{t}})

	result := d.Download(context.Background(), idx.GetEntry(key))
	if !result.Success || !result.AlreadyExisted {
		t.Fatalf("result = %+v, want success with already_existed", result)
	}
	if idx.GetEntry(key).PDFPath == "" {
		t.Error("pdf_path not recorded")
	}
	if tr.IsFailed(key) {
		t.Error("pre-existing file should clear the failure record")
	}
}

func TestDownloadNoCandidates(t *testing.T) {
	cfg := testConfig(t)
	idx := library.Load(cfg, testLogger())
	tr := tracker.Load(cfg.FailedPath(), testLogger())

	key, _ := idx.AddEntry(library.Paper{
		Title: "Linkless", Authors: []string{"Finn Gray"}, Year: 2019, Source: "dblp",
	})

	result := newDownloader(t, cfg, idx, tr).Download(context.Background(), idx.GetEntry(key))
	if result.Success {
		t.Fatal("download should fail without candidates")
	}
	if result.FailureReason != tracker.ReasonNoPDFURL {
		t.Errorf("reason = %q, want no_pdf_url", result.FailureReason)
	}
	if result.Retriable {
		t.Error("no_pdf_url is not retriable")
	}
	record, ok := tr.LoadFailed()[key]
	if !ok {
		t.Fatal("failure not recorded")
	}
	if record.Retriable {
		t.Error("record should be non-retriable")
	}
}

func TestDownloadNetworkFailureThenRetry(t *testing.T) {
	cfg := testConfig(t)
	idx := library.Load(cfg, testLogger())
	tr := tracker.Load(cfg.FailedPath(), testLogger())

	// A closed server gives connection-refused.
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	key, _ := idx.AddEntry(library.Paper{
		Title: "Flaky Paper", Authors: []string{"Gil Horn"}, Year: 2021,
		Source: "crossref", PDFURL: deadURL + "/flaky.pdf",
	})

	d := newDownloader(t, cfg, idx, tr)
	result := d.Download(context.Background(), idx.GetEntry(key))
	if result.Success {
		t.Fatal("download against a dead server should fail")
	}
	if result.FailureReason != tracker.ReasonNetworkError {
		t.Errorf("reason = %q, want network_error", result.FailureReason)
	}
	if !result.Retriable {
		t.Error("network_error must be retriable")
	}

	// Point the metadata at a live server and retry via DownloadAll.
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7 payload"))
	}))
	defer live.Close()
	idx.GetEntry(key).Metadata["pdf_url"] = live.URL + "/flaky.pdf"

	summary, err := d.DownloadAll(context.Background(), true)
	if err != nil {
		t.Fatalf("DownloadAll: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1 (summary %+v)", summary.Succeeded, summary)
	}
	if tr.IsFailed(key) {
		t.Error("record should be cleared after a successful retry")
	}
	if _, err := os.Stat(cfg.PDFPath(key)); err != nil {
		t.Errorf("pdf missing: %v", err)
	}
	if _, err := os.Stat(cfg.PDFPath(key) + ".part"); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestDownloadAllSkipsNonRetriableWithoutOptIn(t *testing.T) {
	cfg := testConfig(t)
	idx := library.Load(cfg, testLogger())
	tr := tracker.Load(cfg.FailedPath(), testLogger())

	key, _ := idx.AddEntry(library.Paper{
		Title: "Paywalled", Authors: []string{"Hope Iris"}, Year: 2018, Source: "crossref",
	})
	if err := tr.SaveFailed(key, tracker.ReasonHTTP4xx, "status 403", nil, "Paywalled", "crossref"); err != nil {
		t.Fatalf("SaveFailed: %v", err)
	}

	d := newDownloader(t, cfg, idx, tr)
	d.SetHTTPClient(&http.Client{Transport: failingTransport{t}})

	for _, retry := range []bool{false, true} {
		summary, err := d.DownloadAll(context.Background(), retry)
		if err != nil {
			t.Fatalf("DownloadAll(retry=%v): %v", retry, err)
		}
		if summary.Attempted != 0 {
			t.Errorf("retry=%v: attempted = %d, want 0 (non-retriable skipped)", retry, summary.Attempted)
		}
	}
}

func TestDownloadClassifiesResponses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		ctype  string
		reason tracker.FailureReason
	}{
		{"forbidden", http.StatusForbidden, "denied", "text/html", tracker.ReasonHTTP4xx},
		{"server error", http.StatusBadGateway, "oops", "text/html", tracker.ReasonHTTP5xx},
		{"html not pdf", http.StatusOK, "<html>paywall</html>", "text/html", tracker.ReasonParseError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := testConfig(t)
			idx := library.Load(cfg, testLogger())
			tr := tracker.Load(cfg.FailedPath(), testLogger())

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", c.ctype)
				w.WriteHeader(c.status)
				w.Write([]byte(c.body))
			}))
			defer srv.Close()

			key, _ := idx.AddEntry(library.Paper{
				Title: "Status Paper", Authors: []string{"Jo Kent"}, Year: 2020,
				Source: "crossref", PDFURL: srv.URL + "/p.pdf",
			})

			result := newDownloader(t, cfg, idx, tr).Download(context.Background(), idx.GetEntry(key))
			if result.Success {
				t.Fatal("should fail")
			}
			if result.FailureReason != c.reason {
				t.Errorf("reason = %q, want %q", result.FailureReason, c.reason)
			}
			if result.Retriable {
				t.Errorf("%s must not be retriable", c.reason)
			}
		})
	}
}

func TestDownloadFallsBackToLandingPage(t *testing.T) {
	cfg := testConfig(t)
	idx := library.Load(cfg, testLogger())
	tr := tracker.Load(cfg.FailedPath(), testLogger())

	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article/landing":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body><a href="` + srvURL + `/article/full.pdf">PDF</a></body></html>`))
		case "/article/full.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.5 content"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	key, _ := idx.AddEntry(library.Paper{
		Title: "Landing Paper", Authors: []string{"Lea Moss"}, Year: 2023,
		Source: "crossref", URL: srv.URL + "/article/landing",
	})

	reg := sources.NewRegistry(testLogger())
	d := NewDownloader(cfg, reg, idx, tr, htmlparse.NewRegistry(), testLogger())

	result := d.Download(context.Background(), idx.GetEntry(key))
	if !result.Success {
		t.Fatalf("result = %+v, want success via landing page", result)
	}
	if _, err := os.Stat(cfg.PDFPath(key)); err != nil {
		t.Errorf("pdf missing: %v", err)
	}
}
