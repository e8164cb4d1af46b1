package selector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/library"
)

func testSetup(t *testing.T) (config.Config, *library.Index) {
	t.Helper()
	cfg := config.FromEnv(t.TempDir())
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return cfg, library.Load(cfg, zerolog.Nop())
}

func addPaper(t *testing.T, idx *library.Index, p library.Paper) string {
	t.Helper()
	key, err := idx.AddEntry(p)
	if err != nil {
		t.Fatalf("AddEntry(%q): %v", p.Title, err)
	}
	return key
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestFilterConjunction(t *testing.T) {
	cfg, idx := testSetup(t)

	papers := []library.Paper{
		{Title: "Early Nets", Authors: []string{"Ames"}, Year: 2018, Source: "arxiv"},
		{Title: "Mid Nets", Authors: []string{"Bell"}, Year: 2019, Source: "arxiv"},
		{Title: "Bio Nets", Authors: []string{"Cole"}, Year: 2020, Source: "pubmed"},
		{Title: "More Nets", Authors: []string{"Dorn"}, Year: 2020, Source: "arxiv"},
		{Title: "Late Nets", Authors: []string{"Epps"}, Year: 2021, Source: "crossref"},
	}
	for _, p := range papers {
		addPaper(t, idx, p)
	}

	sel := New(cfg, idx, Selection{
		Years:   &Years{Min: intPtr(2019), Max: intPtr(2020)},
		Sources: []string{"arxiv"},
		Limit:   intPtr(1),
	})
	got := sel.Select(idx.ListEntries())
	if len(got) != 1 {
		t.Fatalf("got %d entries, want exactly 1", len(got))
	}
	if got[0].Title != "Mid Nets" {
		t.Errorf("selected %q, want the first 2019-2020 arxiv entry", got[0].Title)
	}
}

func TestYearsFilterDropsUnyearedEntries(t *testing.T) {
	cfg, idx := testSetup(t)
	addPaper(t, idx, library.Paper{Title: "Dated", Authors: []string{"Fox"}, Year: 2020, Source: "arxiv"})
	addPaper(t, idx, library.Paper{Title: "Undated", Authors: []string{"Gee"}, Source: "arxiv"})

	entries := idx.ListEntries()

	got := New(cfg, idx, Selection{Years: &Years{Min: intPtr(1900)}}).Select(entries)
	if len(got) != 1 || got[0].Title != "Dated" {
		t.Errorf("configured years filter must drop entries without a year, got %d", len(got))
	}

	// Without the filter both survive.
	if got := New(cfg, idx, Selection{}).Select(entries); len(got) != 2 {
		t.Errorf("empty selection = select all, got %d", len(got))
	}
}

func TestKeywordFilterWordBoundaryPrefix(t *testing.T) {
	cfg, idx := testSetup(t)
	addPaper(t, idx, library.Paper{
		Title: "Neural Networks", Authors: []string{"Hart"}, Year: 2020, Source: "arxiv",
		Abstract: "We train deep networks on graphs.",
	})
	addPaper(t, idx, library.Paper{
		Title: "Internets of Things", Authors: []string{"Ivie"}, Year: 2020, Source: "arxiv",
		Abstract: "Sensor meshes.",
	})

	entries := idx.ListEntries()

	// "net" must match "Networks" at a word boundary but not "Internets".
	got := New(cfg, idx, Selection{Keywords: []string{"net"}}).Select(entries)
	if len(got) != 1 || got[0].Title != "Neural Networks" {
		t.Fatalf("keyword prefix match failed, got %v entries", len(got))
	}

	// AND semantics: both keywords must match the same entry.
	got = New(cfg, idx, Selection{Keywords: []string{"neural", "graphs"}}).Select(entries)
	if len(got) != 1 {
		t.Errorf("AND keywords: got %d, want 1", len(got))
	}
	got = New(cfg, idx, Selection{Keywords: []string{"neural", "sensor"}}).Select(entries)
	if len(got) != 0 {
		t.Errorf("AND keywords across entries must not match, got %d", len(got))
	}
}

func TestHasPDFAndSummaryFilters(t *testing.T) {
	cfg, idx := testSetup(t)
	withPDF := addPaper(t, idx, library.Paper{Title: "Has File", Authors: []string{"Jett"}, Year: 2020, Source: "arxiv"})
	addPaper(t, idx, library.Paper{Title: "No File", Authors: []string{"Kerr"}, Year: 2020, Source: "arxiv"})

	if err := os.WriteFile(cfg.PDFPath(withPDF), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("writing pdf: %v", err)
	}
	if err := os.WriteFile(cfg.SummaryPath(withPDF), []byte("# Summary"), 0o644); err != nil {
		t.Fatalf("writing summary: %v", err)
	}

	entries := idx.ListEntries()

	got := New(cfg, idx, Selection{HasPDF: boolPtr(true)}).Select(entries)
	if len(got) != 1 || got[0].CitationKey != withPDF {
		t.Errorf("has_pdf=true: got %d", len(got))
	}
	got = New(cfg, idx, Selection{HasPDF: boolPtr(false)}).Select(entries)
	if len(got) != 1 || got[0].CitationKey == withPDF {
		t.Errorf("has_pdf=false: got %d", len(got))
	}
	got = New(cfg, idx, Selection{HasSummary: boolPtr(true)}).Select(entries)
	if len(got) != 1 || got[0].CitationKey != withPDF {
		t.Errorf("has_summary=true: got %d", len(got))
	}
}

func TestCitationKeysFilter(t *testing.T) {
	cfg, idx := testSetup(t)
	keep := addPaper(t, idx, library.Paper{Title: "Kept", Authors: []string{"Lund"}, Year: 2020, Source: "arxiv"})
	addPaper(t, idx, library.Paper{Title: "Dropped", Authors: []string{"Moss"}, Year: 2020, Source: "arxiv"})

	got := New(cfg, idx, Selection{CitationKeys: []string{keep}}).Select(idx.ListEntries())
	if len(got) != 1 || got[0].CitationKey != keep {
		t.Errorf("citation_keys filter: got %d", len(got))
	}
}

func TestLoadSelection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selection.yaml")
	content := `selection:
  years: {min: 2019, max: 2021}
  sources: [arxiv, pubmed]
  has_pdf: true
  keywords: [protein]
  limit: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	sel, err := LoadSelection(path)
	if err != nil {
		t.Fatalf("LoadSelection: %v", err)
	}
	if sel.Years == nil || *sel.Years.Min != 2019 || *sel.Years.Max != 2021 {
		t.Errorf("years = %+v", sel.Years)
	}
	if len(sel.Sources) != 2 || sel.HasPDF == nil || !*sel.HasPDF {
		t.Errorf("sources/has_pdf parsed wrong: %+v", sel)
	}
	if sel.Limit == nil || *sel.Limit != 10 {
		t.Errorf("limit = %v", sel.Limit)
	}

	// Empty file selects all.
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("writing empty config: %v", err)
	}
	sel, err = LoadSelection(empty)
	if err != nil {
		t.Fatalf("LoadSelection(empty): %v", err)
	}
	if sel.Years != nil || sel.Limit != nil || len(sel.Sources) != 0 {
		t.Errorf("empty selection should be zero value: %+v", sel)
	}

	if _, err := LoadSelection(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}
