package aggregate

import (
	"os"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/library"
)

func testSetup(t *testing.T) (config.Config, *library.Index, *Aggregator) {
	t.Helper()
	cfg := config.FromEnv(t.TempDir())
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	idx := library.Load(cfg, zerolog.Nop())
	return cfg, idx, New(cfg, idx, zerolog.Nop())
}

func addPaper(t *testing.T, idx *library.Index, p library.Paper) string {
	t.Helper()
	key, err := idx.AddEntry(p)
	if err != nil {
		t.Fatalf("AddEntry(%q): %v", p.Title, err)
	}
	return key
}

func TestTemporalAscendingYears(t *testing.T) {
	_, idx, agg := testSetup(t)
	addPaper(t, idx, library.Paper{Title: "Late", Authors: []string{"Ames"}, Year: 2021, Source: "arxiv"})
	addPaper(t, idx, library.Paper{Title: "Early", Authors: []string{"Bell"}, Year: 2018, Source: "arxiv"})
	addPaper(t, idx, library.Paper{Title: "Also Early", Authors: []string{"Cole"}, Year: 2018, Source: "arxiv"})
	addPaper(t, idx, library.Paper{Title: "Undated", Authors: []string{"Dorn"}, Source: "arxiv"})

	data := agg.Temporal(idx.ListEntries())
	if !reflect.DeepEqual(data.Years, []int{2018, 2021}) {
		t.Errorf("years = %v, want ascending [2018 2021]", data.Years)
	}
	if !reflect.DeepEqual(data.Counts, []int{2, 1}) {
		t.Errorf("counts = %v", data.Counts)
	}
	if data.TotalPapers != 4 {
		t.Errorf("total = %d, want 4 (undated still counted)", data.TotalPapers)
	}
	if data.MinYear != 2018 || data.MaxYear != 2021 {
		t.Errorf("range = (%d,%d)", data.MinYear, data.MaxYear)
	}
}

func TestTemporalEmpty(t *testing.T) {
	_, _, agg := testSetup(t)
	data := agg.Temporal(nil)
	if data.MinYear != 0 || data.MaxYear != 0 || data.TotalPapers != 0 {
		t.Errorf("empty input must yield zeroed view: %+v", data)
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("The Deep Learning of Deep Networks, with more networks!", 0)
	want := []string{"deep", "learning", "networks"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v (stop words and short tokens removed, unique, sorted)", got, want)
	}

	// "with" and "more" are stop words; three-letter tokens are dropped.
	got = ExtractKeywords("with more net gene", 0)
	if !reflect.DeepEqual(got, []string{"gene"}) {
		t.Errorf("got %v, want [gene]", got)
	}
}

func TestKeywordFrequencyOverTime(t *testing.T) {
	_, idx, agg := testSetup(t)
	addPaper(t, idx, library.Paper{Title: "Protein Folding", Authors: []string{"Ames"}, Year: 2019, Source: "arxiv"})
	addPaper(t, idx, library.Paper{Title: "Protein Design", Authors: []string{"Bell"}, Year: 2020, Source: "arxiv"})
	addPaper(t, idx, library.Paper{Title: "Folding Chairs", Authors: []string{"Cole"}, Year: 2020, Source: "arxiv"})

	data := agg.Keywords(idx.ListEntries(), KeywordOptions{})
	if data.KeywordCounts["protein"] != 2 {
		t.Errorf("protein count = %d, want 2", data.KeywordCounts["protein"])
	}

	want := []YearFrequency{{Year: 2019, Count: 1}, {Year: 2020, Count: 1}}
	if !reflect.DeepEqual(data.FrequencyOverTime["protein"], want) {
		t.Errorf("protein timeline = %v, want %v", data.FrequencyOverTime["protein"], want)
	}
	// "design" appears only in 2020; 2019 must not appear with count 0.
	if got := data.FrequencyOverTime["design"]; len(got) != 1 || got[0].Year != 2020 {
		t.Errorf("design timeline = %v, want only 2020", got)
	}
}

func TestKeywordsIncludeAbstractsFlag(t *testing.T) {
	_, idx, agg := testSetup(t)
	addPaper(t, idx, library.Paper{
		Title: "Short Title", Authors: []string{"Ames"}, Year: 2020, Source: "arxiv",
		Abstract: "Methylation patterns in tumors.",
	})

	entries := idx.ListEntries()
	titlesOnly := agg.Keywords(entries, KeywordOptions{})
	if titlesOnly.KeywordCounts["methylation"] != 0 {
		t.Error("abstract keyword leaked without the flag")
	}
	withAbstracts := agg.Keywords(entries, KeywordOptions{IncludeAbstracts: true})
	if withAbstracts.KeywordCounts["methylation"] != 1 {
		t.Error("abstract keyword missing with the flag")
	}
}

func TestMetadataAggregation(t *testing.T) {
	cfg, idx, agg := testSetup(t)
	count := 12
	withPDF := addPaper(t, idx, library.Paper{
		Title: "Cited Work", Authors: []string{"Ames", "Bell"}, Year: 2020,
		Source: "arxiv", Venue: "NeurIPS", DOI: "10.1/cited", CitationCount: &count,
	})
	addPaper(t, idx, library.Paper{
		Title: "Quiet Work", Authors: []string{"Ames"}, Year: 2021, Source: "pubmed",
	})
	if err := os.WriteFile(cfg.PDFPath(withPDF), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("writing pdf: %v", err)
	}

	data := agg.Metadata(idx.ListEntries())
	if data.Authors["Ames"] != 2 || data.Authors["Bell"] != 1 {
		t.Errorf("authors = %v", data.Authors)
	}
	if data.Venues["NeurIPS"] != 1 || len(data.Venues) != 1 {
		t.Errorf("venues = %v", data.Venues)
	}
	if data.Sources["arxiv"] != 1 || data.Sources["pubmed"] != 1 {
		t.Errorf("sources = %v", data.Sources)
	}
	if !reflect.DeepEqual(data.CitationCounts, []int{12}) {
		t.Errorf("citation counts = %v", data.CitationCounts)
	}
	if data.DOIsAvailable != 1 || data.PDFsAvailable != 1 {
		t.Errorf("dois = %d pdfs = %d", data.DOIsAvailable, data.PDFsAvailable)
	}
}

func TestCorpusFallbackChain(t *testing.T) {
	cfg, idx, agg := testSetup(t)
	extracted := addPaper(t, idx, library.Paper{
		Title: "Full Text", Authors: []string{"Ames"}, Year: 2020, Source: "arxiv",
		Abstract: "Unused abstract.",
	})
	addPaper(t, idx, library.Paper{
		Title: "Abstract Only", Authors: []string{"Bell"}, Year: 2020, Source: "arxiv",
		Abstract: "The abstract text.",
	})
	addPaper(t, idx, library.Paper{
		Title: "Nothing", Authors: []string{"Cole"}, Year: 2020, Source: "arxiv",
	})
	if err := os.WriteFile(cfg.ExtractedTextPath(extracted), []byte("Extracted body."), 0o644); err != nil {
		t.Fatalf("writing text: %v", err)
	}

	corpus := agg.Corpus(idx.ListEntries())
	if corpus.Extracted != 1 || corpus.AbstractFallback != 1 || corpus.Empty != 1 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/1", corpus.Extracted, corpus.AbstractFallback, corpus.Empty)
	}
	for i, key := range corpus.CitationKeys {
		switch key {
		case extracted:
			if corpus.Texts[i] != "Extracted body." {
				t.Errorf("extracted text not used: %q", corpus.Texts[i])
			}
		}
	}
	if len(corpus.Texts) != len(corpus.CitationKeys) || len(corpus.Years) != len(corpus.Titles) {
		t.Error("corpus sequences must stay aligned")
	}
}

func TestQualityGates(t *testing.T) {
	cfg, idx, agg := testSetup(t)
	one := addPaper(t, idx, library.Paper{
		Title: "First", Authors: []string{"Ames"}, Year: 2020, Source: "arxiv",
		Abstract: "Has abstract.",
	})
	two := addPaper(t, idx, library.Paper{
		Title: "Second", Authors: []string{"Bell"}, Year: 2021, Source: "arxiv",
	})
	addPaper(t, idx, library.Paper{Title: "Third", Authors: []string{"Cole"}, Source: "arxiv"})

	q := agg.Quality(idx.ListEntries())
	if !q.SufficientForTemporal || !q.SufficientForKeywords {
		t.Errorf("temporal/keyword gates should pass: %+v", q)
	}
	if q.SufficientForPCA {
		t.Error("pca gate must need two extracted texts")
	}

	for _, key := range []string{one, two} {
		if err := os.WriteFile(cfg.ExtractedTextPath(key), []byte("text"), 0o644); err != nil {
			t.Fatalf("writing text: %v", err)
		}
	}
	q = agg.Quality(idx.ListEntries())
	if !q.SufficientForPCA {
		t.Error("pca gate should pass with two extracted texts")
	}
	if q.HasExtractedText != 2 {
		t.Errorf("extracted = %d, want 2", q.HasExtractedText)
	}

	empty := agg.Quality(nil)
	if empty.SufficientForTemporal || empty.SufficientForKeywords || empty.SufficientForPCA {
		t.Error("empty input must fail every gate")
	}
}
