// Package aggregate builds the typed views of a selected entry set that
// the analysis engine consumes: temporal trends, keyword bags, metadata
// distributions, and the text corpus, plus the data-quality gates.
package aggregate

import (
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/library"
)

// Aggregator produces views over library entries. All views are pure:
// an empty entry set yields zeroed but well-typed structures.
type Aggregator struct {
	cfg   config.Config
	index *library.Index
	log   zerolog.Logger
}

// New creates an aggregator.
func New(cfg config.Config, index *library.Index, log zerolog.Logger) *Aggregator {
	return &Aggregator{cfg: cfg, index: index, log: log}
}

// TemporalData is the publication-year view.
type TemporalData struct {
	Years       []int                       `json:"years"`
	Counts      []int                       `json:"counts"`
	ByYear      map[int][]*library.Entry    `json:"-"`
	TotalPapers int                         `json:"total_papers"`
	MinYear     int                         `json:"min_year"`
	MaxYear     int                         `json:"max_year"`
}

// Temporal groups entries by publication year, ascending. Entries
// without a year are excluded from the year axis but counted in
// TotalPapers.
func (a *Aggregator) Temporal(entries []*library.Entry) TemporalData {
	data := TemporalData{ByYear: make(map[int][]*library.Entry), TotalPapers: len(entries)}
	for _, entry := range entries {
		if entry.Year == 0 {
			continue
		}
		data.ByYear[entry.Year] = append(data.ByYear[entry.Year], entry)
	}
	for year := range data.ByYear {
		data.Years = append(data.Years, year)
	}
	sort.Ints(data.Years)
	data.Counts = make([]int, len(data.Years))
	for i, year := range data.Years {
		data.Counts[i] = len(data.ByYear[year])
	}
	if len(data.Years) > 0 {
		data.MinYear = data.Years[0]
		data.MaxYear = data.Years[len(data.Years)-1]
	}
	return data
}

// YearFrequency is one (year, count) pair in a keyword's timeline.
type YearFrequency struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// KeywordData is the extracted-keyword view.
type KeywordData struct {
	Keywords          []string                   `json:"keywords"`
	KeywordCounts     map[string]int             `json:"keyword_counts"`
	KeywordsByYear    map[int][]string           `json:"keywords_by_year"`
	FrequencyOverTime map[string][]YearFrequency `json:"keyword_frequency_over_time"`
}

// KeywordOptions tunes keyword extraction.
type KeywordOptions struct {
	// MinLength is the minimum token length; 0 means the default of 4.
	MinLength int

	// IncludeAbstracts extends extraction beyond titles.
	IncludeAbstracts bool
}

// Keywords extracts per-paper keyword sets and aggregates counts, the
// per-year keyword multiset, and each keyword's frequency timeline
// (years with a zero count are omitted).
func (a *Aggregator) Keywords(entries []*library.Entry, opts KeywordOptions) KeywordData {
	data := KeywordData{
		KeywordCounts:     make(map[string]int),
		KeywordsByYear:    make(map[int][]string),
		FrequencyOverTime: make(map[string][]YearFrequency),
	}

	for _, entry := range entries {
		text := entry.Title
		if opts.IncludeAbstracts {
			text += " " + entry.Abstract
		}
		for _, keyword := range ExtractKeywords(text, opts.MinLength) {
			data.KeywordCounts[keyword]++
			if entry.Year != 0 {
				data.KeywordsByYear[entry.Year] = append(data.KeywordsByYear[entry.Year], keyword)
			}
		}
	}

	for keyword := range data.KeywordCounts {
		data.Keywords = append(data.Keywords, keyword)
	}
	sort.Strings(data.Keywords)

	years := make([]int, 0, len(data.KeywordsByYear))
	for year := range data.KeywordsByYear {
		years = append(years, year)
	}
	sort.Ints(years)
	for _, keyword := range data.Keywords {
		for _, year := range years {
			count := 0
			for _, k := range data.KeywordsByYear[year] {
				if k == keyword {
					count++
				}
			}
			if count > 0 {
				data.FrequencyOverTime[keyword] = append(data.FrequencyOverTime[keyword],
					YearFrequency{Year: year, Count: count})
			}
		}
	}
	return data
}

// MetadataData is the metadata-distribution view.
type MetadataData struct {
	Venues         map[string]int `json:"venues"`
	Authors        map[string]int `json:"authors"`
	Sources        map[string]int `json:"sources"`
	CitationCounts []int          `json:"citation_counts"`
	DOIsAvailable  int            `json:"dois_available"`
	PDFsAvailable  int            `json:"pdfs_available"`
}

// Metadata aggregates venue, author, source, and citation distributions.
// Field values of an unexpected shape are skipped individually with a
// debug log; the rest of the entry still contributes.
func (a *Aggregator) Metadata(entries []*library.Entry) MetadataData {
	data := MetadataData{
		Venues:  make(map[string]int),
		Authors: make(map[string]int),
		Sources: make(map[string]int),
	}
	for _, entry := range entries {
		if venue := strings.TrimSpace(entry.Venue); venue != "" {
			data.Venues[venue]++
		}
		for _, author := range entry.Authors {
			if author = strings.TrimSpace(author); author != "" {
				data.Authors[author]++
			}
		}
		if entry.Source != "" {
			data.Sources[entry.Source]++
		} else {
			a.log.Debug().Str("citation_key", entry.CitationKey).Msg("entry without source")
		}
		if entry.CitationCount != nil {
			if *entry.CitationCount < 0 {
				a.log.Debug().Str("citation_key", entry.CitationKey).
					Int("citation_count", *entry.CitationCount).Msg("negative citation count skipped")
			} else {
				data.CitationCounts = append(data.CitationCounts, *entry.CitationCount)
			}
		}
		if entry.DOI != "" {
			data.DOIsAvailable++
		}
		if a.index.HasPDF(entry) {
			data.PDFsAvailable++
		}
	}
	return data
}

// TextCorpus is the aligned text view feeding TF-IDF.
type TextCorpus struct {
	CitationKeys []string `json:"citation_keys"`
	Texts        []string `json:"texts"`
	Titles       []string `json:"titles"`
	Abstracts    []string `json:"abstracts"`
	Years        []int    `json:"years"`

	Extracted        int `json:"extracted"`
	AbstractFallback int `json:"abstract_fallback"`
	Empty            int `json:"empty"`
}

// Corpus assembles the text corpus: extracted full text when present on
// disk, else the abstract, else the empty string. The three source
// counts are reported, not hidden.
func (a *Aggregator) Corpus(entries []*library.Entry) TextCorpus {
	var corpus TextCorpus
	for _, entry := range entries {
		corpus.CitationKeys = append(corpus.CitationKeys, entry.CitationKey)
		corpus.Titles = append(corpus.Titles, entry.Title)
		corpus.Abstracts = append(corpus.Abstracts, entry.Abstract)
		corpus.Years = append(corpus.Years, entry.Year)

		text, err := os.ReadFile(a.cfg.ExtractedTextPath(entry.CitationKey))
		switch {
		case err == nil && len(strings.TrimSpace(string(text))) > 0:
			corpus.Texts = append(corpus.Texts, string(text))
			corpus.Extracted++
		case entry.Abstract != "":
			corpus.Texts = append(corpus.Texts, entry.Abstract)
			corpus.AbstractFallback++
		default:
			corpus.Texts = append(corpus.Texts, "")
			corpus.Empty++
		}
	}
	return corpus
}

// DataQuality is the coverage vector gating downstream analyses.
type DataQuality struct {
	Total            int `json:"total"`
	HasYear          int `json:"has_year"`
	HasAuthors       int `json:"has_authors"`
	HasAbstract      int `json:"has_abstract"`
	HasDOI           int `json:"has_doi"`
	HasPDF           int `json:"has_pdf"`
	HasExtractedText int `json:"has_extracted_text"`

	YearCoverage          float64 `json:"year_coverage_pct"`
	AuthorCoverage        float64 `json:"author_coverage_pct"`
	AbstractCoverage      float64 `json:"abstract_coverage_pct"`
	DOICoverage           float64 `json:"doi_coverage_pct"`
	PDFCoverage           float64 `json:"pdf_coverage_pct"`
	ExtractedTextCoverage float64 `json:"extracted_text_coverage_pct"`

	SufficientForTemporal bool `json:"sufficient_for_temporal"`
	SufficientForKeywords bool `json:"sufficient_for_keywords"`
	SufficientForPCA      bool `json:"sufficient_for_pca"`
}

// Quality computes the coverage vector and the three gates: temporal
// needs one year, keywords one abstract, PCA two extracted texts.
func (a *Aggregator) Quality(entries []*library.Entry) DataQuality {
	q := DataQuality{Total: len(entries)}
	for _, entry := range entries {
		if entry.Year != 0 {
			q.HasYear++
		}
		if len(entry.Authors) > 0 {
			q.HasAuthors++
		}
		if entry.Abstract != "" {
			q.HasAbstract++
		}
		if entry.DOI != "" {
			q.HasDOI++
		}
		if a.index.HasPDF(entry) {
			q.HasPDF++
		}
		if info, err := os.Stat(a.cfg.ExtractedTextPath(entry.CitationKey)); err == nil && info.Size() > 0 {
			q.HasExtractedText++
		}
	}
	if q.Total > 0 {
		pct := func(n int) float64 { return 100 * float64(n) / float64(q.Total) }
		q.YearCoverage = pct(q.HasYear)
		q.AuthorCoverage = pct(q.HasAuthors)
		q.AbstractCoverage = pct(q.HasAbstract)
		q.DOICoverage = pct(q.HasDOI)
		q.PDFCoverage = pct(q.HasPDF)
		q.ExtractedTextCoverage = pct(q.HasExtractedText)
	}
	q.SufficientForTemporal = q.HasYear >= 1
	q.SufficientForKeywords = q.HasAbstract >= 1
	q.SufficientForPCA = q.HasExtractedText >= 2
	return q
}

// keywordStopWords are the common English function words removed during
// keyword extraction.
var keywordStopWords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true,
	"an": true, "and": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "been": true, "but": true, "by": true,
	"can": true, "could": true, "do": true, "for": true, "from": true,
	"had": true, "has": true, "have": true, "her": true, "his": true,
	"how": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "more": true, "most": true, "not": true, "of": true,
	"on": true, "one": true, "or": true, "our": true, "some": true,
	"such": true, "than": true, "that": true, "the": true, "their": true,
	"there": true, "these": true, "they": true, "this": true, "to": true,
	"was": true, "were": true, "what": true, "when": true, "which": true,
	"will": true, "with": true, "would": true,
}

// ExtractKeywords tokenizes text into lowercase alphanumeric runs of at
// least minLength characters (default 4), removes stop words, and
// returns the unique keywords in sorted order.
func ExtractKeywords(text string, minLength int) []string {
	if minLength <= 0 {
		minLength = 4
	}
	seen := make(map[string]bool)
	var keywords []string
	for _, token := range splitAlnum(strings.ToLower(text)) {
		if len(token) < minLength || keywordStopWords[token] || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
	}
	sort.Strings(keywords)
	return keywords
}

// splitAlnum splits on every non-alphanumeric rune.
func splitAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
