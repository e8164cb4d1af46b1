// Package extract turns downloaded PDFs into plain-text files for the
// analysis corpus and synthesizes library entries for orphaned PDFs.
package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/fsutil"
	"github.com/metalit/metalit/internal/library"
)

// doiPattern matches DOIs of the form 10.NNNN/suffix.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Extractor reads PDFs and writes per-key text files.
type Extractor struct {
	cfg   config.Config
	index *library.Index
	log   zerolog.Logger
}

// New creates an extractor.
func New(cfg config.Config, index *library.Index, log zerolog.Logger) *Extractor {
	return &Extractor{cfg: cfg, index: index, log: log}
}

// Summary reports one extraction run.
type Summary struct {
	Extracted int      `json:"extracted"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Orphans   []string `json:"orphans_adopted,omitempty"`
}

// Run extracts text for every entry whose PDF is on disk, skipping keys
// whose text file already exists, then adopts orphaned PDFs.
func (e *Extractor) Run() (Summary, error) {
	var summary Summary
	for _, entry := range e.index.ListEntries() {
		if !e.index.HasPDF(entry) {
			continue
		}
		textPath := e.cfg.ExtractedTextPath(entry.CitationKey)
		if _, err := os.Stat(textPath); err == nil {
			summary.Skipped++
			continue
		}
		pdfPath := e.index.ResolvePDFPath(entry)
		if pdfPath == "" {
			pdfPath = e.cfg.PDFPath(entry.CitationKey)
		}
		text, err := extractText(pdfPath, 0)
		if err != nil {
			e.log.Warn().Err(err).Str("citation_key", entry.CitationKey).Msg("text extraction failed")
			summary.Failed++
			continue
		}
		if err := fsutil.WriteFileAtomic(textPath, []byte(text), 0o644); err != nil {
			return summary, fmt.Errorf("writing extracted text: %w", err)
		}
		summary.Extracted++
	}

	orphans, err := e.adoptOrphans()
	if err != nil {
		return summary, err
	}
	summary.Orphans = orphans
	return summary, nil
}

// adoptOrphans synthesizes entries for PDFs on disk that no library
// record points at. Title and DOI come from heuristic scans of the
// first pages and are known to be low quality.
func (e *Extractor) adoptOrphans() ([]string, error) {
	var adopted []string
	for _, key := range e.index.OrphanedPDFs() {
		pdfPath := e.cfg.PDFPath(key)
		title := extractTitle(pdfPath)
		doi := extractDOI(pdfPath)
		if err := e.index.AddOrphan(key, library.Paper{Title: title, DOI: doi}); err != nil {
			return adopted, fmt.Errorf("adopting orphan %s: %w", key, err)
		}
		e.log.Info().Str("citation_key", key).Str("title", title).Msg("adopted orphaned pdf")
		adopted = append(adopted, key)

		textPath := e.cfg.ExtractedTextPath(key)
		if _, err := os.Stat(textPath); err == nil {
			continue
		}
		text, err := extractText(pdfPath, 0)
		if err != nil {
			e.log.Warn().Err(err).Str("citation_key", key).Msg("orphan text extraction failed")
			continue
		}
		if err := fsutil.WriteFileAtomic(textPath, []byte(text), 0o644); err != nil {
			return adopted, fmt.Errorf("writing extracted text: %w", err)
		}
	}
	return adopted, nil
}

// extractText reads the plain text of up to maxPages pages (0 = all).
func extractText(path string, maxPages int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}
	var b strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// extractTitle returns the first substantial line of the first page.
func extractTitle(path string) string {
	text, err := extractText(path, 1)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !looksLikeHeader(line) {
			return line
		}
	}
	return ""
}

// extractDOI scans the first pages for a DOI pattern.
func extractDOI(path string) string {
	text, err := extractText(path, 3)
	if err != nil {
		return ""
	}
	match := doiPattern.FindString(text)
	return strings.TrimRight(match, ".,;")
}

// looksLikeHeader filters running heads and boilerplate out of title
// candidates.
func looksLikeHeader(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range []string{
		"journal of", "proceedings of", "vol.", "volume", "issue",
		"copyright", "©", "doi:", "http", "www.", "arxiv:",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
