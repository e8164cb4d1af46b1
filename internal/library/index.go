package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/fsutil"
)

// SchemaVersion is written into library.json.
const SchemaVersion = "1.0"

// Paper carries the metadata for an AddEntry call.
type Paper struct {
	Title         string
	Authors       []string
	Year          int
	DOI           string
	Source        string
	URL           string
	Abstract      string
	Venue         string
	CitationCount *int
	PDFURL        string
	Metadata      map[string]interface{}
}

// Index is the persistent citation_key → Entry mapping backed by
// data/library.json. It exclusively owns the entry map and the file; every
// mutation rewrites the file via temp-then-rename.
type Index struct {
	cfg     config.Config
	entries map[string]*Entry
	log     zerolog.Logger
}

// libraryFile is the on-disk schema of library.json.
type libraryFile struct {
	Version string            `json:"version"`
	Updated string            `json:"updated"`
	Count   int               `json:"count"`
	Entries map[string]*Entry `json:"entries"`
}

// Load reads the library file, normalizing each entry. Any IO or JSON error
// is logged and yields an empty index: the library is treated as new.
func Load(cfg config.Config, log zerolog.Logger) *Index {
	idx := &Index{cfg: cfg, entries: make(map[string]*Entry), log: log}

	data, err := os.ReadFile(cfg.LibraryPath())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("reading library; starting with empty index")
		}
		return idx
	}

	var file libraryFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Warn().Err(err).Msg("parsing library; starting with empty index")
		return idx
	}

	for key, entry := range file.Entries {
		if entry == nil {
			continue
		}
		entry.CitationKey = key
		idx.entries[key] = entry
	}
	return idx
}

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// AddEntry inserts a paper and returns its citation key. Dedup order:
// DOI match, then exact case-folded title match — either returns the
// existing key without mutation. Otherwise a new key is generated and the
// index is persisted.
func (idx *Index) AddEntry(p Paper) (string, error) {
	if doi := normalizeDOI(p.DOI); doi != "" {
		for key, entry := range idx.entries {
			if normalizeDOI(entry.DOI) == doi {
				return key, nil
			}
		}
	}

	if folded := foldTitle(p.Title); folded != "" {
		for key, entry := range idx.entries {
			if foldTitle(entry.Title) == folded {
				return key, nil
			}
		}
	}

	key := idx.generateKey(p.Title, p.Authors, p.Year)
	if existing, ok := idx.entries[key]; ok {
		// generateKey only returns an occupied key for the same title.
		return existing.CitationKey, nil
	}

	entry := &Entry{
		CitationKey:   key,
		Title:         p.Title,
		Authors:       p.Authors,
		Year:          p.Year,
		DOI:           p.DOI,
		Source:        p.Source,
		URL:           p.URL,
		Abstract:      p.Abstract,
		Venue:         p.Venue,
		CitationCount: p.CitationCount,
		AddedDate:     time.Now().UTC().Format(time.RFC3339),
		Metadata:      p.Metadata,
	}
	if entry.Title == "" {
		entry.Title = "No title"
	}
	if entry.Authors == nil {
		entry.Authors = []string{}
	}
	if p.PDFURL != "" {
		if entry.Metadata == nil {
			entry.Metadata = make(map[string]interface{})
		}
		entry.Metadata["pdf_url"] = p.PDFURL
	}

	idx.entries[key] = entry
	if err := idx.save(); err != nil {
		return key, err
	}
	return key, nil
}

// AddOrphan inserts an entry under an explicit citation key for a PDF
// found on disk without a library record. Orphans keep their
// filename-derived key and are not dedup-matched against the library.
func (idx *Index) AddOrphan(citationKey string, p Paper) error {
	if _, ok := idx.entries[citationKey]; ok {
		return nil
	}
	entry := &Entry{
		CitationKey: citationKey,
		Title:       p.Title,
		Authors:     p.Authors,
		Year:        p.Year,
		DOI:         p.DOI,
		Source:      SourceOrphaned,
		PDFPath:     filepath.ToSlash(filepath.Join(config.DataDir, config.PDFDir, citationKey+".pdf")),
		AddedDate:   time.Now().UTC().Format(time.RFC3339),
	}
	if entry.Title == "" {
		entry.Title = "No title"
	}
	if entry.Authors == nil {
		entry.Authors = []string{}
	}
	idx.entries[citationKey] = entry
	return idx.save()
}

// generateKey returns the base key, the existing key when the occupant has
// the same case-folded title, or the base with the smallest free suffix ≥ 2.
func (idx *Index) generateKey(title string, authors []string, year int) string {
	base := citationKeyBase(title, authors, year)

	occupant, taken := idx.entries[base]
	if !taken {
		return base
	}
	if foldTitle(occupant.Title) == foldTitle(title) {
		return base
	}

	for suffix := 2; ; suffix++ {
		candidate := base + strconv.Itoa(suffix)
		occupant, taken := idx.entries[candidate]
		if !taken {
			return candidate
		}
		if foldTitle(occupant.Title) == foldTitle(title) {
			return candidate
		}
	}
}

// GetEntry returns the entry for a citation key, or nil.
func (idx *Index) GetEntry(citationKey string) *Entry {
	return idx.entries[citationKey]
}

// ListEntries returns all entries sorted by citation key.
func (idx *Index) ListEntries() []*Entry {
	keys := make([]string, 0, len(idx.entries))
	for key := range idx.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]*Entry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, idx.entries[key])
	}
	return entries
}

// HasPaper reports whether a paper with the given DOI or title is present.
func (idx *Index) HasPaper(doi, title string) bool {
	normDOI := normalizeDOI(doi)
	folded := foldTitle(title)
	for _, entry := range idx.entries {
		if normDOI != "" && normalizeDOI(entry.DOI) == normDOI {
			return true
		}
		if folded != "" && foldTitle(entry.Title) == folded {
			return true
		}
	}
	return false
}

// UpdatePDFPath records the downloaded PDF path (or clears it with "").
// Unknown keys are a warning no-op.
func (idx *Index) UpdatePDFPath(citationKey, pdfPath string) error {
	entry, ok := idx.entries[citationKey]
	if !ok {
		idx.log.Warn().Str("citation_key", citationKey).Msg("update_pdf_path for unknown key")
		return nil
	}
	entry.PDFPath = pdfPath
	return idx.save()
}

// RemoveEntry deletes an entry; returns false for unknown keys.
func (idx *Index) RemoveEntry(citationKey string) (bool, error) {
	if _, ok := idx.entries[citationKey]; !ok {
		return false, nil
	}
	delete(idx.entries, citationKey)
	return true, idx.save()
}

// EntriesWithoutPDF returns entries whose pdf_path is unset or whose
// resolved path no longer exists on disk.
func (idx *Index) EntriesWithoutPDF() []*Entry {
	var missing []*Entry
	for _, entry := range idx.ListEntries() {
		if entry.PDFPath == "" {
			missing = append(missing, entry)
			continue
		}
		if _, err := os.Stat(idx.ResolvePDFPath(entry)); err != nil {
			missing = append(missing, entry)
		}
	}
	return missing
}

// ResolvePDFPath resolves an entry's pdf_path (stored relative to the
// project root) to an absolute path.
func (idx *Index) ResolvePDFPath(entry *Entry) string {
	if entry.PDFPath == "" {
		return ""
	}
	if filepath.IsAbs(entry.PDFPath) {
		return entry.PDFPath
	}
	return filepath.Join(idx.cfg.Root, entry.PDFPath)
}

// HasPDF reports whether the entry's PDF exists on disk, checking the
// recorded path first and the expected location second.
func (idx *Index) HasPDF(entry *Entry) bool {
	if entry.PDFPath != "" {
		if _, err := os.Stat(idx.ResolvePDFPath(entry)); err == nil {
			return true
		}
	}
	_, err := os.Stat(idx.cfg.PDFPath(entry.CitationKey))
	return err == nil
}

// save rewrites library.json atomically.
func (idx *Index) save() error {
	file := libraryFile{
		Version: SchemaVersion,
		Updated: time.Now().UTC().Format(time.RFC3339),
		Count:   len(idx.entries),
		Entries: idx.entries,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding library: %w", err)
	}
	if err := fsutil.WriteFileAtomic(idx.cfg.LibraryPath(), data, 0644); err != nil {
		return fmt.Errorf("writing library: %w", err)
	}
	return nil
}

// ExportJSON writes a snapshot of the library to path, separate from the
// live index file. Returns the path written.
func (idx *Index) ExportJSON(path string) (string, error) {
	if path == "" {
		path = filepath.Join(idx.cfg.OutputPath(), "library_export.json")
	}

	file := libraryFile{
		Version: SchemaVersion,
		Updated: time.Now().UTC().Format(time.RFC3339),
		Count:   len(idx.entries),
		Entries: idx.entries,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

// CleanupReport lists what a Cleanup pass removed.
type CleanupReport struct {
	RemovedEntries []string `json:"removed_entries"`
	RemovedFiles   []string `json:"removed_files"`
}

// Cleanup removes entries whose PDF is gone from disk, then deletes files
// under data/ that no surviving entry accounts for: orphaned PDFs,
// summaries, extracted text, and stale .part download remnants.
func (idx *Index) Cleanup() (CleanupReport, error) {
	report := CleanupReport{RemovedEntries: []string{}, RemovedFiles: []string{}}

	for _, entry := range idx.EntriesWithoutPDF() {
		delete(idx.entries, entry.CitationKey)
		report.RemovedEntries = append(report.RemovedEntries, entry.CitationKey)
	}
	if len(report.RemovedEntries) > 0 {
		if err := idx.save(); err != nil {
			return report, err
		}
	}

	dirs := []struct {
		path   string
		suffix string
	}{
		{idx.cfg.PDFDirPath(), ".pdf"},
		{idx.cfg.PDFDirPath(), ".part"},
		{idx.cfg.SummariesDirPath(), "_summary.md"},
		{idx.cfg.ExtractedTextDirPath(), ".txt"},
	}
	for _, d := range dirs {
		files, err := os.ReadDir(d.path)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), d.suffix) {
				continue
			}
			key := strings.TrimSuffix(f.Name(), d.suffix)
			if d.suffix == ".part" {
				key = strings.TrimSuffix(key, ".pdf")
			}
			if _, ok := idx.entries[key]; ok && d.suffix != ".part" {
				continue
			}
			full := filepath.Join(d.path, f.Name())
			if err := os.Remove(full); err != nil {
				idx.log.Warn().Err(err).Str("path", full).Msg("cleanup could not remove file")
				continue
			}
			report.RemovedFiles = append(report.RemovedFiles, full)
		}
	}
	sort.Strings(report.RemovedFiles)
	sort.Strings(report.RemovedEntries)
	return report, nil
}

// Clear performs the total clear: the in-memory map, library.json, all
// PDFs, summaries, extracted text, the summarization progress file, and the
// BibTeX side file.
func (idx *Index) Clear() error {
	idx.entries = make(map[string]*Entry)

	for _, dir := range []string{idx.cfg.PDFDirPath(), idx.cfg.SummariesDirPath(), idx.cfg.ExtractedTextDirPath()} {
		if err := fsutil.CleanDir(dir); err != nil {
			return err
		}
	}
	for _, file := range []string{idx.cfg.LibraryPath(), idx.cfg.ProgressPath(), idx.cfg.BibPath()} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", file, err)
		}
	}
	return nil
}

// normalizeDOI canonicalizes DOIs for comparison.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return doi
}
