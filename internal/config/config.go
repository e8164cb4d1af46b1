// Package config handles the pipeline's directory layout and environment
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Directory and file names under the project root.
const (
	DataDir          = "data"
	PDFDir           = "pdfs"
	SummariesDir     = "summaries"
	ExtractedTextDir = "extracted_text"
	OutputDir        = "output"
	CacheDir         = "cache"

	LibraryFile  = "library.json"
	FailedFile   = "failed_downloads.json"
	BibFile      = "references.bib"
	CacheDBFile  = "library.db"
	LiteratureDir = "literature"
	ProgressFile  = "summarization_progress.json"
)

// DefaultSearchLimit is used when LITERATURE_DEFAULT_LIMIT is unset.
const DefaultSearchLimit = 25

// Config holds environment-derived settings, read once at startup.
type Config struct {
	// Root is the project root directory; all data paths hang off it.
	Root string

	// DefaultLimit is the per-source search limit (LITERATURE_DEFAULT_LIMIT).
	DefaultLimit int

	// UnpaywallEmail identifies us to the Unpaywall API; lookup is
	// disabled when empty.
	UnpaywallEmail string

	// SemanticScholarKey raises the Semantic Scholar rate cap when set.
	SemanticScholarKey string
}

// FromEnv builds a Config for the given project root.
func FromEnv(root string) Config {
	cfg := Config{
		Root:               root,
		DefaultLimit:       DefaultSearchLimit,
		UnpaywallEmail:     os.Getenv("UNPAYWALL_EMAIL"),
		SemanticScholarKey: os.Getenv("SEMANTIC_SCHOLAR_API_KEY"),
	}

	if v := os.Getenv("LITERATURE_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultLimit = n
		}
	}

	return cfg
}

// DataPath returns the path to the data directory.
func (c Config) DataPath() string { return filepath.Join(c.Root, DataDir) }

// LibraryPath returns the path to library.json.
func (c Config) LibraryPath() string { return filepath.Join(c.Root, DataDir, LibraryFile) }

// FailedPath returns the path to failed_downloads.json.
func (c Config) FailedPath() string { return filepath.Join(c.Root, DataDir, FailedFile) }

// PDFPath returns the expected PDF path for a citation key.
func (c Config) PDFPath(citationKey string) string {
	return filepath.Join(c.Root, DataDir, PDFDir, citationKey+".pdf")
}

// PDFDirPath returns the PDF directory path.
func (c Config) PDFDirPath() string { return filepath.Join(c.Root, DataDir, PDFDir) }

// SummaryPath returns the expected summary path for a citation key.
func (c Config) SummaryPath(citationKey string) string {
	return filepath.Join(c.Root, DataDir, SummariesDir, citationKey+"_summary.md")
}

// SummariesDirPath returns the summaries directory path.
func (c Config) SummariesDirPath() string { return filepath.Join(c.Root, DataDir, SummariesDir) }

// ExtractedTextPath returns the extracted-text path for a citation key.
func (c Config) ExtractedTextPath(citationKey string) string {
	return filepath.Join(c.Root, DataDir, ExtractedTextDir, citationKey+".txt")
}

// ExtractedTextDirPath returns the extracted-text directory path.
func (c Config) ExtractedTextDirPath() string {
	return filepath.Join(c.Root, DataDir, ExtractedTextDir)
}

// OutputPath returns the meta-analysis output directory path.
func (c Config) OutputPath() string { return filepath.Join(c.Root, DataDir, OutputDir) }

// BibPath returns the path to the BibTeX side file.
func (c Config) BibPath() string { return filepath.Join(c.Root, DataDir, BibFile) }

// CacheDBPath returns the path to the ephemeral SQLite query cache.
func (c Config) CacheDBPath() string {
	return filepath.Join(c.Root, DataDir, CacheDir, CacheDBFile)
}

// ProgressPath returns the summarization collaborator's progress file path.
// The pipeline only ever deletes this file, as part of a total clear.
func (c Config) ProgressPath() string {
	return filepath.Join(c.Root, LiteratureDir, ProgressFile)
}

// EnsureDirs creates the data directories the pipeline owns.
func (c Config) EnsureDirs() error {
	dirs := []string{
		c.DataPath(),
		c.PDFDirPath(),
		c.SummariesDirPath(),
		c.ExtractedTextDirPath(),
		c.OutputPath(),
		filepath.Join(c.Root, DataDir, CacheDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}
	return nil
}
