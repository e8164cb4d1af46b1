// Package storage maintains a disposable SQLite mirror of the library
// index. The JSON library remains the source of truth; the mirror exists
// for fast keyword matching and aggregate queries and is rebuilt from
// scratch whenever it might be stale.
package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/metalit/metalit/internal/library"
	_ "modernc.org/sqlite"
)

// Cache wraps the SQLite mirror connection.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the mirror database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite doesn't support concurrent writers.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			citation_key TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			authors TEXT NOT NULL,
			year INTEGER,
			doi TEXT,
			source TEXT NOT NULL,
			venue TEXT,
			citation_count INTEGER,
			has_pdf INTEGER NOT NULL,
			added_date TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi) WHERE doi IS NOT NULL AND doi != '';
		CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year);

		CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
			citation_key,
			title,
			abstract,
			authors_text
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Rebuild clears the mirror and repopulates it from the library entries.
// hasPDF reports whether an entry's PDF is on disk; passing nil records
// every entry as PDF-less.
func (c *Cache) Rebuild(entries []*library.Entry, hasPDF func(*library.Entry) bool) (int, error) {
	if _, err := c.db.Exec("DELETE FROM papers"); err != nil {
		return 0, fmt.Errorf("clearing papers table: %w", err)
	}
	if _, err := c.db.Exec("DELETE FROM papers_fts"); err != nil {
		return 0, fmt.Errorf("clearing papers_fts table: %w", err)
	}

	paperStmt, err := c.db.Prepare(`
		INSERT INTO papers (
			citation_key, title, authors, year, doi, source,
			venue, citation_count, has_pdf, added_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing papers insert: %w", err)
	}
	defer paperStmt.Close()

	ftsStmt, err := c.db.Prepare(`
		INSERT INTO papers_fts (citation_key, title, abstract, authors_text)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, entry := range entries {
		authorsText := strings.Join(entry.Authors, ", ")
		pdfFlag := 0
		if hasPDF != nil && hasPDF(entry) {
			pdfFlag = 1
		}

		_, err = paperStmt.Exec(
			entry.CitationKey, entry.Title, authorsText,
			nullableInt(entry.Year), nullableString(entry.DOI), entry.Source,
			nullableString(entry.Venue), nullableIntPtr(entry.CitationCount),
			pdfFlag, nullableString(entry.AddedDate),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting paper %s: %w", entry.CitationKey, err)
		}

		_, err = ftsStmt.Exec(entry.CitationKey, entry.Title, entry.Abstract, authorsText)
		if err != nil {
			return 0, fmt.Errorf("inserting fts row for %s: %w", entry.CitationKey, err)
		}
	}

	return len(entries), nil
}

// Match performs a full-text search over titles, abstracts, and author
// names and returns the matching citation keys.
func (c *Cache) Match(query string, limit int) ([]string, error) {
	rows, err := c.db.Query(`
		SELECT citation_key FROM papers_fts
		WHERE papers_fts MATCH ?
		LIMIT ?`, prepareFTSQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("matching %q: %w", query, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// CountBySource returns per-source paper counts.
func (c *Cache) CountBySource() (map[string]int, error) {
	rows, err := c.db.Query("SELECT source, COUNT(*) FROM papers GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("counting by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// YearCount is one bucket of the publication-year histogram.
type YearCount struct {
	Year  int
	Count int
}

// YearHistogram returns paper counts per publication year in ascending
// year order. Entries without a year are excluded.
func (c *Cache) YearHistogram() ([]YearCount, error) {
	rows, err := c.db.Query(`
		SELECT year, COUNT(*) FROM papers
		WHERE year IS NOT NULL
		GROUP BY year ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("building year histogram: %w", err)
	}
	defer rows.Close()

	var hist []YearCount
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, err
		}
		hist = append(hist, yc)
	}
	return hist, rows.Err()
}

// Count returns the total number of mirrored papers.
func (c *Cache) Count() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM papers").Scan(&count)
	return count, err
}

// CountWithPDF returns the number of papers whose PDF was on disk at
// rebuild time.
func (c *Cache) CountWithPDF() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM papers WHERE has_pdf = 1").Scan(&count)
	return count, err
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func nullableIntPtr(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries. FTS5 uses
// double quotes for phrase matching.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}
	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}
	return query
}
