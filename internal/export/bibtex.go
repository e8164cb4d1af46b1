// Package export renders library entries as BibTeX.
package export

import (
	"fmt"
	"strings"

	"github.com/metalit/metalit/internal/fsutil"
	"github.com/metalit/metalit/internal/library"
)

// ToBibTeX converts one entry to a BibTeX record keyed by its citation key.
func ToBibTeX(entry *library.Entry) string {
	entryType := determineEntryType(entry)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, entry.CitationKey))

	if len(entry.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(entry.Authors)))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(entry.Title)))

	if entry.Venue != "" {
		fieldName := "journal"
		if entryType == "inproceedings" {
			fieldName = "booktitle"
		}
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", fieldName, escapeLatex(entry.Venue)))
	}

	if entry.Year > 0 {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", entry.Year))
	}
	if entry.DOI != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", entry.DOI))
	}
	if entry.URL != "" {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", entry.URL))
	}
	if entry.Abstract != "" {
		b.WriteString(fmt.Sprintf("  abstract = {%s},\n", escapeLatex(entry.Abstract)))
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts entries to one BibTeX document.
func ToBibTeXList(entries []*library.Entry) string {
	var records []string
	for _, entry := range entries {
		records = append(records, ToBibTeX(entry))
	}
	return strings.Join(records, "\n")
}

// WriteBibFile writes the entries to path as BibTeX, replacing any
// previous contents, and returns the number of records written.
func WriteBibFile(path string, entries []*library.Entry) (int, error) {
	content := ToBibTeXList(entries)
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return 0, fmt.Errorf("writing bib file: %w", err)
	}
	return len(entries), nil
}

// determineEntryType picks the BibTeX entry type from the venue.
func determineEntryType(entry *library.Entry) string {
	venue := strings.ToLower(entry.Venue)

	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}

	// Preprints and anything venue-less still cite as articles; only
	// orphaned entries with no bibliographic data fall back to misc.
	if entry.Source == library.SourceOrphaned && entry.Venue == "" && entry.DOI == "" {
		return "misc"
	}
	return "article"
}

// formatAuthors joins author names BibTeX-style. Names are stored the way
// the source reported them, so no Last/First reordering happens here.
func formatAuthors(authors []string) string {
	return strings.Join(authors, " and ")
}

// escapeLatex escapes special LaTeX characters. Order matters: & must be
// first so later escapes don't produce a bare &.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
