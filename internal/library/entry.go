// Package library maintains the persistent index of tracked papers.
package library

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SourceOrphaned tags entries synthesized for PDFs found on disk without a
// library record.
const SourceOrphaned = "orphaned"

// Entry represents a paper tracked by the library.
type Entry struct {
	CitationKey   string                 `json:"citation_key"`
	Title         string                 `json:"title"`
	Authors       []string               `json:"authors"`
	Year          int                    `json:"year,omitempty"`
	DOI           string                 `json:"doi,omitempty"`
	Source        string                 `json:"source"`
	URL           string                 `json:"url,omitempty"`
	Abstract      string                 `json:"abstract,omitempty"`
	Venue         string                 `json:"venue,omitempty"`
	CitationCount *int                   `json:"citation_count,omitempty"`
	PDFPath       string                 `json:"pdf_path,omitempty"`
	AddedDate     string                 `json:"added_date"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// entryKnownFields lists the JSON keys handled explicitly on load. Anything
// else is preserved under Metadata.
var entryKnownFields = map[string]bool{
	"citation_key": true, "title": true, "authors": true, "year": true,
	"doi": true, "source": true, "url": true, "abstract": true,
	"venue": true, "citation_count": true, "pdf_path": true,
	"added_date": true, "metadata": true,
}

// UnmarshalJSON normalizes heterogeneous on-disk shapes. Normalization is
// total: authors never load as a string, venue never loads as a list, and
// missing required fields get defaults.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing entry: %w", err)
	}

	e.Title = "No title"
	e.Authors = []string{}

	for key, val := range raw {
		switch key {
		case "citation_key":
			decodeString(val, &e.CitationKey)
		case "title":
			var s string
			if decodeString(val, &s) && s != "" {
				e.Title = s
			}
		case "authors":
			e.Authors = coerceAuthors(val)
		case "year":
			e.Year = coerceInt(val)
		case "doi":
			decodeString(val, &e.DOI)
		case "source":
			decodeString(val, &e.Source)
		case "url":
			decodeString(val, &e.URL)
		case "abstract":
			decodeString(val, &e.Abstract)
		case "venue":
			e.Venue = coerceVenue(val)
		case "citation_count":
			if n := coerceInt(val); n != 0 || string(val) == "0" {
				count := n
				e.CitationCount = &count
			}
		case "pdf_path":
			decodeString(val, &e.PDFPath)
		case "added_date":
			decodeString(val, &e.AddedDate)
		case "metadata":
			var m map[string]interface{}
			if err := json.Unmarshal(val, &m); err == nil {
				e.Metadata = m
			}
		}
	}

	// Preserve unknown fields rather than dropping them.
	for key, val := range raw {
		if entryKnownFields[key] {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(val, &v); err != nil {
			continue
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]interface{})
		}
		if _, exists := e.Metadata[key]; !exists {
			e.Metadata[key] = v
		}
	}

	return nil
}

// PDFURL returns the stored candidate PDF URL, if any.
func (e *Entry) PDFURL() string {
	if e.Metadata == nil {
		return ""
	}
	if s, ok := e.Metadata["pdf_url"].(string); ok {
		return s
	}
	return ""
}

// decodeString unmarshals a JSON string; returns false on any other shape.
func decodeString(data json.RawMessage, dst *string) bool {
	return json.Unmarshal(data, dst) == nil
}

// coerceAuthors accepts a list, a single string, or a scalar.
func coerceAuthors(data json.RawMessage) []string {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		authors := make([]string, 0, len(list))
		for _, item := range list {
			authors = append(authors, coerceScalarString(item))
		}
		return authors
	}

	if s := coerceScalarString(data); s != "" {
		return []string{s}
	}
	return []string{}
}

// coerceVenue accepts a string, a list of strings (joined with ", "), or a
// scalar (stringified). An empty list collapses to the empty string.
func coerceVenue(data json.RawMessage) string {
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		switch len(list) {
		case 0:
			return ""
		case 1:
			return coerceScalarString(list[0])
		default:
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, coerceScalarString(item))
			}
			return strings.Join(parts, ", ")
		}
	}

	return coerceScalarString(data)
}

// coerceInt accepts a JSON number or a numeric string.
func coerceInt(data json.RawMessage) int {
	var n int
	if json.Unmarshal(data, &n) == nil {
		return n
	}
	var f float64
	if json.Unmarshal(data, &f) == nil {
		return int(f)
	}
	var s string
	if json.Unmarshal(data, &s) == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}

// coerceScalarString renders any JSON scalar as a string.
func coerceScalarString(data json.RawMessage) string {
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s
	}
	var f float64
	if json.Unmarshal(data, &f) == nil {
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	var b bool
	if json.Unmarshal(data, &b) == nil {
		return strconv.FormatBool(b)
	}
	return strings.Trim(string(data), `"`)
}
