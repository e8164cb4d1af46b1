// Package tracker persists per-paper download failures with a retry policy.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/fsutil"
)

// SchemaVersion is written into failed_downloads.json.
const SchemaVersion = "1.0"

// FailureReason classifies a download failure.
type FailureReason string

// Failure reasons. Only network errors and timeouts are retriable.
const (
	ReasonNoPDFURL     FailureReason = "no_pdf_url"
	ReasonNetworkError FailureReason = "network_error"
	ReasonTimeout      FailureReason = "timeout"
	ReasonHTTP4xx      FailureReason = "http_4xx"
	ReasonHTTP5xx      FailureReason = "http_5xx"
	ReasonParseError   FailureReason = "parse_error"
	ReasonUnknown      FailureReason = "unknown"
)

// Retriable reports whether a failure with this reason is worth retrying.
func (r FailureReason) Retriable() bool {
	return r == ReasonNetworkError || r == ReasonTimeout
}

// FailureRecord describes one failed download.
type FailureRecord struct {
	Title          string        `json:"title,omitempty"`
	FailureReason  FailureReason `json:"failure_reason"`
	FailureMessage string        `json:"failure_message,omitempty"`
	AttemptedURLs  []string      `json:"attempted_urls"`
	Source         string        `json:"source,omitempty"`
	Timestamp      string        `json:"timestamp"`
	Retriable      bool          `json:"retriable"`
}

// Tracker is the persistent citation_key → FailureRecord mapping. It
// exclusively owns its JSON file; every mutation writes via temp-then-rename.
type Tracker struct {
	path     string
	failures map[string]FailureRecord
	log      zerolog.Logger
}

// trackerFile is the on-disk schema.
type trackerFile struct {
	Version  string                   `json:"version"`
	Updated  string                   `json:"updated"`
	Failures map[string]FailureRecord `json:"failures"`
}

// Load reads the tracker file at path. Missing or corrupt files yield an
// empty tracker.
func Load(path string, log zerolog.Logger) *Tracker {
	t := &Tracker{path: path, failures: make(map[string]FailureRecord), log: log}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("reading failed-download tracker; starting empty")
		}
		return t
	}

	var file trackerFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Warn().Err(err).Msg("parsing failed-download tracker; starting empty")
		return t
	}
	if file.Failures != nil {
		t.failures = file.Failures
	}
	return t
}

// SaveFailed records a failure for a citation key, overwriting any earlier
// record.
func (t *Tracker) SaveFailed(citationKey string, reason FailureReason, message string, attemptedURLs []string, title, source string) error {
	if attemptedURLs == nil {
		attemptedURLs = []string{}
	}
	t.failures[citationKey] = FailureRecord{
		Title:          title,
		FailureReason:  reason,
		FailureMessage: message,
		AttemptedURLs:  attemptedURLs,
		Source:         source,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Retriable:      reason.Retriable(),
	}
	return t.save()
}

// LoadFailed returns a copy of all failure records.
func (t *Tracker) LoadFailed() map[string]FailureRecord {
	out := make(map[string]FailureRecord, len(t.failures))
	for k, v := range t.failures {
		out[k] = v
	}
	return out
}

// RetriableFailed returns only records marked retriable.
func (t *Tracker) RetriableFailed() map[string]FailureRecord {
	out := make(map[string]FailureRecord)
	for k, v := range t.failures {
		if v.Retriable {
			out[k] = v
		}
	}
	return out
}

// ClearFailed removes the given keys, or every record when keys is empty.
func (t *Tracker) ClearFailed(keys ...string) error {
	if len(keys) == 0 {
		t.failures = make(map[string]FailureRecord)
		return t.save()
	}
	for _, k := range keys {
		delete(t.failures, k)
	}
	return t.save()
}

// RemoveSuccessful deletes the record for a key after a successful
// download. Idempotent: absent keys are a no-op without a write.
func (t *Tracker) RemoveSuccessful(citationKey string) error {
	if _, ok := t.failures[citationKey]; !ok {
		return nil
	}
	delete(t.failures, citationKey)
	return t.save()
}

// IsFailed reports whether a key has a failure record.
func (t *Tracker) IsFailed(citationKey string) bool {
	_, ok := t.failures[citationKey]
	return ok
}

// HasFailures reports whether any record exists.
func (t *Tracker) HasFailures() bool { return len(t.failures) > 0 }

// CountFailures returns the number of records.
func (t *Tracker) CountFailures() int { return len(t.failures) }

// CountRetriable returns the number of retriable records.
func (t *Tracker) CountRetriable() int {
	n := 0
	for _, v := range t.failures {
		if v.Retriable {
			n++
		}
	}
	return n
}

// save writes the tracker file atomically.
func (t *Tracker) save() error {
	file := trackerFile{
		Version:  SchemaVersion,
		Updated:  time.Now().UTC().Format(time.RFC3339),
		Failures: t.failures,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tracker: %w", err)
	}
	if err := fsutil.WriteFileAtomic(t.path, data, 0644); err != nil {
		return fmt.Errorf("writing tracker: %w", err)
	}
	return nil
}
