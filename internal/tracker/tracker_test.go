package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testTracker(t *testing.T) *Tracker {
	t.Helper()
	return Load(filepath.Join(t.TempDir(), "data", "failed_downloads.json"), zerolog.Nop())
}

func TestRetriableClassification(t *testing.T) {
	tests := []struct {
		reason    FailureReason
		retriable bool
	}{
		{ReasonNetworkError, true},
		{ReasonTimeout, true},
		{ReasonNoPDFURL, false},
		{ReasonHTTP4xx, false},
		{ReasonHTTP5xx, false},
		{ReasonParseError, false},
		{ReasonUnknown, false},
	}

	for _, tt := range tests {
		if got := tt.reason.Retriable(); got != tt.retriable {
			t.Errorf("%s.Retriable() = %v, want %v", tt.reason, got, tt.retriable)
		}
	}
}

func TestSaveAndLoadFailed(t *testing.T) {
	tr := testTracker(t)

	err := tr.SaveFailed("smith2020a", ReasonNetworkError, "connection refused",
		[]string{"https://example.org/a.pdf"}, "A", "arxiv")
	if err != nil {
		t.Fatal(err)
	}

	failed := tr.LoadFailed()
	rec, ok := failed["smith2020a"]
	if !ok {
		t.Fatal("record missing")
	}
	if !rec.Retriable {
		t.Error("network_error record should be retriable")
	}
	if rec.Timestamp == "" {
		t.Error("timestamp not set")
	}
	if len(rec.AttemptedURLs) != 1 {
		t.Errorf("attempted_urls = %v", rec.AttemptedURLs)
	}
}

func TestRetriableFailed(t *testing.T) {
	tr := testTracker(t)
	tr.SaveFailed("a", ReasonTimeout, "", nil, "", "arxiv")
	tr.SaveFailed("b", ReasonHTTP4xx, "", nil, "", "arxiv")
	tr.SaveFailed("c", ReasonNetworkError, "", nil, "", "pubmed")

	retriable := tr.RetriableFailed()
	if len(retriable) != 2 {
		t.Errorf("retriable count = %d, want 2", len(retriable))
	}
	if _, ok := retriable["b"]; ok {
		t.Error("http_4xx record returned as retriable")
	}
	if tr.CountRetriable() != 2 || tr.CountFailures() != 3 {
		t.Errorf("counts = %d/%d", tr.CountRetriable(), tr.CountFailures())
	}
}

func TestRemoveSuccessfulIdempotent(t *testing.T) {
	tr := testTracker(t)
	tr.SaveFailed("a", ReasonTimeout, "", nil, "", "arxiv")

	if err := tr.RemoveSuccessful("a"); err != nil {
		t.Fatal(err)
	}
	if tr.IsFailed("a") {
		t.Error("record survived RemoveSuccessful")
	}
	// Second call is equivalent to one.
	if err := tr.RemoveSuccessful("a"); err != nil {
		t.Fatal(err)
	}
	if tr.HasFailures() {
		t.Error("tracker not empty")
	}
}

func TestClearFailed(t *testing.T) {
	tr := testTracker(t)
	tr.SaveFailed("a", ReasonTimeout, "", nil, "", "arxiv")
	tr.SaveFailed("b", ReasonTimeout, "", nil, "", "arxiv")
	tr.SaveFailed("c", ReasonTimeout, "", nil, "", "arxiv")

	if err := tr.ClearFailed("a", "b"); err != nil {
		t.Fatal(err)
	}
	if tr.CountFailures() != 1 || !tr.IsFailed("c") {
		t.Errorf("selective clear wrong: %v", tr.LoadFailed())
	}

	if err := tr.ClearFailed(); err != nil {
		t.Fatal(err)
	}
	if tr.HasFailures() {
		t.Error("full clear left records")
	}
}

func TestPersistenceAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.json")

	tr := Load(path, zerolog.Nop())
	tr.SaveFailed("a", ReasonNetworkError, "refused", []string{"u1", "u2"}, "A", "arxiv")

	reloaded := Load(path, zerolog.Nop())
	rec, ok := reloaded.LoadFailed()["a"]
	if !ok {
		t.Fatal("record lost across load")
	}
	if rec.FailureReason != ReasonNetworkError || !rec.Retriable {
		t.Errorf("record corrupted: %+v", rec)
	}
	if len(rec.AttemptedURLs) != 2 || rec.AttemptedURLs[0] != "u1" {
		t.Errorf("url order lost: %v", rec.AttemptedURLs)
	}
}

func TestFileIsValidJSONAfterMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.json")
	tr := Load(path, zerolog.Nop())
	tr.SaveFailed("a", ReasonTimeout, "", nil, "", "arxiv")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var file map[string]interface{}
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("tracker file not valid JSON: %v", err)
	}
	if file["version"] != "1.0" {
		t.Errorf("version = %v", file["version"])
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.json")
	os.WriteFile(path, []byte("{oops"), 0644)

	tr := Load(path, zerolog.Nop())
	if tr.HasFailures() {
		t.Error("corrupt file produced records")
	}
}
