package htmlparse

import (
	"strings"
	"testing"
)

func TestRegistrySelection(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.sciencedirect.com/science/article/pii/S0001", "elsevier"},
		{"https://linkinghub.elsevier.com/retrieve/pii/S0001", "elsevier"},
		{"https://link.springer.com/article/10.1007/s00001", "springer"},
		{"https://ieeexplore.ieee.org/document/123456", "ieee"},
		{"https://dl.acm.org/doi/10.1145/123456", "acm"},
		{"https://onlinelibrary.wiley.com/doi/10.1002/abc", "wiley"},
		{"https://example.org/paper", "generic"},
		{"not a url at all", "generic"},
	}

	for _, tt := range tests {
		if got := r.Select(tt.url).Name(); got != tt.want {
			t.Errorf("Select(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestRegistryPriorityOrder(t *testing.T) {
	r := NewRegistry()
	prev := 1 << 30
	for _, p := range r.parsers {
		if p.Priority() > prev {
			t.Errorf("parser %s out of priority order", p.Name())
		}
		prev = p.Priority()
	}
	if r.parsers[len(r.parsers)-1].Name() != "generic" {
		t.Error("generic parser must sort last")
	}
}

func TestElsevierPIISynthesis(t *testing.T) {
	html := []byte(`<html><body>
		<div data-pii="S0012345678901234"></div>
		<script>var article = {"pii":"S0098765432109876"};</script>
	</body></html>`)

	urls := (&ElsevierParser{}).ExtractPDFURLs(html, "https://www.sciencedirect.com/science/article/pii/S0012345678901234")

	want := "https://www.sciencedirect.com/science/article/pii/S0012345678901234/pdfft?isDTMRedir=true&download=true"
	if len(urls) == 0 || !contains(urls, want) {
		t.Errorf("PII pdfft URL missing from %v", urls)
	}
	if !contains(urls, "https://www.sciencedirect.com/science/article/pii/S0098765432109876/pdfft?isDTMRedir=true&download=true") {
		t.Errorf("json PII form missed: %v", urls)
	}
}

func TestSpringerCandidateShapes(t *testing.T) {
	html := []byte(`<html><body><a href="/article/10.1007/s11276-023-03295-8">Paper</a></body></html>`)
	urls := (&SpringerParser{}).ExtractPDFURLs(html, "https://link.springer.com/article/10.1007/s11276-023-03295-8")

	if !contains(urls, "https://link.springer.com/content/pdf/10.1007/s11276-023-03295-8.pdf") {
		t.Errorf("content/pdf/10.1007 shape missing: %v", urls)
	}
}

func TestIEEEStampSynthesis(t *testing.T) {
	html := []byte(`<html><script>global.document.metadata={"arnumber":9845123};</script><a href="?arnumber=9845123">x</a></html>`)
	urls := (&IEEEParser{}).ExtractPDFURLs(html, "https://ieeexplore.ieee.org/document/9845123")

	if !contains(urls, "https://ieeexplore.ieee.org/stampPDF/getPDF.jsp?arnumber=9845123") {
		t.Errorf("stampPDF URL missing: %v", urls)
	}
	if !contains(urls, "https://ieeexplore.ieee.org/stamp/stamp.jsp?tp=&arnumber=9845123") {
		t.Errorf("stamp.jsp URL missing: %v", urls)
	}
}

func TestACMDOISynthesis(t *testing.T) {
	html := []byte(`<html><a href="/doi/10.1145/3517745.3561459">paper</a></html>`)
	urls := (&ACMParser{}).ExtractPDFURLs(html, "https://dl.acm.org/doi/10.1145/3517745.3561459")

	if !contains(urls, "https://dl.acm.org/doi/pdf/10.1145/3517745.3561459") {
		t.Errorf("ACM pdf URL missing: %v", urls)
	}
}

func TestWileyPDFDirect(t *testing.T) {
	html := []byte(`<html><a href="/doi/abs/10.1002/smj.3322">paper</a></html>`)
	urls := (&WileyParser{}).ExtractPDFURLs(html, "https://onlinelibrary.wiley.com/doi/abs/10.1002/smj.3322")

	if !contains(urls, "https://onlinelibrary.wiley.com/doi/pdfdirect/10.1002/smj.3322") {
		t.Errorf("pdfdirect URL missing: %v", urls)
	}
}

func TestGenericBaseStrategies(t *testing.T) {
	html := []byte(`<html><head>
		<meta name="citation_pdf_url" content="https://example.org/papers/1.pdf">
	</head><body>
		<a href="/files/paper.pdf">Download</a>
		<a href="https://example.org/full.pdf?download=1">Full text PDF</a>
		<script>var pdfUrl = "https://cdn.example.org/2.pdf";</script>
	</body></html>`)

	urls := (&GenericParser{}).ExtractPDFURLs(html, "https://example.org/article/1")

	for _, want := range []string{
		"https://example.org/papers/1.pdf",
		"https://example.org/files/paper.pdf",
		"https://example.org/full.pdf?download=1",
		"https://cdn.example.org/2.pdf",
	} {
		if !contains(urls, want) {
			t.Errorf("missing %s in %v", want, urls)
		}
	}
}

func TestFilterURLs(t *testing.T) {
	in := []string{
		"https://a.example/x.pdf",
		"https://a.example/x.pdf", // dup
		"ftp://a.example/x.pdf",
		"file:///etc/passwd",
		"",
		"javascript:void(0)",
		"http://b.example/y.pdf",
	}
	got := filterURLs(in)

	if len(got) != 2 {
		t.Fatalf("filterURLs = %v", got)
	}
	if got[0] != "https://a.example/x.pdf" || got[1] != "http://b.example/y.pdf" {
		t.Errorf("first-seen order lost: %v", got)
	}
}

func TestDecodeHTMLLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 but invalid as a standalone UTF-8 byte.
	raw := []byte("caf\xe9 <a href=\"/x.pdf\">pdf</a>")
	decoded := decodeHTML(raw)
	if !strings.Contains(decoded, "café") {
		t.Errorf("latin-1 fallback failed: %q", decoded)
	}
	if decodeHTML(nil) != "" {
		t.Error("nil input should decode to empty string")
	}
}

func TestParserErrorsDoNotPropagate(t *testing.T) {
	r := NewRegistry()
	// Garbage input: must never panic, may return nothing.
	urls := r.ExtractPDFURLs([]byte{0xff, 0xfe, 0x00, '<'}, "https://ieeexplore.ieee.org/x")
	_ = urls
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
