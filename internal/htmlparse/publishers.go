package htmlparse

import (
	"fmt"
	"regexp"
)

// Elsevier PII forms: pii="...", /science/article/pii/X, data-pii="X",
// "pii":"X".
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpii\s*=\s*["']([A-Z0-9]+)["']`),
	regexp.MustCompile(`(?i)/science/article/pii/([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)data-pii\s*=\s*["']([A-Z0-9]+)["']`),
	regexp.MustCompile(`(?i)"pii"\s*:\s*"([A-Z0-9]+)"`),
}

// ElsevierParser handles ScienceDirect / Elsevier pages. It synthesizes
// direct pdfft download URLs from the article PII.
type ElsevierParser struct{}

func (p *ElsevierParser) Name() string  { return "elsevier" }
func (p *ElsevierParser) Priority() int { return 100 }

func (p *ElsevierParser) DetectPublisher(pageURL string) bool {
	return hostMatches(pageURL, "sciencedirect.com", "elsevier.com", "linkinghub.elsevier.com")
}

func (p *ElsevierParser) ExtractPDFURLs(html []byte, baseURL string) []string {
	text := decodeHTML(html)
	var urls []string

	seen := make(map[string]bool)
	for _, pattern := range piiPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			pii := m[1]
			if seen[pii] {
				continue
			}
			seen[pii] = true
			urls = append(urls, fmt.Sprintf(
				"https://www.sciencedirect.com/science/article/pii/%s/pdfft?isDTMRedir=true&download=true", pii))
		}
	}

	// Direct sciencedirect/elsevier PDF links already on the page.
	for _, u := range hrefPDFURLs(text, baseURL) {
		if hostMatches(u, "sciencedirect.com", "elsevier.com") {
			urls = append(urls, u)
		}
	}

	// Download attributes Elsevier templates emit.
	for _, attr := range []string{"data-download-url", "downloadUrl"} {
		for _, v := range extractAttr(html, attr) {
			urls = append(urls, resolveURL(baseURL, v))
		}
	}

	// Generic PDF anchors as a last resort.
	urls = append(urls, hrefPDFURLs(text, baseURL)...)

	return filterURLs(urls)
}

// springerIDPatterns capture article IDs and DOIs on SpringerLink pages.
var springerIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/article/(?:10\.\d{4,9}/)?([A-Za-z0-9.\-]+?)(?:[/"'?#]|$)`),
	regexp.MustCompile(`(?i)"doi"\s*:\s*"10\.\d{4,9}/([^"]+)"`),
}

// SpringerParser handles SpringerLink pages, synthesizing the three
// candidate PDF URL shapes Springer serves.
type SpringerParser struct{}

func (p *SpringerParser) Name() string  { return "springer" }
func (p *SpringerParser) Priority() int { return 90 }

func (p *SpringerParser) DetectPublisher(pageURL string) bool {
	return hostMatches(pageURL, "springer.com", "springerlink.com")
}

func (p *SpringerParser) ExtractPDFURLs(html []byte, baseURL string) []string {
	text := decodeHTML(html)
	var urls []string

	seen := make(map[string]bool)
	for _, pattern := range springerIDPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			id := m[1]
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			urls = append(urls,
				fmt.Sprintf("https://link.springer.com/content/pdf/10.1007/%s.pdf", id),
				fmt.Sprintf("https://link.springer.com/content/pdf/%s.pdf", id),
				fmt.Sprintf("https://link.springer.com/article/%s/pdf", id),
			)
		}
	}

	urls = append(urls, baseStrategies(text, baseURL)...)
	return filterURLs(urls)
}

// arnumberPattern captures IEEE article numbers.
var arnumberPattern = regexp.MustCompile(`(?i)arnumber["']?\s*[=:]\s*["']?(\d+)`)

// IEEEParser handles IEEE Xplore pages, synthesizing both stamp endpoints
// from the article number.
type IEEEParser struct{}

func (p *IEEEParser) Name() string  { return "ieee" }
func (p *IEEEParser) Priority() int { return 85 }

func (p *IEEEParser) DetectPublisher(pageURL string) bool {
	return hostMatches(pageURL, "ieee.org", "ieeexplore.ieee.org", "ieeexploreapi.ieee.org")
}

func (p *IEEEParser) ExtractPDFURLs(html []byte, baseURL string) []string {
	text := decodeHTML(html)
	var urls []string

	seen := make(map[string]bool)
	for _, m := range arnumberPattern.FindAllStringSubmatch(text, -1) {
		arnumber := m[1]
		if seen[arnumber] {
			continue
		}
		seen[arnumber] = true
		urls = append(urls,
			fmt.Sprintf("https://ieeexplore.ieee.org/stampPDF/getPDF.jsp?arnumber=%s", arnumber),
			fmt.Sprintf("https://ieeexplore.ieee.org/stamp/stamp.jsp?tp=&arnumber=%s", arnumber),
		)
	}

	urls = append(urls, baseStrategies(text, baseURL)...)
	return filterURLs(urls)
}

// ACM DOI suffixes (10.1145/...) and numeric article IDs.
var (
	acmDOIPattern = regexp.MustCompile(`(?i)10\.1145/([0-9.]+)`)
	acmIDPattern  = regexp.MustCompile(`(?i)/doi/(?:abs/|full/)?(\d{6,})`)
)

// ACMParser handles ACM Digital Library pages.
type ACMParser struct{}

func (p *ACMParser) Name() string  { return "acm" }
func (p *ACMParser) Priority() int { return 80 }

func (p *ACMParser) DetectPublisher(pageURL string) bool {
	return hostMatches(pageURL, "acm.org", "dl.acm.org", "portal.acm.org")
}

func (p *ACMParser) ExtractPDFURLs(html []byte, baseURL string) []string {
	text := decodeHTML(html)
	var urls []string

	seen := make(map[string]bool)
	for _, m := range acmDOIPattern.FindAllStringSubmatch(text, -1) {
		suffix := m[1]
		if seen[suffix] {
			continue
		}
		seen[suffix] = true
		urls = append(urls, fmt.Sprintf("https://dl.acm.org/doi/pdf/10.1145/%s", suffix))
	}
	for _, m := range acmIDPattern.FindAllStringSubmatch(text, -1) {
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		urls = append(urls, fmt.Sprintf("https://dl.acm.org/doi/pdf/%s", id))
	}

	urls = append(urls, baseStrategies(text, baseURL)...)
	return filterURLs(urls)
}

// wileyDOIPattern captures Wiley DOIs on Online Library pages.
var wileyDOIPattern = regexp.MustCompile(`(?i)/doi/(?:abs/|full/|pdf/)?(10\.\d{4,9}/[^"'?#\s]+)`)

// WileyParser handles Wiley Online Library pages, synthesizing pdfdirect
// URLs.
type WileyParser struct{}

func (p *WileyParser) Name() string  { return "wiley" }
func (p *WileyParser) Priority() int { return 75 }

func (p *WileyParser) DetectPublisher(pageURL string) bool {
	return hostMatches(pageURL, "wiley.com", "onlinelibrary.wiley.com", "wileyonlinelibrary.com")
}

func (p *WileyParser) ExtractPDFURLs(html []byte, baseURL string) []string {
	text := decodeHTML(html)
	var urls []string

	seen := make(map[string]bool)
	for _, m := range wileyDOIPattern.FindAllStringSubmatch(text, -1) {
		doi := m[1]
		if seen[doi] {
			continue
		}
		seen[doi] = true
		urls = append(urls, fmt.Sprintf("https://onlinelibrary.wiley.com/doi/pdfdirect/%s", doi))
	}

	urls = append(urls, baseStrategies(text, baseURL)...)
	return filterURLs(urls)
}

// GenericParser is the fallback for unrecognized hosts. It runs the union
// of the shared base strategies and always matches, so registry selection
// is total.
type GenericParser struct{}

func (p *GenericParser) Name() string  { return "generic" }
func (p *GenericParser) Priority() int { return 0 }

func (p *GenericParser) DetectPublisher(string) bool { return true }

func (p *GenericParser) ExtractPDFURLs(html []byte, baseURL string) []string {
	return filterURLs(baseStrategies(decodeHTML(html), baseURL))
}
