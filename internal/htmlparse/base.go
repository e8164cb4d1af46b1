package htmlparse

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Loose and direct patterns for PDF hrefs in raw HTML.
var (
	directPDFPattern = regexp.MustCompile(`(?i)href=["']([^"']+\.pdf(?:\?[^"']*)?)["']`)
	loosePDFPattern  = regexp.MustCompile(`(?i)["'](https?://[^"']*\.pdf[^"']*)["']`)

	// Common JavaScript variables publishers stash PDF URLs in.
	jsVarPattern = regexp.MustCompile(`(?i)(?:pdfUrl|downloadUrl|pdfLink|"pdf")\s*[:=]\s*["']([^"']+)["']`)
)

// pdfMetaNames are <meta> names whose content points at a PDF.
var pdfMetaNames = []string{"citation_pdf_url", "fulltext_pdf", "pdf_url"}

// decodeHTML decodes bytes as UTF-8, falling back to Latin-1, then to the
// empty string.
func decodeHTML(html []byte) string {
	if len(html) == 0 {
		return ""
	}
	if utf8.Valid(html) {
		return string(html)
	}
	// Latin-1: every byte maps directly to the same code point.
	var b strings.Builder
	b.Grow(len(html))
	for _, c := range html {
		b.WriteRune(rune(c))
	}
	return b.String()
}

// parseDoc parses HTML into a goquery document; nil on failure.
func parseDoc(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return doc
}

// hrefPDFURLs finds anchor hrefs that look like PDFs, both via the DOM and
// via the loose raw-text patterns, resolved against baseURL.
func hrefPDFURLs(html, baseURL string) []string {
	var urls []string

	if doc := parseDoc(html); doc != nil {
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if strings.Contains(strings.ToLower(href), ".pdf") {
				urls = append(urls, resolveURL(baseURL, href))
			}
		})
	}

	for _, m := range directPDFPattern.FindAllStringSubmatch(html, -1) {
		urls = append(urls, resolveURL(baseURL, htmlUnescape(m[1])))
	}
	for _, m := range loosePDFPattern.FindAllStringSubmatch(html, -1) {
		urls = append(urls, htmlUnescape(m[1]))
	}

	return urls
}

// metaPDFURLs reads PDF URLs from <meta> tags.
func metaPDFURLs(html, baseURL string) []string {
	doc := parseDoc(html)
	if doc == nil {
		return nil
	}

	var urls []string
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		if name == "" {
			name, _ = sel.Attr("property")
		}
		name = strings.ToLower(name)
		for _, want := range pdfMetaNames {
			if name == want {
				if content, ok := sel.Attr("content"); ok {
					urls = append(urls, resolveURL(baseURL, content))
				}
			}
		}
	})
	return urls
}

// jsVarPDFURLs scans inline JavaScript for PDF URL assignments.
func jsVarPDFURLs(html, baseURL string) []string {
	var urls []string
	for _, m := range jsVarPattern.FindAllStringSubmatch(html, -1) {
		candidate := htmlUnescape(m[1])
		if strings.Contains(strings.ToLower(candidate), "pdf") {
			urls = append(urls, resolveURL(baseURL, candidate))
		}
	}
	return urls
}

// baseStrategies is the union every parser shares: hrefs, meta tags, JS
// variables, and link-text heuristics.
func baseStrategies(html, baseURL string) []string {
	var urls []string
	urls = append(urls, hrefPDFURLs(html, baseURL)...)
	urls = append(urls, metaPDFURLs(html, baseURL)...)
	urls = append(urls, jsVarPDFURLs(html, baseURL)...)
	urls = append(urls, linkTextPDFURLs(html, baseURL)...)
	return urls
}

// linkTextPDFURLs finds anchors whose visible text suggests a PDF download.
func linkTextPDFURLs(html, baseURL string) []string {
	doc := parseDoc(html)
	if doc == nil {
		return nil
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if strings.Contains(text, "download pdf") || strings.Contains(text, "full text pdf") || text == "pdf" {
			if href, ok := sel.Attr("href"); ok {
				urls = append(urls, resolveURL(baseURL, href))
			}
		}
	})
	return urls
}

// htmlUnescape handles the entities that show up inside URL attributes.
func htmlUnescape(s string) string {
	replacer := strings.NewReplacer("&amp;", "&", "&#38;", "&", "&quot;", `"`, "&#34;", `"`)
	return replacer.Replace(s)
}

// extractAttr pulls attr="value" occurrences out of raw HTML for attributes
// goquery may not surface (publisher data-* attributes).
func extractAttr(html []byte, attr string) []string {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(attr) + `\s*=\s*["']([^"']+)["']`)
	var out []string
	for _, m := range pattern.FindAllSubmatch(html, -1) {
		out = append(out, string(bytes.TrimSpace(m[1])))
	}
	return out
}
