// Package analysis implements the meta-analysis engine: TF-IDF feature
// extraction, PCA with interpretable loadings, K-means clustering, and
// the chart and report artifacts derived from them.
package analysis

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/mat"
)

// VectorizerOptions tunes TF-IDF extraction. Zero values select the
// standard configuration.
type VectorizerOptions struct {
	MaxFeatures int     // default 1000
	MinDF       int     // minimum document count, default 2
	MaxDF       float64 // maximum document proportion, default 0.95
	MaxNGram    int     // n-gram upper bound, default 2 (unigrams + bigrams)
}

func (o VectorizerOptions) withDefaults() VectorizerOptions {
	if o.MaxFeatures == 0 {
		o.MaxFeatures = 1000
	}
	if o.MinDF == 0 {
		o.MinDF = 2
	}
	if o.MaxDF == 0 {
		o.MaxDF = 0.95
	}
	if o.MaxNGram == 0 {
		o.MaxNGram = 2
	}
	return o
}

// TFIDFResult is the vectorized corpus: row per document, column per
// feature, with feature names aligned to columns in lexicographic order.
type TFIDFResult struct {
	Matrix       *mat.Dense
	FeatureNames []string
}

// NFeatures returns the feature count.
func (r *TFIDFResult) NFeatures() int { return len(r.FeatureNames) }

// Vectorize computes l2-normalized TF-IDF over the documents with
// smoothed IDF: idf(t) = ln((1+n)/(1+df(t))) + 1. Terms are unigrams
// and bigrams of lowercase tokens with English stop words removed;
// terms outside [MinDF, MaxDF·n] are pruned, and when more than
// MaxFeatures remain the most frequent are kept (ties lexicographic).
func Vectorize(documents []string, opts VectorizerOptions) *TFIDFResult {
	opts = opts.withDefaults()
	n := len(documents)
	if n == 0 {
		return &TFIDFResult{Matrix: &mat.Dense{}}
	}

	termCounts := make([]map[string]int, n)
	docFreq := make(map[string]int)
	totalFreq := make(map[string]int)
	for i, doc := range documents {
		counts := make(map[string]int)
		for _, term := range ngrams(tokenize(doc), opts.MaxNGram) {
			counts[term]++
			totalFreq[term]++
		}
		termCounts[i] = counts
		for term := range counts {
			docFreq[term]++
		}
	}

	maxDocs := int(opts.MaxDF * float64(n))
	var features []string
	for term, df := range docFreq {
		if df < opts.MinDF || df > maxDocs {
			continue
		}
		features = append(features, term)
	}

	if len(features) > opts.MaxFeatures {
		sort.Slice(features, func(i, j int) bool {
			if totalFreq[features[i]] != totalFreq[features[j]] {
				return totalFreq[features[i]] > totalFreq[features[j]]
			}
			return features[i] < features[j]
		})
		features = features[:opts.MaxFeatures]
	}
	sort.Strings(features)

	if len(features) == 0 {
		return &TFIDFResult{Matrix: &mat.Dense{}}
	}

	matrix := mat.NewDense(n, len(features), nil)
	for i := range documents {
		var norm float64
		row := make([]float64, len(features))
		for j, term := range features {
			tf := float64(termCounts[i][term])
			if tf == 0 {
				continue
			}
			idf := math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
			row[j] = tf * idf
			norm += row[j] * row[j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range row {
				row[j] /= norm
			}
		}
		matrix.SetRow(i, row)
	}
	return &TFIDFResult{Matrix: matrix, FeatureNames: features}
}

// tokenize lowercases and splits into alphanumeric tokens of at least
// two characters, dropping stop words.
func tokenize(text string) []string {
	raw := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := raw[:0]
	for _, tok := range raw {
		if len(tok) >= 2 && !englishStopWords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// ngrams expands tokens into all n-grams from 1 up to maxN, joined by
// single spaces.
func ngrams(tokens []string, maxN int) []string {
	var terms []string
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}
