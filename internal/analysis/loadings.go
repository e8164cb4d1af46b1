package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/metalit/metalit/internal/fsutil"
)

// topWordsPerComponent is the default N for loadings reports.
const topWordsPerComponent = 20

// writeLoadingsCSV writes the full (n_features, k) loadings matrix with
// six decimal digits, one feature per row.
func writeLoadingsCSV(pca *PCAResult, featureNames []string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	header := make([]string, 1+pca.NComponents)
	header[0] = "feature"
	for k := 0; k < pca.NComponents; k++ {
		header[k+1] = fmt.Sprintf("PC%d", k+1)
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	for j, name := range featureNames {
		record := make([]string, 1+pca.NComponents)
		record[0] = name
		for k := 0; k < pca.NComponents; k++ {
			record[k+1] = strconv.FormatFloat(pca.Components.At(k, j), 'f', 6, 64)
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// componentReport is one component's entry in the loadings JSON.
type componentReport struct {
	Component              int           `json:"component"`
	ExplainedVarianceRatio float64       `json:"explained_variance_ratio"`
	TopWords               []WordLoading `json:"top_words"`
}

type loadingsReport struct {
	NComponents int               `json:"n_components"`
	NFeatures   int               `json:"n_features"`
	Components  []componentReport `json:"components"`
}

// writeLoadingsJSON writes per-component top words plus shape metadata.
func writeLoadingsJSON(pca *PCAResult, featureNames []string, path string) error {
	report := loadingsReport{
		NComponents: pca.NComponents,
		NFeatures:   len(featureNames),
	}
	for k := 0; k < pca.NComponents; k++ {
		report.Components = append(report.Components, componentReport{
			Component:              k + 1,
			ExplainedVarianceRatio: pca.ExplainedVarianceRatio[k],
			TopWords:               pca.TopWords(featureNames, k, topWordsPerComponent),
		})
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}

// writeLoadingsMarkdown writes a narrative loadings summary.
func writeLoadingsMarkdown(pca *PCAResult, featureNames []string, path string) error {
	var b strings.Builder
	b.WriteString("# PCA Loadings Interpretation\n\n")
	fmt.Fprintf(&b, "The analysis extracted %d components over %d text features.\n\n",
		pca.NComponents, len(featureNames))

	for k := 0; k < pca.NComponents; k++ {
		fmt.Fprintf(&b, "## Component %d (%.1f%% of variance)\n\n",
			k+1, 100*pca.ExplainedVarianceRatio[k])
		b.WriteString("| Word | Loading |\n|---|---|\n")
		for _, wl := range pca.TopWords(featureNames, k, 10) {
			fmt.Fprintf(&b, "| %s | %.4f |\n", wl.Word, wl.Loading)
		}
		var positive, negative []string
		for _, wl := range pca.TopWords(featureNames, k, 10) {
			if wl.Loading >= 0 {
				positive = append(positive, wl.Word)
			} else {
				negative = append(negative, wl.Word)
			}
		}
		b.WriteString("\n")
		if len(positive) > 0 {
			fmt.Fprintf(&b, "Positive pole: %s.\n", strings.Join(positive, ", "))
		}
		if len(negative) > 0 {
			fmt.Fprintf(&b, "Negative pole: %s.\n", strings.Join(negative, ", "))
		}
		b.WriteString("\n")
	}
	return fsutil.WriteFileAtomic(path, []byte(b.String()), 0o644)
}

// writeWordImportanceCSV ranks every feature by the sum of absolute
// loadings across components, ties broken lexicographically.
func writeWordImportanceCSV(pca *PCAResult, featureNames []string, path string) error {
	type scored struct {
		word  string
		score float64
	}
	scores := make([]scored, len(featureNames))
	for j, name := range featureNames {
		var sum float64
		for k := 0; k < pca.NComponents; k++ {
			sum += math.Abs(pca.Components.At(k, j))
		}
		scores[j] = scored{word: name, score: sum}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].word < scores[j].word
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"rank", "word", "importance"}); err != nil {
		f.Close()
		return err
	}
	for i, s := range scores {
		err := w.Write([]string{
			strconv.Itoa(i + 1),
			s.word,
			strconv.FormatFloat(s.score, 'f', 6, 64),
		})
		if err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
