package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/metalit/metalit/internal/aggregate"
	"github.com/metalit/metalit/internal/fsutil"
)

// CitationStats summarizes the citation-count distribution.
type CitationStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Max    int     `json:"max"`
}

func citationStats(counts []int) CitationStats {
	stats := CitationStats{Count: len(counts)}
	if len(counts) == 0 {
		return stats
	}
	floats := make([]float64, len(counts))
	for i, c := range counts {
		floats[i] = float64(c)
		if c > stats.Max {
			stats.Max = c
		}
	}
	sort.Float64s(floats)
	mean, std := stat.MeanStdDev(floats, nil)
	stats.Mean = mean
	if len(counts) > 1 {
		stats.StdDev = std
	}
	stats.Median = stat.Quantile(0.5, stat.Empirical, floats, nil)
	return stats
}

// summaryReport is the aggregated JSON artifact.
type summaryReport struct {
	TotalPapers   int                    `json:"total_papers"`
	Quality       aggregate.DataQuality  `json:"data_quality"`
	YearRange     [2]int                 `json:"year_range"`
	PapersByYear  map[string]int         `json:"papers_by_year"`
	TopKeywords   []rankedCount          `json:"top_keywords"`
	TopVenues     []rankedCount          `json:"top_venues"`
	TopAuthors    []rankedCount          `json:"top_authors"`
	CitationStats CitationStats          `json:"citation_stats"`
	PCA           *loadingsReport        `json:"pca,omitempty"`
	Clusters      map[string]int         `json:"cluster_sizes,omitempty"`
	Artifacts     map[string]string      `json:"artifacts"`
	Skipped       map[string]string      `json:"skipped"`
}

func buildSummary(inputs summaryInputs) summaryReport {
	report := summaryReport{
		TotalPapers:   inputs.quality.Total,
		Quality:       inputs.quality,
		YearRange:     [2]int{inputs.temporal.MinYear, inputs.temporal.MaxYear},
		PapersByYear:  make(map[string]int),
		TopKeywords:   rankCounts(inputs.keywords.KeywordCounts, 10),
		TopVenues:     rankCounts(inputs.metadata.Venues, 10),
		TopAuthors:    rankCounts(inputs.metadata.Authors, 10),
		CitationStats: citationStats(inputs.metadata.CitationCounts),
		Artifacts:     copyMap(inputs.artifacts),
		Skipped:       copyMap(inputs.skipped),
	}
	for i, year := range inputs.temporal.Years {
		report.PapersByYear[fmt.Sprintf("%d", year)] = inputs.temporal.Counts[i]
	}
	if inputs.pca != nil {
		pcaReport := loadingsReport{
			NComponents: inputs.pca.NComponents,
			NFeatures:   len(inputs.featureNames),
		}
		for k := 0; k < inputs.pca.NComponents; k++ {
			pcaReport.Components = append(pcaReport.Components, componentReport{
				Component:              k + 1,
				ExplainedVarianceRatio: inputs.pca.ExplainedVarianceRatio[k],
				TopWords:               inputs.pca.TopWords(inputs.featureNames, k, 5),
			})
		}
		report.PCA = &pcaReport
	}
	if len(inputs.clusterLabels) > 0 {
		report.Clusters = make(map[string]int)
		for _, label := range inputs.clusterLabels {
			report.Clusters[fmt.Sprintf("cluster_%d", label)]++
		}
	}
	return report
}

type summaryInputs struct {
	quality       aggregate.DataQuality
	temporal      aggregate.TemporalData
	keywords      aggregate.KeywordData
	metadata      aggregate.MetadataData
	pca           *PCAResult
	featureNames  []string
	clusterLabels []int
	artifacts     map[string]string
	skipped       map[string]string
}

// writeSummaryJSON writes the aggregated summary artifact.
func writeSummaryJSON(report summaryReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}

// writeExecutiveSummary writes the Markdown executive summary with the
// year, keyword, venue, author, citation, and availability tables.
func writeExecutiveSummary(report summaryReport, path string) error {
	var b strings.Builder
	b.WriteString("# Meta-Analysis Executive Summary\n\n")
	fmt.Fprintf(&b, "Papers analyzed: **%d**", report.TotalPapers)
	if report.YearRange[0] != 0 {
		fmt.Fprintf(&b, " (%d–%d)", report.YearRange[0], report.YearRange[1])
	}
	b.WriteString("\n\n")

	if len(report.PapersByYear) > 0 {
		b.WriteString("## Publications by Year\n\n| Year | Papers |\n|---|---|\n")
		years := make([]string, 0, len(report.PapersByYear))
		for year := range report.PapersByYear {
			years = append(years, year)
		}
		sort.Strings(years)
		for _, year := range years {
			fmt.Fprintf(&b, "| %s | %d |\n", year, report.PapersByYear[year])
		}
		b.WriteString("\n")
	}

	writeCountTable(&b, "Top Keywords", "Keyword", report.TopKeywords)
	writeCountTable(&b, "Top Venues", "Venue", report.TopVenues)
	writeCountTable(&b, "Top Authors", "Author", report.TopAuthors)

	if report.CitationStats.Count > 0 {
		b.WriteString("## Citation Statistics\n\n")
		fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n| Papers with counts | %d |\n| Mean | %.1f |\n| Median | %.1f |\n| Std dev | %.1f |\n| Max | %d |\n\n",
			report.CitationStats.Count, report.CitationStats.Mean,
			report.CitationStats.Median, report.CitationStats.StdDev,
			report.CitationStats.Max)
	}

	b.WriteString("## Data Availability\n\n| Field | Coverage |\n|---|---|\n")
	fmt.Fprintf(&b, "| Year | %.0f%% |\n", report.Quality.YearCoverage)
	fmt.Fprintf(&b, "| Authors | %.0f%% |\n", report.Quality.AuthorCoverage)
	fmt.Fprintf(&b, "| Abstract | %.0f%% |\n", report.Quality.AbstractCoverage)
	fmt.Fprintf(&b, "| DOI | %.0f%% |\n", report.Quality.DOICoverage)
	fmt.Fprintf(&b, "| PDF | %.0f%% |\n", report.Quality.PDFCoverage)
	fmt.Fprintf(&b, "| Extracted text | %.0f%% |\n\n", report.Quality.ExtractedTextCoverage)

	if report.PCA != nil {
		b.WriteString("## Thematic Structure (PCA)\n\n")
		for _, comp := range report.PCA.Components {
			words := make([]string, 0, len(comp.TopWords))
			for _, wl := range comp.TopWords {
				words = append(words, wl.Word)
			}
			fmt.Fprintf(&b, "- **Component %d** (%.1f%% variance): %s\n",
				comp.Component, 100*comp.ExplainedVarianceRatio, strings.Join(words, ", "))
		}
		b.WriteString("\n")
	}

	if len(report.Skipped) > 0 {
		b.WriteString("## Skipped Analyses\n\n")
		names := make([]string, 0, len(report.Skipped))
		for name := range report.Skipped {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %s\n", name, report.Skipped[name])
		}
		b.WriteString("\n")
	}
	return fsutil.WriteFileAtomic(path, []byte(b.String()), 0o644)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func writeCountTable(b *strings.Builder, title, column string, ranked []rankedCount) {
	if len(ranked) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n| %s | Count |\n|---|---|\n", title, column)
	for _, rc := range ranked {
		fmt.Fprintf(b, "| %s | %d |\n", rc.Name, rc.Count)
	}
	b.WriteString("\n")
}
