package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/aggregate"
	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/library"
)

// Options tunes a meta-analysis run.
type Options struct {
	// NComponents caps the PCA components used for loadings; default 5.
	NComponents int

	// NClusters is the K-means k; default 5, capped at the paper count.
	NClusters int

	// IncludeAbstractKeywords extends keyword extraction to abstracts.
	IncludeAbstractKeywords bool
}

func (o Options) withDefaults() Options {
	if o.NComponents == 0 {
		o.NComponents = 5
	}
	if o.NClusters == 0 {
		o.NClusters = 5
	}
	return o
}

// RunResult lists the produced artifacts and the skipped ones with
// their reasons.
type RunResult struct {
	Artifacts map[string]string `json:"artifacts"`
	Skipped   map[string]string `json:"skipped"`
}

// Engine runs the meta-analysis pipeline over a selected entry set.
// Every artifact is independent: a failing or gated artifact is logged
// and skipped without aborting the run.
type Engine struct {
	cfg config.Config
	agg *aggregate.Aggregator
	log zerolog.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg config.Config, agg *aggregate.Aggregator, log zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, agg: agg, log: log}
}

// Run produces every artifact whose gate passes. The returned error is
// fatal setup failure only; per-artifact failures land in Skipped.
func (e *Engine) Run(entries []*library.Entry, opts Options) (RunResult, error) {
	opts = opts.withDefaults()
	result := RunResult{
		Artifacts: make(map[string]string),
		Skipped:   make(map[string]string),
	}
	if err := os.MkdirAll(e.cfg.OutputPath(), 0o755); err != nil {
		return result, fmt.Errorf("creating output directory: %w", err)
	}
	out := func(name string) string { return filepath.Join(e.cfg.OutputPath(), name) }

	attempt := func(name string, path string, fn func() error) {
		if err := fn(); err != nil {
			e.log.Warn().Err(err).Str("artifact", name).Msg("artifact skipped")
			result.Skipped[name] = err.Error()
			return
		}
		result.Artifacts[name] = path
	}
	gated := func(name, reason string) {
		e.log.Warn().Str("artifact", name).Str("reason", reason).Msg("artifact gated")
		result.Skipped[name] = reason
	}

	quality := e.agg.Quality(entries)
	temporal := e.agg.Temporal(entries)
	metadata := e.agg.Metadata(entries)
	keywords := e.agg.Keywords(entries, aggregate.KeywordOptions{
		IncludeAbstracts: opts.IncludeAbstractKeywords,
	})

	// Always-on metadata charts.
	path := out("metadata_completeness.png")
	attempt("metadata_completeness", path, func() error {
		return completenessChart(quality, path)
	})
	authorPath := out("author_contributions.png")
	attempt("author_contributions", authorPath, func() error {
		ranked := rankCounts(metadata.Authors, 15)
		if len(ranked) == 0 {
			return fmt.Errorf("%w: no authors", ErrInsufficientData)
		}
		return barChart("Author Contributions", "papers", ranked, authorPath)
	})
	venuePath := out("venue_distribution.png")
	attempt("venue_distribution", venuePath, func() error {
		ranked := rankCounts(metadata.Venues, 15)
		if len(ranked) == 0 {
			return fmt.Errorf("%w: no venues", ErrInsufficientData)
		}
		return barChart("Venue Distribution", "papers", ranked, venuePath)
	})
	citePath := out("citation_histogram.png")
	attempt("citation_histogram", citePath, func() error {
		return citationHistogram(metadata.CitationCounts, citePath)
	})

	// Temporal charts.
	if quality.SufficientForTemporal {
		timelinePath := out("publication_timeline.png")
		attempt("publication_timeline", timelinePath, func() error {
			return timelineChart(temporal, timelinePath)
		})
	} else {
		gated("publication_timeline", fmt.Sprintf("papers_with_year=%d < 1", quality.HasYear))
	}

	// Keyword charts.
	if quality.SufficientForKeywords {
		freqPath := out("keyword_frequency.png")
		attempt("keyword_frequency", freqPath, func() error {
			return keywordFrequencyChart(keywords, freqPath)
		})
		evoPath := out("keyword_evolution.png")
		attempt("keyword_evolution", evoPath, func() error {
			return keywordEvolutionChart(keywords, evoPath)
		})
	} else {
		reason := fmt.Sprintf("papers_with_abstract=%d < 1", quality.HasAbstract)
		gated("keyword_frequency", reason)
		gated("keyword_evolution", reason)
	}

	// PCA stack.
	var pca *PCAResult
	var featureNames []string
	var clusterLabels []int
	pcaArtifacts := []string{
		"pca_2d_scatter", "pca_3d_scatter", "pca_loadings_csv",
		"pca_loadings_json", "pca_loadings_md", "word_importance",
		"loadings_heatmap", "component_loadings", "pca_biplot", "word_vectors",
	}
	if !quality.SufficientForPCA {
		reason := fmt.Sprintf("extracted_text_count=%d < 2", quality.HasExtractedText)
		for _, name := range pcaArtifacts {
			gated(name, reason)
		}
	} else {
		documents := make([]string, len(entries))
		for i, entry := range entries {
			documents[i] = strings.TrimSpace(entry.Title + " " + entry.Abstract)
		}
		tfidf := Vectorize(documents, VectorizerOptions{})
		fitted, err := FitPCA(tfidf.Matrix, opts.NComponents)
		if err != nil {
			e.log.Warn().Err(err).Msg("pca skipped")
			for _, name := range pcaArtifacts {
				result.Skipped[name] = err.Error()
			}
		} else {
			pca = fitted
			featureNames = tfidf.FeatureNames
			clusterLabels = KMeans(pca.Coordinates, opts.NClusters)

			scatter2D := out("pca_2d_scatter.png")
			attempt("pca_2d_scatter", scatter2D, func() error {
				return pcaScatter2D(pca, clusterLabels, scatter2D)
			})
			scatter3D := out("pca_3d_scatter.png")
			attempt("pca_3d_scatter", scatter3D, func() error {
				return pcaScatter3D(pca, clusterLabels, scatter3D)
			})
			csvPath := out("pca_loadings.csv")
			attempt("pca_loadings_csv", csvPath, func() error {
				return writeLoadingsCSV(pca, featureNames, csvPath)
			})
			jsonPath := out("pca_loadings.json")
			attempt("pca_loadings_json", jsonPath, func() error {
				return writeLoadingsJSON(pca, featureNames, jsonPath)
			})
			mdPath := out("pca_loadings.md")
			attempt("pca_loadings_md", mdPath, func() error {
				return writeLoadingsMarkdown(pca, featureNames, mdPath)
			})
			importancePath := out("word_importance.csv")
			attempt("word_importance", importancePath, func() error {
				return writeWordImportanceCSV(pca, featureNames, importancePath)
			})
			heatmapPath := out("loadings_heatmap.png")
			attempt("loadings_heatmap", heatmapPath, func() error {
				return loadingsHeatmap(pca, featureNames, heatmapPath)
			})
			componentsPath := out("component_loadings.png")
			attempt("component_loadings", componentsPath, func() error {
				return componentBars(pca, featureNames, componentsPath)
			})
			biplotPath := out("pca_biplot.png")
			attempt("pca_biplot", biplotPath, func() error {
				return biplot(pca, clusterLabels, featureNames, biplotPath)
			})
			vectorsPath := out("word_vectors.png")
			attempt("word_vectors", vectorsPath, func() error {
				return wordVectorsChart(pca, featureNames, vectorsPath)
			})
		}
	}

	// Summary artifacts consume everything above.
	report := buildSummary(summaryInputs{
		quality:       quality,
		temporal:      temporal,
		keywords:      keywords,
		metadata:      metadata,
		pca:           pca,
		featureNames:  featureNames,
		clusterLabels: clusterLabels,
		artifacts:     result.Artifacts,
		skipped:       result.Skipped,
	})
	summaryPath := out("meta_analysis_summary.json")
	attempt("summary_json", summaryPath, func() error {
		return writeSummaryJSON(report, summaryPath)
	})
	execPath := out("executive_summary.md")
	attempt("executive_summary", execPath, func() error {
		return writeExecutiveSummary(report, execPath)
	})
	abstractPath := out("graphical_abstract.png")
	attempt("graphical_abstract", abstractPath, func() error {
		return writeGraphicalAbstract(result.Artifacts, abstractPath)
	})
	pdfPath := out("meta_analysis_report.pdf")
	attempt("report_pdf", pdfPath, func() error {
		return writeReportPDF(report, result.Artifacts, pdfPath)
	})

	e.log.Info().Int("artifacts", len(result.Artifacts)).
		Int("skipped", len(result.Skipped)).Msg("meta-analysis complete")
	return result, nil
}
