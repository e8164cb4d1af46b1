package analysis

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/metalit/metalit/internal/aggregate"
)

// rankedCount orders map entries by count descending, name ascending.
type rankedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func rankCounts(counts map[string]int, n int) []rankedCount {
	ranked := make([]rankedCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, rankedCount{Name: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// pcaScatter2D renders the first two PCA coordinates colored by cluster.
func pcaScatter2D(pca *PCAResult, labels []int, path string) error {
	return pcaPanelPlot(pca, labels, 0, 1, path)
}

// pcaScatter3D renders three pairwise component panels side by side,
// covering the first three components.
func pcaScatter3D(pca *PCAResult, labels []int, path string) error {
	if pca.NComponents < 3 {
		return fmt.Errorf("%w: %d components, need 3", ErrInsufficientData, pca.NComponents)
	}
	pairs := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	plots := make([][]*plot.Plot, 1)
	plots[0] = make([]*plot.Plot, len(pairs))
	for i, pair := range pairs {
		p, err := pcaPanel(pca, labels, pair[0], pair[1])
		if err != nil {
			return err
		}
		plots[0][i] = p
	}

	img := vgimg.New(18*vg.Inch, 6*vg.Inch)
	dc := draw.New(img)
	canvases := plot.Align(plots, draw.Tiles{Rows: 1, Cols: len(pairs)}, dc)
	for i := range pairs {
		plots[0][i].Draw(canvases[0][i])
	}
	return writePNG(img, path)
}

func pcaPanelPlot(pca *PCAResult, labels []int, cx, cy int, path string) error {
	p, err := pcaPanel(pca, labels, cx, cy)
	if err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

func pcaPanel(pca *PCAResult, labels []int, cx, cy int) (*plot.Plot, error) {
	if pca.NComponents <= cx || pca.NComponents <= cy {
		return nil, fmt.Errorf("%w: component pair (%d,%d) unavailable", ErrInsufficientData, cx, cy)
	}
	p := plot.New()
	p.Title.Text = "Paper Similarity (PCA of TF-IDF)"
	p.X.Label.Text = axisLabel(pca, cx)
	p.Y.Label.Text = axisLabel(pca, cy)

	rows, _ := pca.Coordinates.Dims()
	byCluster := make(map[int]plotter.XYs)
	for i := 0; i < rows; i++ {
		cluster := 0
		if i < len(labels) {
			cluster = labels[i]
		}
		byCluster[cluster] = append(byCluster[cluster], plotter.XY{
			X: pca.Coordinates.At(i, cx),
			Y: pca.Coordinates.At(i, cy),
		})
	}

	clusters := make([]int, 0, len(byCluster))
	for c := range byCluster {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)
	for _, c := range clusters {
		scatter, err := plotter.NewScatter(byCluster[c])
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = plotutil.Color(c)
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("cluster %d", c), scatter)
	}
	return p, nil
}

func axisLabel(pca *PCAResult, component int) string {
	return fmt.Sprintf("PC%d (%.1f%% variance)", component+1,
		100*pca.ExplainedVarianceRatio[component])
}

// barChart renders a ranked horizontal-axis bar chart.
func barChart(title, yLabel string, ranked []rankedCount, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	values := make(plotter.Values, len(ranked))
	names := make([]string, len(ranked))
	for i, rc := range ranked {
		values[i] = float64(rc.Count)
		names[i] = rc.Name
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// keywordFrequencyChart renders the top keywords by count.
func keywordFrequencyChart(data aggregate.KeywordData, path string) error {
	ranked := rankCounts(data.KeywordCounts, 20)
	if len(ranked) == 0 {
		return fmt.Errorf("%w: no keywords", ErrInsufficientData)
	}
	return barChart("Keyword Frequency", "papers", ranked, path)
}

// keywordEvolutionChart renders per-year lines for the top 10 keywords.
func keywordEvolutionChart(data aggregate.KeywordData, path string) error {
	top := rankCounts(data.KeywordCounts, 10)
	if len(top) == 0 {
		return fmt.Errorf("%w: no keywords", ErrInsufficientData)
	}

	p := plot.New()
	p.Title.Text = "Keyword Evolution"
	p.X.Label.Text = "year"
	p.Y.Label.Text = "count"

	for i, rc := range top {
		timeline := data.FrequencyOverTime[rc.Name]
		if len(timeline) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(timeline))
		for j, yf := range timeline {
			xys[j] = plotter.XY{X: float64(yf.Year), Y: float64(yf.Count)}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(rc.Name, line)
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// citationHistogram renders the citation-count distribution with mean,
// median, and standard-deviation markers.
func citationHistogram(counts []int, path string) error {
	if len(counts) == 0 {
		return fmt.Errorf("%w: no citation counts", ErrInsufficientData)
	}
	values := make(plotter.Values, len(counts))
	floats := make([]float64, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
		floats[i] = float64(c)
	}
	sort.Float64s(floats)

	p := plot.New()
	p.Title.Text = "Citation Counts"
	p.X.Label.Text = "citations"
	p.Y.Label.Text = "papers"

	hist, err := plotter.NewHist(values, 16)
	if err != nil {
		return err
	}
	p.Add(hist)

	mean, std := stat.MeanStdDev(floats, nil)
	median := stat.Quantile(0.5, stat.Empirical, floats, nil)
	if math.IsNaN(std) {
		std = 0
	}
	for i, marker := range []struct {
		name  string
		value float64
	}{
		{fmt.Sprintf("mean %.1f", mean), mean},
		{fmt.Sprintf("median %.1f", median), median},
		{fmt.Sprintf("+1σ %.1f", mean+std), mean + std},
	} {
		line := verticalLine(marker.value, hist)
		line.Color = plotutil.Color(i + 1)
		line.Dashes = plotutil.Dashes(1)
		p.Add(line)
		p.Legend.Add(marker.name, line)
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// verticalLine builds a marker line spanning the histogram's height.
func verticalLine(x float64, hist *plotter.Histogram) *plotter.Line {
	_, _, _, ymax := hist.DataRange()
	line, _ := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: ymax}})
	return line
}

// completenessChart reports metadata coverage percentages; it is always
// produced, even over an empty selection.
func completenessChart(quality aggregate.DataQuality, path string) error {
	fields := []rankedCount{
		{Name: "year", Count: int(quality.YearCoverage)},
		{Name: "authors", Count: int(quality.AuthorCoverage)},
		{Name: "abstract", Count: int(quality.AbstractCoverage)},
		{Name: "doi", Count: int(quality.DOICoverage)},
		{Name: "pdf", Count: int(quality.PDFCoverage)},
		{Name: "extracted text", Count: int(quality.ExtractedTextCoverage)},
	}
	return barChart("Metadata Completeness", "% available", fields, path)
}

// timelineChart renders the publication-count-per-year bar+line chart.
func timelineChart(data aggregate.TemporalData, path string) error {
	if len(data.Years) == 0 {
		return fmt.Errorf("%w: no years", ErrInsufficientData)
	}
	p := plot.New()
	p.Title.Text = "Publication Timeline"
	p.X.Label.Text = "year"
	p.Y.Label.Text = "papers"

	values := make(plotter.Values, len(data.Years))
	names := make([]string, len(data.Years))
	xys := make(plotter.XYs, len(data.Years))
	for i, year := range data.Years {
		values[i] = float64(data.Counts[i])
		names[i] = fmt.Sprintf("%d", year)
		xys[i] = plotter.XY{X: float64(i), Y: float64(data.Counts[i])}
	}
	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(1)
	line.Width = vg.Points(2)
	p.Add(line)
	p.NominalX(names...)
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

// loadingsHeatmap renders the |loading| magnitude of the top words per
// component as stacked per-component bar groups.
func loadingsHeatmap(pca *PCAResult, featureNames []string, path string) error {
	grid := loadingsGrid{pca: pca, names: featureNames}
	p := plot.New()
	p.Title.Text = "PCA Loadings Heatmap"
	p.X.Label.Text = "component"
	p.Y.Label.Text = "feature"

	heatmap := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	p.Add(heatmap)
	return p.Save(8*vg.Inch, 10*vg.Inch, path)
}

// loadingsGrid adapts the loadings matrix to the heatmap interface.
type loadingsGrid struct {
	pca   *PCAResult
	names []string
}

func (g loadingsGrid) Dims() (int, int) { return g.pca.NComponents, len(g.names) }
func (g loadingsGrid) X(c int) float64  { return float64(c) }
func (g loadingsGrid) Y(r int) float64  { return float64(r) }
func (g loadingsGrid) Z(c, r int) float64 {
	return g.pca.Components.At(c, r)
}

// componentBars renders one bar chart per component of its top words,
// tiled into a single PNG.
func componentBars(pca *PCAResult, featureNames []string, path string) error {
	plots := make([][]*plot.Plot, pca.NComponents)
	for k := 0; k < pca.NComponents; k++ {
		top := pca.TopWords(featureNames, k, 10)
		p := plot.New()
		p.Title.Text = fmt.Sprintf("PC%d Top Words", k+1)
		values := make(plotter.Values, len(top))
		names := make([]string, len(top))
		for i, wl := range top {
			values[i] = wl.Loading
			names[i] = wl.Word
		}
		bars, err := plotter.NewBarChart(values, vg.Points(12))
		if err != nil {
			return err
		}
		bars.Color = plotutil.Color(k)
		p.Add(bars)
		p.NominalX(names...)
		p.X.Tick.Label.Rotation = math.Pi / 3
		p.X.Tick.Label.XAlign = draw.XRight
		plots[k] = []*plot.Plot{p}
	}

	img := vgimg.New(10*vg.Inch, vg.Length(pca.NComponents)*4*vg.Inch)
	dc := draw.New(img)
	canvases := plot.Align(plots, draw.Tiles{Rows: pca.NComponents, Cols: 1}, dc)
	for k := range plots {
		plots[k][0].Draw(canvases[k][0])
	}
	return writePNG(img, path)
}

// biplot overlays paper coordinates with the strongest feature vectors.
func biplot(pca *PCAResult, labels []int, featureNames []string, path string) error {
	if pca.NComponents < 2 {
		return fmt.Errorf("%w: biplot needs 2 components", ErrInsufficientData)
	}
	p, err := pcaPanel(pca, labels, 0, 1)
	if err != nil {
		return err
	}
	p.Title.Text = "PCA Biplot"

	scale := coordinateScale(pca)
	for _, wl := range pca.TopWords(featureNames, 0, 8) {
		idx := featureIndex(featureNames, wl.Word)
		line, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: 0},
			{X: pca.Components.At(0, idx) * scale, Y: pca.Components.At(1, idx) * scale},
		})
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(3)
		p.Add(line)
		p.Legend.Add(wl.Word, line)
	}
	return p.Save(10*vg.Inch, 8*vg.Inch, path)
}

// wordVectorsChart plots the top words of the first two components in
// loading space.
func wordVectorsChart(pca *PCAResult, featureNames []string, path string) error {
	if pca.NComponents < 2 {
		return fmt.Errorf("%w: word vectors need 2 components", ErrInsufficientData)
	}
	p := plot.New()
	p.Title.Text = "Word Vectors (PC1 vs PC2 loadings)"
	p.X.Label.Text = "PC1 loading"
	p.Y.Label.Text = "PC2 loading"

	words := pca.TopWords(featureNames, 0, 15)
	xys := make(plotter.XYs, len(words))
	labels := make([]string, len(words))
	for i, wl := range words {
		idx := featureIndex(featureNames, wl.Word)
		xys[i] = plotter.XY{X: pca.Components.At(0, idx), Y: pca.Components.At(1, idx)}
		labels[i] = wl.Word
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)

	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return err
	}
	p.Add(annotations)
	return p.Save(10*vg.Inch, 8*vg.Inch, path)
}

func coordinateScale(pca *PCAResult) float64 {
	rows, _ := pca.Coordinates.Dims()
	var max float64
	for i := 0; i < rows; i++ {
		for _, c := range []int{0, 1} {
			if v := math.Abs(pca.Coordinates.At(i, c)); v > max {
				max = v
			}
		}
	}
	if max == 0 {
		return 1
	}
	return max
}

func featureIndex(featureNames []string, word string) int {
	for i, name := range featureNames {
		if name == word {
			return i
		}
	}
	return 0
}

func writePNG(img *vgimg.Canvas, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
