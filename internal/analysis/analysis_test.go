package analysis

import (
	"encoding/csv"
	"math"
	"os"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestVectorizeShapeAndOrdering(t *testing.T) {
	docs := []string{
		"protein folding dynamics",
		"protein folding kinetics",
		"graph neural networks",
		"graph neural models",
	}
	result := Vectorize(docs, VectorizerOptions{MinDF: 2})
	rows, cols := result.Matrix.Dims()
	if rows != 4 {
		t.Fatalf("rows = %d, want 4", rows)
	}
	if cols != len(result.FeatureNames) {
		t.Fatalf("cols = %d, features = %d, must align", cols, len(result.FeatureNames))
	}

	// Feature names are lexicographically ordered.
	for i := 1; i < len(result.FeatureNames); i++ {
		if result.FeatureNames[i-1] >= result.FeatureNames[i] {
			t.Fatalf("feature names not sorted: %v", result.FeatureNames)
		}
	}

	// min_df=2 drops terms in a single document, and bigrams within
	// the repeated phrases survive.
	names := strings.Join(result.FeatureNames, "|")
	if !strings.Contains(names, "protein folding") {
		t.Errorf("repeated bigram missing from %v", result.FeatureNames)
	}
	if strings.Contains(names, "dynamics") {
		t.Errorf("df=1 term survived: %v", result.FeatureNames)
	}

	// Rows are l2-normalized.
	for i := 0; i < rows; i++ {
		var norm float64
		for j := 0; j < cols; j++ {
			v := result.Matrix.At(i, j)
			norm += v * v
		}
		if math.Abs(norm-1) > 1e-9 {
			t.Errorf("row %d norm = %f, want 1", i, norm)
		}
	}
}

func TestVectorizeStopWordsAndEmpty(t *testing.T) {
	result := Vectorize([]string{"the of and", "the of and"}, VectorizerOptions{})
	if result.NFeatures() != 0 {
		t.Errorf("stop-word-only corpus produced features: %v", result.FeatureNames)
	}
	if Vectorize(nil, VectorizerOptions{}).NFeatures() != 0 {
		t.Error("empty corpus must yield zero features")
	}
}

func TestVectorizeMaxFeatures(t *testing.T) {
	docs := []string{
		"alpha beta gamma delta",
		"alpha beta gamma delta",
		"alpha beta epsilon zeta",
	}
	result := Vectorize(docs, VectorizerOptions{MaxFeatures: 3, MinDF: 2, MaxDF: 1.0})
	if result.NFeatures() != 3 {
		t.Fatalf("features = %d, want capped at 3", result.NFeatures())
	}
	// The highest-frequency terms win; alpha and beta appear in all
	// three documents.
	names := strings.Join(result.FeatureNames, "|")
	if !strings.Contains(names, "alpha") || !strings.Contains(names, "beta") {
		t.Errorf("most frequent terms missing: %v", result.FeatureNames)
	}
}

func testMatrix() *mat.Dense {
	// Four papers in two clear groups along separate dimensions.
	return mat.NewDense(4, 3, []float64{
		1.0, 0.1, 0.0,
		0.9, 0.2, 0.1,
		0.1, 0.9, 1.0,
		0.0, 1.0, 0.9,
	})
}

func TestFitPCAShape(t *testing.T) {
	pca, err := FitPCA(testMatrix(), 2)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	if pca.NComponents != 2 {
		t.Fatalf("components = %d, want 2", pca.NComponents)
	}

	cr, cc := pca.Components.Dims()
	if cr != 2 || cc != 3 {
		t.Errorf("components shape = (%d,%d), want (2,3)", cr, cc)
	}
	lr, lc := pca.Loadings().Dims()
	if lr != 3 || lc != 2 {
		t.Errorf("loadings shape = (%d,%d), want (n_features, k) = (3,2)", lr, lc)
	}
	xr, xc := pca.Coordinates.Dims()
	if xr != 4 || xc != 2 {
		t.Errorf("coordinates shape = (%d,%d), want (4,2)", xr, xc)
	}

	var total float64
	for _, r := range pca.ExplainedVarianceRatio {
		if r < 0 || r > 1 {
			t.Errorf("variance ratio out of range: %v", pca.ExplainedVarianceRatio)
		}
		total += r
	}
	if total > 1+1e-9 {
		t.Errorf("variance ratios sum to %f > 1", total)
	}
	// Components are ordered by explained variance descending.
	if pca.ExplainedVarianceRatio[0] < pca.ExplainedVarianceRatio[1] {
		t.Errorf("ratios not descending: %v", pca.ExplainedVarianceRatio)
	}
}

func TestFitPCACapsComponents(t *testing.T) {
	pca, err := FitPCA(testMatrix(), 10)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	if pca.NComponents != 3 {
		t.Errorf("components = %d, want capped at min(n-1, features) = 3", pca.NComponents)
	}

	if _, err := FitPCA(mat.NewDense(1, 3, nil), 2); err == nil {
		t.Error("single-row fit must fail")
	}
}

func TestTopWordsOrdering(t *testing.T) {
	pca := &PCAResult{
		Components:  mat.NewDense(1, 4, []float64{0.5, -0.8, 0.5, 0.1}),
		NComponents: 1,
	}
	names := []string{"beta", "delta", "alpha", "gamma"}
	top := pca.TopWords(names, 0, 3)

	// |loading| descending; the 0.5 tie breaks lexicographically.
	want := []WordLoading{
		{Word: "delta", Loading: -0.8},
		{Word: "alpha", Loading: 0.5},
		{Word: "beta", Loading: 0.5},
	}
	if !reflect.DeepEqual(top, want) {
		t.Errorf("top words = %v, want %v", top, want)
	}
}

func TestKMeansDeterministicAndCapped(t *testing.T) {
	matrix := testMatrix()
	first := KMeans(matrix, 2)
	second := KMeans(matrix, 2)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("seeded kmeans not deterministic: %v vs %v", first, second)
	}
	if len(first) != 4 {
		t.Fatalf("labels = %d, want one per row", len(first))
	}

	// Rows 0,1 group together and apart from rows 2,3.
	if first[0] != first[1] || first[2] != first[3] || first[0] == first[2] {
		t.Errorf("clustering wrong: %v", first)
	}

	// k above the row count is capped.
	capped := KMeans(matrix, 10)
	for _, label := range capped {
		if label < 0 || label >= 4 {
			t.Errorf("label %d out of range", label)
		}
	}
}

func TestLoadingsCSVRoundTrip(t *testing.T) {
	pca, err := FitPCA(testMatrix(), 2)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	names := []string{"alpha", "beta", "gamma"}
	path := t.TempDir() + "/loadings.csv"
	if err := writeLoadingsCSV(pca, names, path); err != nil {
		t.Fatalf("writeLoadingsCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if !reflect.DeepEqual(records[0], []string{"feature", "PC1", "PC2"}) {
		t.Errorf("header = %v", records[0])
	}
	if len(records) != 4 {
		t.Fatalf("rows = %d, want header + 3 features", len(records))
	}
	for _, record := range records[1:] {
		for _, cell := range record[1:] {
			dot := strings.Index(cell, ".")
			if dot < 0 || len(cell)-dot-1 != 6 {
				t.Errorf("cell %q does not carry six decimal digits", cell)
			}
		}
	}
	if records[1][0] != "alpha" || records[3][0] != "gamma" {
		t.Errorf("feature order lost: %v", records)
	}
}

func TestWordImportanceRanking(t *testing.T) {
	pca := &PCAResult{
		Components: mat.NewDense(2, 3, []float64{
			0.1, 0.6, -0.3,
			0.1, -0.6, 0.3,
		}),
		NComponents: 2,
	}
	names := []string{"small", "big", "mid"}
	path := t.TempDir() + "/importance.csv"
	if err := writeWordImportanceCSV(pca, names, path); err != nil {
		t.Fatalf("writeWordImportanceCSV: %v", err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	// Scores: big 1.2, mid 0.6, small 0.2.
	if records[1][1] != "big" || records[2][1] != "mid" || records[3][1] != "small" {
		t.Errorf("ranking = %v", records)
	}
}

func TestCitationStats(t *testing.T) {
	stats := citationStats([]int{0, 10, 20})
	if stats.Mean != 10 || stats.Median != 10 || stats.Max != 20 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.StdDev == 0 {
		t.Error("std dev should be non-zero")
	}
	if empty := citationStats(nil); empty.Count != 0 || empty.Mean != 0 {
		t.Errorf("empty stats = %+v", empty)
	}
}
