package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientData is returned when a fit has too few rows or columns.
var ErrInsufficientData = errors.New("insufficient data")

// PCAResult holds a fitted principal-component analysis.
type PCAResult struct {
	// Components is the (k, n_features) principal-axis matrix.
	Components *mat.Dense

	// Coordinates is the (n_papers, k) projection of the input.
	Coordinates *mat.Dense

	// ExplainedVarianceRatio has one entry per component.
	ExplainedVarianceRatio []float64

	// NComponents is k after capping against the input shape.
	NComponents int
}

// FitPCA centers the matrix and computes the top components via thin
// SVD. nComponents is capped at min(n_papers-1, n_features); fewer than
// two rows or zero features is an error.
func FitPCA(matrix *mat.Dense, nComponents int) (*PCAResult, error) {
	rows, cols := matrix.Dims()
	if rows < 2 || cols == 0 {
		return nil, fmt.Errorf("%w: %d papers, %d features", ErrInsufficientData, rows, cols)
	}
	if nComponents > rows-1 {
		nComponents = rows - 1
	}
	if nComponents > cols {
		nComponents = cols
	}
	if nComponents < 1 {
		nComponents = 1
	}

	centered := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		var mean float64
		for i := 0; i < rows; i++ {
			mean += matrix.At(i, j)
		}
		mean /= float64(rows)
		for i := 0; i < rows; i++ {
			centered.Set(i, j, matrix.At(i, j)-mean)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return nil, errors.New("svd factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	var totalVariance float64
	for _, s := range values {
		totalVariance += s * s
	}

	components := mat.NewDense(nComponents, cols, nil)
	coordinates := mat.NewDense(rows, nComponents, nil)
	ratios := make([]float64, nComponents)
	for k := 0; k < nComponents; k++ {
		for j := 0; j < cols; j++ {
			components.Set(k, j, v.At(j, k))
		}
		for i := 0; i < rows; i++ {
			coordinates.Set(i, k, u.At(i, k)*values[k])
		}
		if totalVariance > 0 {
			ratios[k] = values[k] * values[k] / totalVariance
		}
	}

	return &PCAResult{
		Components:             components,
		Coordinates:            coordinates,
		ExplainedVarianceRatio: ratios,
		NComponents:            nComponents,
	}, nil
}

// Loadings returns the (n_features, k) loadings matrix, the transpose
// of the components.
func (p *PCAResult) Loadings() *mat.Dense {
	_, cols := p.Components.Dims()
	loadings := mat.NewDense(cols, p.NComponents, nil)
	for j := 0; j < cols; j++ {
		for k := 0; k < p.NComponents; k++ {
			loadings.Set(j, k, p.Components.At(k, j))
		}
	}
	return loadings
}

// WordLoading pairs a feature with its loading on one component.
type WordLoading struct {
	Word    string  `json:"word"`
	Loading float64 `json:"loading"`
}

// TopWords ranks features for one component by absolute loading
// descending, breaking ties by feature name ascending.
func (p *PCAResult) TopWords(featureNames []string, component, n int) []WordLoading {
	loadings := make([]WordLoading, len(featureNames))
	for j, name := range featureNames {
		loadings[j] = WordLoading{Word: name, Loading: p.Components.At(component, j)}
	}
	sortWordLoadings(loadings)
	if n < len(loadings) {
		loadings = loadings[:n]
	}
	return loadings
}

func sortWordLoadings(loadings []WordLoading) {
	sort.Slice(loadings, func(i, j int) bool {
		a, b := math.Abs(loadings[i].Loading), math.Abs(loadings[j].Loading)
		if a != b {
			return a > b
		}
		return loadings[i].Word < loadings[j].Word
	})
}
