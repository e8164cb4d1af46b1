package analysis

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// kmeansSeed fixes the clustering RNG so runs are reproducible.
const kmeansSeed = 42

const (
	kmeansRestarts      = 10
	kmeansMaxIterations = 300
)

// KMeans clusters the rows of the matrix into k groups, returning one
// label per row. The RNG is seeded, restarts pick the lowest inertia,
// and k is capped at the row count.
func KMeans(matrix *mat.Dense, k int) []int {
	rows, cols := matrix.Dims()
	if rows == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > rows {
		k = rows
	}

	rng := rand.New(rand.NewSource(kmeansSeed))
	bestInertia := math.Inf(1)
	var bestLabels []int

	for restart := 0; restart < kmeansRestarts; restart++ {
		centroids := initialCentroids(matrix, k, rng)
		labels := make([]int, rows)

		for iter := 0; iter < kmeansMaxIterations; iter++ {
			changed := false
			for i := 0; i < rows; i++ {
				best := nearestCentroid(matrix.RawRowView(i), centroids)
				if labels[i] != best {
					labels[i] = best
					changed = true
				}
			}
			if !changed && iter > 0 {
				break
			}

			counts := make([]int, k)
			next := make([][]float64, k)
			for c := range next {
				next[c] = make([]float64, cols)
			}
			for i := 0; i < rows; i++ {
				counts[labels[i]]++
				row := matrix.RawRowView(i)
				for j, v := range row {
					next[labels[i]][j] += v
				}
			}
			for c := 0; c < k; c++ {
				if counts[c] == 0 {
					// Re-seed an empty cluster from a random row.
					copy(next[c], matrix.RawRowView(rng.Intn(rows)))
					continue
				}
				for j := range next[c] {
					next[c][j] /= float64(counts[c])
				}
			}
			centroids = next
		}

		var inertia float64
		for i := 0; i < rows; i++ {
			inertia += squaredDistance(matrix.RawRowView(i), centroids[labels[i]])
		}
		if inertia < bestInertia {
			bestInertia = inertia
			bestLabels = append([]int(nil), labels...)
		}
	}
	return bestLabels
}

// initialCentroids samples k distinct rows as starting centroids.
func initialCentroids(matrix *mat.Dense, k int, rng *rand.Rand) [][]float64 {
	rows, cols := matrix.Dims()
	perm := rng.Perm(rows)
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = make([]float64, cols)
		copy(centroids[c], matrix.RawRowView(perm[c]))
	}
	return centroids
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(row, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
