// Package preprocess normalizes intensities and resamples volumes before
// they are handed to the segmentation oracle. It covers histogram-based
// bleach correction over the Z axis and the anisotropic up/down-scaling
// and padding needed to segment the orthogonal planes at the in-plane
// pixel size.
package preprocess

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"

	"cellstitch3d/internal/models"
)

// MatchMode selects the reference plane for histogram matching.
type MatchMode string

const (
	// MatchFirst matches every plane against the first plane.
	MatchFirst MatchMode = "first"

	// MatchNeighbor matches every plane against its predecessor.
	MatchNeighbor MatchMode = "neighbor"
)

// HistogramCorrect compensates signal degradation (bleaching) along the
// acquisition axis by matching each plane's intensity histogram to a
// reference plane, per channel and in place. The mapping is the classic
// CDF match: a value at quantile q in the source plane is replaced by the
// reference plane's value at the same quantile, with piecewise-linear
// interpolation between the reference's observed quantiles.
func HistogramCorrect(channels []*models.Volume, match MatchMode) error {
	if match != MatchFirst && match != MatchNeighbor {
		return fmt.Errorf("preprocess: unknown match mode %q", match)
	}
	for c, vol := range channels {
		if err := correctChannel(vol, match); err != nil {
			return fmt.Errorf("preprocess: channel %d: %w", c, err)
		}
	}
	return nil
}

func correctChannel(vol *models.Volume, match MatchMode) error {
	if vol.Depth == 0 {
		return nil
	}
	var refVals, refCDF []float64
	for z := 0; z < vol.Depth; z++ {
		plane := vol.Plane(z)

		if z > 0 {
			matchPlane(plane, refVals, refCDF)
		}
		if z == 0 || match == MatchNeighbor {
			refVals, refCDF = empiricalCDF(plane)
		}
	}
	return nil
}

// empiricalCDF returns the sorted unique values of the plane and the
// cumulative fraction of pixels at or below each value.
func empiricalCDF(plane []float64) (vals, cdf []float64) {
	sorted := make([]float64, len(plane))
	copy(sorted, plane)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		vals = append(vals, sorted[i])
		cdf = append(cdf, float64(j)/n)
		i = j
	}
	return vals, cdf
}

// matchPlane rewrites plane in place so its empirical CDF follows the
// reference. Quantiles outside the reference's observed range clamp to
// its endpoints, as in the usual numpy-style interpolation.
func matchPlane(plane, refVals, refCDF []float64) {
	if len(refVals) == 0 {
		return
	}
	if len(refVals) == 1 {
		for i := range plane {
			plane[i] = refVals[0]
		}
		return
	}

	var pl interp.PiecewiseLinear
	// refCDF is strictly increasing: each unique value adds at least
	// one pixel of cumulative mass.
	if err := pl.Fit(refCDF, refVals); err != nil {
		// Fit only fails on malformed input lengths; keep the plane
		// untouched rather than abort the whole correction.
		return
	}

	vals, cdf := empiricalCDF(plane)
	mapped := make(map[float64]float64, len(vals))
	lo, hi := refCDF[0], refCDF[len(refCDF)-1]
	for k, v := range vals {
		q := cdf[k]
		if q < lo {
			q = lo
		} else if q > hi {
			q = hi
		}
		mapped[v] = pl.Predict(q)
	}
	for i, v := range plane {
		plane[i] = mapped[v]
	}
}
