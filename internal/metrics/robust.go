package metrics

import (
	"math"
	"sort"
)

// Outlier trimming parameters for RepresentativeLowest.
const (
	MinRobustSamples     = 5
	IQRMultiplier        = 1.5
	LowerBoundEpsilon    = 0.01
	FallbackRelTolerance = 0.05
	FallbackAbsTolerance = 0.01
)

// RepresentativeLowest returns an outlier-trimmed lowest price and the number
// of prices supporting it. Fewer than MinRobustSamples prices return the plain
// minimum and count. Larger samples are trimmed to the IQR fence
// [Q1-1.5*IQR, Q3+1.5*IQR] (lower bound floored at 0.01, or [Q1,Q3] when
// IQR is zero) and the cluster minimum is returned. An empty cluster falls
// back to the median.
func RepresentativeLowest(prices []float64) (*float64, int) {
	n := len(prices)
	if n == 0 {
		return nil, 0
	}

	if n < MinRobustSamples {
		lowest := prices[0]
		for _, p := range prices[1:] {
			if p < lowest {
				lowest = p
			}
		}
		return &lowest, n
	}

	sorted := make([]float64, n)
	copy(sorted, prices)
	sort.Float64s(sorted)

	q1 := sorted[quartileIndex(n, 0.25)]
	q3 := sorted[quartileIndex(n, 0.75)]
	iqr := q3 - q1

	lower, upper := q1, q3
	if iqr != 0 {
		lower = math.Max(q1-IQRMultiplier*iqr, LowerBoundEpsilon)
		upper = q3 + IQRMultiplier*iqr
	}

	var (
		lowest  float64
		volume  int
		inRange bool
	)
	for _, p := range sorted {
		if p < lower || p > upper {
			continue
		}
		if !inRange {
			lowest = p
			inRange = true
		}
		volume++
	}
	if inRange {
		return &lowest, volume
	}

	return medianFallback(sorted)
}

// quartileIndex returns floor(n*q) clamped to n-1.
func quartileIndex(n int, q float64) int {
	i := int(math.Floor(float64(n) * q))
	if i > n-1 {
		i = n - 1
	}
	return i
}

// medianFallback returns the median of a sorted, non-empty slice and the
// number of prices within median*5%+0.01 of it (at least 1).
func medianFallback(sorted []float64) (*float64, int) {
	n := len(sorted)
	if n == 0 {
		return nil, 0
	}

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	tolerance := median*FallbackRelTolerance + FallbackAbsTolerance
	volume := 0
	for _, p := range sorted {
		if math.Abs(p-median) <= tolerance {
			volume++
		}
	}
	if volume == 0 {
		volume = 1
	}
	return &median, volume
}
