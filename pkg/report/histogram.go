package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram is a binned distribution. Bin i covers [Dividers[i], Dividers[i+1]).
type Histogram struct {
	Dividers []float64
	Counts   []float64
}

// Max returns the largest bin count
func (h Histogram) Max() float64 {
	if len(h.Counts) == 0 {
		return 0
	}
	return floats.Max(h.Counts)
}

// ConfidenceHistogram bins confidence percentages into equal-width bins over
// 0..100. Values outside the range are clamped into the first or last bin.
func ConfidenceHistogram(confidences []float64, bins int) Histogram {
	if bins < 1 {
		bins = 10
	}
	dividers := floats.Span(make([]float64, bins+1), 0, 100)
	// the last bin is closed so that 100% lands in it
	dividers[bins] = math.Nextafter(100, math.Inf(1))

	x := make([]float64, len(confidences))
	for i, c := range confidences {
		x[i] = math.Min(math.Max(c, 0), 100)
	}
	sort.Float64s(x)

	return Histogram{
		Dividers: dividers,
		Counts:   stat.Histogram(nil, dividers, x, nil),
	}
}
