package consensus

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ErrDegenerateFit is returned when a cluster has fewer than two points to fit a line through
var ErrDegenerateFit = errors.New("consensus: need at least two points to fit a trend")

// Line is a fitted trend value = Intercept + Slope*x, with x the 1-based particle number
type Line struct {
	Intercept float64
	Slope     float64
}

// At evaluates the line at particle number x
func (l Line) At(x float64) float64 { return l.Intercept + l.Slope*x }

// Sample evaluates the line at particle numbers 1..n
func (l Line) Sample(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = l.At(float64(i + 1))
	}
	return out
}

// FitLine regresses values against 1-based particle number, using only the
// indices in cluster
func FitLine(values []float64, cluster []int) (Line, error) {
	if len(cluster) < 2 {
		return Line{}, ErrDegenerateFit
	}
	xs := make([]float64, len(cluster))
	ys := make([]float64, len(cluster))
	for i, idx := range cluster {
		if idx < 0 || idx >= len(values) {
			return Line{}, fmt.Errorf("consensus: cluster index %d out of range [0,%d)", idx, len(values))
		}
		xs[i] = float64(idx + 1)
		ys[i] = values[idx]
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Line{Intercept: alpha, Slope: beta}, nil
}

// FitTrend fits a line through the cluster members of values and returns the
// line evaluated at every particle of the filament
func FitTrend(values []float64, cluster []int) ([]float64, error) {
	line, err := FitLine(values, cluster)
	if err != nil {
		return nil, err
	}
	return line.Sample(len(values)), nil
}
