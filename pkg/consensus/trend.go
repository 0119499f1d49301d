package consensus

import (
	"mirp/pkg/filament"
)

// AngleResult is the outcome of angular trend consensus on one filament
type AngleResult struct {
	Raw        []float64
	Corrected  []float64
	Modal      []int
	Outliers   [][]int
	Confidence float64
}

// CorrectAngles replaces the named angle column with the trend of its modal
// shallow-slope cluster. Each mirror column that exists on the filament (a
// prior copy of the angle, for instance) receives the same values; missing
// mirrors are skipped. ErrNoCluster means the filament could not be fitted
// and was left unchanged.
func CorrectAngles(f *filament.Filament, column string, cutoff float64, mirrors ...string) (AngleResult, error) {
	raw, err := f.Floats(column)
	if err != nil {
		return AngleResult{}, err
	}
	if len(raw) == 0 {
		return AngleResult{}, ErrEmpty
	}
	modal, outliers, err := ClusterShallowSlopes(raw, cutoff)
	if err != nil {
		return AngleResult{Raw: raw}, err
	}
	fit, err := FitTrend(raw, modal)
	if err != nil {
		return AngleResult{Raw: raw}, err
	}
	if err := f.SetFloats(column, fit); err != nil {
		return AngleResult{}, err
	}
	for _, m := range mirrors {
		if !f.Has(m) {
			continue
		}
		if err := f.SetFloats(m, fit); err != nil {
			return AngleResult{}, err
		}
	}
	return AngleResult{
		Raw:        raw,
		Corrected:  fit,
		Modal:      modal,
		Outliers:   outliers,
		Confidence: Percent(len(modal), len(raw)),
	}, nil
}

// ShiftResult is the outcome of shift trend consensus on one filament
type ShiftResult struct {
	RawX, RawY     []float64
	X, Y           []float64
	ModalX, ModalY []int

	// Degenerate is set when no stretch of either shift signal could be fitted
	// and both were zeroed
	Degenerate bool
}

// CorrectShifts replaces the X and Y shift columns by the trend of the longest
// contiguous stretch of each signal without a jump larger than cutoff. When
// either signal has no such stretch of two or more particles, the filament is
// treated as unshiftable and both columns are set to zero.
func CorrectShifts(f *filament.Filament, xColumn, yColumn string, cutoff float64) (ShiftResult, error) {
	xs, err := f.Floats(xColumn)
	if err != nil {
		return ShiftResult{}, err
	}
	ys, err := f.Floats(yColumn)
	if err != nil {
		return ShiftResult{}, err
	}
	if len(xs) == 0 {
		return ShiftResult{}, ErrEmpty
	}

	res := ShiftResult{
		RawX:   xs,
		RawY:   ys,
		ModalX: Largest(ClusterBreaks(xs, cutoff)),
		ModalY: Largest(ClusterBreaks(ys, cutoff)),
	}
	if IsDegenerate(res.ModalX) || IsDegenerate(res.ModalY) {
		res.Degenerate = true
		res.X = make([]float64, len(xs))
		res.Y = make([]float64, len(ys))
	} else {
		if res.X, err = FitTrend(xs, res.ModalX); err != nil {
			return ShiftResult{}, err
		}
		if res.Y, err = FitTrend(ys, res.ModalY); err != nil {
			return ShiftResult{}, err
		}
	}
	if err := f.SetFloats(xColumn, res.X); err != nil {
		return ShiftResult{}, err
	}
	if err := f.SetFloats(yColumn, res.Y); err != nil {
		return ShiftResult{}, err
	}
	return res, nil
}
