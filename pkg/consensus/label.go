// Package consensus reconciles noisy per-particle estimates into one
// consistent value per filament. Discrete labels (class, protofilament number)
// are smoothed, segmented and voted on; continuous signals (rotation angle,
// shifts) are clustered and replaced by a least-squares trend.
package consensus

import (
	"errors"
	"fmt"

	"mirp/pkg/filament"
	"mirp/pkg/table"
)

// ErrEmpty is returned when a signal or filament has no particles
var ErrEmpty = errors.New("consensus: empty input")

// LabelParams controls label smoothing, segmentation and filtering
type LabelParams struct {
	// Cutoff is the minimum confidence, in percent, for a segment to be kept
	Cutoff float64

	// MinLength is the minimum number of particles for a segment to be kept
	MinLength int

	// WindowLow and WindowHigh are the smoothing window extents before and
	// after each particle; the window is half-open so WindowHigh includes
	// the particle itself
	WindowLow, WindowHigh int
}

// DefaultLabelParams returns the window and length used for protofilament
// number sorting with the given confidence cutoff
func DefaultLabelParams(cutoff float64) LabelParams {
	return LabelParams{Cutoff: cutoff, MinLength: 5, WindowLow: 3, WindowHigh: 4}
}

// SegmentStatus records why a segment was kept or dropped
type SegmentStatus int

const (
	Accepted SegmentStatus = iota
	TooShort
	LowConfidence
)

func (s SegmentStatus) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case TooShort:
		return "too short"
	case LowConfidence:
		return "low confidence"
	default:
		return fmt.Sprintf("SegmentStatus(%d)", int(s))
	}
}

// Segment is one piece of a filament after splitting at label changes
type Segment struct {
	Filament   *filament.Filament
	Label      int
	Confidence float64
	Status     SegmentStatus
}

// LabelResult is the outcome of label consensus on one filament
type LabelResult struct {
	// Raw is the uncorrected label sequence of the whole filament
	Raw []int

	// Smoothed is the windowed-mode label sequence used for segmentation
	Smoothed []int

	// Segments lists every segment, kept or not, in filament order
	Segments []Segment
}

// Accepted returns the kept segments in filament order
func (r LabelResult) Accepted() []*filament.Filament {
	var out []*filament.Filament
	for _, s := range r.Segments {
		if s.Status == Accepted {
			out = append(out, s.Filament)
		}
	}
	return out
}

// Confidences returns the confidence of every segment long enough to be
// voted on, including the ones dropped for low confidence
func (r LabelResult) Confidences() []float64 {
	out := make([]float64, 0, len(r.Segments))
	for _, s := range r.Segments {
		if s.Status != TooShort {
			out = append(out, s.Confidence)
		}
	}
	return out
}

// SmoothMode replaces each label by the mode of its window [i-low, i+high).
// Ties go to the lowest label.
func SmoothMode(labels []int, low, high int) []int {
	out := make([]int, len(labels))
	for i := range labels {
		lo, hi := table.Window(i, low, high, len(labels))
		out[i], _ = Mode(labels[lo:hi])
	}
	return out
}

// ChangePoints returns every index i where data[i] differs from data[i-1]
func ChangePoints(data []int) []int {
	var changes []int
	for i := 1; i < len(data); i++ {
		if data[i] != data[i-1] {
			changes = append(changes, i)
		}
	}
	return changes
}

// Vote replaces every value of the named integer column with its most common
// value and returns that value with its share of the filament in percent
func Vote(f *filament.Filament, column string) (label int, confidence float64, err error) {
	if f.Len() == 0 {
		return 0, 0, ErrEmpty
	}
	labels, err := f.Ints(column)
	if err != nil {
		return 0, 0, err
	}
	label, count := MostCommon(labels)
	if err := f.Fill(column, table.IntValue(label)); err != nil {
		return 0, 0, err
	}
	return label, Percent(count, len(labels)), nil
}

// CorrectLabels smooths the label column, splits the filament wherever the
// smoothed label changes, votes each segment to a single label and filters
// out segments that are too short or not confident enough
func CorrectLabels(f *filament.Filament, column string, p LabelParams) (LabelResult, error) {
	raw, err := f.Ints(column)
	if err != nil {
		return LabelResult{}, err
	}
	if len(raw) == 0 {
		return LabelResult{}, ErrEmpty
	}

	res := LabelResult{Raw: raw, Smoothed: SmoothMode(raw, p.WindowLow, p.WindowHigh)}
	for _, seg := range f.Split(ChangePoints(res.Smoothed)) {
		label, confidence, err := Vote(seg, column)
		if err != nil {
			return LabelResult{}, err
		}
		s := Segment{Filament: seg, Label: label, Confidence: confidence}
		switch {
		case seg.Len() < p.MinLength:
			s.Status = TooShort
		case confidence < p.Cutoff:
			s.Status = LowConfidence
		default:
			s.Status = Accepted
		}
		res.Segments = append(res.Segments, s)
	}
	return res, nil
}
