// Package register corrects the seam position and tubulin register of
// filaments from a seam classification: a discrete class vote becomes a
// rotation about the filament axis plus a translation along it.
package register

import (
	"errors"
	"fmt"
	"math"

	"mirp/internal/models"
	"mirp/pkg/consensus"
	"mirp/pkg/filament"
	"mirp/pkg/table"
)

// ErrInvalidClass is returned for class numbers outside 1..2P
var ErrInvalidClass = errors.New("register: class number out of range")

// TubulinOffset is the axial offset in angstrom between the alpha- and
// beta-tubulin registers of a combined seam classification
const TubulinOffset = 41.0

// Params controls seam register correction
type Params struct {
	// Cutoff is the minimum confidence, in percent, for a filament to be kept
	Cutoff float64

	// Protofilaments is the protofilament total P of the reference
	Protofilaments int

	// Rise is the helical rise in angstrom
	Rise float64

	// TubulinOffset is the axial shift applied to filaments voted into the
	// second half (classes P+1..2P) of a combined classification
	TubulinOffset float64
}

// SeamPosition maps a class number in 1..P to a signed seam position around
// the filament: classes up to ceil(P/2) count up from 0, the rest count down
// from -1 at class P
func SeamPosition(class, total int) (int, error) {
	if total < 1 || class < 1 || class > total {
		return 0, fmt.Errorf("%w: class %d with %d protofilaments", ErrInvalidClass, class, total)
	}
	half := (total + 1) / 2
	if class <= half {
		return class - 1, nil
	}
	return -(total % class) - 1, nil
}

// ShiftAlongAxis translates every particle of the filament by shift angstrom
// along the filament axis, projecting the translation into the X/Y shifts
// through each particle's in-plane angle psi
func ShiftAlongAxis(f *filament.Filament, shift float64) error {
	psi, err := f.Floats(models.AnglePsi)
	if err != nil {
		return err
	}
	xs, err := f.Floats(models.OriginX)
	if err != nil {
		return err
	}
	ys, err := f.Floats(models.OriginY)
	if err != nil {
		return err
	}
	for i := range psi {
		theta := -psi[i] * math.Pi / 180
		xs[i] += shift * math.Cos(theta)
		ys[i] += shift * math.Sin(theta)
	}
	if err := f.SetFloats(models.OriginX, xs); err != nil {
		return err
	}
	return f.SetFloats(models.OriginY, ys)
}

// Result describes the correction applied to one filament
type Result struct {
	// VotedClass is the most common raw class of the filament
	VotedClass int

	// Class is the voted class reduced to 1..P
	Class int

	Confidence   float64
	SeamPosition int

	// DeltaRot is the rotation added to every particle, in degrees
	DeltaRot float64

	// TubulinShifted is set when the tubulin register offset was applied
	TubulinShifted bool

	// InvalidClass is set when the voted class lies outside 1..2P
	InvalidClass bool

	// Accepted is false when the vote was below the confidence cutoff or
	// the voted class is invalid; the filament is then left untouched
	Accepted bool
}

// Correct votes on the filament's class, then rotates and translates its
// particles so that its seam lines up with the reference. Filaments voted
// into classes P+1..2P are first moved by the tubulin register offset.
func Correct(f *filament.Filament, p Params) (Result, error) {
	classes, err := f.Ints(models.ClassNumber)
	if err != nil {
		return Result{}, err
	}
	if len(classes) == 0 {
		return Result{}, consensus.ErrEmpty
	}

	voted, count := consensus.MostCommon(classes)
	res := Result{VotedClass: voted, Class: voted, Confidence: consensus.Percent(count, len(classes))}
	if res.Confidence < p.Cutoff {
		return res, nil
	}
	if voted < 1 || voted > 2*p.Protofilaments {
		res.InvalidClass = true
		return res, nil
	}

	if voted > p.Protofilaments {
		if err := ShiftAlongAxis(f, p.TubulinOffset); err != nil {
			return res, fmt.Errorf("applying tubulin register offset: %w", err)
		}
		res.Class = voted - p.Protofilaments
		res.TubulinShifted = true
	}
	if err := f.Fill(models.ClassNumber, table.IntValue(res.Class)); err != nil {
		return res, err
	}

	if res.SeamPosition, err = SeamPosition(res.Class, p.Protofilaments); err != nil {
		return res, err
	}
	res.DeltaRot = float64(res.SeamPosition) * (360 / float64(p.Protofilaments))
	if err := rotate(f, res.DeltaRot); err != nil {
		return res, err
	}
	if err := ShiftAlongAxis(f, float64(res.SeamPosition)*p.Rise); err != nil {
		return res, fmt.Errorf("applying seam offset: %w", err)
	}
	res.Accepted = true
	return res, nil
}

// rotate adds delta to the rotation angle, and sets the rotation prior (when
// the column exists) to the same corrected value
func rotate(f *filament.Filament, delta float64) error {
	rot, err := f.Floats(models.AngleRot)
	if err != nil {
		return err
	}
	for i := range rot {
		rot[i] += delta
	}
	if err := f.SetFloats(models.AngleRot, rot); err != nil {
		return err
	}
	if f.Has(models.AngleRotPrior) {
		return f.SetFloats(models.AngleRotPrior, rot)
	}
	return nil
}
