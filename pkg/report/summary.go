// Package report reduces corrected filaments to end-of-pass statistics:
// counts, class composition, confidence distributions, and the statistics
// catalogs written next to each corrected catalog.
package report

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"mirp/pkg/filament"
)

// Summary aggregates the outcome of one correction pass. Per-filament drops
// are counted here instead of being raised as errors.
type Summary struct {
	Pass         string
	FilamentsIn  int
	FilamentsOut int
	ParticlesIn  int
	ParticlesOut int

	// Removed counts filaments (or segments) dropped for being too short,
	// below the confidence cutoff, or without a fittable cluster
	Removed int

	// Confidences holds one value per voted filament or segment, including
	// the ones removed for low confidence
	Confidences []float64
	Cutoff      float64
	Outputs     []string
}

// NewSummary starts a summary for a pass over the given input filaments
func NewSummary(pass string, in []*filament.Filament) Summary {
	return Summary{
		Pass:        pass,
		FilamentsIn: len(in),
		ParticlesIn: filament.TotalParticles(in),
	}
}

// Finish records the filaments that survived the pass
func (s *Summary) Finish(out []*filament.Filament) {
	s.FilamentsOut = len(out)
	s.ParticlesOut = filament.TotalParticles(out)
}

// MeanConfidence returns the mean of the recorded confidences, or 0 when none were recorded
func (s Summary) MeanConfidence() float64 {
	if len(s.Confidences) == 0 {
		return 0
	}
	return stat.Mean(s.Confidences, nil)
}

// Fields flattens the summary into loggable key/value pairs
func (s Summary) Fields() map[string]any {
	return map[string]any{
		"pass":           s.Pass,
		"filamentsIn":    s.FilamentsIn,
		"filamentsOut":   s.FilamentsOut,
		"particlesIn":    s.ParticlesIn,
		"particlesOut":   s.ParticlesOut,
		"removed":        s.Removed,
		"meanConfidence": s.MeanConfidence(),
		"outputs":        s.Outputs,
	}
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d -> %d filaments, %d -> %d particles",
		s.Pass, s.FilamentsIn, s.FilamentsOut, s.ParticlesIn, s.ParticlesOut)
	if s.Removed > 0 {
		fmt.Fprintf(&b, ", %d removed", s.Removed)
	}
	if len(s.Confidences) > 0 {
		fmt.Fprintf(&b, ", mean confidence %.1f%%", s.MeanConfidence())
	}
	return b.String()
}
