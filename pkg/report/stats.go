package report

import (
	"fmt"
	"sort"
	"strings"

	"mirp/internal/models"
	"mirp/pkg/consensus"
	"mirp/pkg/filament"
	"mirp/pkg/starfile"
	"mirp/pkg/table"
)

// Statistics catalog names
const (
	PFNumberStatsFile = "pf_number_sorting_stats.star"
	SeamStatsFile     = "seamcorrection_stats.star"

	GeneralBlock      = "data_general"
	PFPercentBlock    = "data_percent_protofilament_number"
	SeamClassBlock    = "data_seam_class_distribution"
	labelTubesBefore  = "rlnTotalNumberTubes"
	labelTubesAfter   = "mirpTotalNumberTubes"
	labelPredicted    = "mirpPredictedChangesInPfNumber"
	labelPFNumber     = "mtProtofilamentNumber"
	labelBeforeShare  = "rlnClassDistribution"
	labelAfterShare   = "mirpClassDistribution"
	labelSeamClass    = "seamClassNumber"
	labelSeamFraction = "percentDistribution"
)

// PFClasses maps protofilament-number classes 1..6 to 11..16 protofilaments
var PFClasses = []int{11, 12, 13, 14, 15, 16}

// Share is the population of one class
type Share struct {
	Class   int
	Count   int
	Percent float64
}

// Composition counts each distinct label and its percentage of the total,
// ordered by label
func Composition(labels []int) []Share {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	out := make([]Share, 0, len(counts))
	for class, n := range counts {
		out = append(out, Share{Class: class, Count: n, Percent: consensus.Percent(n, len(labels))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// Percentages returns the percentage of labels equal to each of classes
func Percentages(labels []int, classes []int) []float64 {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	out := make([]float64, len(classes))
	for i, c := range classes {
		out[i] = consensus.Percent(counts[c], len(labels))
	}
	return out
}

// PFNumberStats compares the protofilament-number composition of a dataset
// before and after label correction
type PFNumberStats struct {
	TubesBefore int
	TubesAfter  int

	// Before and After are percentages of particles per entry of PFClasses
	Before []float64
	After  []float64
}

// NewPFNumberStats computes protofilament-number statistics over the
// uncorrected and corrected filament sets
func NewPFNumberStats(before, after []*filament.Filament) (PFNumberStats, error) {
	b, err := filament.GlobalInts(before, models.ClassNumber)
	if err != nil {
		return PFNumberStats{}, fmt.Errorf("uncorrected classes: %w", err)
	}
	a, err := filament.GlobalInts(after, models.ClassNumber)
	if err != nil {
		return PFNumberStats{}, fmt.Errorf("corrected classes: %w", err)
	}
	classes := make([]int, len(PFClasses))
	for i := range classes {
		classes[i] = i + 1
	}
	return PFNumberStats{
		TubesBefore: len(before),
		TubesAfter:  len(after),
		Before:      Percentages(b, classes),
		After:       Percentages(a, classes),
	}, nil
}

// PredictedChanges is the net change in filament count, i.e. the number of
// protofilament-number transitions found
func (s PFNumberStats) PredictedChanges() int { return s.TubesAfter - s.TubesBefore }

// Starfile serializes the statistics as a catalog
func (s PFNumberStats) Starfile() (*starfile.File, error) {
	f := starfile.New()
	f.SetPairs(GeneralBlock, []starfile.Pair{
		{Key: labelTubesBefore, Value: table.IntValue(s.TubesBefore)},
		{Key: labelTubesAfter, Value: table.IntValue(s.TubesAfter)},
		{Key: labelPredicted, Value: table.IntValue(s.PredictedChanges())},
	})
	t := table.Empty()
	if err := t.SetInts(labelPFNumber, PFClasses); err != nil {
		return nil, err
	}
	if err := t.SetFloats(labelBeforeShare, s.Before); err != nil {
		return nil, err
	}
	if err := t.SetFloats(labelAfterShare, s.After); err != nil {
		return nil, err
	}
	f.SetLoop(PFPercentBlock, t)
	return f, nil
}

func (s PFNumberStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total predicted changes in protofilament number: %d\nData composed of:", s.PredictedChanges())
	for i, pf := range PFClasses {
		fmt.Fprintf(&b, " %.0f%% %dPF", s.After[i], pf)
	}
	b.WriteString(" microtubules")
	return b.String()
}

// SeamStats is the distribution of particles over seam classes
type SeamStats []Share

// NewSeamStats computes the seam class distribution of corrected filaments
func NewSeamStats(filaments []*filament.Filament) (SeamStats, error) {
	classes, err := filament.GlobalInts(filaments, models.ClassNumber)
	if err != nil {
		return nil, err
	}
	return SeamStats(Composition(classes)), nil
}

// Starfile serializes the distribution as a catalog
func (s SeamStats) Starfile() (*starfile.File, error) {
	classes := make([]int, len(s))
	percent := make([]float64, len(s))
	for i, sh := range s {
		classes[i] = sh.Class
		percent[i] = sh.Percent
	}
	t := table.Empty()
	if err := t.SetInts(labelSeamClass, classes); err != nil {
		return nil, err
	}
	if err := t.SetFloats(labelSeamFraction, percent); err != nil {
		return nil, err
	}
	f := starfile.New()
	f.SetLoop(SeamClassBlock, t)
	return f, nil
}
