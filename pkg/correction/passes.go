package correction

import (
	"context"
	"errors"
	"fmt"

	"mirp/internal/models"
	"mirp/pkg/consensus"
	"mirp/pkg/filament"
	"mirp/pkg/register"
	"mirp/pkg/report"
	"mirp/pkg/table"
	"mirp/pkg/visualization"
)

// VotePFNumber smooths, splits and votes the protofilament number class of
// every filament. Segments that are too short or below the confidence cutoff
// are dropped. The accepted segments are renumbered and written to one
// catalog per class, 1<class>pf_data.star, with sorting statistics.
func (c *Corrector) VotePFNumber(ctx context.Context) (report.Summary, error) {
	if err := c.loaded(); err != nil {
		return report.Summary{}, err
	}
	before := c.collection.Filaments()
	summary := report.NewSummary(PassPFSort, before)
	summary.Cutoff = c.params.Labels.Cutoff
	c.observer.PassStarted(PassPFSort, len(before))

	results := make([]consensus.LabelResult, len(before))
	err := c.forEach(ctx, PassPFSort, len(before), func(i int) error {
		res, err := consensus.CorrectLabels(before[i], models.ClassNumber, c.params.Labels)
		results[i] = res
		return err
	})
	if err != nil {
		return summary, err
	}

	var accepted []*filament.Filament
	figs := make([]visualization.Figure, 0, len(results))
	for _, res := range results {
		accepted = append(accepted, res.Accepted()...)
		summary.Confidences = append(summary.Confidences, res.Confidences()...)
		for _, seg := range res.Segments {
			if seg.Status != consensus.Accepted {
				summary.Removed++
			}
		}
		figs = append(figs, visualization.LabelFigure(res))
	}
	if err := filament.Renumber(accepted); err != nil {
		return summary, err
	}
	c.collection.Replace(accepted)
	summary.Finish(accepted)

	if err := c.writeByClass(&summary); err != nil {
		return summary, err
	}

	stats, err := report.NewPFNumberStats(before, accepted)
	if err != nil {
		return summary, err
	}
	statsFile, err := stats.Starfile()
	if err != nil {
		return summary, err
	}
	statsPath := c.path(report.PFNumberStatsFile)
	if err := statsFile.Write(statsPath); err != nil {
		return summary, fmt.Errorf("writing %s: %w", statsPath, err)
	}
	summary.Outputs = append(summary.Outputs, statsPath)
	c.observer.Message(stats.String())

	if err := c.saveFigure(visualization.HistogramFigure(report.ConfidenceHistogram(summary.Confidences, 10), summary.Cutoff), "confidence", &summary); err != nil {
		return summary, err
	}
	if err := c.savePlots(PassPFSort, figs, &summary); err != nil {
		return summary, err
	}
	c.observer.PassFinished(summary)
	return summary, nil
}

// writeByClass writes the working set as one catalog per class label, each
// sorted along its filaments
func (c *Corrector) writeByClass(summary *report.Summary) error {
	particles, err := c.collection.Particles()
	if err != nil {
		return err
	}
	if particles.Len() == 0 {
		return nil
	}
	byClass, err := table.SortBy(particles, models.ClassNumber)
	if err != nil {
		return err
	}
	groups, err := table.GroupBy(byClass, models.ClassNumber)
	if err != nil {
		return err
	}
	for _, g := range groups {
		v, err := g.Get(models.ClassNumber, 0)
		if err != nil {
			return err
		}
		class, _ := v.Int()
		out := c.collection.CatalogWith(g)
		if err := out.SortLoop(models.ParticlesBlock, models.FilamentOrder...); err != nil {
			return err
		}
		path := c.path(fmt.Sprintf("1%dpf_data.star", class))
		if err := out.Write(path); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		summary.Outputs = append(summary.Outputs, path)
	}
	return nil
}

// VoteRot replaces the rotation angle (and its prior, when present) of every
// filament by the linear trend of its largest shallow-slope cluster.
// Filaments where no two angles are within the cutoff are removed.
func (c *Corrector) VoteRot(ctx context.Context) (report.Summary, error) {
	if err := c.loaded(); err != nil {
		return report.Summary{}, err
	}
	mts := c.collection.Filaments()
	summary := report.NewSummary(PassRot, mts)
	c.observer.PassStarted(PassRot, len(mts))

	results := make([]consensus.AngleResult, len(mts))
	kept := make([]bool, len(mts))
	err := c.forEach(ctx, PassRot, len(mts), func(i int) error {
		res, err := consensus.CorrectAngles(mts[i], models.AngleRot, c.params.RotCutoff, models.AngleRotPrior)
		if errors.Is(err, consensus.ErrNoCluster) || errors.Is(err, consensus.ErrDegenerateFit) {
			results[i] = res
			return nil
		}
		if err != nil {
			return err
		}
		results[i], kept[i] = res, true
		return nil
	})
	if err != nil {
		return summary, err
	}

	var out []*filament.Filament
	var figs []visualization.Figure
	for i, res := range results {
		if !kept[i] {
			summary.Removed++
			continue
		}
		out = append(out, mts[i])
		summary.Confidences = append(summary.Confidences, res.Confidence)
		figs = append(figs, visualization.RotFigure(res))
	}
	if summary.Removed > 0 {
		c.observer.Message(fmt.Sprintf("Removed %d filaments without a rotation angle cluster", summary.Removed))
	}
	if err := c.writeCollection(out, RotFile, &summary); err != nil {
		return summary, err
	}
	if err := c.savePlots(PassRot, figs, &summary); err != nil {
		return summary, err
	}
	c.observer.PassFinished(summary)
	return summary, nil
}

// VoteXY replaces the X and Y shifts of every filament by the linear trend of
// their longest stretch without jumps. Filaments without such a stretch get
// zero shifts. The psi flip ratio column is dropped.
func (c *Corrector) VoteXY(ctx context.Context) (report.Summary, error) {
	if err := c.loaded(); err != nil {
		return report.Summary{}, err
	}
	c.collection.DropColumn(models.AnglePsiFlipRatio)
	mts := c.collection.Filaments()
	summary := report.NewSummary(PassXY, mts)
	c.observer.PassStarted(PassXY, len(mts))

	results := make([]consensus.ShiftResult, len(mts))
	err := c.forEach(ctx, PassXY, len(mts), func(i int) error {
		res, err := consensus.CorrectShifts(mts[i], models.OriginX, models.OriginY, c.params.ShiftCutoff)
		results[i] = res
		return err
	})
	if err != nil {
		return summary, err
	}

	degenerate := 0
	figs := make([]visualization.Figure, len(results))
	for i, res := range results {
		if res.Degenerate {
			degenerate++
		}
		figs[i] = visualization.XYFigure(res)
	}
	if degenerate > 0 {
		c.observer.Message(fmt.Sprintf("Set shifts of %d filaments without a fittable stretch to zero", degenerate))
	}
	if err := c.writeCollection(mts, XYFile, &summary); err != nil {
		return summary, err
	}
	if err := c.savePlots(PassXY, figs, &summary); err != nil {
		return summary, err
	}
	c.observer.PassFinished(summary)
	return summary, nil
}

// VoteSeam votes the seam class of every filament and rotates and shifts its
// particles onto the reference seam position. Filaments below the confidence
// cutoff or voted into a class outside 1..2P are removed.
func (c *Corrector) VoteSeam(ctx context.Context) (report.Summary, error) {
	if err := c.loaded(); err != nil {
		return report.Summary{}, err
	}
	mts := c.collection.Filaments()
	summary := report.NewSummary(PassSeam, mts)
	summary.Cutoff = c.params.Register.Cutoff
	c.observer.PassStarted(PassSeam, len(mts))

	results := make([]register.Result, len(mts))
	err := c.forEach(ctx, PassSeam, len(mts), func(i int) error {
		res, err := register.Correct(mts[i], c.params.Register)
		results[i] = res
		return err
	})
	if err != nil {
		return summary, err
	}

	var out []*filament.Filament
	shifted, invalid := 0, 0
	for i, res := range results {
		summary.Confidences = append(summary.Confidences, res.Confidence)
		if res.InvalidClass {
			invalid++
		}
		if !res.Accepted {
			summary.Removed++
			continue
		}
		if res.TubulinShifted {
			shifted++
		}
		out = append(out, mts[i])
	}
	if shifted > 0 {
		c.observer.Message(fmt.Sprintf("Applied the tubulin register offset to %d filaments", shifted))
	}
	if invalid > 0 {
		c.observer.Message(fmt.Sprintf("Removed %d filaments voted into a class outside 1..%d", invalid, 2*c.params.Register.Protofilaments))
	}
	if err := c.writeCollection(out, SeamFile, &summary); err != nil {
		return summary, err
	}

	stats, err := report.NewSeamStats(out)
	if err != nil {
		return summary, err
	}
	statsFile, err := stats.Starfile()
	if err != nil {
		return summary, err
	}
	statsPath := c.path(report.SeamStatsFile)
	if err := statsFile.Write(statsPath); err != nil {
		return summary, fmt.Errorf("writing %s: %w", statsPath, err)
	}
	summary.Outputs = append(summary.Outputs, statsPath)

	if err := c.saveFigure(visualization.HistogramFigure(report.ConfidenceHistogram(summary.Confidences, 10), summary.Cutoff), "confidence", &summary); err != nil {
		return summary, err
	}
	if err := c.saveFigure(visualization.SeamFigure(stats), "seamclass_distribution", &summary); err != nil {
		return summary, err
	}
	c.observer.PassFinished(summary)
	return summary, nil
}

// Reset overwrites the given labels on every particle: the tilt angle becomes
// 90 degrees, psi is restored from its prior, and any other label is zeroed
func (c *Corrector) Reset(labels ...string) (report.Summary, error) {
	if err := c.loaded(); err != nil {
		return report.Summary{}, err
	}
	mts := c.collection.Filaments()
	summary := report.NewSummary(PassReset, mts)
	c.observer.PassStarted(PassReset, len(mts))

	for i, f := range mts {
		for _, label := range labels {
			if err := resetLabel(f, label); err != nil {
				return summary, fmt.Errorf("filament %d: %w", i+1, err)
			}
		}
		c.observer.FilamentDone(PassReset, i+1, len(mts))
	}

	path := c.path(ResetFile)
	if err := c.collection.Save(path); err != nil {
		return summary, fmt.Errorf("writing %s: %w", path, err)
	}
	summary.Finish(mts)
	summary.Outputs = append(summary.Outputs, path)
	c.observer.PassFinished(summary)
	return summary, nil
}

func resetLabel(f *filament.Filament, label string) error {
	switch label {
	case models.AngleTilt:
		return f.Fill(label, table.FloatValue(90))
	case models.AnglePsi:
		prior, err := f.Column(models.AnglePsiPrior)
		if err != nil {
			return err
		}
		return f.Set(models.AnglePsi, append([]table.Value(nil), prior...))
	default:
		return f.Fill(label, table.FloatValue(0))
	}
}

// PlotEulerXY writes an Euler angle and shift overview of the given filaments
// (1-based indices), or of every filament when none are given
func (c *Corrector) PlotEulerXY(indices ...int) (report.Summary, error) {
	if err := c.loaded(); err != nil {
		return report.Summary{}, err
	}
	mts := c.collection.Filaments()
	if len(indices) == 0 {
		for i := range mts {
			indices = append(indices, i+1)
		}
	}
	summary := report.NewSummary(PassPlot, mts)
	c.observer.PassStarted(PassPlot, len(indices))

	figs := make([]visualization.Figure, 0, len(indices))
	for n, idx := range indices {
		if idx < 1 || idx > len(mts) {
			return summary, fmt.Errorf("filament %d out of range 1..%d", idx, len(mts))
		}
		figs = append(figs, visualization.EulerXYFigure(mts[idx-1].Particles()))
		c.observer.FilamentDone(PassPlot, n+1, len(indices))
	}
	summary.Finish(mts)

	dir := c.path("plots/eulerxy")
	paths, err := c.plotter.SaveSequence(figs, dir, "filament")
	if err != nil {
		return summary, err
	}
	summary.Outputs = append(summary.Outputs, paths...)
	c.observer.PassFinished(summary)
	return summary, nil
}
