package visualization

import (
	"github.com/paulmach/orb"

	"mirp/internal/models"
	"mirp/pkg/consensus"
	"mirp/pkg/report"
)

// indexed pairs each value with its 1-based particle number
func indexed(values []float64) orb.LineString {
	ls := make(orb.LineString, len(values))
	for i, v := range values {
		ls[i] = orb.Point{float64(i + 1), v}
	}
	return ls
}

func indexedInts(values []int) orb.LineString {
	f := make([]float64, len(values))
	for i, v := range values {
		f[i] = float64(v)
	}
	return indexed(f)
}

// LabelFigure shows the uncorrected labels of a filament next to one panel
// per segment after voting. Dropped segments are drawn in the outlier colour.
func LabelFigure(res consensus.LabelResult) Figure {
	yRange := [2]float64{1, 6}
	fig := Figure{Panels: []Panel{{
		Series: []Series{{Points: indexedInts(res.Raw), Color: RawColor}},
		YRange: yRange,
	}}}
	for _, seg := range res.Segments {
		labels := make([]int, seg.Filament.Len())
		for i := range labels {
			labels[i] = seg.Label
		}
		c := FitColor
		if seg.Status != consensus.Accepted {
			c = OutlierColor
		}
		fig.Panels = append(fig.Panels, Panel{
			Series: []Series{{Points: indexedInts(labels), Color: c}},
			YRange: yRange,
		})
	}
	return fig
}

// RotFigure shows the raw rotation angles with the modal trend and the trend
// of every outlier cluster, next to the corrected angles
func RotFigure(res consensus.AngleResult) Figure {
	raw := Panel{Series: []Series{{Points: indexed(res.Raw), Color: RawColor}}}
	for _, cluster := range res.Outliers {
		if line, err := consensus.FitLine(res.Raw, cluster); err == nil {
			raw.Series = append(raw.Series, Series{Points: indexed(line.Sample(len(res.Raw))), Color: OutlierColor, Line: true})
		}
	}
	if res.Corrected != nil {
		raw.Series = append(raw.Series, Series{Points: indexed(res.Corrected), Color: FitColor, Line: true})
	}
	corrected := Panel{Series: []Series{{Points: indexed(res.Corrected), Color: FitColor}}}
	return Figure{Panels: []Panel{raw, corrected}}
}

// XYFigure shows the raw and fitted X and Y shifts
func XYFigure(res consensus.ShiftResult) Figure {
	return Figure{Panels: []Panel{
		{Series: []Series{
			{Points: indexed(res.RawX), Color: RawColor},
			{Points: indexed(res.X), Color: FitColor, Line: true},
		}},
		{Series: []Series{
			{Points: indexed(res.RawY), Color: AltColor},
			{Points: indexed(res.Y), Color: FitColor, Line: true},
		}},
	}}
}

// EulerXYFigure shows the psi, tilt and rot angles and the X/Y shifts of
// the particles of one filament
func EulerXYFigure(particles []models.Particle) Figure {
	n := len(particles)
	psi, tilt, rot := make([]float64, n), make([]float64, n), make([]float64, n)
	xs, ys := make([]float64, n), make([]float64, n)
	for i, p := range particles {
		psi[i], tilt[i], rot[i] = p.Psi, p.Tilt, p.Rot
		xs[i], ys[i] = p.OriginX, p.OriginY
	}
	return Figure{Panels: []Panel{
		{Series: []Series{{Points: indexed(psi), Color: RawColor}}, YRange: [2]float64{-180, 180}},
		{Series: []Series{{Points: indexed(tilt), Color: RawColor}}, YRange: [2]float64{0, 180}},
		{Series: []Series{{Points: indexed(rot), Color: RawColor}}, YRange: [2]float64{-180, 180}},
		{Series: []Series{
			{Points: indexed(xs), Color: RawColor},
			{Points: indexed(ys), Color: AltColor},
		}},
	}}
}

// HistogramFigure draws a confidence histogram with a marker at the cutoff
func HistogramFigure(h report.Histogram, cutoff float64) Figure {
	bars := make(orb.LineString, len(h.Counts))
	for i, c := range h.Counts {
		bars[i] = orb.Point{(h.Dividers[i] + h.Dividers[i+1]) / 2, c}
	}
	return Figure{Panels: []Panel{{
		Series: []Series{{Points: bars, Color: RawColor, Bars: true}},
		VLines: []float64{cutoff},
	}}}
}

// SeamFigure draws the percentage of particles per seam class
func SeamFigure(stats report.SeamStats) Figure {
	bars := make(orb.LineString, len(stats))
	for i, s := range stats {
		bars[i] = orb.Point{float64(i + 1), s.Percent}
	}
	return Figure{Panels: []Panel{{
		Series: []Series{{Points: bars, Color: RawColor, Bars: true}},
	}}}
}
