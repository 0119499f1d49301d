// Package visualization renders text-free diagnostic plots of correction
// passes as SVG or PNG: per-filament before/after traces and per-pass
// distributions.
package visualization

import (
	"fmt"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"gonum.org/v1/gonum/floats"
)

// Palette used by the figure builders
var (
	RawColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	FitColor     = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	OutlierColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	AltColor     = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Series is one set of points drawn in a panel
type Series struct {
	Points orb.LineString
	Color  color.RGBA

	// Line joins the points; otherwise each point is drawn as a marker
	Line bool

	// Bars draws each point as a bar from y=0
	Bars bool
}

// Panel is one plot area of a figure
type Panel struct {
	Series []Series

	// VLines are vertical marker lines at the given x positions
	VLines []float64

	// YRange fixes the y extent when non-zero
	YRange [2]float64
}

// Figure is a row of panels
type Figure struct {
	Panels []Panel
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// Plotter renders figures to files
type Plotter struct {
	// Format is "svg" or "png"
	Format string

	// PanelWidth and PanelHeight are the size of one panel in millimetres
	PanelWidth, PanelHeight float64
	Padding                 float64
	MarkerRadius            float64

	// GridLines is the number of horizontal grid lines per panel, frame included
	GridLines int

	// Resolution is used for PNG output
	Resolution canvas.Resolution
}

// NewPlotter creates a plotter with default sizes
func NewPlotter(format string) *Plotter {
	return &Plotter{
		Format:       format,
		PanelWidth:   80,
		PanelHeight:  60,
		Padding:      6,
		MarkerRadius: 0.6,
		GridLines:    5,
		Resolution:   canvas.DPI(150),
	}
}

// Ext returns the file extension for the plotter's format
func (p *Plotter) Ext() string {
	if p.Format == "png" {
		return ".png"
	}
	return ".svg"
}

func (p *Plotter) size(fig Figure) (width, height float64) {
	n := len(fig.Panels)
	if n == 0 {
		n = 1
	}
	return float64(n)*(p.PanelWidth+p.Padding) + p.Padding, p.PanelHeight + 2*p.Padding
}

// Render writes the figure to w in the plotter's format
func (p *Plotter) Render(w io.Writer, fig Figure) error {
	width, height := p.size(fig)
	switch p.Format {
	case "png":
		rast := rasterizer.New(width, height, p.Resolution, canvas.DefaultColorSpace)
		p.draw(rast, fig, width, height)
		return png.Encode(w, rast)
	case "svg", "":
		svgRenderer := svg.New(w, width, height, nil)
		p.draw(svgRenderer, fig, width, height)
		return svgRenderer.Close()
	default:
		return fmt.Errorf("unsupported plot format: %s", p.Format)
	}
}

// Save renders the figure to a file, adding the format's extension
func (p *Plotter) Save(fig Figure, path string) (string, error) {
	if filepath.Ext(path) == "" {
		path += p.Ext()
	}
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := p.Render(file, fig); err != nil {
		return "", fmt.Errorf("rendering %s: %w", path, err)
	}
	return path, nil
}

// SaveSequence saves one figure per file into outputDir, named
// <prefix>_0001, <prefix>_0002, ...
func (p *Plotter) SaveSequence(figs []Figure, outputDir, prefix string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(figs))
	for i, fig := range figs {
		name := filepath.Join(outputDir, fmt.Sprintf("%s_%04d%s", prefix, i+1, p.Ext()))
		path, err := p.Save(fig, name)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// gridLines returns n evenly spaced y values across b, from bottom to top
func gridLines(b orb.Bound, n int) []float64 {
	if n < 2 {
		return nil
	}
	return floats.Span(make([]float64, n), b.Min[1], b.Max[1])
}

// bounds returns the data extent of a panel, padded so that it is never empty
func bounds(panel Panel) orb.Bound {
	var mp orb.MultiPoint
	for _, s := range panel.Series {
		mp = append(mp, s.Points...)
		if s.Bars {
			mp = append(mp, orb.Point{s.Points.Bound().Min[0], 0})
		}
	}
	for _, x := range panel.VLines {
		mp = append(mp, orb.Point{x, 0})
	}
	if len(mp) == 0 {
		return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	}
	b := mp.Bound()
	if panel.YRange != [2]float64{} {
		b.Min[1], b.Max[1] = panel.YRange[0], panel.YRange[1]
	}
	if b.Max[0]-b.Min[0] == 0 {
		b.Min[0], b.Max[0] = b.Min[0]-1, b.Max[0]+1
	}
	if b.Max[1]-b.Min[1] == 0 {
		b.Min[1], b.Max[1] = b.Min[1]-1, b.Max[1]+1
	}
	return b
}

func (p *Plotter) draw(renderer canvasRenderer, fig Figure, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	frameStyle := canvas.DefaultStyle
	frameStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	frameStyle.Stroke = canvas.Paint{Color: canvas.Gray}
	frameStyle.StrokeWidth = 0.3

	gridStyle := frameStyle
	gridStyle.StrokeWidth = 0.15

	for i, panel := range fig.Panels {
		x0 := p.Padding + float64(i)*(p.PanelWidth+p.Padding)
		y0 := p.Padding
		renderer.RenderPath(canvas.Rectangle(p.PanelWidth, p.PanelHeight).Translate(x0, y0), frameStyle, canvas.Identity)

		b := bounds(panel)
		sx := p.PanelWidth / (b.Max[0] - b.Min[0])
		sy := p.PanelHeight / (b.Max[1] - b.Min[1])
		toCanvas := func(pt orb.Point) (float64, float64) {
			return x0 + (pt[0]-b.Min[0])*sx, y0 + (pt[1]-b.Min[1])*sy
		}

		if ys := gridLines(b, p.GridLines); len(ys) > 2 {
			// the outermost lines coincide with the frame
			for _, y := range ys[1 : len(ys)-1] {
				_, cy := toCanvas(orb.Point{b.Min[0], y})
				line := &canvas.Path{}
				line.MoveTo(x0, cy)
				line.LineTo(x0+p.PanelWidth, cy)
				renderer.RenderPath(line, gridStyle, canvas.Identity)
			}
		}

		for _, s := range panel.Series {
			p.drawSeries(renderer, s, toCanvas, sx)
		}

		markerStyle := canvas.DefaultStyle
		markerStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		markerStyle.Stroke = canvas.Paint{Color: FitColor}
		markerStyle.StrokeWidth = 0.4
		markerStyle.Dashes = []float64{1.5, 1.5}
		for _, x := range panel.VLines {
			cx, _ := toCanvas(orb.Point{x, 0})
			line := &canvas.Path{}
			line.MoveTo(cx, y0)
			line.LineTo(cx, y0+p.PanelHeight)
			renderer.RenderPath(line, markerStyle, canvas.Identity)
		}
	}
}

func (p *Plotter) drawSeries(renderer canvasRenderer, s Series, toCanvas func(orb.Point) (float64, float64), sx float64) {
	if len(s.Points) == 0 {
		return
	}
	switch {
	case s.Bars:
		barStyle := canvas.DefaultStyle
		barStyle.Fill = canvas.Paint{Color: s.Color}
		barStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
		barWidth := 0.8 * sx
		if len(s.Points) > 1 {
			barWidth = 0.8 * (s.Points[1][0] - s.Points[0][0]) * sx
		}
		for _, pt := range s.Points {
			cx, cy := toCanvas(pt)
			_, base := toCanvas(orb.Point{pt[0], 0})
			h := cy - base
			if h == 0 {
				continue
			}
			renderer.RenderPath(canvas.Rectangle(barWidth, h).Translate(cx-barWidth/2, base), barStyle, canvas.Identity)
		}
	case s.Line:
		lineStyle := canvas.DefaultStyle
		lineStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		lineStyle.Stroke = canvas.Paint{Color: s.Color}
		lineStyle.StrokeWidth = 0.4
		path := &canvas.Path{}
		for i, pt := range s.Points {
			cx, cy := toCanvas(pt)
			if i == 0 {
				path.MoveTo(cx, cy)
			} else {
				path.LineTo(cx, cy)
			}
		}
		renderer.RenderPath(path, lineStyle, canvas.Identity)
	default:
		dotStyle := canvas.DefaultStyle
		dotStyle.Fill = canvas.Paint{Color: s.Color}
		dotStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
		for _, pt := range s.Points {
			cx, cy := toCanvas(pt)
			renderer.RenderPath(canvas.Circle(p.MarkerRadius).Translate(cx, cy), dotStyle, canvas.Identity)
		}
	}
}
