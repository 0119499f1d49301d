// Package correction runs the MiRP correction passes over a particle
// catalog: protofilament number sorting, rotation angle and X/Y shift trend
// correction, seam register correction and metadata reset.
//
// Every pass follows the same steps:
//  1. Check that the output directory does not exist and that the working
//     directory is a pipeline project
//  2. Load the catalog and group its particles into filaments
//  3. Correct each filament, in parallel across NumWorkers goroutines
//  4. Renumber the surviving filaments and write the corrected catalog,
//     statistics and diagnostic plots
package correction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"mirp/pkg/config"
	"mirp/pkg/consensus"
	"mirp/pkg/filament"
	"mirp/pkg/progress"
	"mirp/pkg/register"
	"mirp/pkg/report"
	"mirp/pkg/visualization"
)

var (
	// ErrOutputExists is returned when the output directory already exists
	ErrOutputExists = errors.New("output path already exists")

	// ErrNotPipelineDir is returned when the pipeline marker file is missing
	// from the working directory
	ErrNotPipelineDir = errors.New(PipelineMarker + " not found, run from a RELION project directory")
)

// PipelineMarker is the file that identifies a RELION project directory
const PipelineMarker = "default_pipeline.star"

// Pass names, also used for plot subdirectories and progress topics
const (
	PassPFSort = "pf-sort"
	PassRot    = "rot"
	PassXY     = "xy"
	PassSeam   = "seam"
	PassReset  = "reset"
	PassPlot   = "plot"
)

// Output catalog names
const (
	RotFile      = "rotCorrected_data.star"
	XYFile       = "xyCorrected_data.star"
	SeamFile     = "seamCorrected_data.star"
	ResetFile    = "reset_data.star"
	SeamRefsFile = "seam_references.star"
	RevertFile   = "particles_reverted_data.star"
)

// Params holds the correction parameters
type Params struct {
	// InputFile is the particle catalog to correct
	InputFile string

	// OutputDir is created by the pass and must not exist beforehand
	OutputDir string

	// WorkDir is searched for the pipeline marker; empty means the current directory
	WorkDir string

	// SkipPipelineCheck disables the pipeline marker check
	SkipPipelineCheck bool

	// NumWorkers specifies how many filaments are corrected in parallel
	NumWorkers int

	// Labels controls protofilament number sorting
	Labels consensus.LabelParams

	// RotCutoff links rotation angles closer than this many degrees
	RotCutoff float64

	// ShiftCutoff splits shift signals at jumps larger than this many angstrom
	ShiftCutoff float64

	// Register controls seam register correction
	Register register.Params

	// ReferenceShift is the axial shift of the tubulin-register seam references
	ReferenceShift float64

	// Plots enables diagnostic plots, written as PlotFormat
	Plots      bool
	PlotFormat string

	// RunLog is a file name inside OutputDir that progress lines are appended to
	RunLog string
}

// NewParams fills correction parameters from a configuration
func NewParams(cfg *config.Config) Params {
	return Params{
		NumWorkers: cfg.Processing.NumWorkers,
		Labels: consensus.LabelParams{
			Cutoff:     cfg.Labels.Cutoff,
			MinLength:  cfg.Labels.MinLength,
			WindowLow:  cfg.Labels.WindowLow,
			WindowHigh: cfg.Labels.WindowHigh,
		},
		RotCutoff:   cfg.Trend.RotCutoff,
		ShiftCutoff: cfg.Trend.ShiftCutoff,
		Register: register.Params{
			Cutoff:         cfg.Labels.Cutoff,
			Protofilaments: cfg.Register.Protofilaments,
			Rise:           cfg.Register.Rise,
			TubulinOffset:  cfg.Register.TubulinOffset,
		},
		ReferenceShift: cfg.Register.ReferenceShift,
		Plots:          cfg.Output.Plots,
		PlotFormat:     cfg.Output.PlotFormat,
		RunLog:         cfg.Output.RunLog,
	}
}

// Corrector runs correction passes over one catalog
type Corrector struct {
	params     *Params
	observer   progress.Observer
	plotter    *visualization.Plotter
	collection *filament.Collection
	runLog     io.Closer
}

// NewCorrector creates a corrector. A nil observer discards progress.
func NewCorrector(params *Params, observer progress.Observer) *Corrector {
	if observer == nil {
		observer = progress.Nop{}
	}
	if params.NumWorkers < 1 {
		params.NumWorkers = runtime.NumCPU()
	}
	return &Corrector{
		params:   params,
		observer: observer,
		plotter:  visualization.NewPlotter(params.PlotFormat),
	}
}

// CheckOutput verifies the preconditions shared by every command that writes
// into a new output directory
func CheckOutput(outputDir, workDir string, skipPipelineCheck bool) error {
	if outputDir == "" {
		return fmt.Errorf("no output directory given")
	}
	if _, err := os.Stat(outputDir); err == nil {
		return fmt.Errorf("%w: %s", ErrOutputExists, outputDir)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking output path: %w", err)
	}
	if skipPipelineCheck {
		return nil
	}
	if workDir == "" {
		workDir = "."
	}
	if _, err := os.Stat(filepath.Join(workDir, PipelineMarker)); err != nil {
		return ErrNotPipelineDir
	}
	return nil
}

// Load checks the preconditions, reads the input catalog and only then
// creates the output directory, so that nothing is written when any of
// these steps fails
func (c *Corrector) Load() error {
	if err := CheckOutput(c.params.OutputDir, c.params.WorkDir, c.params.SkipPipelineCheck); err != nil {
		return err
	}
	coll, err := filament.Load(c.params.InputFile)
	if err != nil {
		return fmt.Errorf("loading %s: %w", c.params.InputFile, err)
	}
	c.collection = coll

	if err := os.MkdirAll(c.params.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if c.params.RunLog != "" {
		f, err := os.OpenFile(c.path(c.params.RunLog), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening run log: %w", err)
		}
		c.runLog = f
		c.observer = progress.Multi{c.observer, progress.NewLogObserver(log.New(io.Discard, "", 0), f)}
	}
	c.observer.Message(fmt.Sprintf("Read %d filaments (%d particles) from %s, pixel size %.3f A",
		coll.Len(), coll.ParticleCount(), c.params.InputFile, coll.PixelSize()))
	return nil
}

// Close releases the run log
func (c *Corrector) Close() error {
	if c.runLog == nil {
		return nil
	}
	err := c.runLog.Close()
	c.runLog = nil
	return err
}

// Collection returns the loaded filaments
func (c *Corrector) Collection() *filament.Collection { return c.collection }

func (c *Corrector) path(name string) string {
	return filepath.Join(c.params.OutputDir, name)
}

func (c *Corrector) loaded() error {
	if c.collection == nil {
		return fmt.Errorf("no catalog loaded")
	}
	return nil
}

// forEach calls fn for every filament index, in parallel across NumWorkers
// goroutines. Results must be stored by index; the first error cancels the
// remaining work.
func (c *Corrector) forEach(ctx context.Context, pass string, n int, fn func(i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.params.NumWorkers)

	var done atomic.Int64
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return fmt.Errorf("filament %d: %w", i+1, err)
			}
			c.observer.FilamentDone(pass, int(done.Add(1)), n)
			return nil
		})
	}
	return g.Wait()
}

// writeCollection renumbers the filaments, makes them the working set and
// writes them as a catalog
func (c *Corrector) writeCollection(filaments []*filament.Filament, name string, summary *report.Summary) error {
	if err := filament.Renumber(filaments); err != nil {
		return err
	}
	c.collection.Replace(filaments)
	path := c.path(name)
	if err := c.collection.Save(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	summary.Finish(filaments)
	summary.Outputs = append(summary.Outputs, path)
	return nil
}

// savePlots writes one figure per filament into plots/<pass>
func (c *Corrector) savePlots(pass string, figs []visualization.Figure, summary *report.Summary) error {
	if !c.params.Plots || len(figs) == 0 {
		return nil
	}
	dir := filepath.Join(c.params.OutputDir, "plots", pass)
	if _, err := c.plotter.SaveSequence(figs, dir, "filament"); err != nil {
		return fmt.Errorf("saving %s plots: %w", pass, err)
	}
	summary.Outputs = append(summary.Outputs, dir)
	return nil
}

// saveFigure writes a single pass-level figure into the output directory
func (c *Corrector) saveFigure(fig visualization.Figure, name string, summary *report.Summary) error {
	if !c.params.Plots {
		return nil
	}
	path, err := c.plotter.Save(fig, c.path(name))
	if err != nil {
		return err
	}
	summary.Outputs = append(summary.Outputs, path)
	return nil
}
