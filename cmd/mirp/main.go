package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"mirp/internal/models"
	"mirp/pkg/config"
	"mirp/pkg/correction"
	"mirp/pkg/progress"
	"mirp/pkg/report"
)

const usageText = `Usage: mirp <command> [flags]

Commands:
  pf-sort      vote the protofilament number of every filament and split the catalog by class
  rot          replace rotation angles by the trend of each filament
  xy           replace X/Y shifts by the trend of each filament
  seam         vote the seam class and align every filament to the reference seam
  reset        reset Euler angles and shifts to their priors
  plot         plot Euler angles and shifts per filament
  seam-refs    write the seam reference transforms for a protofilament number
  revert       point segment-average image names back at the original particles
  init-config  write a default configuration file

Run 'mirp <command> -h' for the flags of a command.
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case correction.PassPFSort, correction.PassRot, correction.PassXY, correction.PassSeam,
		correction.PassReset, correction.PassPlot:
		err = runPass(cmd, args)
	case "seam-refs":
		err = runSeamRefs(args)
	case "revert":
		err = runRevert(args)
	case "init-config":
		err = runInitConfig(args)
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

// commonFlags are shared by every command that writes a new job directory
type commonFlags struct {
	fs         *flag.FlagSet
	input      *string
	output     *string
	configPath *string
	workers    *int
	skipCheck  *bool
	plots      *bool
	format     *string
}

func newCommonFlags(name string) *commonFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &commonFlags{
		fs:         fs,
		input:      fs.String("i", "", "Input particle catalog (.star)"),
		output:     fs.String("o", "", "Output job directory, must not exist"),
		configPath: fs.String("config", "", "YAML configuration file"),
		workers:    fs.Int("j", 0, "Number of filaments corrected in parallel (default from config)"),
		skipCheck:  fs.Bool("skip-pipeline-check", false, "Do not require "+correction.PipelineMarker+" in the working directory"),
		plots:      fs.Bool("plots", true, "Write diagnostic plots"),
		format:     fs.String("plot-format", "", "Plot format, svg or png (default from config)"),
	}
}

// set reports whether a flag was given on the command line
func (c *commonFlags) set(name string) bool {
	found := false
	c.fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// load reads the configuration and overlays the flags given on the command line
func (c *commonFlags) load() (*config.Config, correction.Params, error) {
	cfg, err := config.LoadConfig(*c.configPath)
	if err != nil {
		return nil, correction.Params{}, err
	}
	if c.set("j") {
		cfg.Processing.NumWorkers = *c.workers
	}
	if c.set("plots") {
		cfg.Output.Plots = *c.plots
	}
	if c.set("plot-format") {
		cfg.Output.PlotFormat = *c.format
	}
	if err := cfg.Validate(); err != nil {
		return nil, correction.Params{}, err
	}
	params := correction.NewParams(cfg)
	params.InputFile = *c.input
	params.OutputDir = *c.output
	params.SkipPipelineCheck = *c.skipCheck
	return cfg, params, nil
}

// newObserver logs progress and, when a broker is configured, publishes it
// over MQTT. The returned function disconnects from the broker.
func newObserver(cfg *config.Config) (progress.Observer, func()) {
	logger := log.Default()
	if !cfg.Output.Verbose {
		logger = log.New(io.Discard, "", 0)
	}
	obs := progress.Multi{progress.NewLogObserver(logger, nil)}
	if cfg.MQTT.Broker == "" {
		return obs, func() {}
	}
	mq, client, err := progress.DialMQTT(progress.MQTTOptions{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	})
	if err != nil {
		log.Printf("Warning: progress publishing disabled: %v", err)
		return obs, func() {}
	}
	log.Printf("Publishing progress to %s", cfg.MQTT.Broker)
	return append(obs, mq), func() { client.Disconnect(250) }
}

func banner() {
	fmt.Println("================================")
	fmt.Println("MiRP: MICROTUBULE RELION-BASED PIPELINE")
	fmt.Println("Per-filament consensus correction of particle metadata")
	fmt.Println("================================")
}

func runPass(name string, args []string) error {
	c := newCommonFlags(name)
	var cutoff, rise *float64
	var pf *int
	var labels, indices *string
	switch name {
	case correction.PassPFSort:
		cutoff = c.fs.Float64("cutoff", 0, "Confidence cutoff in percent (default from config)")
	case correction.PassRot:
		cutoff = c.fs.Float64("cutoff", 0, "Largest rotation difference in degrees within a cluster (default from config)")
	case correction.PassXY:
		cutoff = c.fs.Float64("cutoff", 0, "Largest shift jump in angstrom within a stretch (default from config)")
	case correction.PassSeam:
		cutoff = c.fs.Float64("cutoff", 0, "Confidence cutoff in percent (default from config)")
		pf = c.fs.Int("pf", 0, "Protofilament number of the seam references (default from config)")
		rise = c.fs.Float64("rise", 0, "Helical rise in angstrom (default from config)")
	case correction.PassReset:
		labels = c.fs.String("labels", strings.Join([]string{models.AngleTilt, models.AnglePsi, models.OriginX, models.OriginY}, ","),
			"Comma-separated labels to reset")
	case correction.PassPlot:
		indices = c.fs.String("n", "", "Comma-separated 1-based filament numbers to plot (default all)")
	}
	c.fs.Parse(args)

	if *c.input == "" || *c.output == "" {
		c.fs.Usage()
		os.Exit(1)
	}

	cfg, params, err := c.load()
	if err != nil {
		return err
	}
	if c.set("cutoff") {
		switch name {
		case correction.PassPFSort:
			params.Labels.Cutoff = *cutoff
		case correction.PassRot:
			params.RotCutoff = *cutoff
		case correction.PassXY:
			params.ShiftCutoff = *cutoff
		case correction.PassSeam:
			params.Register.Cutoff = *cutoff
		}
	}
	if c.set("pf") {
		params.Register.Protofilaments = *pf
	}
	if c.set("rise") {
		params.Register.Rise = *rise
	}

	banner()
	observer, disconnect := newObserver(cfg)
	defer disconnect()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	corrector := correction.NewCorrector(&params, observer)
	if err := corrector.Load(); err != nil {
		return err
	}
	defer corrector.Close()

	fmt.Printf("Correcting %s with %d workers...\n", params.InputFile, params.NumWorkers)
	startTime := time.Now()

	var summary report.Summary
	switch name {
	case correction.PassPFSort:
		summary, err = corrector.VotePFNumber(ctx)
	case correction.PassRot:
		summary, err = corrector.VoteRot(ctx)
	case correction.PassXY:
		summary, err = corrector.VoteXY(ctx)
	case correction.PassSeam:
		summary, err = corrector.VoteSeam(ctx)
	case correction.PassReset:
		summary, err = corrector.Reset(splitList(*labels)...)
	case correction.PassPlot:
		var n []int
		if n, err = parseIndices(*indices); err == nil {
			summary, err = corrector.PlotEulerXY(n...)
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nCompleted in %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Println(summary.String())
	fmt.Printf("Output saved to: %s\n", params.OutputDir)
	return nil
}

func runSeamRefs(args []string) error {
	c := newCommonFlags("seam-refs")
	pf := c.fs.Int("pf", 0, "Protofilament number (default from config)")
	rise := c.fs.Float64("rise", 0, "Helical rise in angstrom (default from config)")
	apix := c.fs.Float64("apix", 0, "Pixel size in angstrom per pixel")
	shift := c.fs.Float64("shift", 0, "Axial shift of the tubulin register references in angstrom (default from config)")
	c.fs.Parse(args)

	if *c.output == "" || *apix <= 0 {
		c.fs.Usage()
		os.Exit(1)
	}
	_, params, err := c.load()
	if err != nil {
		return err
	}
	if c.set("pf") {
		params.Register.Protofilaments = *pf
	}
	if c.set("rise") {
		params.Register.Rise = *rise
	}
	if c.set("shift") {
		params.ReferenceShift = *shift
	}

	refs, err := correction.SeamReferences(params.Register.Protofilaments, params.Register.Rise, *apix, params.ReferenceShift)
	if err != nil {
		return err
	}
	path, err := correction.WriteSeamReferences(&params, refs)
	if err != nil {
		return err
	}
	for _, r := range refs {
		fmt.Printf("class %2d  seam %+d  rot %8.3f  z %8.3f px  -> %s, %s\n",
			r.Class, r.SeamPosition, r.DeltaRot, r.DeltaZ, r.Name, r.ShiftedName)
	}
	fmt.Printf("Seam references saved to: %s\n", path)
	return nil
}

func runRevert(args []string) error {
	fs := flag.NewFlagSet("revert", flag.ExitOnError)
	input := fs.String("i", "", "Segment-average particle catalog (.star)")
	output := fs.String("o", "", "Output directory")
	extract := fs.String("extract", "", "Original extraction directory, e.g. Extract/job011/Micrographs")
	fs.Parse(args)

	if *input == "" || *output == "" || *extract == "" {
		fs.Usage()
		os.Exit(1)
	}
	path, err := correction.Revert(*input, *output, *extract)
	if err != nil {
		return err
	}
	fmt.Printf("Reverted to original particles from segment averages.\n%s saved to %s\n", correction.RevertFile, path)
	return nil
}

func runInitConfig(args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	path := fs.String("config", "mirp.yaml", "Configuration file to write")
	fs.Parse(args)

	if _, err := os.Stat(*path); err == nil {
		return fmt.Errorf("%s already exists", *path)
	}
	if err := config.CreateDefaultConfigFile(*path); err != nil {
		return err
	}
	fmt.Printf("Default configuration written to %s\n", *path)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseIndices(s string) ([]int, error) {
	var out []int
	for _, f := range splitList(s) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid filament number %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}
