// Package progress reports correction progress through an injected Observer
// instead of a shared output stream.
package progress

import (
	"fmt"
	"io"
	"log"
	"sync"

	"mirp/pkg/report"
)

// Observer receives progress events from a correction pass. Implementations
// must be safe for concurrent use: FilamentDone is called from worker goroutines.
type Observer interface {
	PassStarted(pass string, filaments int)
	FilamentDone(pass string, done, total int)
	Message(text string)
	PassFinished(summary report.Summary)
}

// Nop discards every event
type Nop struct{}

func (Nop) PassStarted(string, int)       {}
func (Nop) FilamentDone(string, int, int) {}
func (Nop) Message(string)                {}
func (Nop) PassFinished(report.Summary)   {}

// Multi fans events out to several observers in order
type Multi []Observer

func (m Multi) PassStarted(pass string, filaments int) {
	for _, o := range m {
		o.PassStarted(pass, filaments)
	}
}

func (m Multi) FilamentDone(pass string, done, total int) {
	for _, o := range m {
		o.FilamentDone(pass, done, total)
	}
}

func (m Multi) Message(text string) {
	for _, o := range m {
		o.Message(text)
	}
}

func (m Multi) PassFinished(summary report.Summary) {
	for _, o := range m {
		o.PassFinished(summary)
	}
}

// LogObserver writes progress lines to a logger and, optionally, to the
// job's run log
type LogObserver struct {
	logger *log.Logger
	runOut io.Writer

	// Step is the percentage between two filament progress lines
	Step int

	mu       sync.Mutex
	reported map[string]int
}

// NewLogObserver creates a log observer. runOut may be nil.
func NewLogObserver(logger *log.Logger, runOut io.Writer) *LogObserver {
	if logger == nil {
		logger = log.Default()
	}
	return &LogObserver{
		logger:   logger,
		runOut:   runOut,
		Step:     10,
		reported: make(map[string]int),
	}
}

func (o *LogObserver) write(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	o.logger.Print(line)
	if o.runOut != nil {
		fmt.Fprintln(o.runOut, line)
	}
}

func (o *LogObserver) PassStarted(pass string, filaments int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reported[pass] = 0
	o.write("%s: correcting %d filaments", pass, filaments)
}

func (o *LogObserver) FilamentDone(pass string, done, total int) {
	if total <= 0 {
		return
	}
	pct := done * 100 / total
	step := o.Step
	if step <= 0 {
		step = 10
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	bucket := pct / step
	if prev, ok := o.reported[pass]; ok && bucket <= prev {
		return
	}
	o.reported[pass] = bucket
	o.write("%s: %d/%d filaments (%d%%)", pass, done, total, pct)
}

func (o *LogObserver) Message(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.write("%s", text)
}

func (o *LogObserver) PassFinished(summary report.Summary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.reported, summary.Pass)
	o.write("%s", summary.String())
	for _, out := range summary.Outputs {
		o.write("Wrote %s", out)
	}
}
