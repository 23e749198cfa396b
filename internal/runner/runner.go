// Package runner executes a single notebook end to end and triages the
// outcome.
//
// A run loads the notebook, forces its kernelspec to the configured kernel,
// executes every code cell in order and classifies the first cell error: an
// error whose traceback contains the skip marker is an intentional skip and
// the run returns normally; any other error is returned unchanged.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/harrison/nbcheck/internal/engine"
	"github.com/harrison/nbcheck/internal/kernel"
	"github.com/harrison/nbcheck/internal/notebook"
)

// Logger receives runner diagnostics.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// Config configures a Runner. KernelName is required; it is written into
// every notebook's kernelspec and used to start the kernel.
type Config struct {
	KernelName  string
	Executable  string
	Timeout     time.Duration
	WorkDir     string
	AllowErrors bool

	// SkipMarker defaults to DefaultSkipMarker.
	SkipMarker string

	// Stdout receives the skip diagnostic and the timing line. Defaults to
	// io.Discard.
	Stdout io.Writer
}

// Result is the outcome of one notebook run.
type Result struct {
	// Document is the executed notebook with outputs filled in.
	Document *notebook.Document
	// Errors lists errors collected during the run. Genuine failures are
	// returned rather than collected, so a returned Result always has an
	// empty list; a non-empty list fails the run.
	Errors   []error
	Outcome  Outcome
	Duration time.Duration
}

// Passed reports whether the run satisfied its post-condition.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// Runner runs notebooks one at a time.
type Runner struct {
	config Config
	engine *engine.Engine
	logger Logger
}

// New creates a Runner whose engine starts kernels with launcher.
func New(launcher kernel.Launcher, cfg Config) (*Runner, error) {
	if cfg.KernelName == "" {
		return nil, fmt.Errorf("kernel name is required")
	}
	if cfg.SkipMarker == "" {
		cfg.SkipMarker = DefaultSkipMarker
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}

	eng := engine.New(launcher, engine.Config{
		KernelName:  cfg.KernelName,
		Executable:  cfg.Executable,
		Timeout:     cfg.Timeout,
		WorkDir:     cfg.WorkDir,
		AllowErrors: cfg.AllowErrors,
	})
	return &Runner{config: cfg, engine: eng}, nil
}

// SetLogger sets the diagnostics logger. Nil disables logging.
func (r *Runner) SetLogger(l Logger) {
	r.logger = l
	r.engine.SetLogger(l)
}

// KernelName returns the kernel the runner injects and executes with.
func (r *Runner) KernelName() string {
	return r.config.KernelName
}

// Run executes the notebook at path.
//
// A notebook that cannot be loaded yields a *notebook.LoadError and no
// Result. A genuine cell failure yields the engine's *engine.CellExecutionError
// together with a Result holding the partially executed document, so callers
// can keep it for inspection. A skip or success returns a Result and nil.
func (r *Runner) Run(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	doc, err := notebook.Load(path)
	if err != nil {
		return nil, err
	}
	for _, msg := range doc.SchemaErrors {
		r.warn(fmt.Sprintf("%s: notebook schema: %s", path, msg))
	}

	doc.SetKernelName(r.config.KernelName)

	errs := []error{}
	outcome := Classify(r.engine.Execute(ctx, doc), r.config.SkipMarker)
	result := &Result{Document: doc, Errors: errs, Outcome: outcome}

	switch outcome.Kind {
	case OutcomeFailure:
		result.Duration = time.Since(start)
		return result, outcome.Err
	case OutcomeSkip:
		fmt.Fprintln(r.config.Stdout, outcome.Reason)
		r.info(fmt.Sprintf("%s skipped: %s", path, outcome.Reason))
	case OutcomeSuccess:
		r.debug(fmt.Sprintf("%s executed %d code cell(s)", path, doc.CodeCells()))
	}

	result.Duration = time.Since(start)
	fmt.Fprintf(r.config.Stdout, "time %.3f\n", result.Duration.Seconds())
	return result, nil
}

func (r *Runner) debug(msg string) {
	if r.logger != nil {
		r.logger.LogDebug(msg)
	}
}

func (r *Runner) info(msg string) {
	if r.logger != nil {
		r.logger.LogInfo(msg)
	}
}

func (r *Runner) warn(msg string) {
	if r.logger != nil {
		r.logger.LogWarn(msg)
	}
}
