// Package engine executes every code cell of a notebook, in order, on a
// single kernel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/nbcheck/internal/kernel"
	"github.com/harrison/nbcheck/internal/notebook"
)

// RaisesExceptionTag marks a cell whose error is expected; the error is kept
// in the cell's outputs and execution continues.
const RaisesExceptionTag = "raises-exception"

// DefaultTimeout is the per-cell timeout used when Config.Timeout is zero.
const DefaultTimeout = 1000 * time.Second

// Config controls how a notebook is executed.
type Config struct {
	// KernelName selects the kernel, e.g. "python3".
	KernelName string
	// Executable overrides the interpreter resolved from KernelName.
	Executable string
	// Timeout bounds each cell. Zero means DefaultTimeout; negative disables it.
	Timeout time.Duration
	// WorkDir is the kernel's working directory.
	WorkDir string
	// AllowErrors records cell errors in outputs instead of stopping.
	AllowErrors bool
}

// Logger receives per-cell progress.
type Logger interface {
	LogDebug(message string)
}

// Engine runs notebooks on kernels obtained from a Launcher.
type Engine struct {
	launcher kernel.Launcher
	config   Config
	logger   Logger
}

// New creates an Engine.
func New(launcher kernel.Launcher, cfg Config) *Engine {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Engine{launcher: launcher, config: cfg}
}

// SetLogger sets the logger for per-cell progress. Nil disables it.
func (e *Engine) SetLogger(l Logger) {
	e.logger = l
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Execute starts a kernel and runs the code cells of doc in order, storing
// outputs and execution counts on the cells. It stops at the first cell that
// raises (unless errors are allowed for that cell) and returns a
// *CellExecutionError; cells after it are left untouched. Kernel failures are
// returned as they are.
func (e *Engine) Execute(ctx context.Context, doc *notebook.Document) error {
	k, err := e.launcher.Launch(ctx, kernel.LaunchSpec{
		Name:       e.config.KernelName,
		Executable: e.config.Executable,
		WorkDir:    e.config.WorkDir,
	})
	if err != nil {
		return fmt.Errorf("launch kernel %s: %w", e.config.KernelName, err)
	}
	defer k.Close()

	for i, cell := range doc.Cells {
		if cell.CellType != notebook.CodeCell {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.executeCell(ctx, k, i, cell); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) executeCell(ctx context.Context, k kernel.Kernel, index int, cell *notebook.Cell) error {
	cell.Outputs = nil
	cell.ExecutionCount = nil

	source := string(cell.Source)
	if strings.TrimSpace(source) == "" {
		return nil
	}

	cellCtx := ctx
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		cellCtx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := k.Execute(cellCtx, source)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return newTimeoutError(index, cell, e.config.Timeout)
		}
		return err
	}
	e.logf("cell %d finished in %s (status %s)", index, time.Since(start).Round(time.Millisecond), reply.Status)

	count := reply.ExecutionCount
	cell.ExecutionCount = &count
	cell.Outputs = reply.Outputs

	if reply.OK() {
		return nil
	}
	if e.config.AllowErrors || cell.HasTag(RaisesExceptionTag) {
		e.logf("cell %d raised %s; continuing", index, reply.EName)
		return nil
	}
	return NewCellExecutionError(index, cell, reply)
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.LogDebug(fmt.Sprintf(format, args...))
	}
}
