// Package suite runs a list of notebooks one after another and aggregates
// their outcomes into a SuiteResult.
package suite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/nbcheck/internal/engine"
	"github.com/harrison/nbcheck/internal/logger"
	"github.com/harrison/nbcheck/internal/models"
	"github.com/harrison/nbcheck/internal/runner"
)

// Recorder persists finished suite runs.
type Recorder interface {
	RecordRun(ctx context.Context, result *models.SuiteResult, kernelName string, startedAt time.Time) error
}

// Config configures a Suite.
type Config struct {
	// FailFast stops after the first notebook that fails or errors.
	FailFast bool
	// OutputDir receives each executed notebook under its base name when set.
	OutputDir string
}

// Suite drives a Runner across many notebooks.
type Suite struct {
	runner   *runner.Runner
	config   Config
	logger   logger.Logger
	recorder Recorder
	newRunID func() string
}

// New creates a Suite around r.
func New(r *runner.Runner, cfg Config) *Suite {
	s := &Suite{
		runner:   r,
		config:   cfg,
		newRunID: uuid.NewString,
	}
	s.SetLogger(nil)
	return s
}

// SetLogger sets the logger for the suite and its runner. Nil disables logging.
func (s *Suite) SetLogger(l logger.Logger) {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	s.logger = l
	s.runner.SetLogger(l)
}

// SetRecorder enables run history. Nil disables it.
func (s *Suite) SetRecorder(r Recorder) {
	s.recorder = r
}

// Run executes notebooks in order. Every notebook gets a result, unless
// FailFast stops the suite early or ctx is cancelled, in which case the
// partial result is returned together with ctx.Err().
func (s *Suite) Run(ctx context.Context, notebooks []string) (*models.SuiteResult, error) {
	started := time.Now()
	result := &models.SuiteResult{RunID: s.newRunID()}
	s.logger.LogDebug(fmt.Sprintf("suite run %s: %d notebook(s) on kernel %s", result.RunID, len(notebooks), s.runner.KernelName()))

	var runErr error
	for i, path := range notebooks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		s.logger.LogNotebookStart(path, i+1, len(notebooks))
		nr := s.RunNotebook(ctx, path)
		nr.RunID = result.RunID
		result.Add(nr)
		s.logger.LogNotebookResult(nr)
		s.logger.LogProgress(*result, len(notebooks))

		if nr.Passed() {
			continue
		}
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
		if s.config.FailFast {
			s.logger.LogWarn(fmt.Sprintf("fail-fast: stopping after %s", path))
			break
		}
	}

	result.Duration = time.Since(started)
	s.logger.LogSummary(*result)

	if s.recorder != nil {
		// Recording outlives a cancelled run so interrupted suites still show up
		if err := s.recorder.RecordRun(context.WithoutCancel(ctx), result, s.runner.KernelName(), started); err != nil {
			s.logger.LogWarn(fmt.Sprintf("record run history: %v", err))
		}
	}

	return result, runErr
}

// RunNotebook executes one notebook and converts the runner's outcome to a
// NotebookResult.
func (s *Suite) RunNotebook(ctx context.Context, path string) models.NotebookResult {
	nr := models.NotebookResult{
		Path:       path,
		KernelName: s.runner.KernelName(),
		StartedAt:  time.Now(),
	}

	res, err := s.runner.Run(ctx, path)
	nr.Duration = time.Since(nr.StartedAt)

	if res != nil && res.Document != nil {
		nr.Title = res.Document.Title()
		if s.config.OutputDir != "" {
			out := filepath.Join(s.config.OutputDir, filepath.Base(path))
			if werr := res.Document.WriteFile(out); werr != nil {
				s.logger.LogWarn(fmt.Sprintf("write executed notebook: %v", werr))
			} else {
				nr.OutputPath = out
			}
		}
	}

	switch {
	case err != nil:
		nr.Error = err
		var ce *engine.CellExecutionError
		if errors.As(err, &ce) {
			nr.Status = models.StatusFailed
			nr.Reason = runner.LastLine(ce.Traceback)
		} else {
			nr.Status = models.StatusError
			nr.Reason = firstLine(err.Error())
		}
	case res.Outcome.Kind == runner.OutcomeSkip:
		nr.Status = models.StatusSkipped
		nr.Reason = res.Outcome.Reason
	default:
		nr.Status = models.StatusPassed
	}

	return nr
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
