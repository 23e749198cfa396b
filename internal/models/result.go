package models

import (
	"fmt"
	"time"
)

// Notebook run status constants
const (
	StatusPassed  = "PASSED"  // Every cell executed
	StatusSkipped = "SKIPPED" // A cell raised an error carrying the skip marker
	StatusFailed  = "FAILED"  // A cell raised an error
	StatusError   = "ERROR"   // The notebook could not be loaded or the kernel died
)

// NotebookResult represents the result of running a single notebook
type NotebookResult struct {
	RunID      string        // Suite run this result belongs to
	Path       string        // Notebook path as discovered
	Title      string        // First markdown heading, if any
	KernelName string        // Kernel the notebook ran under
	Status     string        // Status: "PASSED", "SKIPPED", "FAILED", "ERROR"
	Reason     string        // Skip diagnostic or last line of the error
	Error      error         // Error if the notebook failed
	Duration   time.Duration // Time taken to execute
	OutputPath string        // Where the executed notebook was written
	StartedAt  time.Time
}

// Passed reports whether the notebook counts as passing. Skips pass.
func (r NotebookResult) Passed() bool {
	return r.Status == StatusPassed || r.Status == StatusSkipped
}

// String renders a one-line description of the result.
func (r NotebookResult) String() string {
	if r.Reason == "" {
		return fmt.Sprintf("%s %s", r.Status, r.Path)
	}
	return fmt.Sprintf("%s %s: %s", r.Status, r.Path, r.Reason)
}

// SuiteResult represents the aggregate result of running a set of notebooks
type SuiteResult struct {
	RunID    string           // Unique id for the suite run
	Total    int              // Total number of notebooks
	Passed   int              // Number of passing notebooks
	Skipped  int              // Number of skipped notebooks
	Failed   int              // Number of notebooks with a cell error
	Errored  int              // Number of notebooks that could not run
	Duration time.Duration    // Total execution time
	Results  []NotebookResult // Per-notebook results in execution order
}

// Add appends a notebook result and updates the counters.
func (s *SuiteResult) Add(r NotebookResult) {
	s.Results = append(s.Results, r)
	s.Total++
	switch r.Status {
	case StatusPassed:
		s.Passed++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	default:
		s.Errored++
	}
}

// OK reports whether no notebook failed or errored.
func (s *SuiteResult) OK() bool {
	return s.Failed == 0 && s.Errored == 0
}

// FailedNotebooks returns the failed and errored results.
func (s *SuiteResult) FailedNotebooks() []NotebookResult {
	var failed []NotebookResult
	for _, r := range s.Results {
		if !r.Passed() {
			failed = append(failed, r)
		}
	}
	return failed
}
