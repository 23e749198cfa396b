package runner

import (
	"errors"
	"strings"

	"github.com/harrison/nbcheck/internal/engine"
)

// DefaultSkipMarker is the traceback token that turns a cell error into an
// intentional skip.
const DefaultSkipMarker = "SKIP"

// OutcomeKind classifies how a notebook run ended.
type OutcomeKind int

const (
	// OutcomeSuccess means every code cell ran without an unhandled error.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeSkip means a cell raised an error carrying the skip marker.
	OutcomeSkip
	// OutcomeFailure means a cell raised an unmarked error, or the run
	// failed outside of cell execution.
	OutcomeFailure
)

// String returns the string representation of OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkip:
		return "skip"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of executing a notebook.
type Outcome struct {
	Kind   OutcomeKind
	Reason string // skip diagnostic: the last non-empty traceback line
	Err    error  // the unchanged execution error, for failures
}

// Classify maps the engine's return value to an Outcome. Only a
// *engine.CellExecutionError whose traceback contains marker is a skip; any
// other error, including kernel failures, is a failure.
func Classify(err error, marker string) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess}
	}

	var ce *engine.CellExecutionError
	if marker != "" && errors.As(err, &ce) && strings.Contains(ce.Traceback, marker) {
		return Outcome{Kind: OutcomeSkip, Reason: LastLine(ce.Traceback)}
	}
	return Outcome{Kind: OutcomeFailure, Err: err}
}

// LastLine returns the last line of text that is not blank.
func LastLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
