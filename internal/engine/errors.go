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

// CellExecutionError reports a code cell that raised while the notebook was
// executing. Its message is the full formatted traceback.
type CellExecutionError struct {
	CellIndex int    // index of the cell in Document.Cells
	Source    string // source of the failing cell
	EName     string // exception class name
	EValue    string // exception message
	Traceback string // formatted report, see formatTraceback
	Err       error  // underlying cause for timeouts, nil otherwise
}

// Error implements the error interface for CellExecutionError.
func (e *CellExecutionError) Error() string {
	return e.Traceback
}

// Unwrap returns the underlying cause, if any.
func (e *CellExecutionError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the cell was stopped by the per-cell timeout.
func (e *CellExecutionError) IsTimeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// NewCellExecutionError builds the error for a cell whose reply has status
// "error".
func NewCellExecutionError(index int, cell *notebook.Cell, reply *kernel.Reply) *CellExecutionError {
	source := string(cell.Source)
	return &CellExecutionError{
		CellIndex: index,
		Source:    source,
		EName:     reply.EName,
		EValue:    reply.EValue,
		Traceback: formatTraceback(source, reply.Traceback, reply.EName, reply.EValue),
	}
}

// newTimeoutError builds the error for a cell that exceeded the timeout.
func newTimeoutError(index int, cell *notebook.Cell, timeout time.Duration) *CellExecutionError {
	source := string(cell.Source)
	evalue := fmt.Sprintf("Cell execution timed out after %s", timeout)
	return &CellExecutionError{
		CellIndex: index,
		Source:    source,
		EName:     "CellTimeoutError",
		EValue:    evalue,
		Traceback: formatTraceback(source, nil, "CellTimeoutError", evalue),
		Err:       context.DeadlineExceeded,
	}
}

// formatTraceback lays out the report as:
//
//	An error occurred while executing the following cell:
//	------------------
//	<source>
//	------------------
//
//	<traceback>
//	<ename>: <evalue>
//
// The "<ename>: <evalue>" line is only added when the traceback does not
// already end with a line for ename, so the last non-empty line always names
// the exception.
func formatTraceback(source string, traceback []string, ename, evalue string) string {
	var sb strings.Builder
	sb.WriteString("An error occurred while executing the following cell:\n")
	sb.WriteString("------------------\n")
	sb.WriteString(source)
	sb.WriteString("\n------------------\n\n")
	if len(traceback) > 0 {
		sb.WriteString(strings.Join(traceback, "\n"))
		sb.WriteString("\n")
	}
	if !endsWithException(traceback, ename) {
		sb.WriteString(fmt.Sprintf("%s: %s\n", ename, evalue))
	}
	return sb.String()
}

// endsWithException reports whether the last non-empty traceback line is
// the "<ename>: ..." summary line.
func endsWithException(traceback []string, ename string) bool {
	for i := len(traceback) - 1; i >= 0; i-- {
		line := strings.TrimSpace(traceback[i])
		if line == "" {
			continue
		}
		return line == ename || strings.HasPrefix(line, ename+":")
	}
	return false
}

// IsCellExecutionError checks if the error is or wraps a CellExecutionError.
func IsCellExecutionError(err error) bool {
	if err == nil {
		return false
	}
	var ce *CellExecutionError
	return errors.As(err, &ce)
}
