// Package kernel starts and talks to the interpreter process that evaluates
// notebook cells.
//
// A kernel is a long-lived subprocess holding the notebook's namespace. It
// reads one JSON request per line on stdin and answers with one JSON reply
// per line:
//
//	-> {"code": "print(1)"}
//	<- {"status": "ok", "execution_count": 1, "outputs": [...]}
//
// Replies carry nbformat v4 output objects, so they can be stored on the
// notebook unchanged.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/nbcheck/internal/notebook"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Kernel executes code cells one at a time against a persistent namespace.
type Kernel interface {
	// Execute runs code and blocks until the kernel replies or ctx is done.
	// A cell that raises is reported through Reply.Status, not the error
	// return; the error return is reserved for kernel and transport failures.
	Execute(ctx context.Context, code string) (*Reply, error)

	// Close shuts the kernel down.
	Close() error
}

// Launcher starts kernels.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Kernel, error)
}

// LaunchSpec describes the kernel to start.
type LaunchSpec struct {
	// Name is the kernel identifier, e.g. "python3".
	Name string
	// Executable overrides the interpreter resolved from Name.
	Executable string
	// WorkDir is the kernel's working directory; relative paths inside the
	// notebook resolve against it.
	WorkDir string
}

// Reply is the kernel's answer to one execute request.
type Reply struct {
	Status         string            `json:"status"`
	ExecutionCount int               `json:"execution_count"`
	Outputs        []notebook.Output `json:"outputs"`
	EName          string            `json:"ename,omitempty"`
	EValue         string            `json:"evalue,omitempty"`
	Traceback      []string          `json:"traceback,omitempty"`
}

// OK reports whether the cell completed without raising.
func (r *Reply) OK() bool {
	return r.Status != StatusError
}

// NameForMajor returns the kernel identifier for an interpreter major
// version: 3 -> "python3".
func NameForMajor(major int) string {
	return fmt.Sprintf("python%d", major)
}

// DeadKernelError reports a kernel process that exited or stopped answering
// while a notebook was running.
type DeadKernelError struct {
	Name   string
	Err    error
	Stderr string // tail of the kernel's stderr, if any
}

// Error implements the error interface for DeadKernelError.
func (e *DeadKernelError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("kernel %s died", e.Name))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		sb.WriteString(fmt.Sprintf("\nstderr:\n%s", tail))
	}
	return sb.String()
}

// Unwrap returns the underlying transport or process error.
func (e *DeadKernelError) Unwrap() error {
	return e.Err
}

// IsDeadKernelError checks if the error is or wraps a DeadKernelError.
func IsDeadKernelError(err error) bool {
	if err == nil {
		return false
	}
	var de *DeadKernelError
	return errors.As(err, &de)
}
