// Package kerneltest provides a scripted in-memory kernel for tests.
package kerneltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/harrison/nbcheck/internal/kernel"
	"github.com/harrison/nbcheck/internal/notebook"
)

// Response scripts the kernel's behavior for one piece of code.
type Response struct {
	Reply  *kernel.Reply
	Err    error
	Block  bool   // wait for the context to expire instead of replying
	Effect func() // runs before the reply is returned
}

// Launcher hands out fake kernels that answer from Script. Code without a
// script entry succeeds with no outputs.
type Launcher struct {
	Script    map[string]Response
	LaunchErr error

	mu       sync.Mutex
	launched []kernel.LaunchSpec
	executed []string
	closed   int
}

// NewLauncher creates a Launcher with an empty script.
func NewLauncher() *Launcher {
	return &Launcher{Script: map[string]Response{}}
}

// On scripts the response for code and returns the launcher for chaining.
func (l *Launcher) On(code string, resp Response) *Launcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Script[code] = resp
	return l
}

// Launch implements kernel.Launcher.
func (l *Launcher) Launch(ctx context.Context, spec kernel.LaunchSpec) (kernel.Kernel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	l.launched = append(l.launched, spec)
	return &fakeKernel{launcher: l, name: spec.Name}, nil
}

// Launched returns the specs of every kernel started so far.
func (l *Launcher) Launched() []kernel.LaunchSpec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]kernel.LaunchSpec(nil), l.launched...)
}

// Executed returns every code string sent to any kernel, in order.
func (l *Launcher) Executed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.executed...)
}

// Closed returns how many kernels were closed.
func (l *Launcher) Closed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

type fakeKernel struct {
	launcher *Launcher
	name     string
	count    int
	closed   bool
}

func (k *fakeKernel) Execute(ctx context.Context, code string) (*kernel.Reply, error) {
	l := k.launcher
	l.mu.Lock()
	if k.closed {
		l.mu.Unlock()
		return nil, &kernel.DeadKernelError{Name: k.name, Err: fmt.Errorf("kernel closed")}
	}
	l.executed = append(l.executed, code)
	resp, ok := l.Script[code]
	k.count++
	count := k.count
	l.mu.Unlock()

	if !ok {
		return &kernel.Reply{Status: kernel.StatusOK, ExecutionCount: count}, nil
	}
	if resp.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if resp.Effect != nil {
		resp.Effect()
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	reply := *resp.Reply
	reply.ExecutionCount = count
	return &reply, nil
}

func (k *fakeKernel) Close() error {
	l := k.launcher
	l.mu.Lock()
	defer l.mu.Unlock()
	if !k.closed {
		k.closed = true
		l.closed++
	}
	return nil
}

// OK scripts a successful cell with the given outputs.
func OK(outputs ...notebook.Output) Response {
	return Response{Reply: &kernel.Reply{Status: kernel.StatusOK, Outputs: outputs}}
}

// Stdout scripts a successful cell that printed text.
func Stdout(text string) Response {
	return OK(notebook.Output{"output_type": "stream", "name": "stdout", "text": text})
}

// Raise scripts a cell that raised ename(evalue).
func Raise(ename, evalue string) Response {
	tb := []string{
		"Traceback (most recent call last):",
		"  File \"<cell>\", line 1, in <module>",
		fmt.Sprintf("%s: %s", ename, evalue),
	}
	return Response{Reply: &kernel.Reply{
		Status:    kernel.StatusError,
		EName:     ename,
		EValue:    evalue,
		Traceback: tb,
		Outputs: []notebook.Output{{
			"output_type": "error",
			"ename":       ename,
			"evalue":      evalue,
			"traceback":   toAny(tb),
		}},
	}}
}

func toAny(lines []string) []any {
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return out
}
