package kernel

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

//go:embed driver.py
var driverSource string

const (
	startupTimeout = 60 * time.Second
	shutdownGrace  = 5 * time.Second
	stderrTailSize = 8 * 1024
)

// SubprocessLauncher starts kernels as local interpreter processes running
// the embedded driver.
type SubprocessLauncher struct {
	// Executables maps kernel names to interpreter commands. Names missing
	// from the map are used as the command themselves.
	Executables map[string]string

	// Stderr, when set, receives the kernel's stderr in addition to the
	// tail kept for DeadKernelError.
	Stderr io.Writer
}

// NewSubprocessLauncher creates a launcher with no executable overrides.
func NewSubprocessLauncher() *SubprocessLauncher {
	return &SubprocessLauncher{Executables: map[string]string{}}
}

type request struct {
	Code string `json:"code"`
}

type readyMessage struct {
	Status string `json:"status"`
}

type subprocessKernel struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	reader *bufio.Reader
	stderr *tailBuffer
	exited chan struct{}

	mu   sync.Mutex
	dead error
}

// Executable resolves the interpreter command for spec.
func (l *SubprocessLauncher) Executable(spec LaunchSpec) string {
	if spec.Executable != "" {
		return spec.Executable
	}
	if exe, ok := l.Executables[spec.Name]; ok && exe != "" {
		return exe
	}
	return spec.Name
}

// Launch starts the interpreter and waits for the driver's ready message.
func (l *SubprocessLauncher) Launch(ctx context.Context, spec LaunchSpec) (Kernel, error) {
	exe := l.Executable(spec)
	path, err := exec.LookPath(exe)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: interpreter %q not found: %w", spec.Name, exe, err)
	}

	cmd := exec.Command(path, "-u", "-c", driverSource)
	cmd.Dir = spec.WorkDir
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1", "PYTHONIOENCODING=utf-8")
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	// A plain os.Pipe so Wait never closes the read end under a pending reply.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	tail := newTailBuffer(stderrTailSize)
	if l.Stderr != nil {
		cmd.Stderr = io.MultiWriter(tail, l.Stderr)
	} else {
		cmd.Stderr = tail
	}

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("starting kernel %s: %w", spec.Name, err)
	}
	stdoutW.Close()

	k := &subprocessKernel{
		name:   spec.Name,
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdoutR,
		reader: bufio.NewReader(stdoutR),
		stderr: tail,
		exited: make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(k.exited)
	}()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	line, err := k.readLine(startCtx)
	if err != nil {
		k.kill()
		k.waitExit(time.Second)
		return nil, k.deadError(fmt.Errorf("waiting for ready message: %w", err))
	}
	var ready readyMessage
	if err := json.Unmarshal(line, &ready); err != nil || ready.Status != "ready" {
		k.kill()
		k.waitExit(time.Second)
		return nil, k.deadError(fmt.Errorf("unexpected startup message %q", strings.TrimSpace(string(line))))
	}

	return k, nil
}

// Execute sends one cell to the driver and waits for its reply. On context
// expiry the kernel is killed, since the running cell cannot be interrupted
// safely over this protocol.
func (k *subprocessKernel) Execute(ctx context.Context, code string) (*Reply, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.dead != nil {
		return nil, k.dead
	}

	payload, err := json.Marshal(request{Code: code})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if _, err := k.stdin.Write(append(payload, '\n')); err != nil {
		k.dead = k.deadError(fmt.Errorf("write request: %w", err))
		return nil, k.dead
	}

	line, err := k.readLine(ctx)
	if err != nil {
		if ctx.Err() != nil {
			k.kill()
			k.dead = k.deadError(ctx.Err())
			return nil, ctx.Err()
		}
		k.waitExit(time.Second)
		k.dead = k.deadError(err)
		return nil, k.dead
	}

	var reply Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("decode reply from kernel %s: %w", k.name, err)
	}
	return &reply, nil
}

// readLine reads one protocol line, giving up when ctx is done.
func (k *subprocessKernel) readLine(ctx context.Context) ([]byte, error) {
	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := k.reader.ReadBytes('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.line, nil
	}
}

// Close ends the driver loop by closing stdin, killing the process if it
// does not exit within the grace period.
func (k *subprocessKernel) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	_ = k.stdin.Close()
	select {
	case <-k.exited:
	case <-time.After(shutdownGrace):
		k.kill()
		<-k.exited
	}
	if k.dead == nil {
		k.dead = &DeadKernelError{Name: k.name, Err: fmt.Errorf("kernel closed")}
	}
	return k.stdout.Close()
}

func (k *subprocessKernel) kill() {
	if k.cmd.Process != nil {
		_ = k.cmd.Process.Kill()
	}
}

// waitExit gives the process a moment to exit so its stderr is complete.
func (k *subprocessKernel) waitExit(d time.Duration) {
	select {
	case <-k.exited:
	case <-time.After(d):
	}
}

func (k *subprocessKernel) deadError(err error) *DeadKernelError {
	return &DeadKernelError{Name: k.name, Err: err, Stderr: k.stderr.String()}
}

// DetectMajor asks the interpreter for its major version.
func DetectMajor(ctx context.Context, executable string) (int, error) {
	out, err := exec.CommandContext(ctx, executable, "-c", "import sys; print(sys.version_info[0])").Output()
	if err != nil {
		return 0, fmt.Errorf("probing %s version: %w", executable, err)
	}
	major, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("probing %s version: unexpected output %q", executable, strings.TrimSpace(string(out)))
	}
	return major, nil
}

// tailBuffer keeps the last size bytes written to it.
type tailBuffer struct {
	mu   sync.Mutex
	size int
	buf  []byte
}

func newTailBuffer(size int) *tailBuffer {
	return &tailBuffer{size: size}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.size; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
