package kernel

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

func launchPython(t *testing.T, workDir string) Kernel {
	t.Helper()
	requirePython(t)

	k, err := NewSubprocessLauncher().Launch(context.Background(), LaunchSpec{Name: "python3", WorkDir: workDir})
	require.NoError(t, err)
	t.Cleanup(func() { k.Close() })
	return k
}

func TestSubprocessKernel_Execute(t *testing.T) {
	k := launchPython(t, t.TempDir())
	ctx := context.Background()

	reply, err := k.Execute(ctx, "x = 1 + 1\nprint('ok', x)")
	require.NoError(t, err)
	require.True(t, reply.OK())
	assert.Equal(t, 1, reply.ExecutionCount)
	require.Len(t, reply.Outputs, 1)
	assert.Equal(t, "stream", reply.Outputs[0].Type())
	assert.Equal(t, "ok 2\n", reply.Outputs[0].Text())

	// Namespace persists across cells and the last expression is reported.
	reply, err = k.Execute(ctx, "x * 21")
	require.NoError(t, err)
	assert.Equal(t, 2, reply.ExecutionCount)
	require.Len(t, reply.Outputs, 1)
	assert.Equal(t, "execute_result", reply.Outputs[0].Type())
	assert.Equal(t, "42", reply.Outputs[0].Text())
}

func TestSubprocessKernel_CellError(t *testing.T) {
	k := launchPython(t, t.TempDir())

	reply, err := k.Execute(context.Background(), "raise ValueError('SKIP: not today')")
	require.NoError(t, err)
	assert.False(t, reply.OK())
	assert.Equal(t, "ValueError", reply.EName)
	assert.Equal(t, "SKIP: not today", reply.EValue)
	require.NotEmpty(t, reply.Traceback)
	assert.Equal(t, "ValueError: SKIP: not today", reply.Traceback[len(reply.Traceback)-1])
	assert.Equal(t, "error", reply.Outputs[len(reply.Outputs)-1].Type())

	// The kernel survives a cell error.
	reply, err = k.Execute(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, reply.OK())
}

func TestSubprocessKernel_WorkDir(t *testing.T) {
	dir := t.TempDir()
	k := launchPython(t, dir)

	reply, err := k.Execute(context.Background(), "import os\nos.getcwd()")
	require.NoError(t, err)
	require.Len(t, reply.Outputs, 1)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got := strings.Trim(reply.Outputs[0].Text(), "'")
	got, err = filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSubprocessKernel_Timeout(t *testing.T) {
	k := launchPython(t, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := k.Execute(ctx, "import time\ntime.sleep(30)")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = k.Execute(context.Background(), "1")
	assert.True(t, IsDeadKernelError(err))
}

func TestSubprocessKernel_ProcessExit(t *testing.T) {
	k := launchPython(t, t.TempDir())

	_, err := k.Execute(context.Background(), "import os\nos._exit(3)")
	require.Error(t, err)
	assert.True(t, IsDeadKernelError(err))
}

func TestSubprocessLauncher_MissingInterpreter(t *testing.T) {
	_, err := NewSubprocessLauncher().Launch(context.Background(), LaunchSpec{Name: "nbcheck-no-such-python"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDetectMajor(t *testing.T) {
	requirePython(t)

	major, err := DetectMajor(context.Background(), "python3")
	require.NoError(t, err)
	assert.Equal(t, 3, major)
}
