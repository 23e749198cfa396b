package kernel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameForMajor(t *testing.T) {
	tests := []struct {
		major int
		want  string
	}{
		{2, "python2"},
		{3, "python3"},
		{4, "python4"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, NameForMajor(tt.major))
		})
	}
}

func TestReplyOK(t *testing.T) {
	assert.True(t, (&Reply{Status: StatusOK}).OK())
	assert.False(t, (&Reply{Status: StatusError}).OK())
}

func TestDeadKernelError(t *testing.T) {
	cause := errors.New("EOF")
	err := &DeadKernelError{Name: "python3", Err: cause, Stderr: "Segmentation fault\n"}

	assert.Equal(t, "kernel python3 died: EOF\nstderr:\nSegmentation fault", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsDeadKernelError(fmt.Errorf("run: %w", err)))
	assert.False(t, IsDeadKernelError(cause))
	assert.False(t, IsDeadKernelError(nil))
}

func TestTailBuffer(t *testing.T) {
	buf := newTailBuffer(5)
	buf.Write([]byte("abc"))
	buf.Write([]byte("defg"))
	assert.Equal(t, "cdefg", buf.String())
}

func TestSubprocessLauncher_Executable(t *testing.T) {
	l := &SubprocessLauncher{Executables: map[string]string{"python3": "/opt/py/bin/python"}}

	assert.Equal(t, "/opt/py/bin/python", l.Executable(LaunchSpec{Name: "python3"}))
	assert.Equal(t, "python2", l.Executable(LaunchSpec{Name: "python2"}))
	assert.Equal(t, "pypy3", l.Executable(LaunchSpec{Name: "python3", Executable: "pypy3"}))
}
