package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/nbcheck/internal/engine"
	"github.com/harrison/nbcheck/internal/kernel"
	"github.com/harrison/nbcheck/internal/kernel/kerneltest"
	"github.com/harrison/nbcheck/internal/notebook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCodeNotebook writes a notebook with one code cell per source.
func writeCodeNotebook(t *testing.T, kernelspec map[string]any, sources ...string) string {
	t.Helper()

	doc := &notebook.Document{Metadata: map[string]any{}, NBFormat: 4, NBFormatMinor: 4}
	if kernelspec != nil {
		doc.Metadata["kernelspec"] = kernelspec
	}
	for _, src := range sources {
		doc.Cells = append(doc.Cells, &notebook.Cell{
			CellType: notebook.CodeCell,
			Metadata: map[string]any{},
			Source:   notebook.MultilineString(src),
		})
	}

	path := filepath.Join(t.TempDir(), "nb.ipynb")
	require.NoError(t, doc.WriteFile(path))
	return path
}

func newRunner(t *testing.T, launcher kernel.Launcher, stdout *bytes.Buffer) *Runner {
	t.Helper()
	r, err := New(launcher, Config{KernelName: "python3", WorkDir: t.TempDir(), Stdout: stdout})
	require.NoError(t, err)
	return r
}

func TestNew_RequiresKernelName(t *testing.T) {
	_, err := New(kerneltest.NewLauncher(), Config{})
	require.Error(t, err)
}

func TestRun_Success(t *testing.T) {
	launcher := kerneltest.NewLauncher().On(`print("ok")`, kerneltest.Stdout("ok\n"))
	var stdout bytes.Buffer
	r := newRunner(t, launcher, &stdout)

	res, err := r.Run(context.Background(), writeCodeNotebook(t, nil, `print("ok")`))
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, res.Outcome.Kind)
	assert.Empty(t, res.Errors)
	assert.True(t, res.Passed())
	assert.Contains(t, res.Document.Cells[0].Outputs[0].Text(), "ok")
	assert.True(t, strings.HasPrefix(stdout.String(), "time "), "timing line expected, got %q", stdout.String())
}

func TestRun_SkipMarker(t *testing.T) {
	launcher := kerneltest.NewLauncher().On("check()", kerneltest.Raise("RuntimeError", "SKIP: needs a GPU"))
	var stdout bytes.Buffer
	r := newRunner(t, launcher, &stdout)

	res, err := r.Run(context.Background(), writeCodeNotebook(t, nil, "check()", "after()"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkip, res.Outcome.Kind)
	assert.Equal(t, "RuntimeError: SKIP: needs a GPU", res.Outcome.Reason)
	assert.Empty(t, res.Errors)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "RuntimeError: SKIP: needs a GPU", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "time "))

	// The engine stops at the skipping cell.
	assert.Equal(t, []string{"check()"}, launcher.Executed())
}

func TestRun_MarkerInCellSourceSkips(t *testing.T) {
	launcher := kerneltest.NewLauncher().On("# SKIP unless configured\nfail()", kerneltest.Raise("NameError", "fail"))
	r := newRunner(t, launcher, &bytes.Buffer{})

	res, err := r.Run(context.Background(), writeCodeNotebook(t, nil, "# SKIP unless configured\nfail()"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkip, res.Outcome.Kind)
	assert.Equal(t, "NameError: fail", res.Outcome.Reason)
}

func TestRun_GenuineFailureStopsExecution(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "marker")
	launcher := kerneltest.NewLauncher().
		On("fail()", kerneltest.Raise("ValueError", "broken")).
		On("touch()", kerneltest.Response{
			Reply:  &kernel.Reply{Status: kernel.StatusOK},
			Effect: func() { os.WriteFile(marker, nil, 0644) },
		})
	var stdout bytes.Buffer
	r := newRunner(t, launcher, &stdout)

	res, err := r.Run(context.Background(), writeCodeNotebook(t, nil, "fail()", "touch()"))
	require.Error(t, err)

	var ce *engine.CellExecutionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "ValueError", ce.EName)
	assert.Same(t, ce, res.Outcome.Err.(*engine.CellExecutionError))
	assert.Equal(t, OutcomeFailure, res.Outcome.Kind)

	assert.NoFileExists(t, marker)
	assert.Equal(t, []string{"fail()"}, launcher.Executed())
	assert.Empty(t, stdout.String(), "no timing line after a failure")
}

func TestRun_KernelFailureIsNeverASkip(t *testing.T) {
	dead := &kernel.DeadKernelError{Name: "python3", Err: errors.New("SKIP this")}
	launcher := kerneltest.NewLauncher().On("crash()", kerneltest.Response{Err: dead})
	r := newRunner(t, launcher, &bytes.Buffer{})

	_, err := r.Run(context.Background(), writeCodeNotebook(t, nil, "crash()"))
	assert.True(t, kernel.IsDeadKernelError(err))
}

func TestRun_LoadError(t *testing.T) {
	r := newRunner(t, kerneltest.NewLauncher(), &bytes.Buffer{})

	res, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "missing.ipynb"))
	assert.Nil(t, res)
	assert.True(t, notebook.IsLoadError(err))
}

func TestRun_KernelNameInjected(t *testing.T) {
	tests := []struct {
		name       string
		kernelspec map[string]any
	}{
		{"absent", nil},
		{"other major", map[string]any{"name": "python2", "display_name": "Python 2", "language": "python"}},
		{"unrelated kernel", map[string]any{"name": "ir", "display_name": "R", "language": "R"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			launcher := kerneltest.NewLauncher()
			r, err := New(launcher, Config{KernelName: kernel.NameForMajor(3)})
			require.NoError(t, err)

			res, err := r.Run(context.Background(), writeCodeNotebook(t, tt.kernelspec, "x = 1"))
			require.NoError(t, err)
			assert.Equal(t, "python3", res.Document.KernelName())
			assert.Equal(t, "python3", launcher.Launched()[0].Name)
		})
	}
}

func TestRun_Idempotent(t *testing.T) {
	tests := []struct {
		name string
		resp kerneltest.Response
		want OutcomeKind
	}{
		{"success", kerneltest.Stdout("ok\n"), OutcomeSuccess},
		{"skip", kerneltest.Raise("RuntimeError", "SKIP"), OutcomeSkip},
		{"failure", kerneltest.Raise("RuntimeError", "boom"), OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			launcher := kerneltest.NewLauncher().On("cell()", tt.resp)
			r := newRunner(t, launcher, &bytes.Buffer{})
			path := writeCodeNotebook(t, nil, "cell()")

			for i := 0; i < 2; i++ {
				res, _ := r.Run(context.Background(), path)
				require.NotNil(t, res)
				assert.Equal(t, tt.want, res.Outcome.Kind, "run %d", i+1)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	skipErr := &engine.CellExecutionError{Traceback: "cell\nRuntimeError: SKIP: slow\n"}
	failErr := &engine.CellExecutionError{Traceback: "cell\nRuntimeError: slow\n"}
	other := errors.New("SKIP but not a cell error")

	tests := []struct {
		name   string
		err    error
		marker string
		want   OutcomeKind
		reason string
	}{
		{"nil", nil, "SKIP", OutcomeSuccess, ""},
		{"marked", skipErr, "SKIP", OutcomeSkip, "RuntimeError: SKIP: slow"},
		{"wrapped marked", errors.Join(errors.New("ctx"), skipErr), "SKIP", OutcomeSkip, "RuntimeError: SKIP: slow"},
		{"unmarked", failErr, "SKIP", OutcomeFailure, ""},
		{"case sensitive", &engine.CellExecutionError{Traceback: "skip\n"}, "SKIP", OutcomeFailure, ""},
		{"custom marker", failErr, "slow", OutcomeSkip, "RuntimeError: slow"},
		{"empty marker", skipErr, "", OutcomeFailure, ""},
		{"non-cell error", other, "SKIP", OutcomeFailure, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, tt.marker)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.reason, got.Reason)
			if tt.want == OutcomeFailure {
				assert.Same(t, tt.err, got.Err)
			}
		})
	}
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "c", LastLine("a\nb\nc\n"))
	assert.Equal(t, "c", LastLine("a\nc\n\n  \n"))
	assert.Equal(t, "  indented", LastLine("a\n  indented\r\n"))
	assert.Equal(t, "", LastLine("\n\n"))
}

func TestOutcomeKindString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "skip", OutcomeSkip.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
	assert.Equal(t, "unknown", OutcomeKind(9).String())
}
