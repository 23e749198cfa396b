package logger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/nbcheck/internal/models"
)

// TestNewConsoleLogger verifies the constructor creates a ConsoleLogger with the provided writer.
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "info")

		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "info" {
			t.Errorf("expected log level %q, got %q", "info", logger.logLevel)
		}
		if logger.colorOutput {
			t.Error("expected color disabled for a buffer")
		}
	})

	t.Run("with nil writer", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "info")
		logger.LogInfo("discarded")
		logger.LogNotebookStart("nb.ipynb", 1, 1)
		logger.LogSummary(models.SuiteResult{})
	})

	t.Run("invalid level defaults to info", func(t *testing.T) {
		logger := NewConsoleLogger(&bytes.Buffer{}, "LOUD")
		if logger.logLevel != "info" {
			t.Errorf("expected log level %q, got %q", "info", logger.logLevel)
		}
	})
}

func TestLogNotebookStart(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogNotebookStart("notebooks/basic_arithmetic.ipynb", 2, 4)

	output := buf.String()
	if !strings.Contains(output, "Running notebook 2/4: notebooks/basic_arithmetic.ipynb") {
		t.Errorf("unexpected output: %q", output)
	}
	if !strings.HasPrefix(output, "[") {
		t.Errorf("expected timestamp prefix, got %q", output)
	}
}

func TestLogNotebookResult(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		result      models.NotebookResult
		contains    []string
		notContains []string
	}{
		{
			name:     "passed",
			level:    "info",
			result:   models.NotebookResult{Path: "a.ipynb", Status: models.StatusPassed, Duration: 1500 * time.Millisecond},
			contains: []string{"PASSED a.ipynb (1.5s)"},
		},
		{
			name:     "skipped with reason",
			level:    "info",
			result:   models.NotebookResult{Path: "b.ipynb", Status: models.StatusSkipped, Reason: "RuntimeError: SKIP: no gpu"},
			contains: []string{"SKIPPED b.ipynb", ": RuntimeError: SKIP: no gpu"},
		},
		{
			name:  "failed hides traceback at info",
			level: "info",
			result: models.NotebookResult{
				Path:   "c.ipynb",
				Status: models.StatusFailed,
				Reason: "ValueError: broken",
				Error:  errors.New("Traceback line\nValueError: broken"),
			},
			contains:    []string{"FAILED c.ipynb", "ValueError: broken"},
			notContains: []string{"Traceback line"},
		},
		{
			name:  "failed shows traceback at debug",
			level: "debug",
			result: models.NotebookResult{
				Path:   "c.ipynb",
				Status: models.StatusFailed,
				Error:  errors.New("Traceback line\nValueError: broken"),
			},
			contains: []string{"  Traceback line", "  ValueError: broken"},
		},
		{
			name:        "suppressed at warn",
			level:       "warn",
			result:      models.NotebookResult{Path: "d.ipynb", Status: models.StatusPassed},
			notContains: []string{"d.ipynb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			NewConsoleLogger(buf, tt.level).LogNotebookResult(tt.result)
			output := buf.String()

			for _, want := range tt.contains {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q, got %q", want, output)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(output, unwanted) {
					t.Errorf("expected output not to contain %q, got %q", unwanted, output)
				}
			}
		})
	}
}

func TestLogProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	NewConsoleLogger(buf, "info").LogProgress(models.SuiteResult{Passed: 1, Failed: 1}, 4)

	if !strings.Contains(buf.String(), "Progress: [==xxx     ] 2/4 (50%) 1 passed, 0 skipped, 1 failed") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestLogSummary(t *testing.T) {
	var result models.SuiteResult
	result.Add(models.NotebookResult{Path: "a.ipynb", Status: models.StatusPassed})
	result.Add(models.NotebookResult{Path: "b.ipynb", Status: models.StatusSkipped, Reason: "SKIP"})
	result.Add(models.NotebookResult{Path: "c.ipynb", Status: models.StatusFailed, Reason: "ValueError: broken"})
	result.Duration = 90 * time.Second

	buf := &bytes.Buffer{}
	NewConsoleLogger(buf, "info").LogSummary(result)
	output := buf.String()

	for _, want := range []string{
		"=== Notebook Summary ===",
		"Total notebooks: 3",
		"Passed: 1",
		"Skipped: 1",
		"Failed: 1",
		"Errored: 0",
		"Duration: 1m30s",
		"Failed notebooks:",
		"- FAILED c.ipynb: ValueError: broken",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "- SKIPPED") {
		t.Errorf("skipped notebooks must not be listed as failed:\n%s", output)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{400 * time.Millisecond, "0.4s"},
		{5 * time.Second, "5.0s"},
		{time.Minute, "1m"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.want {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

// TestConsoleLoggerConcurrentWrites verifies lines are never interleaved.
func TestConsoleLoggerConcurrentWrites(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.LogInfo(fmt.Sprintf("message %d", n))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "[INFO] message ") {
			t.Errorf("malformed line %q", line)
		}
	}
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NewNoOpLogger()
	l.LogInfo("x")
	l.LogNotebookStart("x", 1, 1)
	l.LogNotebookResult(models.NotebookResult{})
	l.LogProgress(models.SuiteResult{Passed: 1}, 1)
	l.LogSummary(models.SuiteResult{})
}

func TestMultiLogger(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	m := NewMultiLogger(NewConsoleLogger(a, "info"), nil, NewConsoleLogger(b, "warn"))

	m.LogInfo("hello")
	m.LogWarn("careful")

	if !strings.Contains(a.String(), "hello") || !strings.Contains(a.String(), "careful") {
		t.Errorf("first logger output = %q", a.String())
	}
	if strings.Contains(b.String(), "hello") || !strings.Contains(b.String(), "careful") {
		t.Errorf("second logger output = %q", b.String())
	}
}
