// Package logger provides logging implementations for nbcheck runs.
//
// Loggers report notebook progress and the suite summary. Implementations are
// thread-safe and support various output destinations (console, file).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/nbcheck/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Logger is the full logging surface used by the suite.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogNotebookStart(path string, index, total int)
	LogNotebookResult(result models.NotebookResult)
	LogProgress(result models.SuiteResult, total int)
	LogSummary(result models.SuiteResult)
}

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is enabled when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a file attached to a TTY and color is not
// disabled through NO_COLOR.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel writes "[HH:MM:SS] [LEVEL] <message>" if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	coloredLevel := level
	if cl.colorOutput {
		coloredLevel = levelColor(level).Sprint(level)
	}

	cl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), coloredLevel, message))
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

func statusColor(status string) *color.Color {
	switch status {
	case models.StatusPassed:
		return color.New(color.FgGreen)
	case models.StatusSkipped:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// LogNotebookStart logs that a notebook is about to run at INFO level.
// Format: "[HH:MM:SS] Running notebook <i>/<n>: <path>"
func (cl *ConsoleLogger) LogNotebookStart(path string, index, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	name := path
	if cl.colorOutput {
		name = color.New(color.Bold).Sprint(path)
	}
	cl.write(fmt.Sprintf("[%s] Running notebook %d/%d: %s\n", timestamp(), index, total, name))
}

// LogNotebookResult logs the outcome of a notebook at INFO level.
// Format: "[HH:MM:SS] <STATUS> <path> (<duration>)[: <reason>]"
// The full error is added at DEBUG level.
func (cl *ConsoleLogger) LogNotebookResult(result models.NotebookResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	ts := timestamp()
	status := result.Status
	if cl.colorOutput {
		status = statusColor(result.Status).Sprint(result.Status)
	}

	line := fmt.Sprintf("[%s] %s %s (%s)", ts, status, result.Path, formatDuration(result.Duration))
	if result.Reason != "" {
		line += ": " + result.Reason
	}
	output := line + "\n"

	if result.Error != nil && cl.shouldLog("debug") {
		for _, l := range strings.Split(strings.TrimRight(result.Error.Error(), "\n"), "\n") {
			output += fmt.Sprintf("[%s]   %s\n", ts, l)
		}
	}

	cl.write(output)
}

// LogProgress logs suite progress at INFO level.
// Format: "[HH:MM:SS] Progress: [==sss     ] 2/4 (50%) 1 passed, 1 skipped, 0 failed"
func (cl *ConsoleLogger) LogProgress(result models.SuiteResult, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	pb := NewProgressBar(total, 10, cl.colorOutput)
	pb.Update(result)
	cl.write(fmt.Sprintf("[%s] Progress: %s\n", timestamp(), pb.Render()))
}

// LogSummary logs the suite summary at INFO level.
func (cl *ConsoleLogger) LogSummary(result models.SuiteResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	ts := timestamp()
	paint := func(c *color.Color, format string, args ...interface{}) string {
		if cl.colorOutput {
			return c.Sprintf(format, args...)
		}
		return fmt.Sprintf(format, args...)
	}

	output := fmt.Sprintf("[%s] %s\n", ts, paint(color.New(color.Bold), "=== Notebook Summary ==="))
	output += fmt.Sprintf("[%s] Total notebooks: %d\n", ts, result.Total)
	output += fmt.Sprintf("[%s] %s\n", ts, paint(color.New(color.FgGreen), "Passed: %d", result.Passed))
	output += fmt.Sprintf("[%s] %s\n", ts, paint(color.New(color.FgYellow), "Skipped: %d", result.Skipped))

	if result.Failed > 0 {
		output += fmt.Sprintf("[%s] %s\n", ts, paint(color.New(color.FgRed), "Failed: %d", result.Failed))
	} else {
		output += fmt.Sprintf("[%s] Failed: %d\n", ts, result.Failed)
	}
	if result.Errored > 0 {
		output += fmt.Sprintf("[%s] %s\n", ts, paint(color.New(color.FgRed), "Errored: %d", result.Errored))
	} else {
		output += fmt.Sprintf("[%s] Errored: %d\n", ts, result.Errored)
	}
	output += fmt.Sprintf("[%s] Duration: %s\n", ts, formatDuration(result.Duration))

	if failed := result.FailedNotebooks(); len(failed) > 0 {
		output += fmt.Sprintf("[%s] %s\n", ts, paint(color.New(color.FgRed), "Failed notebooks:"))
		for _, r := range failed {
			output += fmt.Sprintf("[%s]   - %s\n", ts, r.String())
		}
	}

	cl.write(output)
}

func (cl *ConsoleLogger) write(s string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.writer.Write([]byte(s))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "0.4s", "5.0s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) LogNotebookStart(string, int, int) {}
func (n *NoOpLogger) LogNotebookResult(models.NotebookResult) {}
func (n *NoOpLogger) LogProgress(models.SuiteResult, int) {}
func (n *NoOpLogger) LogSummary(models.SuiteResult) {}
