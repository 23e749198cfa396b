package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/nbcheck/internal/models"
)

// FileLogger logs suite events to files in a log directory.
// It creates a timestamped per-run log file, per-notebook detail logs for
// notebooks that did not pass, and maintains a latest.log symlink pointing
// to the most recent run.
type FileLogger struct {
	logDir       string
	runLog       *os.File
	runFile      string
	notebooksDir string
	logLevel     string
	mu           sync.Mutex
}

// NewFileLogger creates a FileLogger writing to logDir at the given level.
// It creates the log directory if it doesn't exist, opens a timestamped
// run log file, and creates/updates the latest.log symlink.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	notebooksDir := filepath.Join(logDir, "notebooks")
	if err := os.MkdirAll(notebooksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create notebooks log directory: %w", err)
	}

	// Generate timestamped filename: run-YYYYMMDD-HHMMSS.log
	started := time.Now()
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", started.Format("20060102-150405")))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:       logDir,
		runLog:       file,
		runFile:      runFile,
		notebooksDir: notebooksDir,
		logLevel:     normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== nbcheck Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", started.Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the per-run log file.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogNotebookStart logs the start of a notebook at INFO level.
func (fl *FileLogger) LogNotebookStart(path string, index, total int) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Running notebook %d/%d: %s\n", timestamp(), index, total, path))
}

// LogNotebookResult logs the notebook outcome to the run log and, for
// notebooks that did not pass, writes the full error to notebooks/<name>.log.
func (fl *FileLogger) LogNotebookResult(result models.NotebookResult) {
	if fl.shouldLog("info") {
		line := fmt.Sprintf("[%s] %s %s: duration %.1fs", timestamp(), result.Status, result.Path, result.Duration.Seconds())
		if result.Reason != "" {
			line += " (" + result.Reason + ")"
		}
		fl.writeRunLog(line + "\n")
	}

	if result.Error != nil {
		if err := fl.writeNotebookLog(result); err != nil {
			fl.logWithLevel("WARN", err.Error())
		}
	}
}

func (fl *FileLogger) writeNotebookLog(result models.NotebookResult) error {
	name := strings.TrimSuffix(filepath.Base(result.Path), filepath.Ext(result.Path))
	logPath := filepath.Join(fl.notebooksDir, name+".log")

	content := fmt.Sprintf("=== Notebook %s ===\n", result.Path)
	if result.Title != "" {
		content += fmt.Sprintf("Title: %s\n", result.Title)
	}
	content += fmt.Sprintf("Run: %s\n", result.RunID)
	content += fmt.Sprintf("Kernel: %s\n", result.KernelName)
	content += fmt.Sprintf("Status: %s\n", result.Status)
	content += fmt.Sprintf("Duration: %.1fs\n\n", result.Duration.Seconds())
	content += fmt.Sprintf("Error:\n%v\n\n", result.Error)
	content += fmt.Sprintf("Completed at: %s\n", time.Now().Format(time.RFC3339))

	if err := os.WriteFile(logPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write notebook log: %w", err)
	}
	return nil
}

// LogProgress is a no-op for the file logger; progress bars are console-only.
func (fl *FileLogger) LogProgress(result models.SuiteResult, total int) {
}

// LogSummary logs the suite summary at INFO level.
func (fl *FileLogger) LogSummary(result models.SuiteResult) {
	if !fl.shouldLog("info") {
		return
	}

	ts := timestamp()

	status := "SUCCESS"
	if !result.OK() {
		if result.Passed+result.Skipped == 0 {
			status = "FAILED"
		} else {
			status = "PARTIAL"
		}
	}

	message := fmt.Sprintf(
		"\n[%s] === NOTEBOOK SUMMARY ===\n"+
			"[%s] Run:          %s\n"+
			"[%s] Total:        %d\n"+
			"[%s] Passed:       %d\n"+
			"[%s] Skipped:      %d\n"+
			"[%s] Failed:       %d\n"+
			"[%s] Errored:      %d\n"+
			"[%s] Total time:   %.1fs\n"+
			"[%s] Status:       %s (%d/%d notebooks passed)\n",
		ts,
		ts, result.RunID,
		ts, result.Total,
		ts, result.Passed,
		ts, result.Skipped,
		ts, result.Failed,
		ts, result.Errored,
		ts, result.Duration.Seconds(),
		ts, status, result.Passed+result.Skipped, result.Total,
	)

	fl.writeRunLog(message)
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
