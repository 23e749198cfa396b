package logger

import "github.com/harrison/nbcheck/internal/models"

// MultiLogger fans every call out to each wrapped logger in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger returns a MultiLogger over the non-nil loggers given.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogTrace(message string) {
	for _, l := range m.loggers {
		l.LogTrace(message)
	}
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *MultiLogger) LogNotebookStart(path string, index, total int) {
	for _, l := range m.loggers {
		l.LogNotebookStart(path, index, total)
	}
}

func (m *MultiLogger) LogNotebookResult(result models.NotebookResult) {
	for _, l := range m.loggers {
		l.LogNotebookResult(result)
	}
}

func (m *MultiLogger) LogProgress(result models.SuiteResult, total int) {
	for _, l := range m.loggers {
		l.LogProgress(result, total)
	}
}

func (m *MultiLogger) LogSummary(result models.SuiteResult) {
	for _, l := range m.loggers {
		l.LogSummary(result)
	}
}
