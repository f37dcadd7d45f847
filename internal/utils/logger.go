// internal/utils/logger.go
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

// Logger is a levelled logger writing one line per entry to stdout and,
// once InitLogger has been called, to a log file.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	file    *os.File
	level   LogLevel
	enabled bool
	exit    func(int)
}

// LogEntry represents a log entry
type LogEntry struct {
	Level     string                 `json:"level"`
	Timestamp time.Time              `json:"timestamp"`
	Message   string                 `json:"message"`
	File      string                 `json:"file"`
	Line      int                    `json:"line"`
	Func      string                 `json:"func"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = NewLogger(os.Stdout, INFO)
	})
	return globalLogger
}

// NewLogger creates a logger writing to out
func NewLogger(out io.Writer, level LogLevel) *Logger {
	return &Logger{
		out:     out,
		level:   level,
		enabled: true,
		exit:    os.Exit,
	}
}

// InitLogger attaches a log file to the global logger
func InitLogger(logFile string) error {
	logger := GetLogger()

	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if logger.file != nil {
		logger.file.Close()
	}

	logger.file = file
	return nil
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// SetLogLevel sets the minimum level for logging
func (l *Logger) SetLogLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Enable enables or disables logging
func (l *Logger) Enable(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// ParseLogLevel maps a level name to a LogLevel, defaulting to INFO
func ParseLogLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARNING
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	l.mu.Lock()
	skip := !l.enabled || level < l.level
	l.mu.Unlock()
	if skip {
		return
	}

	// Skip log and the exported wrapper
	pc, file, line, ok := runtime.Caller(2)
	funcName := ""
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			funcName = fn.Name()
			if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
				funcName = funcName[idx+1:]
			}
		}
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
	}

	entry := LogEntry{
		Level:     levelToString(level),
		Timestamp: time.Now(),
		Message:   message,
		File:      file,
		Line:      line,
		Func:      funcName,
		Fields:    fields,
	}

	logLine := formatEntry(entry)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.WriteString(logLine)
		l.file.Sync()
	}
	if l.out != nil {
		io.WriteString(l.out, logLine)
	}

	if level == FATAL {
		l.exit(1)
	}
}

// formatEntry renders an entry; fields are sorted so lines are stable
func formatEntry(entry LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s:%d:%s - %s",
		entry.Level,
		entry.Timestamp.Format("2006-01-02 15:04:05.000"),
		entry.File,
		entry.Line,
		entry.Func,
		entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for key := range entry.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for _, key := range keys {
			fmt.Fprintf(&b, " %s=%v", key, entry.Fields[key])
		}
	}

	b.WriteString("\n")
	return b.String()
}

func levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DEBUG, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(INFO, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WARNING, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ERROR, message, fields)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, fields map[string]interface{}) {
	l.log(FATAL, message, fields)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(WARNING, fmt.Sprintf(format, args...), nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(format, args...), nil)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(FATAL, fmt.Sprintf(format, args...), nil)
}
