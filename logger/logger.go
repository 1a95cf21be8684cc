// Package logger provides the leveled, optionally colored logger used
// across glowstream. A package-level default logger writes to stdout;
// components log through the package functions.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level is a logging severity level.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the level's name.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// colorCode returns the ANSI color for the level.
func (l Level) colorCode() string {
	switch l {
	case DEBUG:
		return "\033[36m" // cyan
	case INFO:
		return "\033[32m" // green
	case WARN:
		return "\033[33m" // yellow
	case ERROR:
		return "\033[31m" // red
	case FATAL:
		return "\033[35m" // magenta
	default:
		return "\033[0m"
	}
}

// Logger is a leveled logger built on the standard library log package.
type Logger struct {
	mu        sync.Mutex
	level     Level
	prefix    string
	useColors bool

	debugLog *log.Logger
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
	fatalLog *log.Logger
}

// New creates a logger writing to output. A nil output means stdout.
func New(level Level, output io.Writer, prefix string) *Logger {
	if output == nil {
		output = os.Stdout
	}

	l := &Logger{
		level:     level,
		prefix:    prefix,
		useColors: isTerminal(output),
	}

	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	l.debugLog = log.New(output, l.formatPrefix(DEBUG), flags)
	l.infoLog = log.New(output, l.formatPrefix(INFO), flags)
	l.warnLog = log.New(output, l.formatPrefix(WARN), flags)
	l.errorLog = log.New(output, l.formatPrefix(ERROR), flags)
	l.fatalLog = log.New(output, l.formatPrefix(FATAL), flags)

	return l
}

func (l *Logger) formatPrefix(level Level) string {
	if l.useColors {
		reset := "\033[0m"
		if l.prefix != "" {
			return fmt.Sprintf("%s[%s]%s [%s] ", level.colorCode(), level.String(), reset, l.prefix)
		}
		return fmt.Sprintf("%s[%s]%s ", level.colorCode(), level.String(), reset)
	}

	if l.prefix != "" {
		return fmt.Sprintf("[%s] [%s] ", level.String(), l.prefix)
	}
	return fmt.Sprintf("[%s] ", level.String())
}

func isTerminal(w io.Writer) bool {
	return w == os.Stdout || w == os.Stderr
}

// SetLevel sets the minimum level that will be logged.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum level.
func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.GetLevel() <= DEBUG {
		l.debugLog.Printf(format, v...)
	}
}

// Info logs at INFO level.
func (l *Logger) Info(format string, v ...interface{}) {
	if l.GetLevel() <= INFO {
		l.infoLog.Printf(format, v...)
	}
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, v ...interface{}) {
	if l.GetLevel() <= WARN {
		l.warnLog.Printf(format, v...)
	}
}

// Error logs at ERROR level.
func (l *Logger) Error(format string, v ...interface{}) {
	if l.GetLevel() <= ERROR {
		l.errorLog.Printf(format, v...)
	}
}

// Fatal logs at FATAL level and exits the process.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.fatalLog.Printf(format, v...)
	os.Exit(1)
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug", "DEBUG":
		return DEBUG, nil
	case "info", "INFO":
		return INFO, nil
	case "warn", "WARN", "warning", "WARNING":
		return WARN, nil
	case "error", "ERROR":
		return ERROR, nil
	case "fatal", "FATAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", s)
	}
}

var globalLogger = New(INFO, os.Stdout, "")

// SetGlobalLevel sets the default logger's level.
func SetGlobalLevel(level Level) {
	globalLogger.SetLevel(level)
}

// SetGlobalLevelFromString sets the default logger's level from a name.
func SetGlobalLevelFromString(s string) error {
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	globalLogger.SetLevel(level)
	return nil
}

// Debug logs through the default logger.
func Debug(format string, v ...interface{}) {
	globalLogger.Debug(format, v...)
}

// Info logs through the default logger.
func Info(format string, v ...interface{}) {
	globalLogger.Info(format, v...)
}

// Warn logs through the default logger.
func Warn(format string, v ...interface{}) {
	globalLogger.Warn(format, v...)
}

// Error logs through the default logger.
func Error(format string, v ...interface{}) {
	globalLogger.Error(format, v...)
}

// Fatal logs through the default logger and exits the process.
func Fatal(format string, v ...interface{}) {
	globalLogger.Fatal(format, v...)
}

// Global returns the default logger.
func Global() *Logger {
	return globalLogger
}
