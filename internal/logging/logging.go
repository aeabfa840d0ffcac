package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

// Fields is an alias so callers don't need to import logrus directly.
type Fields = logrus.Fields

var (
	currentLevel LogLevel
	levelOnce    sync.Once
	logger       = logrus.New()
)

// initLevel initializes the log level and formatter from environment variables
func initLevel() {
	levelOnce.Do(func() {
		currentLevel = parseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
		logger.SetLevel(toLogrus(currentLevel))
		logger.SetFormatter(formatterFor(os.Getenv("LOG_FORMAT")))
	})
}

// parseLevel resolves the effective level. DEBUG wins over LOG_LEVEL.
func parseLevel(debug, level string) LogLevel {
	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func formatterFor(format string) logrus.Formatter {
	if strings.EqualFold(format, "json") {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{FullTimestamp: true, DisableLevelTruncation: true}
}

func toLogrus(l LogLevel) logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// SetLevel overrides the level picked up from the environment.
func SetLevel(l LogLevel) {
	initLevel()
	currentLevel = l
	logger.SetLevel(toLogrus(l))
}

// Configure applies level and format settings from loaded configuration.
// An empty level keeps the current one.
func Configure(level, format string, debug bool) {
	initLevel()
	if debug || level != "" {
		d := ""
		if debug {
			d = "1"
		}
		SetLevel(parseLevel(d, level))
	}
	if format != "" {
		logger.SetFormatter(formatterFor(format))
	}
}

// SetOutput redirects log output. Tests use it to silence or capture logs.
func SetOutput(w io.Writer) {
	initLevel()
	logger.SetOutput(w)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	initLevel()
	logger.Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	initLevel()
	logger.Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	initLevel()
	logger.Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	initLevel()
	logger.Errorf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	initLevel()
	logger.Fatalf(format, args...)
}

// WithFields returns an entry carrying structured context, e.g. a scan run id.
func WithFields(fields Fields) *logrus.Entry {
	initLevel()
	return logger.WithFields(fields)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
