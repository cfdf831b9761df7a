package common

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// --------------------------------------------------------------------------
// Log Level Definition
// --------------------------------------------------------------------------

// LogLevel controls how much a logger writes
type LogLevel int

const (
	CRITICAL LogLevel = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

// --------------------------------------------------------------------------
// Logger Interface
// --------------------------------------------------------------------------

// ILogger is the leveled logging interface used by every package
type ILogger interface {
	SetLevel(level LogLevel)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Panicf(format string, args ...interface{})
}

// --------------------------------------------------------------------------
// Custom Logger (implements ILogger)
// --------------------------------------------------------------------------

// muxLogger implements the ILogger interface with custom formatting
type muxLogger struct {
	name   string
	level  LogLevel
	logger *log.Logger
}

func (l *muxLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *muxLogger) Debugf(format string, args ...interface{}) {
	if l.level >= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *muxLogger) Infof(format string, args ...interface{}) {
	if l.level >= INFO {
		l.log("INFO", format, args...)
	}
}

func (l *muxLogger) Warningf(format string, args ...interface{}) {
	if l.level >= WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *muxLogger) Errorf(format string, args ...interface{}) {
	if l.level >= ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *muxLogger) Panicf(format string, args ...interface{}) {
	if l.level >= CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *muxLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Registry
// --------------------------------------------------------------------------

var (
	loggersMu sync.Mutex
	loggers   = map[string]ILogger{}
)

// GetLogger returns the named logger, creating it on first use. Loggers
// created before InitLoggers runs start at INFO
func GetLogger(pkgName string) ILogger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[pkgName]; ok {
		return l
	}

	// Create standard logger with custom flags
	stdLogger := log.New(os.Stdout, "", log.Ldate|log.Ltime)

	l := &muxLogger{
		name:   pkgName,
		level:  INFO,
		logger: stdLogger,
	}
	loggers[pkgName] = l
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseLogLevel converts a string level to LogLevel
func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warning", "warn":
		return WARNING
	case "error":
		return ERROR
	default:
		panic(fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error", level))
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers sets the configured level on all named loggers
func InitLoggers(logLevel string) {
	level := parseLogLevel(logLevel)

	for _, name := range []string{"server", "poller", "conntab", "client", "sessionlog"} {
		GetLogger(name).SetLevel(level)
	}
}
