package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel accepts the level names used in config files and on the command line.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

type Logger struct {
	level       Level
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger writes every level to out. A nil out means stdout.
func NewLogger(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	flags := log.Ldate | log.Ltime

	return &Logger{
		level:       level,
		debugLogger: log.New(out, "DEBUG: ", flags),
		infoLogger:  log.New(out, "INFO: ", flags),
		warnLogger:  log.New(out, "WARNING: ", flags),
		errorLogger: log.New(out, "ERROR: ", flags),
	}
}

// NopLogger discards everything; handy in tests.
func NopLogger() *Logger {
	return NewLogger(LevelError+1, io.Discard)
}

func (l *Logger) Debug(v ...interface{}) {
	if l.level <= LevelDebug {
		l.debugLogger.Println(v...)
	}
}

func (l *Logger) Info(v ...interface{}) {
	if l.level <= LevelInfo {
		l.infoLogger.Println(v...)
	}
}

func (l *Logger) Warn(v ...interface{}) {
	if l.level <= LevelWarn {
		l.warnLogger.Println(v...)
	}
}

func (l *Logger) Error(v ...interface{}) {
	if l.level <= LevelError {
		l.errorLogger.Println(v...)
	}
}
