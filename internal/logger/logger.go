// Package logger provides leveled logging for the whole application.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[Level]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

type leveledLogger struct {
	level Level
	out   *log.Logger
}

var defaultLogger *leveledLogger

// Init initializes the default logger with the specified level and format.
func Init(level string, format string) {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	defaultLogger = &leveledLogger{
		level: parseLevel(level),
		out:   log.New(os.Stderr, "", flags),
	}
}

func parseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func logf(level Level, format string, args ...interface{}) {
	if defaultLogger == nil || defaultLogger.level > level {
		return
	}
	msg := fmt.Sprintf("["+levelNames[level]+"] "+format, args...)
	_ = defaultLogger.out.Output(3, msg)
}

func Debug(format string, args ...interface{}) {
	logf(DebugLevel, format, args...)
}

func Info(format string, args ...interface{}) {
	logf(InfoLevel, format, args...)
}

func Warn(format string, args ...interface{}) {
	logf(WarnLevel, format, args...)
}

func Error(format string, args ...interface{}) {
	logf(ErrorLevel, format, args...)
}

// Fatal logs the message regardless of level and exits.
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf("[FATAL] "+format, args...)
	if defaultLogger != nil {
		_ = defaultLogger.out.Output(2, msg)
	} else {
		log.Print(msg)
	}
	os.Exit(1)
}
