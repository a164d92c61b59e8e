// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log defines the packcheck logger interface. By default it uses the Go
// logger but it can be replaced with user-defined loggers, e.g. SlogLogger.
package log

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Logger is the logging interface used throughout packcheck.
type Logger interface {
	// Logs in different log levels, either formatted or unformatted.
	Errorf(format string, args ...any)
	Error(args ...any)
	Warnf(format string, args ...any)
	Warn(args ...any)
	Infof(format string, args ...any)
	Info(args ...any)
	Debugf(format string, args ...any)
	Debug(args ...any)
}

// Level is the severity of a log record.
type Level int

// Level values.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

var (
	mu     sync.RWMutex
	logger Logger = &DefaultLogger{}
)

// SetLogger replaces the process-wide logger and returns the previous one so
// callers can restore it.
func SetLogger(l Logger) Logger {
	mu.Lock()
	defer mu.Unlock()
	prev := logger
	logger = l
	return prev
}

func current() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Errorf is the static formatted error logging function.
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Warnf is the static formatted warning logging function.
func Warnf(format string, args ...any) { current().Warnf(format, args...) }

// Infof is the static formatted info logging function.
func Infof(format string, args ...any) { current().Infof(format, args...) }

// Debugf is the static formatted debug logging function.
func Debugf(format string, args ...any) { current().Debugf(format, args...) }

// Error is the static error logging function.
func Error(args ...any) { current().Error(args...) }

// Warn is the static warning logging function.
func Warn(args ...any) { current().Warn(args...) }

// Info is the static info logging function.
func Info(args ...any) { current().Info(args...) }

// Debug is the static debug logging function.
func Debug(args ...any) { current().Debug(args...) }

// DefaultLogger is the Logger implementation used by default. Every line is
// prefixed with its level so check faults stand out from event traces.
type DefaultLogger struct {
	// Verbose enables debug lines.
	Verbose bool
	// Out receives the lines. Nil means the standard logger, i.e. stderr.
	Out io.Writer

	once sync.Once
	out  *log.Logger
}

func (l *DefaultLogger) output(level Level, msg string) {
	if level == LevelDebug && !l.Verbose {
		return
	}
	l.once.Do(func() {
		if l.Out != nil {
			l.out = log.New(l.Out, "", log.LstdFlags)
		} else {
			l.out = log.Default()
		}
	})
	l.out.Print(level.String() + " " + msg)
}

// Errorf is the formatted error logging function.
func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.output(LevelError, fmt.Sprintf(format, args...))
}

// Warnf is the formatted warning logging function.
func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.output(LevelWarn, fmt.Sprintf(format, args...))
}

// Infof is the formatted info logging function.
func (l *DefaultLogger) Infof(format string, args ...any) {
	l.output(LevelInfo, fmt.Sprintf(format, args...))
}

// Debugf is the formatted debug logging function.
func (l *DefaultLogger) Debugf(format string, args ...any) {
	l.output(LevelDebug, fmt.Sprintf(format, args...))
}

// Error is the error logging function.
func (l *DefaultLogger) Error(args ...any) { l.output(LevelError, fmt.Sprint(args...)) }

// Warn is the warning logging function.
func (l *DefaultLogger) Warn(args ...any) { l.output(LevelWarn, fmt.Sprint(args...)) }

// Info is the info logging function.
func (l *DefaultLogger) Info(args ...any) { l.output(LevelInfo, fmt.Sprint(args...)) }

// Debug is the debug logging function.
func (l *DefaultLogger) Debug(args ...any) { l.output(LevelDebug, fmt.Sprint(args...)) }
