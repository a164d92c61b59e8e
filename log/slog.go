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

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	L *slog.Logger
}

// NewSlogLogger returns a Logger writing text records to w. Debug records are
// only emitted when verbose is set.
func NewSlogLogger(w io.Writer, verbose bool) *SlogLogger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &SlogLogger{L: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

func (s *SlogLogger) log(level slog.Level, msg string) {
	s.L.Log(context.Background(), level, msg)
}

// Errorf is the formatted error logging function.
func (s *SlogLogger) Errorf(format string, args ...any) {
	s.log(slog.LevelError, fmt.Sprintf(format, args...))
}

// Warnf is the formatted warning logging function.
func (s *SlogLogger) Warnf(format string, args ...any) {
	s.log(slog.LevelWarn, fmt.Sprintf(format, args...))
}

// Infof is the formatted info logging function.
func (s *SlogLogger) Infof(format string, args ...any) {
	s.log(slog.LevelInfo, fmt.Sprintf(format, args...))
}

// Debugf is the formatted debug logging function.
func (s *SlogLogger) Debugf(format string, args ...any) {
	s.log(slog.LevelDebug, fmt.Sprintf(format, args...))
}

// Error is the error logging function.
func (s *SlogLogger) Error(args ...any) { s.log(slog.LevelError, fmt.Sprint(args...)) }

// Warn is the warning logging function.
func (s *SlogLogger) Warn(args ...any) { s.log(slog.LevelWarn, fmt.Sprint(args...)) }

// Info is the info logging function.
func (s *SlogLogger) Info(args ...any) { s.log(slog.LevelInfo, fmt.Sprint(args...)) }

// Debug is the debug logging function.
func (s *SlogLogger) Debug(args ...any) { s.log(slog.LevelDebug, fmt.Sprint(args...)) }

// FileOptions configures a size-rotated log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewRotatingFile returns a writer that appends to opts.Path and rotates it
// once it grows past opts.MaxSizeMB.
func NewRotatingFile(opts FileOptions) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
}
