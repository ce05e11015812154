// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package logger builds the zap logger used by the monitor.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels accepted in the configuration.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// defaultLevel is used when an unknown level string is provided.
const defaultLevel = zapcore.InfoLevel

// ParseLevel converts a textual level to a zapcore.Level. The second value is
// false when the text is not one of the known levels.
func ParseLevel(level string) (zapcore.Level, bool) {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel, true
	case InfoLevel:
		return zapcore.InfoLevel, true
	case WarnLevel:
		return zapcore.WarnLevel, true
	case ErrorLevel:
		return zapcore.ErrorLevel, true
	default:
		return defaultLevel, false
	}
}

// New returns a sugared logger writing line oriented console output to
// stdout.
func New(level string) *zap.SugaredLogger {
	return NewTo(os.Stdout, level)
}

// NewTo is New with an explicit destination.
func NewTo(w io.Writer, level string) *zap.SugaredLogger {
	l, _ := ParseLevel(level)
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(l),
	)
	return zap.New(core).Sugar()
}
