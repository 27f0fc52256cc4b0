// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package logging provides the leveled, fielded Logger contract used
// throughout this module, backed by logrus.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Level represents a logging level.
type Level int

// Supported logging levels, lowest to highest verbosity.
const (
	Error Level = iota
	Warn
	Info
	Debug
)

// Fields is a set of structured key-value pairs attached to a log line.
type Fields map[string]interface{}

// Logger defines the interface every package in this module logs through.
type Logger interface {
	Debug(fmt string, a ...interface{})
	Info(fmt string, a ...interface{})
	Warn(fmt string, a ...interface{})
	Error(fmt string, a ...interface{})
	WithFields(Fields) Logger
	GetLevel() Level
	SetLevel(Level)
}

type logrusLogger struct {
	entry *logrus.Entry
	level Level
}

// New returns a Logger backed by a fresh logrus.Logger at the given level.
func New(level Level) Logger {
	l := logrus.New()
	l.SetLevel(toLogrusLevel(level))
	return &logrusLogger{entry: logrus.NewEntry(l), level: level}
}

func toLogrusLevel(l Level) logrus.Level {
	switch l {
	case Debug:
		return logrus.DebugLevel
	case Info:
		return logrus.InfoLevel
	case Warn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

func (l *logrusLogger) Debug(format string, a ...interface{}) { l.entry.Debugf(format, a...) }
func (l *logrusLogger) Info(format string, a ...interface{})  { l.entry.Infof(format, a...) }
func (l *logrusLogger) Warn(format string, a ...interface{})  { l.entry.Warnf(format, a...) }
func (l *logrusLogger) Error(format string, a ...interface{}) { l.entry.Errorf(format, a...) }

func (l *logrusLogger) WithFields(f Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(f)), level: l.level}
}

func (l *logrusLogger) GetLevel() Level { return l.level }

func (l *logrusLogger) SetLevel(level Level) {
	l.level = level
	l.entry.Logger.SetLevel(toLogrusLevel(level))
}

// Nop returns a Logger that discards everything. Useful as a default when
// callers do not supply one.
func Nop() Logger {
	l := logrus.New()
	l.SetOutput(discard{})
	return &logrusLogger{entry: logrus.NewEntry(l), level: Error}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
