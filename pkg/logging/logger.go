// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package logging provides the structured logger used across voicegraph.
// It wraps zap's SugaredLogger behind a narrow interface so call sites never
// depend on zap directly.
package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface used throughout the module.
// The *w methods take alternating key/value pairs (zap's sugared convention);
// the *f methods take printf-style format strings.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Info(args ...interface{})
	Error(args ...interface{})

	// With returns a child logger with the given key/value pairs attached
	// to every subsequent log line. Used to scope a logger to a session or turn.
	With(kv ...interface{}) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// Config controls how the root logger is built.
type Config struct {
	Level      string // debug|info|warn|error
	Encoding   string // json|console
	FilePath   string // optional rotating file sink; stdout always receives output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a Logger from Config. With Encoding unset it writes JSON;
// Encoding "console" selects the console encoder.
func New(cfg Config) (Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(zapcoreStdout())), level),
	}

	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{s: base.Sugar()}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

func (l *zapLogger) Info(args ...interface{})  { l.s.Info(args...) }
func (l *zapLogger) Error(args ...interface{}) { l.s.Error(args...) }

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}
