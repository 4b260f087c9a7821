// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

// Package logger provides component-tagged structured logging on top of zap.
package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init replaces the process logger according to cfg.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "console":
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		zcfg.Encoding = "json"
	default:
		return fmt.Errorf("unknown logging.format: %s", cfg.Format)
	}

	l, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	SetLogger(l)
	return nil
}

func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown logging.level: %s", s)
	}
}

// SetLogger swaps the underlying zap logger. Tests use it with an observer core.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Sync() {
	_ = L().Sync()
}

func log(level zapcore.Level, component, message string, fields map[string]interface{}) {
	l := L()
	if ce := l.Check(level, message); ce != nil {
		zf := make([]zap.Field, 0, len(fields)+1)
		if component != "" {
			zf = append(zf, zap.String("component", component))
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err, ok := fields[k].(error); ok {
				zf = append(zf, zap.NamedError(k, err))
				continue
			}
			zf = append(zf, zap.Any(k, fields[k]))
		}
		ce.Write(zf...)
	}
}

func Debug(message string) { log(zapcore.DebugLevel, "", message, nil) }
func Info(message string)  { log(zapcore.InfoLevel, "", message, nil) }
func Warn(message string)  { log(zapcore.WarnLevel, "", message, nil) }
func Error(message string) { log(zapcore.ErrorLevel, "", message, nil) }

func DebugC(component, message string) { log(zapcore.DebugLevel, component, message, nil) }
func InfoC(component, message string)  { log(zapcore.InfoLevel, component, message, nil) }
func WarnC(component, message string)  { log(zapcore.WarnLevel, component, message, nil) }
func ErrorC(component, message string) { log(zapcore.ErrorLevel, component, message, nil) }

func DebugCF(component, message string, fields map[string]interface{}) {
	log(zapcore.DebugLevel, component, message, fields)
}

func InfoCF(component, message string, fields map[string]interface{}) {
	log(zapcore.InfoLevel, component, message, fields)
}

func WarnCF(component, message string, fields map[string]interface{}) {
	log(zapcore.WarnLevel, component, message, fields)
}

func ErrorCF(component, message string, fields map[string]interface{}) {
	log(zapcore.ErrorLevel, component, message, fields)
}
