// Package obslog wraps a process-wide zap logger behind package-level
// functions, mirroring the teacher's util/log build-tag split
// (log.go/log_release.go) but backed by structured logging instead of the
// bare standard library (grounded on genricoloni-synest's zap wiring).
// base itself is defined per build tag in obslog_dev.go / obslog_release.go.
package obslog

import "go.uber.org/zap"

// Logger wraps a *zap.Logger so callers can carry named/field-scoped loggers
// through a struct, the way the teacher threads its util/log calls.
type Logger struct{ z *zap.Logger }

// With returns a Logger scoped with the given structured fields.
func With(fields ...zap.Field) *Logger {
	return &Logger{z: base.With(fields...)}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.z.Fatal(msg, fields...) }

// Debug/Info/Warn/Error/Fatal are package-level conveniences for call sites
// that do not need a scoped Logger.
func Debug(msg string, fields ...zap.Field) { base.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { base.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { base.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { base.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { base.Fatal(msg, fields...) }

// Sync flushes the underlying logger's buffers.
func Sync() error { return base.Sync() }
