// Package logging adapts zap to the runtime.Logger interface the match code logs through,
// so the same packages run inside Nakama and in standalone tools.
package logging

import (
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

// ZapLogger is a runtime.Logger backed by a zap logger.
type ZapLogger struct {
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	fields map[string]interface{}
}

// NewZapLogger wraps base. Caller frames skip the adapter.
func NewZapLogger(base *zap.Logger) *ZapLogger {
	base = base.WithOptions(zap.AddCallerSkip(1))
	return &ZapLogger{base: base, sugar: base.Sugar(), fields: map[string]interface{}{}}
}

// New builds a production JSON logger, or a console development logger when dev is set.
func New(dev bool) (*ZapLogger, error) {
	var (
		base *zap.Logger
		err  error
	)
	if dev {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return NewZapLogger(base), nil
}

func (l *ZapLogger) Debug(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }
func (l *ZapLogger) Info(format string, v ...interface{})  { l.sugar.Infof(format, v...) }
func (l *ZapLogger) Warn(format string, v ...interface{})  { l.sugar.Warnf(format, v...) }
func (l *ZapLogger) Error(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }

func (l *ZapLogger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *ZapLogger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
		zapFields = append(zapFields, zap.Any(k, v))
	}
	base := l.base.With(zapFields...)
	return &ZapLogger{base: base, sugar: base.Sugar(), fields: merged}
}

func (l *ZapLogger) Fields() map[string]interface{} {
	return l.fields
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.base.Sync()
}

var _ runtime.Logger = (*ZapLogger)(nil)
