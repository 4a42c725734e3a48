package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used across the service.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})

	With(fields ...zap.Field) Logger
	Sync() error
}

type zapLogger struct {
	base    *zap.Logger
	sugared *zap.SugaredLogger
}

// New builds a zap-backed logger. pretty switches to the console encoder with colored levels.
func New(level string, pretty bool) Logger {
	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	if lvl, ok := parseLevel(level); ok {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	base, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		panic(err)
	}
	return wrap(base)
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return wrap(zap.NewNop())
}

// FromZap wraps an existing zap logger, e.g. one built on zaptest/observer.
func FromZap(base *zap.Logger) Logger {
	return wrap(base)
}

func wrap(base *zap.Logger) Logger {
	return &zapLogger{base: base, sugared: base.Sugar()}
}

func parseLevel(lvl string) (zapcore.Level, bool) {
	switch lvl {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.base.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.base.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.base.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.base.Error(msg, fields...) }
func (l *zapLogger) Fatal(msg string, fields ...zap.Field) { l.base.Fatal(msg, fields...) }

func (l *zapLogger) Debugf(t string, args ...interface{}) { l.sugared.Debugf(t, args...) }
func (l *zapLogger) Infof(t string, args ...interface{})  { l.sugared.Infof(t, args...) }
func (l *zapLogger) Warnf(t string, args ...interface{})  { l.sugared.Warnf(t, args...) }
func (l *zapLogger) Errorf(t string, args ...interface{}) { l.sugared.Errorf(t, args...) }
func (l *zapLogger) Fatalf(t string, args ...interface{}) { l.sugared.Fatalf(t, args...) }

func (l *zapLogger) With(fields ...zap.Field) Logger { return wrap(l.base.With(fields...)) }

func (l *zapLogger) Sync() error { return l.base.Sync() }

// Field constructors re-exported so callers don't import zap directly.
func String(key, val string) zap.Field                 { return zap.String(key, val) }
func Int(key string, val int) zap.Field                { return zap.Int(key, val) }
func Int64(key string, val int64) zap.Field            { return zap.Int64(key, val) }
func Bool(key string, val bool) zap.Field              { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }
func Error(err error) zap.Field                        { return zap.Error(err) }
