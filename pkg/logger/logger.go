// Package logger is the zap-backed structured logger. A request or task
// carries its logger in the context; the package-level helpers log through it.
package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "backoffice/internal/core/context"
)

type Logger struct {
	*zap.SugaredLogger

	// scoped is set once trace fields were attached, so FromContext does
	// not attach them twice.
	scoped bool
}

type ctxKey struct{}

type Config struct {
	Level       string // debug, info, warn, error; anything else means info
	Development bool
	OutputPaths []string
}

func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}

	z, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar()}, nil
}

var fallback = sync.OnceValue(func() *Logger {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stdout"}
	z, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{SugaredLogger: z.Sugar()}
})

// Default is the process-wide JSON logger used when nothing was configured.
func Default() *Logger { return fallback() }

// WithContext attaches the trace, request and operation of ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var kv []any
	if tr := appctx.GetTrace(ctx); tr != nil {
		kv = append(kv, "trace_id", tr.TraceID, "request_id", tr.RequestID)
	}
	if op := appctx.GetOperation(ctx); op != "" {
		kv = append(kv, "operation", op)
	}
	if len(kv) == 0 {
		return l
	}
	return &Logger{SugaredLogger: l.SugaredLogger.With(kv...), scoped: true}
}

func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...), scoped: l.scoped}
}

// WithComponent tags every entry with the emitting subsystem.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or Default, scoped to the
// trace found in ctx.
func FromContext(ctx context.Context) *Logger {
	l, ok := ctx.Value(ctxKey{}).(*Logger)
	if !ok {
		l = Default()
	}
	if l.scoped {
		return l
	}
	return l.WithContext(ctx)
}

func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Debugw(msg, keysAndValues...)
}

func Info(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Infow(msg, keysAndValues...)
}

func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Warnw(msg, keysAndValues...)
}

func Error(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries. Sync errors on stdout and stderr are expected
// on some platforms and are dropped.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}
