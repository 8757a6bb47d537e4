// Package enactlog provides the structured logging façade used across the
// store, builder and replay engine.
package enactlog

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the logging surface every core component accepts. Passing nil
// wherever a Logger is expected is equivalent to passing Noop().
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	DebugCtx(ctx context.Context, msg string, args ...any)
	InfoCtx(ctx context.Context, msg string, args ...any)
	WarnCtx(ctx context.Context, msg string, args ...any)
	ErrorCtx(ctx context.Context, msg string, args ...any)
}

// SlogLogger adapts a *slog.Logger to the Logger interface, prefixing every
// message so enact's log lines are greppable amid a host application's logs.
type SlogLogger struct {
	logger *slog.Logger
}

// New builds a SlogLogger writing text-formatted lines to os.Stderr at the
// given minimum level.
func New(level slog.Level) *SlogLogger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	return &SlogLogger{logger: logger}
}

// Wrap adapts an existing *slog.Logger.
func Wrap(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

const prefix = "[enact] "

func (d *SlogLogger) Debug(msg string, args ...any) { d.logger.Debug(prefix+msg, args...) }
func (d *SlogLogger) Info(msg string, args ...any)  { d.logger.Info(prefix+msg, args...) }
func (d *SlogLogger) Warn(msg string, args ...any)  { d.logger.Warn(prefix+msg, args...) }
func (d *SlogLogger) Error(msg string, args ...any) { d.logger.Error(prefix+msg, args...) }

type ctxArgsKey struct{}

var defaultArgsKey ctxArgsKey

func getDefaultArgs(ctx context.Context) []any {
	ctxargs := ctx.Value(defaultArgsKey)
	if ctxargs == nil {
		return nil
	}
	return ctxargs.([]any)
}

// WithArgs attaches structured fields (invocation id, node index, etc.) to a
// context so every *Ctx log call downstream carries them automatically.
func WithArgs(ctx context.Context, args ...any) context.Context {
	dargs := append(append([]any{}, getDefaultArgs(ctx)...), args...)
	return context.WithValue(ctx, defaultArgsKey, dargs)
}

func (d *SlogLogger) DebugCtx(ctx context.Context, msg string, args ...any) {
	d.logger.Debug(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (d *SlogLogger) InfoCtx(ctx context.Context, msg string, args ...any) {
	d.logger.Info(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (d *SlogLogger) WarnCtx(ctx context.Context, msg string, args ...any) {
	d.logger.Warn(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (d *SlogLogger) ErrorCtx(ctx context.Context, msg string, args ...any) {
	d.logger.Error(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) DebugCtx(context.Context, string, ...any) {}
func (noopLogger) InfoCtx(context.Context, string, ...any)  {}
func (noopLogger) WarnCtx(context.Context, string, ...any)  {}
func (noopLogger) ErrorCtx(context.Context, string, ...any) {}

// Noop returns a Logger that discards everything, used as the default when
// a component is constructed without an explicit logger.
func Noop() Logger { return noopLogger{} }
