package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack attaches a stack trace to warnings as well as errors.
	WarnStack bool
	// Format selects "json" (default) or "console" output.
	Format string
	Output io.Writer
}

// Logger writes zerolog events enriched with whatever fields were attached to
// the request context.
type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(output).
		Level(opts.Level).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()

	return &Logger{base: base, warnStack: opts.WarnStack}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component returns a logger whose events carry component=name, for
// subsystems such as the SQL layer or the analysis pipeline.
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		base:      l.base.With().Str("component", name).Logger(),
		warnStack: l.warnStack,
	}
}

// Enabled reports whether events at lvl would be written.
func (l *Logger) Enabled(lvl zerolog.Level) bool {
	return lvl >= l.base.GetLevel() && l.base.GetLevel() != zerolog.Disabled
}

// request fields ride in the context as a plain map and are applied on top of
// the base logger when an event is written
func (l *Logger) entry(ctx context.Context) *zerolog.Logger {
	entry := l.base
	if ctx != nil {
		if fields, ok := ctx.Value(fieldsKey{}).(map[string]any); ok && len(fields) > 0 {
			entry = entry.With().Fields(fields).Logger()
		}
	}
	return &entry
}

type fieldsKey struct{}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

// WithFields returns a context whose log lines include fields. Later values
// for the same key replace earlier ones.
func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	prev, _ := ctx.Value(fieldsKey{}).(map[string]any)
	merged := make(map[string]any, len(prev)+len(fields))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithPhotoID(ctx context.Context, photoID string) context.Context {
	return l.WithField(ctx, "photo_id", photoID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.entry(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.entry(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.entry(ctx).Warn()
	if l.warnStack && event.Enabled() {
		event = event.Str("stack", stackTrace())
	}
	event.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.entry(ctx).Error()
	if !event.Enabled() {
		return
	}
	if err != nil {
		event = event.Err(err)
	}
	event.Str("stack", stackTrace()).Msg(msg)
}

// stackTrace drops the runtime/debug and logger frames so the trace starts at
// the caller.
func stackTrace() string {
	lines := strings.Split(strings.TrimSpace(string(debug.Stack())), "\n")
	// goroutine header, then func/file pairs for debug.Stack, stackTrace and
	// the Warn/Error method
	const skip = 1 + 3*2
	if len(lines) > skip {
		lines = append(lines[:1], lines[skip:]...)
	}
	return strings.Join(lines, "\n")
}
