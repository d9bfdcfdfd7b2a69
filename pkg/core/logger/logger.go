// Package logger wires log/slog and OpenTelemetry tracing for the service.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "fsi-kpi"

var (
	globalLogger   = slog.New(slog.NewTextHandler(os.Stderr, nil))
	detailed       bool
	tracingEnabled bool
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level           string `yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format          string `yaml:"format" validate:"omitempty,oneof=json text"`
	DetailedLogging bool   `yaml:"detailed"`
	TracingEnabled  bool   `yaml:"tracing"`
}

// LoadConfigFromEnv overlays LOG_* environment variables on cfg.
func LoadConfigFromEnv(cfg LogConfig) LogConfig {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("LOG_DETAILED"); v != "" {
		cfg.DetailedLogging = v == "true"
	}
	if v := os.Getenv("LOG_TRACING_ENABLED"); v != "" {
		cfg.TracingEnabled = v == "true"
	}
	return cfg
}

// Init installs the global logger, writing to stderr.
func Init(cfg LogConfig) error {
	return InitWithWriter(cfg, os.Stderr)
}

// InitWithWriter installs the global logger writing to w. Tracing spans are
// exported to stdout when enabled.
func InitWithWriter(cfg LogConfig, w io.Writer) error {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	detailed = cfg.DetailedLogging

	tracingEnabled = cfg.TracingEnabled
	if tracingEnabled {
		if err := initTracer(); err != nil {
			globalLogger.Warn("tracing disabled", "error", err)
			tracingEnabled = false
		}
	}
	return nil
}

func initTracer() error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return err
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return err
	}
	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = otel.Tracer(serviceName)
	return nil
}

// Shutdown flushes pending spans.
func Shutdown(ctx context.Context) error {
	if tracerProvider != nil {
		return tracerProvider.Shutdown(ctx)
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// L returns the global logger.
func L() *slog.Logger { return globalLogger }

func withTrace(ctx context.Context, args []any) []any {
	if !tracingEnabled {
		return args
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return args
	}
	return append([]any{"trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String()}, args...)
}

// Debug logs only when detailed logging is on.
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailed {
		return
	}
	globalLogger.DebugContext(ctx, msg, withTrace(ctx, args)...)
}

func Info(ctx context.Context, msg string, args ...any) {
	globalLogger.InfoContext(ctx, msg, withTrace(ctx, args)...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	globalLogger.WarnContext(ctx, msg, withTrace(ctx, args)...)
}

// Error logs err and records it on the active span.
func Error(ctx context.Context, msg string, err error, args ...any) {
	if tracingEnabled {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	globalLogger.ErrorContext(ctx, msg, withTrace(ctx, append([]any{"error", err}, args...))...)
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Operation times one unit of work and wraps it in a span when tracing is on.
type Operation struct {
	ctx   context.Context
	span  trace.Span
	name  string
	start time.Time
	attrs []any
}

// StartOperation opens a span named name; attrs are key/value pairs.
func StartOperation(ctx context.Context, name string, attrs ...any) *Operation {
	op := &Operation{ctx: ctx, name: name, start: time.Now(), attrs: attrs}
	if tracingEnabled && tracer != nil {
		op.ctx, op.span = tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))
	}
	Debug(op.ctx, "operation started", append([]any{"operation", name}, attrs...)...)
	return op
}

// Context carries the operation's span.
func (o *Operation) Context() context.Context { return o.ctx }

// End closes the operation; a non-nil err marks it failed and logs it.
func (o *Operation) End(err error) {
	ms := time.Since(o.start).Milliseconds()
	if o.span != nil {
		o.span.SetAttributes(attribute.Int64("duration_ms", ms))
		if err != nil {
			o.span.RecordError(err)
			o.span.SetStatus(codes.Error, err.Error())
		} else {
			o.span.SetStatus(codes.Ok, "completed")
		}
		o.span.End()
	}
	fields := append([]any{"operation", o.name, "duration_ms", ms}, o.attrs...)
	if err != nil {
		Error(o.ctx, "operation failed", err, fields...)
		return
	}
	Debug(o.ctx, "operation completed", fields...)
}

func toAttributes(kv []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		}
	}
	return attrs
}
