// Package telemetry installs the OpenTelemetry providers every talkingai
// package logs and traces through.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const ServiceName = "talkingai"

type Options struct {
	// Level is the lowest level written: debug, info, warn or error.
	Level string
	// Output receives one JSON record per line.
	Output io.Writer
	// OTLPEndpoint, when set, is the OTLP/HTTP URL spans are exported to.
	// Tracing stays off otherwise.
	OTLPEndpoint string
}

// Setup installs the global logger provider and, with an endpoint, the
// global tracer provider. The returned function flushes and stops both.
func Setup(ctx context.Context, opts Options) (func(context.Context) error, error) {
	res, err := newResource()
	if err != nil {
		return nil, err
	}

	lp, err := NewLoggerProvider(opts.Output, opts.Level, res)
	if err != nil {
		return nil, err
	}
	global.SetLoggerProvider(lp)
	slog.SetDefault(otelslog.NewLogger(ServiceName, otelslog.WithLoggerProvider(lp)))
	shutdowns := []func(context.Context) error{lp.Shutdown}

	if opts.OTLPEndpoint != "" {
		tp, err := NewTracerProvider(ctx, opts.OTLPEndpoint, res)
		if err != nil {
			return nil, errors.Join(err, lp.Shutdown(ctx))
		}
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	return func(ctx context.Context) error {
		var errs []error
		for _, shutdown := range shutdowns {
			errs = append(errs, shutdown(ctx))
		}
		return errors.Join(errs...)
	}, nil
}

func newResource() (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}
	return res, nil
}

// NewLoggerProvider writes records at or above level to w.
func NewLoggerProvider(w io.Writer, level string, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	exporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	processor := &severityFilter{
		Processor: sdklog.NewSimpleProcessor(exporter),
		min:       Severity(level),
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	), nil
}

// NewTracerProvider exports spans via OTLP/HTTP.
func NewTracerProvider(ctx context.Context, endpoint string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// Severity maps a configured level to the severity the slog bridge
// records it with. Unknown levels read as info.
func Severity(level string) log.Severity {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return log.Severity(slogLevel + 9)
}

// severityFilter drops records below min before they reach the exporter.
type severityFilter struct {
	sdklog.Processor
	min log.Severity
}

func (f *severityFilter) Enabled(ctx context.Context, param sdklog.EnabledParameters) bool {
	return param.Severity >= f.min && f.Processor.Enabled(ctx, param)
}

func (f *severityFilter) OnEmit(ctx context.Context, record *sdklog.Record) error {
	if record.Severity() < f.min {
		return nil
	}
	return f.Processor.OnEmit(ctx, record)
}
