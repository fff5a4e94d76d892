// Package tracing 提供基于 OpenTelemetry 的分布式追踪，HTTP 请求、统计任务与 Twitter 调用各自建立 span.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/tweetfreq/pkg/configs"
)

const tracerName = "github.com/yeisme/tweetfreq"

var tracerProvider *sdktrace.TracerProvider

type exporterFactory func(ctx context.Context, cfg configs.TracingConfig) (sdktrace.SpanExporter, error)

var exporters = map[string]exporterFactory{
	configs.ExporterOTLPHTTP: func(ctx context.Context, cfg configs.TracingConfig) (sdktrace.SpanExporter, error) {
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	},
	configs.ExporterOTLPGRPC: func(ctx context.Context, cfg configs.TracingConfig) (sdktrace.SpanExporter, error) {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}

		return otlptracegrpc.New(ctx, opts...)
	},
	configs.ExporterZipkin: func(_ context.Context, cfg configs.TracingConfig) (sdktrace.SpanExporter, error) {
		return zipkin.New(cfg.Endpoint)
	},
}

// InitTracer 按配置安装全局 TracerProvider；未启用时 span 由 otel 的 noop 实现吸收.
func InitTracer(cfg configs.TracingConfig) error {
	if !cfg.Enabled {
		return nil
	}

	factory, ok := exporters[cfg.ExporterType]
	if !ok {
		return fmt.Errorf("unsupported trace exporter %q", cfg.ExporterType)
	}

	ctx := context.Background()

	exporter, err := factory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create %s exporter: %w", cfg.ExporterType, err)
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
	}
	for k, v := range cfg.ResourceLabels {
		attrs = append(attrs, attribute.String(k, v))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return fmt.Errorf("create trace resource: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(cfg.MaxBatchSize),
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)

	otel.SetTracerProvider(tracerProvider)

	return nil
}

// ShutdownTracer 刷新并关闭 TracerProvider.
func ShutdownTracer(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}

	return tracerProvider.Shutdown(ctx)
}

// StartSpan 开始一个 span，调用方负责 span.End().
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// Traced 在 span 内执行 fn，fn 返回的错误记录到 span 上并原样返回.
func Traced(ctx context.Context, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := StartSpan(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	return nil
}
