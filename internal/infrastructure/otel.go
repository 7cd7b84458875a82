package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"impedancecli/internal/config"
)

const (
	MeterName = "impedancecli"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "file", "none"
	TraceFile      string
	PushgatewayURL string
	PushJob        string

	// SpanProcessors are registered in addition to the configured exporter.
	SpanProcessors []sdktrace.SpanProcessor
	// TraceWriter overrides stdout for the "stdout" exporter.
	TraceWriter io.Writer
}

// OTelProviders holds the OpenTelemetry providers of one run
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Metrics        *BusinessMetrics
	Logger         *slog.Logger

	cfg       *OTelConfig
	traceFile *os.File
}

// BusinessMetrics are the counters and histograms recorded by a report run
type BusinessMetrics struct {
	FilesProcessed    metric.Int64Counter
	FiguresRendered   metric.Int64Counter
	ArchiveBytes      metric.Int64Counter
	NotificationsSent metric.Int64Counter
	StepDuration      metric.Float64Histogram
	RunErrors         metric.Int64Counter
}

// NewOTelConfig maps the telemetry section of the application config
func NewOTelConfig(cfg config.TelemetryConfig) *OTelConfig {
	return &OTelConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: config.AppVersion,
		Environment:    cfg.Environment,
		TraceExporter:  cfg.TraceExporter,
		TraceFile:      cfg.TraceFile,
		PushgatewayURL: cfg.PushgatewayURL,
		PushJob:        cfg.PushJob,
	}
}

// InitializeOTel builds the tracer and meter providers. Metrics always go to
// a private Prometheus registry that Push can ship to a Pushgateway.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = NewOTelConfig(config.Default().Telemetry)
	}
	if logger == nil {
		logger = GetLogger()
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	)

	providers := &OTelProviders{
		Logger: logger,
		cfg:    cfg,
	}

	if err := providers.initializeTracing(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := providers.initializeMetrics(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Info("telemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("pushgateway", cfg.PushgatewayURL != ""))

	return providers, nil
}

func (p *OTelProviders) initializeTracing(cfg *OTelConfig, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	switch cfg.TraceExporter {
	case "stdout", "file":
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stdout
		}
		if cfg.TraceExporter == "file" {
			f, err := openLogFile(cfg.TraceFile)
			if err != nil {
				return err
			}
			p.traceFile = f
			w = f
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	for _, sp := range cfg.SpanProcessors {
		opts = append(opts, sdktrace.WithSpanProcessor(sp))
	}

	p.TracerProvider = sdktrace.NewTracerProvider(opts...)
	p.Tracer = p.TracerProvider.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	return nil
}

func (p *OTelProviders) initializeMetrics(cfg *OTelConfig, res *resource.Resource) error {
	p.Registry = prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(p.Registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	p.Meter = p.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

	p.Metrics, err = CreateBusinessMetrics(p.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	return nil
}

// CreateBusinessMetrics creates the report's metric instruments
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	filesProcessed, err := meter.Int64Counter(
		"impedance_files_processed",
		metric.WithDescription("Measurement files read and charted"),
	)
	if err != nil {
		return nil, err
	}

	figuresRendered, err := meter.Int64Counter(
		"impedance_figures_rendered",
		metric.WithDescription("Bar chart figures written"),
	)
	if err != nil {
		return nil, err
	}

	archiveBytes, err := meter.Int64Counter(
		"impedance_archive_bytes",
		metric.WithDescription("Size of weekly archives written"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	notificationsSent, err := meter.Int64Counter(
		"impedance_notifications",
		metric.WithDescription("Notification attempts by mode and outcome"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"impedance_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runErrors, err := meter.Int64Counter(
		"impedance_run_errors",
		metric.WithDescription("Runs aborted by error type"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		FilesProcessed:    filesProcessed,
		FiguresRendered:   figuresRendered,
		ArchiveBytes:      archiveBytes,
		NotificationsSent: notificationsSent,
		StepDuration:      stepDuration,
		RunErrors:         runErrors,
	}, nil
}

// Push sends the registry to the configured Pushgateway. It is a no-op
// when no gateway is configured.
func (p *OTelProviders) Push(ctx context.Context) error {
	if p.cfg.PushgatewayURL == "" {
		return nil
	}

	err := push.New(p.cfg.PushgatewayURL, p.cfg.PushJob).
		Gatherer(p.Registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", p.cfg.PushgatewayURL, err)
	}

	p.Logger.InfoContext(ctx, "metrics pushed",
		slog.String("pushgateway", p.cfg.PushgatewayURL),
		slog.String("job", p.cfg.PushJob))
	return nil
}

// Shutdown flushes spans and releases the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if p.traceFile != nil {
		if err := p.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file close: %w", err))
		}
		p.traceFile = nil
	}

	return errors.Join(errs...)
}
