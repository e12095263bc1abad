package observability

import (
	"github.com/smallbiznis/crudforge/internal/config"
	"github.com/smallbiznis/crudforge/internal/observability/logger"
	"github.com/smallbiznis/crudforge/internal/observability/metrics"
	"github.com/smallbiznis/crudforge/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg config.Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.AppName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               cfg.Log.Level,
		Format:              cfg.Log.Format,
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Otel.Enabled,
		ServiceName:      cfg.AppName,
		ServiceVersion:   cfg.AppVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Otel.Endpoint,
		ExporterProtocol: cfg.Otel.Protocol,
		SamplingRatio:    cfg.Otel.SamplingRatio,
	}
}

func provideMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.Otel.Enabled,
		ExporterEndpoint: cfg.Otel.Endpoint,
		ExporterProtocol: cfg.Otel.Protocol,
		ServiceName:      cfg.AppName,
		Environment:      cfg.Environment,
	}
}
