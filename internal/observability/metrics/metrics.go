package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	orgsGenerated   metric.Int64Counter
	tokensIssued    metric.Int64Counter
	userOperations  metric.Int64Counter
	accessDenied    metric.Int64Counter
	codeGenerated   metric.Int64Counter
	loginRateLimits metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "crudforge"
	}
	meter := provider.Meter(name)

	orgsGenerated, err := meter.Int64Counter("crudforge_orgs_generated_total")
	if err != nil {
		return nil, err
	}
	tokensIssued, err := meter.Int64Counter("crudforge_tokens_issued_total")
	if err != nil {
		return nil, err
	}
	userOperations, err := meter.Int64Counter("crudforge_user_operations_total")
	if err != nil {
		return nil, err
	}
	accessDenied, err := meter.Int64Counter("crudforge_access_denied_total")
	if err != nil {
		return nil, err
	}
	codeGenerated, err := meter.Int64Counter("crudforge_code_generated_total")
	if err != nil {
		return nil, err
	}
	loginRateLimits, err := meter.Int64Counter("crudforge_login_rate_limited_total")
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		orgsGenerated:   orgsGenerated,
		tokensIssued:    tokensIssued,
		userOperations:  userOperations,
		accessDenied:    accessDenied,
		codeGenerated:   codeGenerated,
		loginRateLimits: loginRateLimits,
	}
	return m, nil
}

func (m *Metrics) RecordOrgGenerated(ctx context.Context) {
	if m == nil {
		return
	}
	m.orgsGenerated.Add(ctx, 1)
}

func (m *Metrics) RecordTokenIssued(ctx context.Context, role string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("role", strings.TrimSpace(role)))
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordUserOperation counts user CRUD calls by operation and outcome.
func (m *Metrics) RecordUserOperation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.userOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordAccessDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.accessDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCodeGenerated(ctx context.Context, download bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.Bool("download", download))
	m.codeGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordLoginRateLimited(ctx context.Context) {
	if m == nil {
		return
	}
	m.loginRateLimits.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Org ids are deliberately absent: every generated org would mint a new series.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"operation":   {},
	"outcome":     {},
	"role":        {},
	"reason":      {},
	"download":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
