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

// Metrics exposes application-level instruments exported over OTLP.
type Metrics struct {
	bookingsCreated  metric.Int64Counter
	bookingsUpdated  metric.Int64Counter
	reviewsCreated   metric.Int64Counter
	levelEvaluations metric.Int64Counter
	levelPromotions  metric.Int64Counter
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
		name = "studiobook"
	}
	meter := provider.Meter(name)

	bookingsCreated, err := meter.Int64Counter("studiobook_bookings_created_total")
	if err != nil {
		return nil, err
	}
	bookingsUpdated, err := meter.Int64Counter("studiobook_booking_status_changes_total")
	if err != nil {
		return nil, err
	}
	reviewsCreated, err := meter.Int64Counter("studiobook_reviews_created_total")
	if err != nil {
		return nil, err
	}
	levelEvaluations, err := meter.Int64Counter("studiobook_level_evaluations_total")
	if err != nil {
		return nil, err
	}
	levelPromotions, err := meter.Int64Counter("studiobook_level_promotions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		bookingsCreated:  bookingsCreated,
		bookingsUpdated:  bookingsUpdated,
		reviewsCreated:   reviewsCreated,
		levelEvaluations: levelEvaluations,
		levelPromotions:  levelPromotions,
	}, nil
}

func (m *Metrics) RecordBookingCreated(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.bookingsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordBookingStatusChange(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.bookingsUpdated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordReviewCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.reviewsCreated.Add(ctx, 1)
}

// RecordLevelEvaluation counts an evaluation and, when promoted, the promotion.
func (m *Metrics) RecordLevelEvaluation(ctx context.Context, role string, promoted bool, newLevel int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("role", strings.TrimSpace(role)))
	m.levelEvaluations.Add(ctx, 1, metric.WithAttributes(attrs...))
	if promoted {
		promoAttrs := FilterAttributes(
			attribute.String("role", strings.TrimSpace(role)),
			attribute.Int("to_level", newLevel),
		)
		m.levelPromotions.Add(ctx, 1, metric.WithAttributes(promoAttrs...))
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
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

var allowedLabelKeys = map[attribute.Key]struct{}{
	"role":        {},
	"status":      {},
	"to_level":    {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
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
