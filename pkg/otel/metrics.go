package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"scoopflow/pkg/logger"
)

// InitMetrics configures the global meter provider. Without a collector
// host, instruments record into a provider that has no reader.
func InitMetrics(log *logger.Logger, cfg Config) (*sdkmetric.MeterProvider, func(context.Context) error, error) {
	ctx := context.Background()

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, nil, fmt.Errorf("metrics resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Host != "" {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.Host),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
		log.Info(ctx, "metrics enabled", "host", cfg.Host)
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp, mp.Shutdown, nil
}

// Metrics holds the order instruments.
type Metrics struct {
	OrdersCreated metric.Int64Counter
	StatusUpdates metric.Int64Counter
	OrdersDeleted metric.Int64Counter
	OrderPrice    metric.Float64Histogram
	StoreFailures metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	created, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Total orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	updates, err := meter.Int64Counter("order_status_updates_total",
		metric.WithDescription("Total order status changes"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	deleted, err := meter.Int64Counter("orders_deleted_total",
		metric.WithDescription("Total orders deleted"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	price, err := meter.Float64Histogram("order_price",
		metric.WithDescription("Price of created orders"),
		metric.WithExplicitBucketBoundaries(1, 2.5, 5, 7.5, 10, 20, 50),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("order_store_failures_total",
		metric.WithDescription("Storage operations that failed with a server error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		OrdersCreated: created,
		StatusUpdates: updates,
		OrdersDeleted: deleted,
		OrderPrice:    price,
		StoreFailures: failures,
	}, nil
}

// StoreFailed counts a failed storage operation.
func (m *Metrics) StoreFailed(ctx context.Context, op string) {
	m.StoreFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
