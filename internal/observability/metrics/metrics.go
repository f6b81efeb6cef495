package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the OTLP metric exporter.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Endpoint    string
	Protocol    string
	Insecure    bool
	Interval    time.Duration
}

// allowedLabelKeys bounds metric cardinality. Attributes outside this
// set are dropped before recording.
var allowedLabelKeys = map[string]struct{}{
	"risk_status":   {},
	"hold_reason":   {},
	"item_kind":     {},
	"result":        {},
	"reason":        {},
	"http_method":   {},
	"http_route":    {},
	"http_status":   {},
	"limiter_key":   {},
	"audit_action":  {},
	"sweeper_state": {},
}

// FilterAttributes drops attributes whose keys are not allow-listed.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[string(attr.Key)]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}

// NewProvider wires a meter provider with an OTLP exporter. A blank
// endpoint disables export.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (*sdkmetric.MeterProvider, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		log.Info("metrics export disabled: no otlp endpoint configured")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var exporter sdkmetric.Exporter
	var err error
	switch strings.ToLower(strings.TrimSpace(cfg.Protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	default:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})

	return provider, nil
}

// Metrics holds the fulfillment pipeline instruments.
type Metrics struct {
	OrdersScored    metric.Int64Counter
	DeliveriesHeld  metric.Int64Counter
	Deliveries      metric.Int64Counter
	StockClaims     metric.Int64Counter
	RateLimitEvents metric.Int64Counter
}

// New registers the fulfillment instruments on the global meter.
func New() (*Metrics, error) {
	meter := otel.Meter("epin/fulfillment")

	ordersScored, err := meter.Int64Counter(
		"epin_orders_scored_total",
		metric.WithDescription("Orders passed through risk scoring, by resulting status."),
	)
	if err != nil {
		return nil, err
	}

	deliveriesHeld, err := meter.Int64Counter(
		"epin_deliveries_held_total",
		metric.WithDescription("Deliveries placed on hold, by hold reason."),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter(
		"epin_deliveries_total",
		metric.WithDescription("Completed deliveries, by item kind."),
	)
	if err != nil {
		return nil, err
	}

	stockClaims, err := meter.Int64Counter(
		"epin_stock_claims_total",
		metric.WithDescription("Inventory claim attempts, by result."),
	)
	if err != nil {
		return nil, err
	}

	rateLimitEvents, err := meter.Int64Counter(
		"epin_rate_limit_events_total",
		metric.WithDescription("Rate limiter decisions, by result."),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		OrdersScored:    ordersScored,
		DeliveriesHeld:  deliveriesHeld,
		Deliveries:      deliveries,
		StockClaims:     stockClaims,
		RateLimitEvents: rateLimitEvents,
	}, nil
}

// Add records a counter increment with filtered attributes.
func Add(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(FilterAttributes(attrs...)...))
}
