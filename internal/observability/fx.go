package observability

import (
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/logger"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/metrics"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/tracing"
)

// Module wires logging, tracing, and metrics.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		loggerConfig,
		logger.New,
		tracingConfig,
		tracing.NewProvider,
		metricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(
		func(_ *sdktrace.TracerProvider) {},
		func(_ *sdkmetric.MeterProvider) {},
		func() { metrics.Sweeper() },
	),
)
