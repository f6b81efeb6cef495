package observability

import (
	"strings"
	"time"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/config"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/logger"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/metrics"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/tracing"
)

// Config carries the observability settings derived from app config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OTLPEndpoint string
	OTLPProtocol string
	OTLPInsecure bool
}

// LoadConfig builds the observability config from the app config.
func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "epin-fulfillment"
	}

	return Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		Version:      cfg.AppVersion,
		LogLevel:     "info",
		LogFormat:    "json",
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPProtocol: "grpc",
		OTLPInsecure: true,
	}
}

// Debug reports whether the deployment runs in a development environment.
func (c Config) Debug() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "development" || env == "dev" || env == "local"
}

func loggerConfig(c Config) logger.Config {
	level := c.LogLevel
	format := c.LogFormat
	if c.Debug() {
		level = "debug"
		format = "console"
	}
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               level,
		Format:              format,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: true,
	}
}

func tracingConfig(c Config) tracing.Config {
	return tracing.Config{
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Version:     c.Version,
		Endpoint:    c.OTLPEndpoint,
		Protocol:    c.OTLPProtocol,
		Insecure:    c.OTLPInsecure,
		SampleRatio: 1,
	}
}

func metricsConfig(c Config) metrics.Config {
	return metrics.Config{
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Version:     c.Version,
		Endpoint:    c.OTLPEndpoint,
		Protocol:    c.OTLPProtocol,
		Insecure:    c.OTLPInsecure,
		Interval:    30 * time.Second,
	}
}
