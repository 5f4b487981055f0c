package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tanguc/vobotty/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	providersLock  sync.Mutex
	tracerProvider *trace.TracerProvider
	meterProvider  *metric.MeterProvider
)

// SetupFromEnv searches up the filesystem from the cwd to find a file called
// telemetry.json5, once found it will use it as a config to setup telemetry.
// A missing file is not an error, spans and metrics then go to the no-op
// providers.
func SetupFromEnv(ctx context.Context, serviceName string) error {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if os.IsNotExist(err) {
		slog.Debug("no telemetry.json5 found, otlp export disabled")
		return nil
	}
	if err != nil {
		return err
	}
	return Setup(ctx, serviceName, config)
}

// Setup installs the global tracer and meter providers. Signals without an
// endpoint are left on the no-op provider.
func Setup(ctx context.Context, serviceName string, config Config) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return err
	}

	providersLock.Lock()
	defer providersLock.Unlock()

	if config.Otlp.Traces.enabled() {
		tp, err := newTraceProvider(ctx, r, config)
		if err != nil {
			return err
		}
		otel.SetTracerProvider(tp)
		tracerProvider = tp
	}

	if config.Otlp.Metrics.enabled() {
		mp, err := newMetricProvider(ctx, r, config)
		if err != nil {
			return err
		}
		otel.SetMeterProvider(mp)
		meterProvider = mp
	}

	return nil
}

// Shutdown flushes and stops whatever providers Setup installed.
func Shutdown(ctx context.Context) error {
	providersLock.Lock()
	defer providersLock.Unlock()

	var errlist []error
	if tracerProvider != nil {
		errlist = append(errlist, tracerProvider.Shutdown(ctx))
		tracerProvider = nil
	}
	if meterProvider != nil {
		errlist = append(errlist, meterProvider.Shutdown(ctx))
		meterProvider = nil
	}
	return errors.Join(errlist...)
}
