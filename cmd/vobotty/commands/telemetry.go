package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/tanguc/vobotty/lib/restyutil"
	"github.com/tanguc/vobotty/lib/telemetry"
	"github.com/tanguc/vobotty/lib/util/serviceutil"
)

var restyInstrumentOutput restyutil.InstrumentOutput

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	err := telemetry.SetupFromEnv(ctx, "vobotty")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx, 15*time.Second)

	if !verbose {
		return
	}
	output, err := restyutil.NewFilesystemOutput("<dev_state>/resty/vobotty")
	if err != nil {
		slog.Warn("http exchanges will not be dumped", "err", err)
		return
	}
	restyInstrumentOutput = output
}

func ShutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := telemetry.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}
