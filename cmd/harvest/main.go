package main

import (
	"context"
	"log/slog"

	"mailmetrics-backend/cmd/harvest/commands"
	"mailmetrics-backend/lib/osutil"
	"mailmetrics-backend/lib/telemetry"
)

func main() {
	ctx := osutil.SignalContext()

	telemetry.InitSlog(false)
	t, err := telemetry.SetupFromEnv(ctx, "harvest")
	if err != nil {
		slog.Warn("telemetry disabled", "err", err)
	} else {
		defer t.Shutdown(context.Background())
	}

	commands.ExecuteContext(ctx)
}
