package main

import (
	"context"

	"memexporter/cmd/memexporter/commands"
	"memexporter/lib/serviceutil"
	"memexporter/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	// telemetry is optional, without a telemetry.json5 the default
	// no-op providers stay in place
	tel, err := telemetry.SetupFromEnv(ctx, "memexporter")
	if err == nil {
		defer tel.Shutdown(context.Background())
	}

	commands.ExecuteContext(ctx)
}
