package commands

import (
	"context"
	"fmt"
	"os"

	"memexporter/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	debugFlag    *bool
	headlessFlag *bool
)

var rootCmd = &cobra.Command{
	Use:   "memexporter",
	Short: "memexporter exports long-term memories from your shapes.inc bots.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debugFlag)
	},
}

func init() {
	debugFlag = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and diagnostics artifacts.")
	headlessFlag = rootCmd.PersistentFlags().Bool("headless", false, "Run the browser without a window. Login must already exist.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
