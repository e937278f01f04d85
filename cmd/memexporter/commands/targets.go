package commands

import (
	"fmt"

	"memexporter/lib/serviceutil"
	"memexporter/services/memexport"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(targetsCmd)
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Lists the targets discoverable from your dashboard.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()

		page, cleanup := openPage(ctx, !*headlessFlag)
		defer cleanup()
		establishSession(ctx, page, cfg)

		targets, err := memexport.DiscoverTargets(ctx, page, cfg.BaseURL)
		if err != nil {
			serviceutil.Fatal("failed to discover targets", err)
		}
		if len(targets) == 0 {
			fmt.Println("no targets found")
			return
		}
		for i, target := range targets {
			fmt.Printf("%d. %s (%s)\n   %s\n", i+1, target.Name, target.ID, target.URL)
		}
	},
}
