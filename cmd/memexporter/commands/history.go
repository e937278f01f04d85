package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"memexporter/lib/serviceutil"
	"memexporter/lib/sqliteutil"
	"memexporter/services/memexport/runlog"

	"github.com/spf13/cobra"
)

var historyLimit *int

func init() {
	historyLimit = historyCmd.Flags().Int("limit", 20, "Show at most this many runs.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Shows past export runs from the local run ledger.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		db, err := sqliteutil.OpenDB(runlog.Schema, filepath.Join(cfg.OutputDir, "runs.db"))
		if err != nil {
			serviceutil.Fatal("failed to open run ledger", err)
		}
		defer db.Close()

		runs, err := runlog.NewStore(db).List(cmd.Context(), *historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to list runs", err)
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded yet")
			return
		}
		for _, run := range runs {
			fmt.Printf("%s  %-24s  %4d memories  %3d pages  %s\n",
				run.StartedAt.Format(time.DateTime),
				run.Target,
				run.RecordCount,
				run.PagesVisited,
				run.JSONPath)
		}
	},
}
