package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"memexporter/lib/browser"
	"memexporter/lib/configutil"
	"memexporter/lib/serviceutil"
	"memexporter/lib/sqliteutil"
	"memexporter/services/memexport"
	"memexporter/services/memexport/export"
	"memexporter/services/memexport/runlog"

	"dario.cat/mergo"
	"github.com/spf13/cobra"
)

var (
	exportURL     *string
	exportAll     *bool
	exportOutput  *string
	exportPageCap *int
)

func init() {
	exportURL = exportCmd.Flags().String("url", "", "Direct URL to a target's dashboard page.")
	exportAll = exportCmd.Flags().Bool("all", false, "Export memories from all discovered targets.")
	exportOutput = exportCmd.Flags().String("output", "", "Output directory (default: exports/).")
	exportPageCap = exportCmd.Flags().Int("page-cap", 0, "Stop after this many pages per target (0 = no cap).")
	rootCmd.AddCommand(exportCmd)
}

func loadConfig() memexport.Config {
	cfg := memexport.DefaultConfig()

	fileCfg, err := configutil.ReadConfig[memexport.Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}
	if err == nil {
		err = mergo.Merge(&cfg, fileCfg, mergo.WithOverride)
		if err != nil {
			serviceutil.Fatal("failed to merge config", err)
		}
	}

	if *exportOutput != "" {
		cfg.OutputDir = *exportOutput
	}
	if *exportPageCap > 0 {
		cfg.PageCap = *exportPageCap
	}
	cfg.Debug = cfg.Debug || *debugFlag
	return cfg
}

func openPage(ctx context.Context, headed bool) (browser.Page, func()) {
	page, cleanup, err := browser.NewChromePage(ctx, browser.ChromeOptions{
		Headed: headed,
	})
	if err != nil {
		serviceutil.Fatal("failed to launch browser", err)
	}
	return page, cleanup
}

func establishSession(ctx context.Context, page browser.Page, cfg memexport.Config) {
	session := memexport.NewBrowserSession(page, cfg.BaseURL)
	if cfg.LoginTimeoutSeconds > 0 {
		session.Timeout = time.Duration(cfg.LoginTimeoutSeconds) * time.Second
	}
	err := session.EstablishSession(ctx)
	if errors.Is(err, memexport.ErrNotLoggedIn) {
		serviceutil.Fatal("login timed out, please run again and complete the login in the browser window", err)
	}
	if err != nil {
		serviceutil.Fatal("failed to establish session", err)
	}
}

var exportCmd = &cobra.Command{
	Use:   "export [--url <target url> | --all]",
	Short: "Exports memories from one target or from every discovered target.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()

		err := browser.NewProbe().Check(ctx, cfg.BaseURL)
		if err != nil {
			serviceutil.Fatal("target site unreachable", err)
		}

		page, cleanup := openPage(ctx, !*headlessFlag)
		defer cleanup()
		establishSession(ctx, page, cfg)

		var targets []memexport.Target
		if *exportURL != "" {
			targets = []memexport.Target{{
				ID:   "custom",
				Name: "custom_target",
				URL:  *exportURL,
			}}
		} else {
			discovered, err := memexport.DiscoverTargets(ctx, page, cfg.BaseURL)
			if err != nil {
				serviceutil.Fatal("failed to discover targets", err)
			}
			if len(discovered) == 0 {
				serviceutil.Fatal("no targets found on the dashboard", errors.New("pass --url to export a specific target"))
			}
			if !*exportAll && len(discovered) > 1 {
				for _, t := range discovered {
					slog.Info("discovered target", "name", t.Name, "id", t.ID)
				}
				serviceutil.Fatal("multiple targets found", errors.New("pass --all or --url to choose"))
			}
			targets = discovered
		}

		serializer := export.NewFileSerializer(cfg.OutputDir)
		exporter := memexport.NewExporter(page, serializer, cfg)

		db, err := sqliteutil.OpenDB(runlog.Schema, filepath.Join(cfg.OutputDir, "runs.db"))
		if err != nil {
			slog.Warn("run ledger unavailable", "err", err)
		} else {
			defer db.Close()
			exporter.WithRunRecorder(runlog.NewStore(db))
		}

		results := exporter.ExportAll(ctx, targets)

		total := 0
		for _, result := range results {
			total += result.Count
			slog.Info("export finished",
				"target", result.Target.Name,
				"count", result.Count,
				"pages", result.Diagnostics.PagesVisited,
				"json", result.Artifacts.JSONPath,
				"txt", result.Artifacts.TextPath)
			if cfg.Debug && result.Diagnostics.Stalled {
				slog.Warn("traversal stalled before the last page",
					"target", result.Target.Name,
					"advance_failures", result.Diagnostics.AdvanceFailures,
					"debug_dump", result.Diagnostics.DebugDump)
			}
		}
		slog.Info("done", "targets", len(results), "total_memories", total)
	},
}
