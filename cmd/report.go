package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/council-ai/council/internal/council"
	"github.com/council-ai/council/internal/logger"
	"github.com/council-ai/council/internal/report"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const leaderboardFile = "leaderboard.csv"

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the ranked leaderboard and per-job analysis reports",
	Run: func(_ *cobra.Command, _ []string) {
		buildReports()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func buildReports() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.Paths == nil || config.Paths.Reports == "" {
		logger.Fatal("paths.reports is required")
	}

	store, err := newDossierStore(config, logger)
	if err != nil {
		logger.Fatal("opening the dossier store", zap.Error(err))
	}

	paths, err := store.List()
	if err != nil {
		logger.Fatal("listing dossiers", zap.Error(err))
	}

	dossiers := make([]*council.Dossier, 0, len(paths))
	for _, path := range paths {
		d, err := store.Load(path)
		if err != nil {
			logger.Error("skipping unreadable dossier", zap.String("path", path), zap.Error(err))
			continue
		}
		dossiers = append(dossiers, d)
	}

	if len(dossiers) == 0 {
		logger.Info("exiting", zap.String("reason", "no dossiers to report on"))
		return
	}

	if err := os.MkdirAll(config.Paths.Reports, 0o755); err != nil {
		logger.Fatal("creating the reports directory", zap.Error(err))
	}

	if err := writeLeaderboard(config.Paths.Reports, dossiers); err != nil {
		logger.Fatal("writing the leaderboard", zap.Error(err))
	}

	written := 0
	for _, d := range dossiers {
		path := filepath.Join(config.Paths.Reports, d.ID+".md")
		if err := os.WriteFile(path, []byte(report.RenderMarkdown(d)), 0o644); err != nil {
			logger.Error("writing report", zap.String("path", path), zap.Error(err))
			continue
		}
		written++
	}

	logger.Info("reports written",
		zap.String("dir", config.Paths.Reports),
		zap.Int("analyses", written),
		zap.Int("leaderboard_rows", len(dossiers)),
	)
}

func writeLeaderboard(dir string, dossiers []*council.Dossier) error {
	f, err := os.Create(filepath.Join(dir, leaderboardFile))
	if err != nil {
		return fmt.Errorf("create leaderboard: %w", err)
	}
	defer f.Close()

	return report.WriteCSV(f, report.BuildRows(dossiers))
}
