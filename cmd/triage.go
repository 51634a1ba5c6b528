package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/council-ai/council/internal/council"
	"github.com/council-ai/council/internal/council/prompts"
	"github.com/council-ai/council/internal/logger"
	"github.com/council-ai/council/internal/memory"
	"github.com/council-ai/council/internal/privacy"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultTriageRetries = 3

const defaultContextSnippets = 3

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Screen every pending dossier and refer the promising ones to experts",
	Run: func(cmd *cobra.Command, _ []string) {
		triage(cmd)
	},
}

func init() {
	rootCmd.AddCommand(triageCmd)

	triageCmd.Flags().Bool("skip-metadata", false, "do not extract role/company metadata from the job description")
}

func triage(cmd *cobra.Command) {
	ctx := context.Background()

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

	store, err := newDossierStore(config, logger)
	if err != nil {
		logger.Fatal("opening the dossier store", zap.Error(err))
	}

	paths, err := store.List()
	if err != nil {
		logger.Fatal("listing pending dossiers", zap.Error(err))
	}

	if len(paths) == 0 {
		logger.Info("exiting", zap.String("reason", "no pending dossiers"))
		return
	}

	profile, err := loadProfile(config)
	if err != nil {
		logger.Fatal("loading the candidate profile", zap.Error(err))
	}

	factory, err := prompts.NewFactory()
	if err != nil {
		logger.Fatal("loading the persona roster", zap.Error(err))
	}

	gen, err := newGenerator(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the generator", zap.Error(err))
	}

	mem := openMemory(config, logger)
	if mem != nil {
		defer mem.Close()
	}

	screener := council.NewTriage(gen, factory, defaultTriageRetries, logger)

	var parser *council.JDParser
	if cmd.Flag("skip-metadata").Value.String() == "false" {
		parser = council.NewJDParser(gen, factory, defaultTriageRetries, logger)
	}

	for _, path := range paths {
		d, err := store.Load(path)
		if err != nil {
			logger.Error("skipping unreadable dossier", zap.String("path", path), zap.Error(err))
			continue
		}

		if parser != nil && d.BasicInfo.Role == "" {
			info, err := parser.Parse(ctx, d.RawContent)
			if err != nil {
				logger.Warn("metadata extraction failed", zap.String("job_id", d.ID), zap.Error(err))
			} else {
				d.BasicInfo = *info
			}
		}

		retrieved := retrieveContext(mem, d, logger)

		if err := screener.Evaluate(ctx, d, profile, retrieved); err != nil {
			logger.Error("triage failed", zap.String("job_id", d.ID), zap.Error(err))
			continue
		}

		verdict := ""
		if d.TriageResult != nil {
			verdict = d.TriageResult.Decision
		}
		logger.Info("triage verdict", zap.String("job_id", d.ID), zap.String("decision", verdict))

		if err := store.Save(path, d); err != nil {
			logger.Error("saving dossier", zap.String("path", path), zap.Error(err))
		}
	}
}

// loadProfile reads the candidate profile and strips contact details before
// the text reaches a prompt.
func loadProfile(config *Config) (string, error) {
	if config.Profile == nil || config.Profile.File == "" {
		return "", fmt.Errorf("profile.file is required to triage")
	}

	raw, err := os.ReadFile(config.Profile.File)
	if err != nil {
		return "", fmt.Errorf("reading profile: %w", err)
	}

	return privacy.Sanitize(string(raw)), nil
}

func openMemory(config *Config, logger *zap.Logger) *memory.Store {
	if config.Paths == nil || config.Paths.Memory == "" {
		logger.Info("career memory disabled", zap.String("reason", "paths.memory is not set"))
		return nil
	}

	mem, err := memory.Open(config.Paths.Memory)
	if err != nil {
		logger.Warn("career memory unavailable", zap.Error(err))
		return nil
	}

	return mem
}

func retrieveContext(mem *memory.Store, d *council.Dossier, logger *zap.Logger) string {
	if mem == nil {
		return ""
	}

	block, sources, err := mem.ContextBlock(d.RawContent, defaultContextSnippets)
	if err != nil {
		logger.Warn("context retrieval failed", zap.String("job_id", d.ID), zap.Error(err))
		return ""
	}

	if len(sources) > 0 {
		logger.Debug("retrieved career evidence",
			zap.String("job_id", d.ID),
			zap.Strings("sources", sources),
		)
	}

	return block
}
