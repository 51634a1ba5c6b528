package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/council-ai/council/internal/ai"
	"github.com/council-ai/council/internal/ai/gemini"
	"github.com/council-ai/council/internal/cache"
	"github.com/council-ai/council/internal/council"
	"github.com/council-ai/council/internal/council/prompts"
	"github.com/council-ai/council/internal/dossier"
	"github.com/council-ai/council/internal/generate"
	"github.com/council-ai/council/internal/logger"
	"github.com/council-ai/council/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	defaultMaxRetries = 2
)

var confirmPrompt = promptui.Select{
	Label: "Run the expert council on these dossiers?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the expert council over every pending dossier",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-aprove", "y", false, "do not ask for confirmation before dispatching")
	runCmd.Flags().BoolP("force-refresh", "f", false, "bypass cached analyses and regenerate everything")
}

// run is the dispatch command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the council", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

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

	logger.Info("found pending dossiers", zap.Int("count", len(paths)))

	if cmd.Flag("auto-aprove").Value.String() == "false" {
		_, action, err := confirmPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	factory, err := prompts.NewFactory()
	if err != nil {
		logger.Fatal("loading the persona roster", zap.Error(err))
	}

	gen, err := newGenerator(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the generator", zap.Error(err))
	}

	responses, closeCache, err := newResponseCache(config, logger)
	if err != nil {
		logger.Fatal("opening the response cache", zap.Error(err))
	}
	defer closeCache()

	dispatcher := council.NewDispatcher(
		responses,
		generate.NewOrchestrator(gen, logger),
		factory,
		newRouter(config, logger),
		council.DispatcherConfig{
			MaxRetries:   maxRetries(config),
			ForceRefresh: cmd.Flag("force-refresh").Value.String() == "true",
		},
		logger,
	)

	degraded := 0
	for _, path := range paths {
		d, err := store.Load(path)
		if err != nil {
			logger.Error("skipping unreadable dossier", zap.String("path", path), zap.Error(err))
			continue
		}

		if d.TriageResult == nil {
			logger.Warn("dossier has no triage verdict, run the triage command first",
				zap.String("job_id", d.ID),
			)
		}

		degraded += dispatcher.ProcessDossier(ctx, d)

		if err := store.Save(path, d); err != nil {
			logger.Error("saving dossier", zap.String("path", path), zap.Error(err))
		}
	}

	logger.Info("council finished",
		zap.Int("dossiers", len(paths)),
		zap.Int("degraded_analyses", degraded),
	)
}

func newDossierStore(config *Config, logger *zap.Logger) (*dossier.Store, error) {
	if config.Paths == nil || config.Paths.Pending == "" {
		return nil, fmt.Errorf("paths.pending is required")
	}
	return dossier.NewStore(config.Paths.Pending, logger)
}

func newRouter(config *Config, logger *zap.Logger) *council.Router {
	routerCfg := council.DefaultRouterConfig()
	if config.Router != nil {
		routerCfg = *config.Router
	}
	return council.NewRouter(routerCfg, logger)
}

func maxRetries(config *Config) int {
	if config.AI != nil && config.AI.MaxRetries > 0 {
		return config.AI.MaxRetries
	}
	return defaultMaxRetries
}

// newGenerator builds the JSON generator on top of the configured provider.
func newGenerator(ctx context.Context, config *Config, logger *zap.Logger) (*generate.Generator, error) {
	completer, err := newCompleter(ctx, config.AI)
	if err != nil {
		return nil, err
	}

	backoff := generate.DefaultBackoff()
	if config.AI != nil && config.AI.Backoff != nil {
		if config.AI.Backoff.Base > 0 {
			backoff.Base = config.AI.Backoff.Base
		}
		if config.AI.Backoff.RateLimit > 0 {
			backoff.RateLimit = config.AI.Backoff.RateLimit
		}
	}

	return generate.NewGenerator(completer, backoff, logger), nil
}

func newCompleter(ctx context.Context, cfg *AIConfig) (ai.Completer, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, fmt.Errorf("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	return gemini.New(ctx, apiKey, cfg.Gemini.Model)
}

// newResponseCache picks the cache backend from config. The returned func
// releases backend resources and is safe to call once.
func newResponseCache(config *Config, logger *zap.Logger) (*cache.Cache, func(), error) {
	backend := "file"
	if config.Cache != nil && config.Cache.Backend != "" {
		backend = strings.ToLower(config.Cache.Backend)
	}

	switch backend {
	case "file":
		dir := "council_cache"
		if config.Cache != nil && config.Cache.Dir != "" {
			dir = config.Cache.Dir
		}
		store, err := cache.NewFileStore(dir)
		if err != nil {
			return nil, nil, err
		}
		return cache.New(store, logger), func() {}, nil
	case "sqlite":
		path := "council_cache.db"
		if config.Cache != nil && config.Cache.Path != "" {
			path = config.Cache.Path
		}
		store, err := cache.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return cache.New(store, logger), func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend: %s", backend)
	}
}
