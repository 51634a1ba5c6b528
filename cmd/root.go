package cmd

import (
	"log"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/council-ai/council/internal/council"
)

const (
	app = "council"
)

// Config is the full application configuration, read from council.yaml.
type Config struct {
	Paths   *PathsConfig          `mapstructure:"paths"`
	AI      *AIConfig             `mapstructure:"ai"`
	Cache   *CacheConfig          `mapstructure:"cache"`
	Router  *council.RouterConfig `mapstructure:"router"`
	Profile *ProfileConfig        `mapstructure:"profile"`
}

// PathsConfig locates the data directories the phases read and write.
type PathsConfig struct {
	Pending string `mapstructure:"pending"`
	Reports string `mapstructure:"reports"`
	Memory  string `mapstructure:"memory"`
}

// AIConfig selects and tunes the model provider.
type AIConfig struct {
	Provider   string         `mapstructure:"provider"`
	MaxRetries int            `mapstructure:"max-retries"`
	Backoff    *BackoffConfig `mapstructure:"backoff"`
	Gemini     *GeminiConfig  `mapstructure:"gemini"`
}

// BackoffConfig tunes the delays between generation attempts.
type BackoffConfig struct {
	Base      time.Duration `mapstructure:"base"`
	RateLimit time.Duration `mapstructure:"rate-limit"`
}

// GeminiConfig holds Gemini provider settings.
type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `mapstructure:"backend"`
	// Dir is the cache directory for the file backend.
	Dir string `mapstructure:"dir"`
	// Path is the database path for the sqlite backend.
	Path string `mapstructure:"path"`
}

// ProfileConfig points at the candidate profile used by triage.
type ProfileConfig struct {
	File string `mapstructure:"file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "council analyzes job descriptions with a cached, retrying expert council",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is council.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// The version command works without a config file; everything else
	// fails later with a pointed error.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return config, err
	}

	return config, nil
}
