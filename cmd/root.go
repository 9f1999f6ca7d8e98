package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hh-notifier"
)

type Config struct {
	Telegram *TelegramConfig `mapstructure:"telegram"`
	Search   *SearchConfig   `mapstructure:"search"`
	Interval string          `mapstructure:"interval"`
	Delivery *DeliveryConfig `mapstructure:"delivery"`
	Storage  *StorageConfig  `mapstructure:"storage"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type TelegramConfig struct {
	TokenFile string `mapstructure:"token-file"`
}

// SearchConfig holds the process-wide defaults served to chats that have
// not customized their settings yet.
type SearchConfig struct {
	Query      string `mapstructure:"query"`
	MinSalary  uint   `mapstructure:"min-salary"`
	Experience string `mapstructure:"experience"`
	Area       string `mapstructure:"area"`
	RemoteOnly bool   `mapstructure:"remote-only"`
	Depth      int    `mapstructure:"depth"`
}

type DeliveryConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	MinScore int           `mapstructure:"min-score"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-notifier is a telegram bot watching hh.ru for new vacancies",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("telegram.token-file", "TELEGRAM_TOKEN_FILE"); err != nil {
		log.Fatalf("binding TELEGRAM_TOKEN_FILE environment variable: %v", err)
	}

	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-notifier.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("search.query", "Frontend React")
	viper.SetDefault("search.area", "113")
	viper.SetDefault("search.depth", 1)
	viper.SetDefault("interval", "10m")
	viper.SetDefault("delivery.delay", "1s")
	viper.SetDefault("storage.path", "data/hh-notifier.db")
	viper.SetDefault("ai.min-score", 70)
}

func initConfig() {
	// Config needed only for commands touching the database or the APIs.
	if runCmd.CalledAs() == "" && settingsCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
