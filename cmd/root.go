package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "super-connector"

	defaultListen = ":8000"
)

type Config struct {
	Listen    string           `mapstructure:"listen"`
	Store     *StoreConfig     `mapstructure:"store"`
	Extractor *ExtractorConfig `mapstructure:"extractor"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type StoreConfig struct {
	Driver   string          `mapstructure:"driver"`
	Supabase *SupabaseConfig `mapstructure:"supabase"`
	SQLite   *SQLiteConfig   `mapstructure:"sqlite"`
}

type SupabaseConfig struct {
	URL     string `mapstructure:"url"`
	KeyFile string `mapstructure:"key-file"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type ExtractorConfig struct {
	URL string `mapstructure:"url"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "super-connector is the backend for a Discord bot that introduces people from its network",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("store.supabase.key-file", "SUPABASE_KEY_FILE"); err != nil {
		log.Fatalf("binding SUPABASE_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is super-connector.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Only the commands that touch the store or the matcher need a config.
	if serveCmd.CalledAs() == "" && seedCmd.CalledAs() == "" {
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
