package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"superconnector/internal/logger"
	"superconnector/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load fixture profiles from a YAML file into the configured store",
	Run: func(cmd *cobra.Command, _ []string) {
		seed(cmd)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringP("file", "f", "users.yaml", "YAML file with fixture users")
}

func seed(cmd *cobra.Command) {
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

	path := cmd.Flag("file").Value.String()

	seedFile, err := store.LoadSeedFile(path)
	if err != nil {
		logger.Fatal("loading the seed file", zap.Error(err))
	}

	st, closeStore, err := newStore(config.Store, logger)
	if err != nil {
		logger.Fatal("building the store", zap.Error(err))
	}
	defer closeStore()

	created, err := store.Seed(ctx, st, seedFile, logger)
	if err != nil {
		logger.Fatal("seeding users", zap.Error(err), zap.Int("created_before_failure", created))
	}

	logger.Info("seeded users", zap.Int("count", created), zap.String("file", path))
}
