package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"superconnector/internal/ai"
	"superconnector/internal/ai/gemini"
	"superconnector/internal/connector"
	"superconnector/internal/extractor"
	"superconnector/internal/logger"
	"superconnector/internal/metrics"
	"superconnector/internal/secrets"
	"superconnector/internal/server"
	"superconnector/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the super-connector HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address for the HTTP API (default :8000)")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

// serve wires the store, the extractor, the matcher and the HTTP surface
// together and runs until interrupted.
func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the super-connector", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	st, closeStore, err := newStore(config.Store, logger)
	if err != nil {
		logger.Fatal("building the store", zap.Error(err))
	}
	defer closeStore()

	if config.Extractor == nil || strings.TrimSpace(config.Extractor.URL) == "" {
		logger.Fatal("extractor url is required under extractor.url to parse uploaded resumes")
	}
	ext := extractor.New(config.Extractor.URL, logger)

	matcher, err := newMatcher(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the matcher", zap.Error(err))
	}

	m := metrics.New()
	service := connector.New(st, ext, matcher, m, logger)
	srv := server.New(service, m, logger, viper.GetBool("debug"))

	listen := strings.TrimSpace(viper.GetString("listen"))
	if listen == "" {
		listen = defaultListen
	}

	httpServer := &http.Server{
		Addr:    listen,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("listening", zap.String("addr", listen))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newStore builds the configured persistence backend and a close func.
func newStore(cfg *StoreConfig, log *zap.Logger) (store.Store, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("store configuration is required")
	}

	switch strings.TrimSpace(strings.ToLower(cfg.Driver)) {
	case store.DriverSQLite:
		if cfg.SQLite == nil || strings.TrimSpace(cfg.SQLite.Path) == "" {
			return nil, nil, errors.New("store.sqlite.path is required for the sqlite driver")
		}

		s, err := store.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}

		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn("closing the sqlite store", zap.Error(err))
			}
		}, nil

	case store.DriverSupabase, "":
		if cfg.Supabase == nil || strings.TrimSpace(cfg.Supabase.URL) == "" {
			return nil, nil, errors.New("store.supabase.url is required for the supabase driver")
		}

		keyFile := strings.TrimSpace(cfg.Supabase.KeyFile)
		if keyFile == "" {
			keyFile = strings.TrimSpace(viper.GetString("store.supabase.key-file"))
		}

		key, err := secrets.Load(secrets.Source{
			Name: "supabase key",
			File: keyFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set store.supabase.key-file or SUPABASE_KEY_FILE)", err)
		}

		return store.NewSupabase(cfg.Supabase.URL, key, log), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func newMatcher(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Matcher, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required under ai.gemini")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	keyFile := strings.TrimSpace(cfg.Gemini.APIKeyFile)
	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString("ai.gemini.api-key-file"))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: keyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}

	matcherLogger := logger.WithMatcher(log, "gemini", generator.Model())

	return gemini.NewMatcher(generator, matcherLogger, cfg.Gemini.MaxLogLength), nil
}
