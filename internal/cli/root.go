// Package cli implements the supportbot command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"supportbot/internal/config"
	"supportbot/internal/domain"
	"supportbot/internal/engine"
	"supportbot/internal/forest"
	"supportbot/internal/logging"
	"supportbot/internal/modelstore"
	"supportbot/internal/service"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "supportbot",
	Short: "Retrieval chatbot for customer support questions",
	Long: `supportbot answers customer-support questions by retrieving the closest
stored question from a training corpus and returning its paired response.
It ships a basic TF-IDF engine and an enhanced engine with intent classification.`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command; ctx ends long-running commands.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml, then ~/.config/supportbot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(newDatasetCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newServeCmd())
}

// app bundles what every command needs.
type app struct {
	cfg    *config.AppConfig
	log    zerolog.Logger
	store  modelstore.Store
	svc    *service.Service
	closer func()
}

func loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newApp loads the config, opens the model store and builds the service.
// With restore set, persisted models are loaded into the engines.
func newApp(cmd *cobra.Command, restore bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})

	opts := modelstore.Options{Type: cfg.Store.Type, Dir: cfg.Store.Dir, SQLitePath: cfg.Store.SQLite}
	if cfg.Store.Redis != nil {
		opts.Redis = modelstore.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		}
	}
	store, err := modelstore.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	svc := service.New(service.Options{
		DatasetPath: cfg.Dataset.ProcessedPath,
		Basic:       engineOptions(cfg, domain.KindBasic, store),
		Enhanced:    engineOptions(cfg, domain.KindEnhanced, store),
		Logger:      log,
	})
	a := &app{
		cfg:   cfg,
		log:   log,
		store: store,
		svc:   svc,
		closer: func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("closing model store failed")
			}
		},
	}
	if restore {
		if err := svc.LoadAll(cmd.Context()); err != nil {
			a.closer()
			return nil, err
		}
	}
	return a, nil
}

func engineOptions(cfg *config.AppConfig, kind domain.Kind, store modelstore.Store) engine.Options {
	opts := engine.DefaultOptions(kind)
	opts.Threshold = cfg.Retrieval.SimilarityThreshold
	opts.Forest = forest.Config{
		Trees:           cfg.Retrieval.Trees,
		MaxDepth:        cfg.Retrieval.MaxDepth,
		MinSamplesSplit: forest.DefaultConfig().MinSamplesSplit,
		Seed:            cfg.Retrieval.Seed,
	}
	opts.Store = store
	return opts
}

func (a *app) Close() { a.closer() }
