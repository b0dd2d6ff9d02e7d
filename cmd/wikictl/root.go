package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/authz"
	"github.com/Doud-FR/Wiki/internal/config"
	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/ledger"
	"github.com/Doud-FR/Wiki/internal/logging"
)

var (
	// flags
	configFile string
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "config/app.yaml", "configuration file")
}

var RootCmd = cobra.Command{
	Use:           "wikictl",
	Short:         "Operate a wiki installation from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// workspace is what every subcommand runs against.
type workspace struct {
	store  *db.DB
	logger *zap.Logger
	grants *ledger.Service
}

func (w *workspace) Close() {
	w.logger.Sync()
	w.store.Close()
}

// open loads the configuration, connects to the database and applies the
// schema.
func open(ctx context.Context) (*workspace, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		return nil, err
	}

	store, err := db.Connect(ctx, cfg.DBDriver, cfg.DBDSN, db.Options{
		Retries:  cfg.ConnectRetries,
		Interval: cfg.ConnectInterval,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	engine := authz.NewEngine(store, store, authz.WithLogger(logger.Named("authz")))
	return &workspace{
		store:  store,
		logger: logger,
		grants: ledger.NewService(store, engine, logger.Named("ledger")),
	}, nil
}
