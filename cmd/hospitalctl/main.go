// Command hospitalctl edits the hospitals table from a terminal. It runs the
// same view session as the dashboard, without live updates.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xavierca1/hospital-leads/internal/config"
	"github.com/xavierca1/hospital-leads/internal/dashboard"
	"github.com/xavierca1/hospital-leads/internal/infra/database"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the flags shared by every sub-command.
type app struct {
	driver      string
	databaseURL string
	sqlitePath  string
	migrate     bool
	operator    string
	verbose     bool

	cfg      config.Config
	logger   *zap.Logger
	provider *database.Provider
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "hospitalctl",
		Short:         "Manage hospital prospects from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.provider != nil {
				_ = a.provider.Dispose()
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.driver, "driver", "", "store driver: postgres or sqlite (default from STORE_DRIVER)")
	flags.StringVar(&a.databaseURL, "database-url", "", "postgres connection string (default from DATABASE_URL)")
	flags.StringVar(&a.sqlitePath, "sqlite", "", "sqlite database file (default from SQLITE_PATH)")
	flags.BoolVar(&a.migrate, "migrate", false, "apply embedded migrations before running")
	flags.StringVar(&a.operator, "operator", "", "name recorded on cold-email audit rows (default from OPERATOR)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newListCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newStatusCmd(a),
		newRateCmd(a),
		newColdEmailCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.StoreDriver = a.driver
	}
	if a.databaseURL != "" {
		cfg.DatabaseURL = a.databaseURL
	}
	if a.sqlitePath != "" {
		cfg.SQLitePath = a.sqlitePath
	}
	if a.migrate {
		cfg.Migrate = true
	}
	if a.operator != "" {
		cfg.Operator = a.operator
	}
	a.cfg = cfg

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	if a.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zcfg.OutputPaths = []string{"stderr"}
	a.logger, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.provider = database.NewProvider(database.ProviderConfig{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		Migrate:     cfg.Migrate,
		Tables:      database.Tables{Hospitals: cfg.HospitalsTable, ColdEmails: cfg.ColdEmailsTable},
	}, a.logger)
	return nil
}

// session opens a loaded view session. Best-effort work runs inline so it
// finishes before the process exits.
func (a *app) session(ctx context.Context) (*dashboard.Session, error) {
	store, err := a.provider.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	collation, err := a.cfg.Language()
	if err != nil {
		return nil, err
	}
	s := dashboard.NewSession(store, dashboard.Options{
		Table:      a.cfg.HospitalsTable,
		Collation:  collation,
		BestEffort: dashboard.InlineRunner{Logger: a.logger},
		Logger:     a.logger,
	})
	if err := s.Open(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
