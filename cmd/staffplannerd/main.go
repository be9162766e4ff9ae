package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffplan-backend/config"
	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/db"
	"staffplan-backend/internal/logging"
	"staffplan-backend/internal/metrics"
	"staffplan-backend/internal/planner"
	"staffplan-backend/internal/store"
)

// App holds the dependencies shared by every command.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	store   store.Store
	bus     *bus.Bus
	nc      *nats.Conn
	bridge  *bus.Bridge
	metrics metrics.Recorder
}

var (
	configPath string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "staffplannerd",
		Short:        "Staffing planner backend",
		Long:         `Serves the staffing planner API and runs assignment maintenance from the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default $CONFIG_PATH or ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(autoAssignCmd())
	rootCmd.AddCommand(resetCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml" // Default path for local development
}

// initApp loads the configuration, then sets up logger, database and bus.
func initApp() error {
	app = &App{metrics: metrics.Nop{}}

	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	app.cfg = cfg

	app.logger, err = logging.InitLogger(cfg.Log.Env, cfg.Log.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.logger.Info("configuration loaded", zap.String("path", path))

	app.db, err = db.Init(&cfg.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.store = store.NewGormStore(app.db)
	app.logger.Debug("data store initialized")
	return nil
}

// initBus creates the bus and, when configured, bridges it to NATS so other
// processes see this one's changes.
func (a *App) initBus(rec bus.MetricsRecorder) error {
	a.bus = bus.New(a.logger.Named("bus"), rec)
	if a.cfg.NATS.URL == "" {
		return nil
	}

	nc, err := nats.Connect(a.cfg.NATS.URL,
		nats.Name("staffplannerd"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			a.logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			a.logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to nats at %s: %w", a.cfg.NATS.URL, err)
	}
	a.nc = nc
	a.bridge = bus.NewBridge(a.bus, nc, a.cfg.NATS.SubjectPrefix, a.logger.Named("nats"))
	if err := a.bridge.Start(); err != nil {
		return err
	}
	a.logger.Info("bus bridged to nats", zap.String("url", a.cfg.NATS.URL), zap.String("prefix", a.cfg.NATS.SubjectPrefix))
	return nil
}

func (a *App) newPlanner() *planner.Service {
	return planner.NewService(a.store, a.logger.Named("planner"), a.metrics, planner.Options{
		StoreTimeout: a.cfg.Reconcile.StoreTimeout,
		AreaOrder:    a.cfg.AutoAssign.AreaOrder,
	})
}

func (a *App) close() {
	if a == nil {
		return
	}
	if a.bridge != nil {
		a.bridge.Stop()
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.logger.Warn("failed to drain nats connection", zap.Error(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

// commandContext is the context for one-shot commands.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
