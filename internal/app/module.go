package app

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gsole-chat/gsole/internal/bus"
	"github.com/gsole-chat/gsole/internal/config"
	"github.com/gsole-chat/gsole/internal/connectivity"
	"github.com/gsole-chat/gsole/internal/gateway"
	"github.com/gsole-chat/gsole/internal/identity"
	"github.com/gsole-chat/gsole/internal/lock"
	"github.com/gsole-chat/gsole/internal/logging"
	"github.com/gsole-chat/gsole/internal/media"
	"github.com/gsole-chat/gsole/internal/observability"
	"github.com/gsole-chat/gsole/internal/outbox"
	"github.com/gsole-chat/gsole/internal/session"
	"github.com/gsole-chat/gsole/internal/status"
	"github.com/gsole-chat/gsole/internal/store"
	"github.com/gsole-chat/gsole/internal/tui"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	DatabaseURL string // optional override for testing; empty = use config
}

// Module returns the fx module for the client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("client",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideIdentity,
			provideGateway,
			provideMonitor,
			provideQueue,
			provideRecorder,
			provideApp,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideConfig(logger *zap.Logger) (*config.Config, error) {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		logger.Info("no config file, using defaults")
		cfg = &config.Config{DatabaseURL: config.DefaultDatabaseURL}
	}
	return cfg, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideIdentity(db *store.DB, logger *zap.Logger) *identity.Provider {
	return identity.NewProvider(db, logger)
}

func provideGateway(p Params, cfg *config.Config, logger *zap.Logger) *gateway.Gateway {
	baseURL := cfg.DatabaseURL
	if p.DatabaseURL != "" {
		baseURL = p.DatabaseURL
	}
	return gateway.New(baseURL, logger)
}

func provideMonitor(gw *gateway.Gateway, b *bus.Bus, m *status.Machine, logger *zap.Logger) *connectivity.Monitor {
	return connectivity.NewMonitor(gw, b, m, logger, connectivity.DefaultInterval)
}

func provideQueue(db *store.DB, gw *gateway.Gateway, b *bus.Bus, m *status.Machine, logger *zap.Logger) *outbox.Queue {
	return outbox.NewQueue(db, gw, b, m, logger)
}

func provideRecorder(logger *zap.Logger) *media.Recorder {
	src := media.DefaultCaptureSource()
	if src == nil {
		logger.Warn("no audio recorder on this host, voice messages disabled")
	}
	return media.NewRecorder(src, media.Passthrough)
}

func provideApp(p Params, gw *gateway.Gateway, q *outbox.Queue, mon *connectivity.Monitor, b *bus.Bus, db *store.DB, rec *media.Recorder, idp *identity.Provider, logger *zap.Logger) (*tui.App, error) {
	id, err := idp.GetOrCreate()
	if err != nil {
		return nil, err
	}
	logger.Info("identity resolved", zap.String("identity", id))

	return tui.NewApp(tui.Params{
		Gateway:  gw,
		Queue:    q,
		Monitor:  mon,
		Bus:      b,
		DB:       db,
		Recorder: rec,
		Identity: id,
		Session:  p.SessionName,
		Logger:   logger,
	}), nil
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, gw *gateway.Gateway, mon *connectivity.Monitor, q *outbox.Queue, lk *lock.Lock, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			observability.Serve(cfg.MetricsAddr, logger)

			// The monitor drives the state machine; the queue drains on
			// its restore events.
			q.Start(context.Background())
			mon.Start(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			mon.Stop()
			q.Stop()
			gw.Close()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
