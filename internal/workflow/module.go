package workflow

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/cache"
	"github.com/ronappleton/studioflow/internal/config"
	"github.com/ronappleton/studioflow/internal/studio"
)

func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewStoreFromConfig,
			NewDirectoryFromConfig,
			NewNotifierFromConfig,
			func(cfg config.Config) cache.Cache[[]Template] {
				return cache.NewMemory[[]Template](cfg.CacheTTL(), cfg.Cache.Version)
			},
			func(cfg config.Config, store Store, dir studio.Directory, templates cache.Cache[[]Template], n *Notifier, log *zap.Logger) *Service {
				return NewService(ServiceOptions{
					Store:       store,
					Directory:   dir,
					Templates:   templates,
					TemplateTTL: cfg.CacheTTL(),
					Notifier:    n,
					Logger:      log.Named("workflow"),
				})
			},
		),
	)
}

// NewStoreFromConfig uses Postgres when a pool is available.
func NewStoreFromConfig(pool *pgxpool.Pool, log *zap.Logger) (Store, error) {
	if pool == nil {
		return NewMemoryStore(), nil
	}
	store, err := NewPGStore(context.Background(), pool)
	if err != nil {
		return nil, err
	}
	log.Info("workflow store ready", zap.String("backend", "postgres"))
	return store, nil
}

func NewDirectoryFromConfig(cfg config.Config, pool *pgxpool.Pool) (studio.Directory, error) {
	if pool != nil && cfg.Studio.SeedFile == "" {
		return studio.NewPGDirectory(pool)
	}
	dir, err := studio.LoadSeedFile(cfg.Studio.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("studio directory: %w", err)
	}
	return dir, nil
}

// NewNotifierFromConfig connects to NATS when configured. A NATS outage at
// start is logged and the notifier runs without the bus.
func NewNotifierFromConfig(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *Notifier {
	opts := NotifierOptions{
		AuditURL:      cfg.Notify.AuditURL,
		AuditTimeout:  cfg.Notify.Timeout,
		SubjectPrefix: cfg.Notify.NATSSubject,
		Logger:        log.Named("notifier"),
	}
	if cfg.Notify.NATSURL != "" {
		nc, err := nats.Connect(cfg.Notify.NATSURL,
			nats.Name("studioflow"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					log.Warn("nats disconnected", zap.Error(err))
				}
			}),
		)
		if err != nil {
			log.Warn("nats connect failed", zap.String("url", cfg.Notify.NATSURL), zap.Error(err))
		} else {
			opts.Publisher = nc
			lc.Append(fx.Hook{OnStop: func(context.Context) error {
				return nc.Drain()
			}})
		}
	}
	return NewNotifier(opts)
}
