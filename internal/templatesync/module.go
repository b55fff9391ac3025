package templatesync

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/config"
	"github.com/ronappleton/studioflow/internal/workflow"
)

func Module() fx.Option {
	return fx.Invoke(Register)
}

// Register syncs templates.dir on start and optionally watches it. Nothing
// happens when no directory is configured.
func Register(lc fx.Lifecycle, cfg config.Config, svc *workflow.Service, log *zap.Logger) {
	if cfg.Templates.Dir == "" {
		return
	}
	s := New(cfg.Templates.Dir, svc, log.Named("templatesync"))
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			results, err := s.SyncAll(ctx)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			log.Info("template dir synced",
				zap.String("dir", cfg.Templates.Dir),
				zap.Int("files", len(results)),
				zap.Int("failed", failed))
			if cfg.Templates.Watch {
				return s.Watch(ctx)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
}
