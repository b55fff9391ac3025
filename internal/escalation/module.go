package escalation

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/config"
	"github.com/ronappleton/studioflow/internal/workflow"
)

func Module() fx.Option {
	return fx.Invoke(register)
}

func register(lc fx.Lifecycle, cfg config.Config, svc *workflow.Service, logger *zap.Logger) {
	interval := cfg.EscalationInterval()
	if interval <= 0 {
		logger.Info("escalation sweep disabled")
		return
	}
	w := NewWorker(svc, logger.Named("escalation"))
	var cancel context.CancelFunc
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runCtx, runCancel := context.WithCancel(context.Background())
			cancel = runCancel
			go func() {
				defer close(done)
				w.Run(runCtx, interval)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel == nil {
				return nil
			}
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			return nil
		},
	})
}
