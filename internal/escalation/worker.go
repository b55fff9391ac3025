// Package escalation notifies once for each in-progress step that runs past
// its escalation window.
package escalation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/workflow"
)

type Source interface {
	PendingEscalations(ctx context.Context) ([]workflow.Escalation, error)
	Escalate(ctx context.Context, e workflow.Escalation)
}

type Worker struct {
	source Source
	logger *zap.Logger

	mu   sync.Mutex
	sent map[string]struct{}
}

func NewWorker(source Source, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{source: source, logger: logger, sent: map[string]struct{}{}}
}

// Run sweeps immediately and then on every tick until ctx ends.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.Sweep(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Warn("escalation sweep failed; retrying next tick", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep escalates steps not yet reported and returns how many it sent.
// Episodes that are no longer pending are forgotten.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	pending, err := w.source.PendingEscalations(ctx)
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	live := make(map[string]struct{}, len(pending))
	sent := 0
	for _, e := range pending {
		key := e.Key()
		live[key] = struct{}{}
		if _, ok := w.sent[key]; ok {
			continue
		}
		w.source.Escalate(ctx, e)
		sent++
	}
	w.sent = live
	if sent > 0 {
		w.logger.Info("escalation sweep", zap.Int("sent", sent), zap.Int("pending", len(pending)))
	}
	return sent, nil
}
