// Package discovery keeps a heartbeat record for this process in a NATS
// key-value bucket so peers can find its HTTP and gRPC endpoints.
package discovery

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Bucket is satisfied by jetstream.KeyValue.
type Bucket interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

type Record struct {
	Service     string    `json:"service"`
	Host        string    `json:"host"`
	HTTPPort    int       `json:"http_port"`
	GRPCPort    int       `json:"grpc_port"`
	Version     string    `json:"version,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	HeartbeatAt time.Time `json:"heartbeat_at"`
}

// Key is the bucket key for the record. Characters the key-value store
// rejects are replaced with underscores.
func (r Record) Key() string {
	var b strings.Builder
	for _, c := range r.Service + "." + r.Host {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.', c == '/', c == '=':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

type Announcer struct {
	bucket   Bucket
	record   Record
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAnnouncer(bucket Bucket, record Record, interval time.Duration, logger *zap.Logger) *Announcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Announcer{
		bucket:   bucket,
		record:   record,
		interval: interval,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start writes the first record synchronously, then heartbeats in the
// background until Stop.
func (a *Announcer) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return nil
	}
	a.record.StartedAt = a.now()
	if err := a.put(ctx); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.loop(runCtx, a.done)
	return nil
}

func (a *Announcer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := a.put(callCtx); err != nil && ctx.Err() == nil {
				a.logger.Warn("service discovery heartbeat failed", zap.Error(err))
			}
			cancel()
		}
	}
}

func (a *Announcer) put(ctx context.Context) error {
	rec := a.record
	rec.HeartbeatAt = a.now()
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = a.bucket.Put(ctx, rec.Key(), raw)
	return err
}

// Stop ends the heartbeat and removes the record.
func (a *Announcer) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return a.bucket.Delete(ctx, a.record.Key())
}
