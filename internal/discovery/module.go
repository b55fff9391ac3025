package discovery

import (
	"context"
	"os"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/config"
)

const serviceName = "studioflow"

func Module() fx.Option {
	return fx.Invoke(Register)
}

// Register attaches the announcement to the app lifecycle. Nothing here is
// fatal: a missing bus only disables the announcement.
func Register(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) {
	if !cfg.Discovery.Enabled {
		return
	}
	natsURL := strings.TrimSpace(cfg.Notify.NATSURL)
	if natsURL == "" {
		logger.Warn("service discovery announcer disabled: notify.nats_url is empty")
		return
	}
	record := Record{
		Service:  serviceName,
		Host:     AdvertiseHost(cfg),
		HTTPPort: cfg.Server.Port,
		GRPCPort: cfg.GRPC.Port,
		Version:  strings.TrimSpace(os.Getenv("SERVICE_VERSION")),
	}

	var (
		nc        *nats.Conn
		announcer *Announcer
	)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			defer cancel()

			var err error
			nc, err = nats.Connect(natsURL, nats.Name(serviceName+"-service-discovery"))
			if err != nil {
				logger.Warn("service discovery init failed", zap.Error(err))
				return nil
			}
			js, err := jetstream.New(nc)
			if err != nil {
				logger.Warn("service discovery init failed", zap.Error(err))
				return nil
			}
			kv, err := js.CreateOrUpdateKeyValue(callCtx, jetstream.KeyValueConfig{
				Bucket: cfg.Discovery.Bucket,
				TTL:    3 * cfg.DiscoveryHeartbeat(),
			})
			if err != nil {
				logger.Warn("service discovery bucket unavailable", zap.String("bucket", cfg.Discovery.Bucket), zap.Error(err))
				return nil
			}
			announcer = NewAnnouncer(kv, record, cfg.DiscoveryHeartbeat(), logger)
			if err := announcer.Start(callCtx); err != nil {
				logger.Warn("service discovery announcer start failed", zap.Error(err))
				announcer = nil
				return nil
			}
			logger.Info("service discovery announcer started",
				zap.String("key", record.Key()),
				zap.String("host", record.Host),
				zap.Int("http_port", record.HTTPPort),
				zap.Int("grpc_port", record.GRPCPort),
				zap.String("bucket", cfg.Discovery.Bucket),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			defer cancel()
			if announcer != nil {
				if err := announcer.Stop(callCtx); err != nil {
					logger.Warn("service discovery deregister failed", zap.Error(err))
				}
			}
			if nc != nil {
				nc.Close()
			}
			return nil
		},
	})
}

// AdvertiseHost prefers the configured host, then a concrete bind address,
// then the hostname.
func AdvertiseHost(cfg config.Config) string {
	if h := strings.TrimSpace(cfg.Discovery.AdvertiseHost); h != "" {
		return h
	}
	if h := strings.TrimSpace(cfg.GRPC.Host); h != "" && h != "0.0.0.0" && h != "::" {
		return h
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return serviceName
}
