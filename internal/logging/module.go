package logging

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ronappleton/studioflow/internal/config"
)

func Module() fx.Option {
	return fx.Options(
		fx.Provide(func(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
			logger, sink, err := New(cfg.Logging, cfg.Telemetry.ServiceName)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
				_ = logger.Sync()
				if sink != nil {
					sink.Close()
				}
				return nil
			}})
			return logger, nil
		}),
	)
}

// New builds the process logger. When cfg.SinkURL is set, info and above
// are also shipped to the log collector; the returned sink must be closed
// on shutdown.
func New(cfg config.LoggingConfig, source string) (*zap.Logger, *Sink, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("logging level %q: %w", cfg.Level, err)
		}
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, nil, err
	}
	if source == "" {
		source = "studioflow"
	}
	logger = logger.With(zap.String("service", source))
	if cfg.SinkURL == "" {
		return logger, nil, nil
	}
	sink := NewSink(cfg.SinkURL, cfg.SinkAPIKey, source, 200)
	return sink.Attach(logger), sink, nil
}
