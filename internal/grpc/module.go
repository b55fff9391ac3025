package grpc

import (
	"context"
	"net"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var Module = fx.Options(
	fx.Provide(
		NewHealth,
		NewServer,
		NewListener,
		fx.Annotate(NewProgressService, fx.As(new(ProgressServer))),
	),
	fx.Invoke(serve),
)

type serveParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Server    *grpc.Server
	Health    *health.Server
	Listener  net.Listener
	Progress  ProgressServer
}

func serve(p serveParams) {
	RegisterProgressServer(p.Server, p.Progress)
	log := p.Logger.Named("grpc")
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("grpc server starting", zap.String("addr", p.Listener.Addr().String()))
			go func() {
				if err := p.Server.Serve(p.Listener); err != nil {
					log.Error("grpc server error", zap.Error(err))
				}
			}()
			p.Health.Resume()
			p.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			p.Health.SetServingStatus(ProgressServiceName, healthpb.HealthCheckResponse_SERVING)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("grpc server stopping")
			p.Health.Shutdown()
			stopped := make(chan struct{})
			go func() {
				p.Server.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-ctx.Done():
				p.Server.Stop()
			}
			return nil
		},
	})
}
