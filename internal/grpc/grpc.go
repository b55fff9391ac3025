package grpc

import (
	"net"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ronappleton/studioflow/internal/config"
)

// maxMessageBytes bounds request Structs; stats filters and step ids are small.
const maxMessageBytes = 1 << 20

// NewServer returns a server with tracing and the standard health service.
// Health reports NOT_SERVING until the lifecycle hook starts serving.
func NewServer(healthSrv *health.Server) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.MaxRecvMsgSize(maxMessageBytes),
	)
	healthpb.RegisterHealthServer(srv, healthSrv)
	return srv
}

func NewHealth() *health.Server {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ProgressServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func NewListener(cfg config.Config) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(cfg.GRPC.Host, strconv.Itoa(cfg.GRPC.Port)))
}
