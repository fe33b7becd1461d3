package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/imagestudio/internal/logging"
	"github.com/dmitrijs2005/imagestudio/internal/rpc"
)

type GRPCServer struct {
	rpc.UnimplementedStudioServer
	address         string
	users           userSvc
	histories       historySvc
	logger          logging.Logger
	jwtSecret       []byte
	maxMessageBytes int
}

func NewGRPCServer(a string, l logging.Logger, us userSvc, hs historySvc, secretKey string, maxMessageBytes int) *GRPCServer {
	return &GRPCServer{
		address:         a,
		logger:          l.With("module", "grpc_server"),
		users:           us,
		histories:       hs,
		jwtSecret:       []byte(secretKey),
		maxMessageBytes: maxMessageBytes,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor)}
	if s.maxMessageBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(s.maxMessageBytes), grpc.MaxSendMsgSize(s.maxMessageBytes))
	}
	srv := grpc.NewServer(opts...)

	rpc.RegisterStudioServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
