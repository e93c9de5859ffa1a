package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/power-alert/internal/domain/alert"
	"github.com/oshokin/power-alert/internal/logger"
)

// ServiceName is the health service name the monitor reports under.
const ServiceName = "power-alert"

// gracefulStopTimeout bounds GracefulStop; open Watch streams would otherwise hold it forever.
const gracefulStopTimeout = 2 * time.Second

// Server tracks the monitor phase as gRPC serving status.
type Server struct {
	// health is the stock gRPC health implementation.
	health *grpchealth.Server
}

// NewServer creates a health server in the starting phase.
func NewServer() *Server {
	s := &Server{
		health: grpchealth.NewServer(),
	}

	s.Report(alert.PhaseStarting)

	return s
}

// Report maps the phase onto the serving status of ServiceName and of the
// whole server ("").
func (s *Server) Report(phase alert.Phase) {
	status := servingStatus(phase)

	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Register attaches the health service to a gRPC server.
func (s *Server) Register(grpcServer *grpc.Server) {
	healthpb.RegisterHealthServer(grpcServer, s.health)
}

// ListenAndServe listens on address and serves until ctx is cancelled.
func ListenAndServe(ctx context.Context, address string, s *Server) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return Serve(ctx, lis, s)
}

// Serve serves the health service on lis and blocks until ctx is cancelled
// or the server fails.
func Serve(ctx context.Context, lis net.Listener, s *Server) error {
	grpcServer := grpc.NewServer()
	s.Register(grpcServer)

	logger.InfoKV(ctx, "Health endpoint listening", "listen_address", lis.Addr().String())

	// Done channel is closed after the server fully stops so we do not
	// return while RPCs are still being torn down.
	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		s.health.Shutdown()

		stopped := make(chan struct{})

		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(gracefulStopTimeout):
			grpcServer.Stop()
		}
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Health endpoint stopped")

	return nil
}

// servingStatus converts a monitor phase into a health status.
func servingStatus(phase alert.Phase) healthpb.HealthCheckResponse_ServingStatus {
	switch {
	case phase.Healthy():
		return healthpb.HealthCheckResponse_SERVING
	case phase == alert.PhaseStarting:
		return healthpb.HealthCheckResponse_UNKNOWN
	default:
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
}
