package daemon

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/matheus3301/groupweaver/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ControlServer exposes the gRPC health service on the profile's Unix socket.
// It is SERVING only while the daemon is READY.
type ControlServer struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewControlServer creates a gRPC server bound to socketPath and keeps its
// health status in step with machine.
func NewControlServer(socketPath string, machine *status.Machine, logger *zap.Logger) (*ControlServer, error) {
	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	c := &ControlServer{
		grpcServer: srv,
		health:     hs,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}
	c.setState(machine.Current())
	machine.Observe(func(change status.StatusChange) {
		c.setState(change.To)
	})
	return c, nil
}

func (c *ControlServer) setState(s status.State) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s == status.Ready {
		st = healthpb.HealthCheckResponse_SERVING
	}
	c.health.SetServingStatus("", st)
	c.health.SetServingStatus(status.HealthService, st)
	c.logger.Info("daemon state", zap.String("state", string(s)), zap.String("health", st.String()))
}

// Start begins serving gRPC requests. Blocks until stopped.
func (c *ControlServer) Start() error {
	c.logger.Info("control socket starting", zap.String("socket", c.socketPath))
	return c.grpcServer.Serve(c.listener)
}

// Stop performs a graceful shutdown and removes the socket file.
func (c *ControlServer) Stop(_ context.Context) {
	c.logger.Info("control socket stopping")
	c.health.Shutdown()
	c.grpcServer.GracefulStop()
	_ = os.Remove(c.socketPath)
}
