package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/matheus3301/groupweaver/internal/api"
	"go.uber.org/zap"
)

// HTTPServer serves the REST and WebSocket transport.
type HTTPServer struct {
	srv      *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// NewHTTPServer binds addr immediately so a port conflict fails startup.
func NewHTTPServer(addr string, h *api.Handler, logger *zap.Logger) (*HTTPServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &HTTPServer{
		srv: &http.Server{
			Handler:           api.NewRouter(h),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		listener: listener,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *HTTPServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Start begins serving HTTP requests. Blocks until stopped.
func (s *HTTPServer) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.listener.Addr().String()))
	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop waits for in-flight requests until ctx expires.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server stopping")
	return s.srv.Shutdown(ctx)
}
