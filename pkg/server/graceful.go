// Package server exposes run metrics and health over HTTP for long
// simulations.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dd0wney/mspread/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining on shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// GracefulServer wraps an HTTP server that drains connections when its
// context is cancelled.
type GracefulServer struct {
	server       *http.Server
	logger       logging.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	mu       sync.Mutex
	listener net.Listener
}

// NewGracefulServer creates a server for handler on addr.
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:     logging.OrDefault(logger).With(logging.Component("server")),
		shutdownCh: make(chan struct{}),
	}
}

// Listen binds the address without serving yet.
func (gs *GracefulServer) Listen() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	gs.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (gs *GracefulServer) Addr() string {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.listener != nil {
		return gs.listener.Addr().String()
	}
	return gs.server.Addr
}

// Serve listens if needed and serves until ctx is cancelled or the server
// fails. Cancellation triggers a graceful shutdown.
func (gs *GracefulServer) Serve(ctx context.Context) error {
	if err := gs.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("starting HTTP server", logging.String("addr", gs.Addr()))
		errCh <- gs.server.Serve(gs.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		if err := gs.Shutdown(DefaultShutdownTimeout); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Shutdown stops accepting connections and waits up to timeout for active
// ones. Later calls are no-ops.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))
		if err = gs.server.Shutdown(ctx); err != nil {
			gs.logger.Error("shutdown failed", logging.Error(err))
			return
		}
		gs.logger.Info("server shutdown complete")
	})
	return err
}

// IsShuttingDown reports whether shutdown has started.
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel is closed when shutdown starts.
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}
