// Package server serves HTTP and gRPC on a single listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

// ShutdownTimeout bounds how long in-flight HTTP requests may take to drain.
const ShutdownTimeout = 10 * time.Second

// Server sniffs each accepted connection and hands it to either the gRPC
// server or the HTTP server.
type Server struct {
	HTTP *http.Server
	GRPC *grpc.Server

	raw     net.Listener
	mux     cmux.CMux
	httpL   net.Listener
	grpcL   net.Listener
	closing atomic.Bool
}

// New binds addr and prepares the connection multiplexer.
func New(addr string, handler http.Handler, gs *grpc.Server) (*Server, error) {
	raw, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	s := &Server{
		HTTP: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		GRPC: gs,
		raw:  raw,
		mux:  cmux.New(raw),
	}

	s.mux.HandleError(func(err error) bool {
		var netErr net.Error
		if !errors.As(err, &netErr) {
			logger.Warn("Failed to match client connection", "error", err)
		}
		return true
	})

	// gRPC clients wait for the server's SETTINGS frame before sending
	// headers, so this matcher writes one while sniffing.
	s.grpcL = s.mux.MatchWithWriters(
		cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	s.httpL = s.mux.Match(cmux.HTTP1Fast())

	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.raw.Addr()
}

// Serve blocks until ctx is cancelled or a component fails, then drains
// HTTP requests, stops gRPC gracefully and closes the listener.
func (s *Server) Serve(ctx context.Context) error {
	// Long-lived streams (SSE, websockets) end when base is cancelled.
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	s.HTTP.BaseContext = func(net.Listener) context.Context { return base }

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.mux.Serve(); err != nil && !s.closing.Load() {
			return fmt.Errorf("cmux: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.HTTP.Serve(s.httpL); err != nil && !errors.Is(err, http.ErrServerClosed) && !s.closing.Load() {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.GRPC.Serve(s.grpcL); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !s.closing.Load() {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.closing.Store(true)
		logger.Info("Shutting down server", "address", s.Addr().String())

		cancelBase()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		err := s.HTTP.Shutdown(shutdownCtx)

		s.GRPC.GracefulStop()
		_ = s.raw.Close()
		return err
	})

	logger.Info("Server listening", "address", s.Addr().String())
	return g.Wait()
}
