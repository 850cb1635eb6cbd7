// Package liveness serves the fixed health route polled by the hosting platform.
package liveness

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	DefaultAddr = "0.0.0.0:10000"
	Body        = "Bot is running ✅"
)

// Router has exactly one route, GET /, answering 200 with Body.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(Body))
	})
	return r
}

// Server runs a handler on one address until its context ends.
type Server struct {
	name string
	srv  *http.Server
}

// NewServer serves the liveness router on addr.
func NewServer(addr string) *Server {
	return NewNamedServer("liveness", addr, Router())
}

// NewNamedServer serves any handler; name only appears in logs.
func NewNamedServer(name, addr string, handler http.Handler) *Server {
	return &Server{
		name: name,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run binds the address and serves until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		slog.Error("failed to bind http server", "server", s.name, "addr", s.srv.Addr, "error", err)
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "server", s.name, "addr", ln.Addr().String())
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down http server", "server", s.name, "error", err)
		return err
	}
	slog.Info("http server stopped", "server", s.name)
	return nil
}
