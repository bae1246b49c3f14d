// Package server exposes the OCR relay over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"ocrrelay/internal/logger"
)

// NewRouter mounts /health and the API-key guarded /ocr-pdf route.
func NewRouter(h *Handlers, apiKey string) http.Handler {
	mx := chi.NewRouter()
	mx.Use(middleware.RequestID)
	mx.Use(requestLogger)
	mx.Use(middleware.Recoverer)

	mx.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "not found")
	})
	mx.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	mx.Get("/health", Health)
	// Every method on /ocr-pdf, including the 405 path, goes through the key check.
	mx.Route("/ocr-pdf", func(mx chi.Router) {
		mx.Use(RequireAPIKey(apiKey))
		h.Register(mx)
	})
	return mx
}

// Server runs an http.Server until its context is canceled.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

func New(addr string, handler http.Handler, shutdownTimeout time.Duration) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

// Run listens on the configured address and blocks until ctx is done, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logger.WithComponent("server")
	s.srv.BaseContext = func(net.Listener) context.Context { return context.WithoutCancel(ctx) }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Msg("Listening")
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Dur("timeout", s.shutdownTimeout).Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
