package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/LegalRAG/internal/adapter/utils"
	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/handlers"
	"github.com/akolanti/LegalRAG/internal/middleware"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

type Server struct {
	http   *http.Server
	logger *logger_i.Logger
}

// NewRouter mounts the job API behind the middleware chain. Swagger and
// metrics stay outside it.
func NewRouter(h *handlers.JobHandler, m *middleware.Middleware) *chi.Mux {
	r := utils.NewRouter()
	r.Get("/health", h.HealthHandler)
	r.Post("/ask", m.Wrap(h.AskHandler))
	r.Get("/status/{id}", m.Wrap(h.GetStatusHandler))
	r.Post("/ingest", m.Wrap(h.PostIngestHandler))
	r.Post("/ingest/directory", m.Wrap(h.PostIngestDirectoryHandler))
	return r
}

func CreateServer(listenAddr string, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:         listenAddr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("Server"),
	}
}

func (s *Server) ListenAndServe() {
	s.logger.Info("Server is listening at", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err, "addr", s.http.Addr)
	}
}

// ShutDownHandler waits for a signal, drains HTTP, stops the workers, then
// closes the external services.
func (s *Server) ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	s.logger.Info("Server is shutting down", "signal", state)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		s.http.SetKeepAlivesEnabled(false)

		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("Could not shutdown gracefully", "error", err)
		}

		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Gracefully shut down")
	case <-ctx.Done():
		s.logger.Error("Force Shut down")
		os.Exit(1)
	}
}
