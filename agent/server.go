// Package agent is the local HTTP endpoint that receives uploaded files,
// stores them and opens them with a desktop application.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/duke-git/lancet/v2/fileutil"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Port          int
	UploadDir     string
	MaxUploadSize int64
	// AllowedExtensions are dotted and lower-case. Empty allows every type.
	AllowedExtensions []string
}

type Server struct {
	opts   Options
	opener Opener
	logger *log.Logger
}

// NewServer creates the upload directory if needed.
func NewServer(opts Options, opener Opener, logger *log.Logger) (*Server, error) {
	if !fileutil.IsExist(opts.UploadDir) {
		if err := fileutil.CreateDir(opts.UploadDir); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	return &Server{
		opts:   opts,
		opener: opener,
		logger: logger.WithPrefix("agent"),
	}, nil
}

// Handler returns the agent's routes wrapped in its middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return loggingMiddleware(s.logger)(corsMiddleware(mux))
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /open/{filename}", s.handleOpen)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Infof("File opener agent starting on port %d", s.opts.Port)
		s.logger.Infof("Upload directory: %s", s.opts.UploadDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("agent server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Errorf("Failed to shutdown agent server: %v", err)
			return err
		}
		s.logger.Info("Agent server stopped")
		return nil
	})
	return g.Wait()
}

// openAsync runs the opener detached from the request, which ends before
// the application does.
func (s *Server) openAsync(path string) {
	ctx := log.WithContext(context.Background(), s.logger)
	go func() {
		if err := s.opener.Open(ctx, path); err != nil {
			s.logger.Error("Failed to open file", "path", path, "error", err)
		}
	}()
}
