// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// HTTP transport for the import engine

package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sony-level/wsimport/internal/importer"
	"github.com/sony-level/wsimport/internal/metrics"
)

// DefaultMaxUploadBytes bounds multipart bodies when Options leaves it unset
const DefaultMaxUploadBytes = 200 * 1024 * 1024

// multipartOverhead is allowed on top of the file limit for form framing
const multipartOverhead = 1 << 20

// Options configures a Server
type Options struct {
	Logger         *zap.Logger
	Metrics        metrics.Metrics
	MetricsHandler http.Handler // mounted on /metrics when set
	MaxUploadBytes int64
}

// Server exposes engine operations over HTTP
type Server struct {
	engine    *importer.Engine
	logger    *zap.Logger
	metrics   metrics.Metrics
	maxUpload int64
	handler   http.Handler
}

// New builds the route table
func New(engine *importer.Engine, opts Options) *Server {
	s := &Server{
		engine:    engine,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /assessments/{id}/source/branches", s.handleBranches)
	mux.HandleFunc("POST /assessments/{id}/source/clone", s.handleClone)
	mux.HandleFunc("POST /assessments/{id}/source/upload-zip", s.handleUploadArchive)
	mux.HandleFunc("GET /assessments/{id}/source/list", s.handleList)
	mux.HandleFunc("DELETE /assessments/{id}/source/{name}", s.handleDelete)
	mux.HandleFunc("POST /assessments/{id}/context/upload", s.handleUploadContext)
	mux.HandleFunc("GET /assessments/{id}/context/files", s.handleListContext)
	mux.HandleFunc("DELETE /assessments/{id}/context/{filename}", s.handleDeleteContext)
	mux.HandleFunc("GET /assessments/{id}/check", s.handleCheck)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.handler = s.withRequestID(s.withAccessLog(mux))
	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to shutdownTimeout
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.Duration("grace", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
