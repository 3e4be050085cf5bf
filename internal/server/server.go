// Package server exposes stored runs over a read-mostly JSON HTTP API.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/waves
//	GET  /api/runs                    ?limit=N&command=detect|tune
//	GET  /api/runs/latest             ?command=detect|tune
//	GET  /api/runs/{id}
//	GET  /api/runs/{id}/detections
//	GET  /api/runs/{id}/evaluations
//	GET  /api/runs/{id}/trials
//	POST /api/detect                  (when a detector is configured)
//	GET  /api/events                  server-sent run notifications
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/pipeline"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/watch"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/waves"
)

// Detector runs a detection and records it as a run.
type Detector interface {
	Detect(ctx context.Context) (*pipeline.DetectResult, error)
}

// Server is the HTTP API server.
type Server struct {
	store    core.Store
	catalog  *waves.Catalog
	detector Detector
	addr     string
	watch    string
	logger   *slog.Logger
	notifier *Notifier
}

// Config holds configuration for the API server.
type Config struct {
	Store    core.Store
	Catalog  *waves.Catalog
	Detector Detector // optional; enables POST /api/detect
	Host     string
	Port     int
	// WatchFile re-runs detection when the file changes. Requires Detector.
	WatchFile string
	Logger    *slog.Logger
}

// New creates a new API server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = waves.Brazil()
	}
	return &Server{
		store:    cfg.Store,
		catalog:  catalog,
		detector: cfg.Detector,
		addr:     net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		watch:    cfg.WatchFile,
		logger:   logger,
		notifier: NewNotifier(),
	}
}

// Notifier returns the server's run notifier.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.requestLogger,
	)

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/waves", s.listWaves)
		r.Get("/events", s.events)
		if s.detector != nil {
			r.Post("/detect", s.runDetect)
		}
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.listRuns)
			r.Get("/latest", s.latestRun)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getRun)
				r.Get("/detections", s.getDetections)
				r.Get("/evaluations", s.getEvaluations)
				r.Get("/trials", s.getTrials)
			})
		})
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting API server", "addr", "http://"+s.addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch != "" && s.detector != nil {
		eg.Go(func() error {
			return watch.File(egctx, s.watch, watch.DefaultDebounce, s.logger, func(ctx context.Context) {
				if _, err := s.detect(ctx); err != nil {
					s.logger.Error("detect failed", "error", err)
				}
			})
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// detect runs the detector and notifies listeners of the new run, failed
// runs included.
func (s *Server) detect(ctx context.Context) (*pipeline.DetectResult, error) {
	res, err := s.detector.Detect(ctx)
	if res != nil && res.Run != nil {
		s.notifier.Broadcast(res.Run.ID)
	}
	return res, err
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
