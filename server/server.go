// Package server exposes translation runs over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/ZaguanLabs/prismlate"
	"github.com/ZaguanLabs/prismlate/config"
	"github.com/ZaguanLabs/prismlate/metrics"
	"github.com/ZaguanLabs/prismlate/pipeline"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server serves the translation API.
type Server struct {
	pipeline *pipeline.Pipeline
	cfg      config.ServerConfig
	logger   *zap.Logger
	recorder *metrics.Recorder
	engine   *gin.Engine

	mu     sync.Mutex
	runs   map[string]*prismlate.Run
	guards map[string]*prismlate.SelectionGuard
}

// New creates a server on top of p. recorder may be nil, in which case
// /metrics is not mounted.
func New(p *pipeline.Pipeline, cfg config.ServerConfig, logger *zap.Logger, recorder *metrics.Recorder) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		pipeline: p,
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		runs:     make(map[string]*prismlate.Run),
		guards:   make(map[string]*prismlate.SelectionGuard),
	}
	s.engine = s.newRouter()
	return s
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(s.logger), ErrorHandler(s.logger))
	router.Use(cors.New(s.corsConfig()))

	v1 := router.Group("/v1")
	v1.GET("/ping", s.ping)
	v1.GET("/quota", s.quota)
	v1.POST("/translate", s.limitBody, s.translate)
	v1.POST("/preview", s.limitBody, s.preview)
	v1.POST("/selection", s.limitBody, s.selection)
	v1.POST("/runs/:id/cancel", s.cancelRun)

	if s.recorder != nil {
		router.GET("/metrics", gin.WrapH(s.recorder.Handler()))
	}
	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = append(cfg.AllowHeaders, RequestIDHeader)
	cfg.ExposeHeaders = []string{RequestIDHeader}
	if len(s.cfg.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cfg
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
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

	s.cancelAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// register tracks a run so cancel requests can reach it. It fails when a
// run with the same ID is already in flight.
func (s *Server) register(run *prismlate.Run) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.runs[run.ID()]; busy {
		return false
	}
	s.runs[run.ID()] = run
	return true
}

func (s *Server) unregister(run *prismlate.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, run.ID())
}

func (s *Server) lookup(id string) (*prismlate.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	return run, ok
}

// claimPage takes the selection guard of a page. Each request parses its
// own document, so the guard has to live on the server to be shared.
func (s *Server) claimPage(id string) (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, found := s.guards[id]
	if !found {
		g = new(prismlate.SelectionGuard)
		s.guards[id] = g
	}
	if !g.TryAcquire() {
		return nil, false
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		g.Release()
		delete(s.guards, id)
	}, true
}

func (s *Server) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.runs {
		run.Cancel()
	}
}
