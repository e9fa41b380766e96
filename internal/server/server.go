// Package server assembles the listeners: the main listener runs the
// middleware chain in front of the backend proxy, the admin listener exposes
// health, stats and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FlashpointBV/prerender/internal/config"
	"github.com/FlashpointBV/prerender/internal/logging"
	"github.com/FlashpointBV/prerender/internal/middleware"
	"github.com/FlashpointBV/prerender/internal/middleware/prerender"
	"github.com/FlashpointBV/prerender/internal/proxy"
)

// Server is the assembled service.
type Server struct {
	cfg *config.Config

	httpServer  *http.Server
	adminServer *http.Server

	prerenderer *prerender.Prerenderer
	prober      *prerender.Prober
	watcher     *config.Watcher
	registry    *prometheus.Registry

	proberCancel context.CancelFunc
}

// New assembles a Server from the loaded configuration.
func New(cfg *config.Config) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	transport := proxy.FromConfig(cfg.Transport)

	backend, err := proxy.New(cfg.Backend, transport)
	if err != nil {
		return nil, fmt.Errorf("backend proxy: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		registry: registry,
	}

	if cfg.Prerender.Enabled {
		p, err := prerender.New(cfg.Prerender, cfg.Debug, transport, registry)
		if err != nil {
			return nil, fmt.Errorf("prerender: %w", err)
		}
		s.prerenderer = p

		if cfg.Prerender.HealthCheck.Enabled {
			s.prober = prerender.NewProber(cfg.Prerender, transport)
		}
	}

	b := middleware.NewBuilder().
		Use(middleware.RequestID())
	if cfg.Logging.AccessLog {
		b.Use(middleware.AccessLogWithConfig(middleware.AccessLogConfig{}))
	}
	b.Use(middleware.Recovery())
	if s.prerenderer != nil {
		b.Use(s.prerenderer.Middleware())
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           b.Handler(backend),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	if cfg.Admin.Enabled {
		s.adminServer = &http.Server{
			Addr:    cfg.Admin.Address,
			Handler: s.adminHandler(),
		}
	}

	return s, nil
}

// WatchConfig reloads the prerender layer when the config file changes. Only
// the prerender section is hot-reloadable; listener and backend changes need
// a restart.
func (s *Server) WatchConfig(path string) error {
	if s.prerenderer == nil {
		return nil
	}

	w, err := config.NewWatcher(path)
	if err != nil {
		return err
	}
	w.OnChange(func(cfg *config.Config) {
		if !cfg.Prerender.Enabled {
			logging.Warn("prerender disable requires restart, ignoring")
			return
		}
		if err := s.prerenderer.Reload(cfg.Prerender); err != nil {
			logging.Error("prerender reload rejected", zap.Error(err))
			return
		}
		logging.Info("prerender configuration reloaded")
	})
	if err := w.Start(); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

func (s *Server) adminHandler() http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "ok"}
		code := http.StatusOK
		if s.prober != nil && !s.prober.Healthy() {
			status["status"] = "degraded"
			status["render_service"] = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})

	router.HandlerFunc(http.MethodGet, "/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := map[string]interface{}{}
		if s.prerenderer != nil {
			stats["prerender"] = s.prerenderer.Stats()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})

	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return router
}

// Run starts the listeners and blocks until a shutdown signal arrives.
func (s *Server) Run() error {
	errCh := make(chan error, 2)

	if s.prober != nil {
		var ctx context.Context
		ctx, s.proberCancel = context.WithCancel(context.Background())
		go s.prober.Run(ctx)
	}

	go func() {
		logging.Info("server listening", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()

	if s.adminServer != nil {
		go func() {
			logging.Info("admin listening", zap.String("address", s.adminServer.Addr))
			if err := s.adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("admin: %w", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.Shutdown()
		return err
	case sig := <-sigCh:
		logging.Info("shutting down", zap.String("signal", sig.String()))
		return s.Shutdown()
	}
}

// Shutdown stops the listeners, waiting up to the configured timeout for
// in-flight requests.
func (s *Server) Shutdown() error {
	if s.proberCancel != nil {
		s.proberCancel()
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Shutdown.Timeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	shutdown := func(name string, srv *http.Server) {
		defer wg.Done()
		if err := srv.Shutdown(ctx); err != nil {
			logging.Error("shutdown failed", zap.String("listener", name), zap.Error(err))
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}

	wg.Add(1)
	go shutdown("server", s.httpServer)
	if s.adminServer != nil {
		wg.Add(1)
		go shutdown("admin", s.adminServer)
	}
	wg.Wait()

	return firstErr
}
