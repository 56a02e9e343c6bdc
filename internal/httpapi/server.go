// Package httpapi wires the five core packages (headerpolicy, pool,
// segmentcache, rewriter, prefetch) into the HTTP endpoints of spec.md §6.
//
// Grounded on the teacher's internal/server.Server: a *http.Server plus a
// *http.ServeMux, constructed by New(cfg) and exposing Start/Shutdown, with
// every route wrapped in the same request-ID-then-log middleware chain.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sofatutor/hlsproxy/internal/config"
	"github.com/sofatutor/hlsproxy/internal/logging"
	"github.com/sofatutor/hlsproxy/internal/pool"
	"github.com/sofatutor/hlsproxy/internal/prefetch"
	"github.com/sofatutor/hlsproxy/internal/rewriter"
	"github.com/sofatutor/hlsproxy/internal/segmentcache"
)

// Server is the HTTP front door for the proxy.
type Server struct {
	cfg          *config.Config
	logger       *zap.Logger
	cache        *segmentcache.Cache
	pool         *pool.Registry
	orchestrator *prefetch.Orchestrator
	origins      *config.OriginAllowlist
	httpServer   *http.Server
}

// New constructs a Server from cfg: a logger, the segment cache (with its
// sweeper started), the per-origin connection pool registry, the prefetch
// orchestrator, and the optional origin allowlist.
func New(cfg *config.Config) (*Server, error) {
	logger, err := logging.NewLoggerWithRotation(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, cfg.LogMaxSizeBytes, cfg.LogMaxBackups)
	if err != nil {
		return nil, fmt.Errorf("httpapi: init logger: %w", err)
	}

	origins, err := config.LoadOriginAllowlist(cfg.OriginConfigPath)
	if err != nil {
		return nil, fmt.Errorf("httpapi: load origin allowlist: %w", err)
	}

	cache := segmentcache.New(segmentcache.Config{
		MaxEntries:     cfg.CacheMaxEntries,
		MaxMemoryBytes: cfg.CacheMaxMemoryBytes,
		Expiry:         cfg.CacheExpiry,
	}, logger, config.DisableCacheEnabled)
	cache.StartSweeper(cfg.CacheSweepInterval)

	registry := pool.NewRegistry(pool.Config{
		MaxConnections:        cfg.PoolMaxConnections,
		MaxPipelinedPerConn:   cfg.PoolMaxPipelinedPerConn,
		KeepAliveIdle:         cfg.PoolKeepAliveIdle,
		DialTimeout:           cfg.PoolDialTimeout,
		TLSHandshakeTimeout:   cfg.PoolTLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.PoolResponseHeaderTimeout,
		ExpectContinueTimeout: cfg.PoolExpectContinueTimeout,
	}, logger)
	registry.SetOverrides(poolOverridesFromOrigins(origins))

	orchestrator := prefetch.New(cache, registry, logger, config.DisableCacheEnabled)

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		cache:        cache,
		pool:         registry,
		orchestrator: orchestrator,
		origins:      origins,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/m3u8-proxy", s.wrap(s.handleM3U8Proxy))
	mux.HandleFunc("/ts-proxy", s.wrap(s.handleTSProxy))
	mux.HandleFunc("/cache-stats", s.wrap(s.handleCacheStats))
	mux.HandleFunc("/cache-purge", s.wrap(s.handleCachePurge))
	mux.HandleFunc("/stream", s.wrap(s.handleStreamPassthrough))
	mux.HandleFunc("/health", s.wrap(s.handleHealth))

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  cfg.RequestTimeout * 2,
	}
	return s, nil
}

// wrap applies the request-ID and logging middleware chain to a handler,
// mirroring the teacher's s.logRequestMiddleware(s.handleX) call sites.
func (s *Server) wrap(h http.HandlerFunc) http.HandlerFunc {
	handler := withRequestID(logRequests(s.logger, h))
	return handler.ServeHTTP
}

// Start blocks serving HTTP until Shutdown is called or an unrecoverable
// error occurs.
func (s *Server) Start() error {
	s.logger.Info("hlsproxy starting", zap.String("addr", s.cfg.ListenAddr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new connections, drains the cache sweeper and
// connection pools, and shuts down the underlying http.Server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cache.StopSweeper()
	s.pool.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","time":%q}`, time.Now().UTC().Format(time.RFC3339))
}

// poolOverridesFromOrigins translates the operator-supplied origin
// allowlist's per-origin tuning (config.OriginOverride) into the pool
// package's own Config overrides, keyed the same way as pool.Origin's
// output (lower-cased scheme://host[:port]).
func poolOverridesFromOrigins(origins *config.OriginAllowlist) map[string]pool.Config {
	overrides := make(map[string]pool.Config, len(origins.Overrides))
	for origin, o := range origins.Overrides {
		overrides[strings.ToLower(origin)] = pool.Config{
			MaxConnections:      o.MaxConnections,
			MaxPipelinedPerConn: o.MaxPipelined,
			KeepAliveIdle:       o.KeepAliveIdle,
		}
	}
	return overrides
}

// checkOriginAllowed rejects a request naming an origin outside the
// operator's configured allowlist, before any upstream fetch is attempted.
func (s *Server) checkOriginAllowed(rawURL string) error {
	origin, err := pool.Origin(rawURL)
	if err != nil {
		return &rewriter.BadRequestError{Message: err.Error()}
	}
	if !s.origins.Allowed(origin) {
		return &rewriter.ForbiddenError{Message: fmt.Sprintf("origin not allowed: %s", origin)}
	}
	return nil
}

func writeCORSPreflight(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "*")
	w.Header().Set("Access-Control-Allow-Methods", "*")
	w.WriteHeader(http.StatusNoContent)
}

// proxyBaseURL derives P, spec.md §4.4's proxy base, from the inbound
// request: scheme (honoring X-Forwarded-Proto behind a reverse proxy) plus
// Host, no trailing slash.
func proxyBaseURL(r *http.Request) string {
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
