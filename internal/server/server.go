// Package server exposes scans, their results and symbol charts over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kktt667/Pair-Finder/internal/collector"
	"github.com/kktt667/Pair-Finder/internal/logger"
	"github.com/kktt667/Pair-Finder/internal/metrics"
	"github.com/kktt667/Pair-Finder/internal/model"
	"github.com/kktt667/Pair-Finder/internal/recorder"
	"github.com/kktt667/Pair-Finder/internal/scanner"
)

// ScanRunner runs a full scan and publishes it.
type ScanRunner interface {
	RunScan(ctx context.Context, trigger string, params model.ScanParameters) (*scanner.Report, error)
}

// Config describes the server dependencies. Tickers and Recorder are optional.
type Config struct {
	Addr     string
	Runner   ScanRunner
	Scanner  *scanner.Scanner
	Session  *scanner.Session
	Params   model.ScanParameters
	Tickers  collector.TickerSource
	Recorder recorder.Recorder
}

// Server serves the scan API.
type Server struct {
	addr   string
	router *gin.Engine
}

// NewServer builds the router.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Runner == nil || cfg.Scanner == nil || cfg.Session == nil {
		return nil, errors.New("http server requires a scan runner, scanner and session")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestMetrics(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := &handlers{cfg: cfg}
	api := router.Group("/api")
	api.POST("/scan", h.scan)
	api.GET("/signals", h.signals)
	api.GET("/signals/:symbol", h.detail)
	api.GET("/signals/:symbol/chart", h.chart)
	api.GET("/tickers", h.tickers)
	api.GET("/runs", h.runs)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("http server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			c.Request.Method, c.Request.URL.RequestURI(), c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}
