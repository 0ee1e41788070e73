// Package admin exposes the daemon's HTTP introspection surface. It is
// read-only: device operation stays on the control channel.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/hid"
	"github.com/Lakr233/vphone-cli/internal/observability"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

const version = "0.2.0"

// Options carries the surfaces the admin server reports on.
type Options struct {
	Logger       zerolog.Logger
	CORSOrigins  []string
	Registry     *capability.Registry
	Scheduler    *hid.Scheduler
	ClientCount  func() int64
	CommandCount func() uint64
}

// Server is the admin HTTP endpoint.
type Server struct {
	opts    Options
	router  *gin.Engine
	started time.Time
}

func NewServer(opts Options) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(opts.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{opts: opts, router: r, started: time.Now()}
	s.registerRoutes()
	return s
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"uptime":           time.Since(s.started).String(),
			"version":          version,
			"protocol_version": protocol.Version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":    true,
			"uptime":   time.Since(s.started).String(),
			"clients":  s.opts.ClientCount(),
			"commands": s.opts.CommandCount(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/capabilities", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"capabilities": s.opts.Registry.Snapshot(),
		})
	})

	s.router.GET("/scheduler", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.opts.Scheduler.Snapshot())
	})
}

// Run serves until ctx ends, then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.opts.Logger.Info().Str("addr", addr).Msg("admin surface listening")
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
