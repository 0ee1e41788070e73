package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Lakr233/vphone-cli/internal/admin"
	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/capability/sim"
	"github.com/Lakr233/vphone-cli/internal/files"
	"github.com/Lakr233/vphone-cli/internal/hid"
	"github.com/Lakr233/vphone-cli/internal/observability"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

var (
	ErrInvalidListenNetwork     = errors.New("daemon: listen network must be tcp or unix")
	ErrInvalidHeartbeatInterval = errors.New("daemon: invalid heartbeat interval")
)

// ServiceConfig configures the daemon's standalone runtime.
type ServiceConfig struct {
	ListenNetwork     string
	ListenAddr        string
	AdminAddr         string
	FilesRoot         string
	SimBackends       bool
	CORSOrigins       []string
	HeartbeatInterval time.Duration
	Limits            protocol.Limits
}

// DefaultServiceConfig returns the daemon's standalone defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenNetwork:     "tcp",
		ListenAddr:        "127.0.0.1:5959",
		AdminAddr:         "",
		FilesRoot:         "/",
		SimBackends:       false,
		HeartbeatInterval: 30 * time.Second,
		Limits:            protocol.DefaultLimits(),
	}
}

// Service runs the daemon lifecycle as a standalone process.
type Service struct {
	cfg       ServiceConfig
	server    *Server
	scheduler *hid.Scheduler
	admin     *admin.Server
}

// NewService constructs a daemon service with default config.
func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

// NewServiceWithConfig constructs a daemon service with explicit config.
func NewServiceWithConfig(cfg ServiceConfig) *Service {
	if strings.TrimSpace(cfg.ListenNetwork) == "" {
		cfg.ListenNetwork = "tcp"
	}
	if cfg.Limits.MaxMessageBytes == 0 {
		cfg.Limits = protocol.DefaultLimits()
	}
	return &Service{cfg: cfg}
}

// Run blocks until process signal shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.bootstrap(); err != nil {
		return err
	}
	defer s.scheduler.Close()

	return s.serve(ctx)
}

// Server exposes the command dispatcher, mainly for tests.
func (s *Service) Server() *Server { return s.server }

func (s *Service) bootstrap() error {
	if s.cfg.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	switch s.cfg.ListenNetwork {
	case "tcp", "unix":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidListenNetwork, s.cfg.ListenNetwork)
	}
	observability.RegisterMetrics()

	logger := log.With().Str("component", "daemon").Logger()

	var (
		backend  hid.Backend
		location capability.Location
		devmode  capability.DevMode
	)
	if s.cfg.SimBackends {
		backend = sim.NewHID(logger)
		location = sim.NewLocation(logger)
		devmode = sim.NewDevMode(logger)
	} else {
		backend = hid.UnsupportedBackend()
		location = capability.UnsupportedLocation(capability.Metadata{
			ID:          "location",
			Name:        "Location simulation",
			Description: "guest location override",
		})
		devmode = capability.UnsupportedDevMode(capability.Metadata{
			ID:          "devmode",
			Name:        "Developer mode",
			Description: "guest developer mode switch",
		})
	}

	s.scheduler = hid.NewScheduler(backend, logger)

	server, err := NewServer(Options{
		Logger:    logger,
		Limits:    s.cfg.Limits,
		Files:     files.NewService(s.cfg.FilesRoot),
		Scheduler: s.scheduler,
		Location:  location,
		DevMode:   devmode,
	})
	if err != nil {
		return err
	}
	s.server = server

	if strings.TrimSpace(s.cfg.AdminAddr) != "" {
		s.admin = admin.NewServer(admin.Options{
			Logger:       logger,
			CORSOrigins:  s.cfg.CORSOrigins,
			Registry:     server.Registry(),
			Scheduler:    s.scheduler,
			ClientCount:  server.ClientCount,
			CommandCount: server.CommandCount,
		})
	}

	logger.Info().
		Str("network", s.cfg.ListenNetwork).
		Str("addr", s.cfg.ListenAddr).
		Str("files_root", s.cfg.FilesRoot).
		Bool("sim_backends", s.cfg.SimBackends).
		Msg("bootstrap ready")
	return nil
}

// serve runs the accept loop plus heartbeat logging and the optional
// admin surface until the signal context ends.
func (s *Service) serve(ctx context.Context) error {
	if s.cfg.ListenNetwork == "unix" {
		if err := removeStaleSocket(s.cfg.ListenAddr); err != nil {
			return err
		}
	}
	ln, err := net.Listen(s.cfg.ListenNetwork, s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	if s.cfg.ListenNetwork == "unix" {
		defer os.Remove(s.cfg.ListenAddr)
	}

	serveErr := make(chan error, 1)
	adminErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(ctx, ln)
	}()
	if s.admin != nil {
		go func() {
			adminErr <- s.admin.Run(ctx, s.cfg.AdminAddr)
		}()
	}

	logger := log.With().Str("component", "daemon").Logger()
	logger.Info().Str("addr", ln.Addr().String()).Msg("control channel listening")

	started := time.Now()
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutdown")
			return nil
		case err := <-serveErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		case err := <-adminErr:
			if err != nil {
				return err
			}
		case <-ticker.C:
			snap := s.scheduler.Snapshot()
			logger.Info().
				Dur("uptime", time.Since(started)).
				Int64("clients", s.server.ClientCount()).
				Uint64("commands", s.server.CommandCount()).
				Int("hid_queue", snap.QueueDepth).
				Msg("heartbeat")
		}
	}
}

// removeStaleSocket clears a leftover unix socket from a previous run.
// Anything else at the path is an error, not ours to delete.
func removeStaleSocket(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("daemon: listen path %q exists and is not a socket", path)
	}
	return os.Remove(path)
}
