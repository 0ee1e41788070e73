// Package daemon wires the control channel together: the per-connection
// request loop, the command dispatcher, and the daemon lifecycle.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/files"
	"github.com/Lakr233/vphone-cli/internal/hid"
	"github.com/Lakr233/vphone-cli/internal/observability"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

// session is one control connection's transfer state. Frame reads and
// inline payload reads share the buffered reader so alignment survives
// mixed traffic; writes go straight to the connection.
type session struct {
	r      io.Reader
	w      io.Writer
	limits protocol.Limits
}

// handlerFunc handles one decoded command. A nil response with a nil
// error means the handler already streamed its reply inline.
type handlerFunc func(ctx context.Context, sess *session, msg *protocol.Message) (protocol.Response, error)

// Options carries the server's collaborators.
type Options struct {
	Logger    zerolog.Logger
	Limits    protocol.Limits
	Files     *files.Service
	Scheduler *hid.Scheduler
	Location  capability.Location
	DevMode   capability.DevMode
}

// Server dispatches control-channel commands to the guest subsystems.
type Server struct {
	logger    zerolog.Logger
	limits    protocol.Limits
	registry  *capability.Registry
	files     *files.Service
	scheduler *hid.Scheduler
	location  capability.Location
	devmode   capability.DevMode

	handlers map[string]handlerFunc

	clientCount atomic.Int64
	cmdCount    atomic.Uint64
}

func NewServer(opts Options) (*Server, error) {
	s := &Server{
		logger:    opts.Logger.With().Str("component", "daemon").Logger(),
		limits:    opts.Limits,
		registry:  capability.NewRegistry(),
		files:     opts.Files,
		scheduler: opts.Scheduler,
		location:  opts.Location,
		devmode:   opts.DevMode,
	}
	if s.limits.MaxMessageBytes == 0 {
		s.limits = protocol.DefaultLimits()
	}
	for _, p := range []capability.Provider{s.files, s.scheduler, s.location, s.devmode} {
		if err := s.registry.Register(p); err != nil {
			return nil, err
		}
	}
	s.handlers = map[string]handlerFunc{
		protocol.CmdPing:          s.handlePing,
		protocol.CmdCapabilities:  s.handleCapabilities,
		protocol.CmdFileList:      s.handleFileList,
		protocol.CmdFileGet:       s.handleFileGet,
		protocol.CmdFilePut:       s.handleFilePut,
		protocol.CmdFileMkdir:     s.handleFileMkdir,
		protocol.CmdFileDelete:    s.handleFileDelete,
		protocol.CmdFileRename:    s.handleFileRename,
		protocol.CmdHIDKey:        s.handleHIDKey,
		protocol.CmdHIDPress:      s.handleHIDPress,
		protocol.CmdUnlock:        s.handleUnlock,
		protocol.CmdLocationSet:   s.handleLocationSet,
		protocol.CmdLocationClear: s.handleLocationClear,
		protocol.CmdDevModeStatus: s.handleDevModeStatus,
		protocol.CmdDevModeArm:    s.handleDevModeArm,
	}
	return s, nil
}

// Registry exposes the provider registry for introspection surfaces.
func (s *Server) Registry() *capability.Registry { return s.registry }

// ClientCount reports currently attached control clients.
func (s *Server) ClientCount() int64 { return s.clientCount.Load() }

// CommandCount reports commands dispatched since start.
func (s *Server) CommandCount() uint64 { return s.cmdCount.Load() }

// Serve accepts control connections until the listener closes. Each
// connection gets its own goroutine; processing within one connection
// stays strictly sequential.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	active := s.clientCount.Add(1)
	observability.RecordConnectionOpened()
	s.logger.Info().Str("remote", remote).Int64("active", active).Msg("client connected")

	err := s.ServeConn(ctx, conn)

	remaining := s.clientCount.Add(-1)
	observability.RecordConnectionClosed()
	ev := s.logger.Info()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		ev = s.logger.Warn().Err(err)
	}
	ev.Str("remote", remote).Int64("active", remaining).Msg("client disconnected")
}

// ServeConn runs the request loop on one channel until the peer
// disconnects cleanly or a fatal protocol error poisons the stream.
// Recoverable failures are answered in-band and the loop continues.
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriter) error {
	sess := &session{r: bufio.NewReader(conn), w: conn, limits: s.limits}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		msg, err := protocol.ReadMessage(sess.r, s.limits)
		if err != nil {
			var de *protocol.DecodeError
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.As(err, &de):
				resp := protocol.ErrorResponse(de.ID, &protocol.CmdError{
					Code:   protocol.CodeDecodeError,
					Detail: de.Err.Error(),
				})
				if werr := protocol.WriteMessage(sess.w, resp, s.limits); werr != nil {
					return werr
				}
				continue
			default:
				return err
			}
		}

		resp, err := s.dispatch(ctx, sess, msg)
		if err != nil {
			if protocol.IsFatal(err) {
				return err
			}
			resp = protocol.ErrorResponse(msg.ID, asCmdError(err))
		}
		if resp == nil {
			continue
		}
		if err := protocol.WriteMessage(sess.w, resp, s.limits); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(ctx context.Context, sess *session, msg *protocol.Message) (protocol.Response, error) {
	s.cmdCount.Add(1)
	start := time.Now()
	h, ok := s.handlers[msg.Type]
	if !ok {
		observability.RecordCommand("unknown", protocol.CodeUnsupportedCommand, time.Since(start))
		s.logger.Warn().Str("type", msg.Type).Msg("unsupported command")
		return nil, protocol.Unsupported(msg.Type)
	}
	resp, err := h(ctx, sess, msg)
	outcome := "ok"
	if err != nil {
		outcome = asCmdError(err).Code
	}
	observability.RecordCommand(msg.Type, outcome, time.Since(start))
	s.logger.Debug().
		Str("type", msg.Type).
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Msg("command handled")
	return resp, err
}

// asCmdError maps handler failures onto the wire taxonomy. Fatal stream
// errors never reach it; ServeConn short-circuits those.
func asCmdError(err error) *protocol.CmdError {
	var ce *protocol.CmdError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, capability.ErrUnavailable) {
		return protocol.Unavailable(err.Error())
	}
	return &protocol.CmdError{Code: protocol.CodeIOError, Detail: err.Error()}
}
