// Package client is the controller-side library for the daemon's
// control channel. One Client owns one channel; calls are serialized
// because replies arrive strictly in request order.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lakr233/vphone-cli/internal/protocol"
)

var (
	ErrClosed       = errors.New("client: closed")
	ErrIDMismatch   = errors.New("client: reply id mismatch")
	ErrTypeMismatch = errors.New("client: reply type mismatch")
)

// Config defines connection targets and reliability defaults.
type Config struct {
	Network            string
	Addr               string
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	MaxConnectAttempts int
	Backoff            BackoffConfig
	Limits             protocol.Limits
}

// DefaultConfig targets a local daemon over TCP.
func DefaultConfig() Config {
	return Config{
		Network:            "tcp",
		Addr:               "127.0.0.1:5959",
		ConnectTimeout:     5 * time.Second,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		MaxConnectAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
		Limits: protocol.DefaultLimits(),
	}
}

func (c Config) withDefaults() Config {
	if c.Network == "" {
		c.Network = "tcp"
	}
	if c.MaxConnectAttempts <= 0 {
		c.MaxConnectAttempts = 1
	}
	if c.Limits.MaxMessageBytes == 0 {
		c.Limits = protocol.DefaultLimits()
	}
	return c
}

// Client is one control channel to a daemon.
type Client struct {
	cfg Config

	mu     sync.Mutex
	conn   net.Conn
	r      *bufio.Reader
	closed bool
}

// Dial connects with retry backoff and returns a ready client.
func Dial(cfg Config) (*Client, error) {
	return DialContext(context.Background(), cfg)
}

// DialContext connects with retry backoff, honoring ctx between attempts.
func DialContext(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	c := &Client{cfg: cfg}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxConnectAttempts; attempt++ {
		if attempt > 1 {
			if err := waitDelay(ctx, NextBackoffDelay(cfg.Backoff, attempt, nil)); err != nil {
				return nil, err
			}
		}
		if err := c.connect(ctx); err != nil {
			lastErr = err
			continue
		}
		return c, nil
	}
	return nil, fmt.Errorf("client: connect %s %s: %w", cfg.Network, cfg.Addr, lastErr)
}

func (c *Client) connect(ctx context.Context) error {
	d := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := d.DialContext(ctx, c.cfg.Network, c.cfg.Addr)
	if err != nil {
		return err
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	return nil
}

// Addr reports the configured daemon endpoint.
func (c *Client) Addr() string { return c.cfg.Addr }

// Close terminates the channel. In-flight chains on the daemon side
// keep running; only the transport goes away.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.r = nil
	return err
}

// Do issues one command and returns the decoded success reply. Error
// replies come back as *protocol.CmdError; transport failures drop the
// connection, and the next call redials.
func (c *Client) Do(ctx context.Context, cmd string, params map[string]any) (*protocol.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, err := c.writeRequest(ctx, cmd, params)
	if err != nil {
		return nil, err
	}
	return c.readReply(ctx, cmd, id)
}

func (c *Client) writeRequest(ctx context.Context, cmd string, params map[string]any) (string, error) {
	if err := c.ensureConn(ctx); err != nil {
		return "", err
	}
	id := uuid.NewString()
	doc := protocol.Response{"version": protocol.Version, "type": cmd, "id": id}
	for k, v := range params {
		doc[k] = v
	}
	_ = c.conn.SetWriteDeadline(deadlineFor(ctx, c.cfg.WriteTimeout))
	if err := protocol.WriteMessage(c.conn, doc, c.cfg.Limits); err != nil {
		c.resetConn()
		return "", err
	}
	return id, nil
}

func (c *Client) readReply(ctx context.Context, cmd, id string) (*protocol.Message, error) {
	_ = c.conn.SetReadDeadline(deadlineFor(ctx, c.cfg.ReadTimeout))
	msg, err := protocol.ReadMessage(c.r, c.cfg.Limits)
	if err != nil {
		var de *protocol.DecodeError
		if errors.As(err, &de) {
			// Frame fully consumed; the channel stays usable.
			return nil, err
		}
		c.resetConn()
		return nil, err
	}
	if string(msg.ID) != strconv.Quote(id) {
		c.resetConn()
		return nil, fmt.Errorf("%w: got %s, want %q", ErrIDMismatch, msg.ID, id)
	}
	if msg.Type == "error" {
		var e struct {
			Error  string `json:"error"`
			Kind   string `json:"kind"`
			Detail string `json:"detail"`
		}
		if err := msg.Bind(&e); err != nil {
			return nil, err
		}
		return nil, &protocol.CmdError{Code: e.Error, Kind: e.Kind, Detail: e.Detail}
	}
	if msg.Type != cmd {
		c.resetConn()
		return nil, fmt.Errorf("%w: got %q, want %q", ErrTypeMismatch, msg.Type, cmd)
	}
	return msg, nil
}

func (c *Client) ensureConn(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return nil
	}
	return c.connect(ctx)
}

func (c *Client) resetConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.r = nil
}

func deadlineFor(ctx context.Context, timeout time.Duration) time.Time {
	var t time.Time
	if timeout > 0 {
		t = time.Now().Add(timeout)
	}
	if cd, ok := ctx.Deadline(); ok && (t.IsZero() || cd.Before(t)) {
		t = cd
	}
	return t
}

func waitDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
