package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/files"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

// Ping round-trips the channel and returns the daemon's clock.
func (c *Client) Ping(ctx context.Context) (time.Time, error) {
	msg, err := c.Do(ctx, protocol.CmdPing, nil)
	if err != nil {
		return time.Time{}, err
	}
	var r struct {
		Time int64 `json:"time"`
	}
	if err := msg.Bind(&r); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(r.Time), nil
}

// Capabilities fetches the daemon's provider snapshot.
func (c *Client) Capabilities(ctx context.Context) ([]capability.Status, error) {
	msg, err := c.Do(ctx, protocol.CmdCapabilities, nil)
	if err != nil {
		return nil, err
	}
	var r struct {
		Capabilities []capability.Status `json:"capabilities"`
	}
	if err := msg.Bind(&r); err != nil {
		return nil, err
	}
	return r.Capabilities, nil
}

// ListFiles lists one guest directory.
func (c *Client) ListFiles(ctx context.Context, path string) ([]files.Entry, error) {
	msg, err := c.Do(ctx, protocol.CmdFileList, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}
	var r struct {
		Entries []files.Entry `json:"entries"`
	}
	if err := msg.Bind(&r); err != nil {
		return nil, err
	}
	return r.Entries, nil
}

// GetFile downloads one guest file into w and returns the byte count.
func (c *Client) GetFile(ctx context.Context, path string, w io.Writer) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.writeRequest(ctx, protocol.CmdFileGet, map[string]any{"path": path})
	if err != nil {
		return 0, err
	}
	msg, err := c.readReply(ctx, protocol.CmdFileGet, id)
	if err != nil {
		return 0, err
	}
	var hdr struct {
		Size int64 `json:"size"`
	}
	if err := msg.Bind(&hdr); err != nil {
		return 0, err
	}
	_ = c.conn.SetReadDeadline(deadlineFor(ctx, c.cfg.ReadTimeout))
	n, err := io.CopyN(w, c.r, hdr.Size)
	if err != nil {
		// Mid-payload loss cannot be resynchronized.
		c.resetConn()
		return n, fmt.Errorf("client: inline payload: %w", err)
	}
	return n, nil
}

// PutFile uploads size bytes from r to one guest path. The size must be
// exact; the daemon reads precisely that many bytes after the header.
func (c *Client) PutFile(ctx context.Context, path string, r io.Reader, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.writeRequest(ctx, protocol.CmdFilePut, map[string]any{"path": path, "size": size})
	if err != nil {
		return err
	}
	if size > 0 {
		_ = c.conn.SetWriteDeadline(deadlineFor(ctx, c.cfg.WriteTimeout))
		if _, err := io.CopyN(c.conn, r, size); err != nil {
			c.resetConn()
			return fmt.Errorf("client: inline payload: %w", err)
		}
	}
	_, err = c.readReply(ctx, protocol.CmdFilePut, id)
	return err
}

// Mkdir creates one guest directory.
func (c *Client) Mkdir(ctx context.Context, path string) error {
	_, err := c.Do(ctx, protocol.CmdFileMkdir, map[string]any{"path": path})
	return err
}

// Remove deletes one guest file or empty directory.
func (c *Client) Remove(ctx context.Context, path string) error {
	_, err := c.Do(ctx, protocol.CmdFileDelete, map[string]any{"path": path})
	return err
}

// Rename moves one guest path.
func (c *Client) Rename(ctx context.Context, from, to string) error {
	_, err := c.Do(ctx, protocol.CmdFileRename, map[string]any{"from": from, "to": to})
	return err
}

func (c *Client) chainReply(msg *protocol.Message) (string, error) {
	var r struct {
		Chain string `json:"chain"`
	}
	if err := msg.Bind(&r); err != nil {
		return "", err
	}
	return r.Chain, nil
}

// SendKey injects one key transition and returns the accepted chain id.
func (c *Client) SendKey(ctx context.Context, page, usage uint32, down bool) (string, error) {
	msg, err := c.Do(ctx, protocol.CmdHIDKey, map[string]any{
		"page": page, "usage": usage, "down": down,
	})
	if err != nil {
		return "", err
	}
	return c.chainReply(msg)
}

// PressKey injects a timed down/up pair and returns the chain id.
func (c *Client) PressKey(ctx context.Context, page, usage uint32) (string, error) {
	msg, err := c.Do(ctx, protocol.CmdHIDPress, map[string]any{
		"page": page, "usage": usage,
	})
	if err != nil {
		return "", err
	}
	return c.chainReply(msg)
}

// Unlock queues the device unlock sequence and returns the chain id.
func (c *Client) Unlock(ctx context.Context) (string, error) {
	msg, err := c.Do(ctx, protocol.CmdUnlock, nil)
	if err != nil {
		return "", err
	}
	return c.chainReply(msg)
}

// SetLocation overrides the guest's location fix.
func (c *Client) SetLocation(ctx context.Context, fix capability.Fix) error {
	_, err := c.Do(ctx, protocol.CmdLocationSet, map[string]any{
		"lat": fix.Lat, "lon": fix.Lon, "alt": fix.Alt,
		"hacc": fix.HAcc, "vacc": fix.VAcc,
		"speed": fix.Speed, "course": fix.Course,
	})
	return err
}

// ClearLocation drops the simulated fix.
func (c *Client) ClearLocation(ctx context.Context) error {
	_, err := c.Do(ctx, protocol.CmdLocationClear, nil)
	return err
}

// DevModeStatus reports whether developer mode is enabled.
func (c *Client) DevModeStatus(ctx context.Context) (bool, error) {
	msg, err := c.Do(ctx, protocol.CmdDevModeStatus, nil)
	if err != nil {
		return false, err
	}
	var r struct {
		Enabled bool `json:"enabled"`
	}
	if err := msg.Bind(&r); err != nil {
		return false, err
	}
	return r.Enabled, nil
}

// DevModeArm enables developer mode.
func (c *Client) DevModeArm(ctx context.Context) (capability.ArmResult, error) {
	msg, err := c.Do(ctx, protocol.CmdDevModeArm, nil)
	if err != nil {
		return capability.ArmResult{}, err
	}
	var r struct {
		Enabled        bool `json:"enabled"`
		AlreadyEnabled bool `json:"already_enabled"`
	}
	if err := msg.Bind(&r); err != nil {
		return capability.ArmResult{}, err
	}
	return capability.ArmResult{Enabled: r.Enabled, AlreadyEnabled: r.AlreadyEnabled}, nil
}
