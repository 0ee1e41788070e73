package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Lakr233/vphone-cli/internal/observability"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

type pathParams struct {
	Path string `json:"path"`
}

func (s *Server) handleFileList(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	var p pathParams
	if err := msg.Bind(&p); err != nil {
		return nil, err
	}
	entries, err := s.files.List(p.Path)
	if err != nil {
		return nil, err
	}
	resp := protocol.NewResponse(msg)
	resp["entries"] = entries
	return resp, nil
}

// handleFileGet streams the file inline: a header response carrying the
// byte size, then exactly that many raw bytes, before any other frame.
// Failures before the header stay recoverable; once the header is out,
// anything short of a full payload poisons the connection.
func (s *Server) handleFileGet(_ context.Context, sess *session, msg *protocol.Message) (protocol.Response, error) {
	var p pathParams
	if err := msg.Bind(&p); err != nil {
		return nil, err
	}
	f, size, err := s.files.Open(p.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := protocol.NewResponse(msg)
	header["size"] = size
	if err := protocol.WriteMessage(sess.w, header, sess.limits); err != nil {
		return nil, err
	}
	if _, err := io.CopyN(sess.w, f, size); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrShortWrite, err)
	}
	observability.RecordStreamedBytes("out", size)
	return nil, nil
}

// handleFilePut consumes the declared inline payload. A peer that stops
// short of its declared size is fatal; a local write failure drains the
// peer's remaining bytes so the channel stays aligned, then answers
// in-band.
func (s *Server) handleFilePut(_ context.Context, sess *session, msg *protocol.Message) (protocol.Response, error) {
	var p struct {
		Path string `json:"path"`
		Size int64  `json:"size"`
	}
	if err := msg.Bind(&p); err != nil {
		return nil, err
	}
	if p.Size < 0 {
		return nil, &protocol.CmdError{Code: protocol.CodeDecodeError, Detail: "negative size"}
	}

	f, err := s.files.Create(p.Path)
	if err != nil {
		if derr := protocol.Drain(sess.r, p.Size); derr != nil {
			return nil, derr
		}
		return nil, err
	}

	cr := &countingReader{r: sess.r}
	_, cerr := io.CopyN(f, cr, p.Size)
	closeErr := f.Close()
	if cerr != nil {
		if errors.Is(cerr, io.EOF) || errors.Is(cerr, io.ErrUnexpectedEOF) {
			return nil, protocol.ErrShortRead
		}
		if derr := protocol.Drain(sess.r, p.Size-cr.n); derr != nil {
			return nil, derr
		}
		return nil, protocol.IOErr("", cerr.Error())
	}
	if closeErr != nil {
		return nil, protocol.IOErr("", closeErr.Error())
	}
	observability.RecordStreamedBytes("in", p.Size)
	resp := protocol.NewResponse(msg)
	resp["size"] = p.Size
	return resp, nil
}

func (s *Server) handleFileMkdir(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	var p pathParams
	if err := msg.Bind(&p); err != nil {
		return nil, err
	}
	if err := s.files.Mkdir(p.Path); err != nil {
		return nil, err
	}
	return protocol.NewResponse(msg), nil
}

func (s *Server) handleFileDelete(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	var p pathParams
	if err := msg.Bind(&p); err != nil {
		return nil, err
	}
	if err := s.files.Remove(p.Path); err != nil {
		return nil, err
	}
	return protocol.NewResponse(msg), nil
}

func (s *Server) handleFileRename(_ context.Context, _ *session, msg *protocol.Message) (protocol.Response, error) {
	var p struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := msg.Bind(&p); err != nil {
		return nil, err
	}
	if err := s.files.Rename(p.From, p.To); err != nil {
		return nil, err
	}
	return protocol.NewResponse(msg), nil
}

// countingReader tracks bytes actually consumed from the stream, which
// can exceed what a failing writer accepted. Drains after a mid-copy
// write failure must be based on consumption, not on bytes written.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
