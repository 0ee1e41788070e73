package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire error codes carried in the "error" field of an error response.
const (
	CodeDecodeError           = "DecodeError"
	CodeUnsupportedCommand    = "UnsupportedCommand"
	CodeCapabilityUnavailable = "CapabilityUnavailable"
	CodeIOError               = "IOError"
)

// IOError sub-kinds carried in the "kind" field.
const (
	KindNotFound         = "NotFound"
	KindPermissionDenied = "PermissionDenied"
	KindAlreadyExists    = "AlreadyExists"
	KindNotADirectory    = "NotADirectory"
)

// Fatal stream errors. Any of these means framing alignment is lost or a
// declared length cannot be trusted; the connection closes without a
// response.
var (
	ErrShortRead     = errors.New("protocol: short read")
	ErrShortWrite    = errors.New("protocol: short write")
	ErrFrameTooLarge = errors.New("protocol: frame too large")
)

// Recoverable decode causes, wrapped inside DecodeError.
var (
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrMissingType        = errors.New("protocol: missing type")
)

// DecodeError reports a payload that arrived on an intact frame but could
// not become a usable Message. The frame's bytes were fully consumed, so
// the stream stays aligned and the connection usable.
type DecodeError struct {
	ID  json.RawMessage
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("protocol: decode: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// CmdError is a command failure that maps onto a wire error code. The
// dispatcher turns it into an error response; the connection stays open.
type CmdError struct {
	Code   string
	Kind   string
	Detail string
}

func (e *CmdError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("protocol: %s/%s: %s", e.Code, e.Kind, e.Detail)
	}
	if e.Detail != "" {
		return fmt.Sprintf("protocol: %s: %s", e.Code, e.Detail)
	}
	return "protocol: " + e.Code
}

func Unsupported(cmd string) *CmdError {
	return &CmdError{Code: CodeUnsupportedCommand, Detail: cmd}
}

func Unavailable(detail string) *CmdError {
	return &CmdError{Code: CodeCapabilityUnavailable, Detail: detail}
}

func IOErr(kind, detail string) *CmdError {
	return &CmdError{Code: CodeIOError, Kind: kind, Detail: detail}
}

// IsFatal reports whether err must terminate the connection rather than
// be answered with an error response.
func IsFatal(err error) bool {
	return errors.Is(err, ErrShortRead) ||
		errors.Is(err, ErrShortWrite) ||
		errors.Is(err, ErrFrameTooLarge)
}
