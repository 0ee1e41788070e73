package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the only protocol revision this daemon speaks.
const Version = 1

// Message is one decoded request envelope. The id is opaque to the
// daemon and echoed back verbatim, so it is held as raw JSON.
type Message struct {
	Version int             `json:"version"`
	Type    string          `json:"type"`
	ID      json.RawMessage `json:"id,omitempty"`

	raw []byte
}

// Bind unmarshals the full request document into v, for handlers whose
// commands carry parameters beyond the envelope.
func (m *Message) Bind(v any) error {
	if err := json.Unmarshal(m.raw, v); err != nil {
		return &CmdError{Code: CodeDecodeError, Detail: err.Error()}
	}
	return nil
}

func decodeEnvelope(payload []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, &DecodeError{ID: m.ID, Err: err}
	}
	if m.Version != Version {
		return nil, &DecodeError{ID: m.ID, Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)}
	}
	if m.Type == "" {
		return nil, &DecodeError{ID: m.ID, Err: ErrMissingType}
	}
	m.raw = payload
	return &m, nil
}

// Response is an open reply document. Handlers extend it with result
// fields; the codec serializes whatever it holds.
type Response map[string]any

// NewResponse starts a success reply mirroring the request's type and id.
func NewResponse(m *Message) Response {
	r := Response{"version": Version, "type": m.Type}
	if len(m.ID) > 0 {
		r["id"] = m.ID
	}
	return r
}

// ErrorResponse builds the reply for a failed request. A request that
// carried no id gets an error with no id.
func ErrorResponse(id json.RawMessage, e *CmdError) Response {
	r := Response{"version": Version, "type": "error", "error": e.Code}
	if len(id) > 0 {
		r["id"] = id
	}
	if e.Kind != "" {
		r["kind"] = e.Kind
	}
	if e.Detail != "" {
		r["detail"] = e.Detail
	}
	return r
}
