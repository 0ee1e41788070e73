package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestReadWriteMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	docs := []Response{
		{"version": Version, "type": "ping", "id": "a"},
		{"version": Version, "type": "file_list", "id": float64(2), "path": "/var/mobile"},
		{"version": Version, "type": "location_set", "lat": 35.6, "lon": 139.7, "alt": 40.0},
	}
	for _, doc := range docs {
		if err := WriteMessage(&buf, doc, DefaultLimits()); err != nil {
			t.Fatalf("write message: %v", err)
		}
	}
	for i, doc := range docs {
		m, err := ReadMessage(&buf, DefaultLimits())
		if err != nil {
			t.Fatalf("read message %d: %v", i, err)
		}
		if m.Type != doc["type"] {
			t.Fatalf("type mismatch: got=%q want=%q", m.Type, doc["type"])
		}
		var full map[string]any
		if err := m.Bind(&full); err != nil {
			t.Fatalf("bind message %d: %v", i, err)
		}
		want := map[string]any{}
		for k, v := range doc {
			switch n := v.(type) {
			case int:
				want[k] = float64(n)
			default:
				want[k] = v
			}
		}
		if !reflect.DeepEqual(full, want) {
			t.Fatalf("round trip mismatch: got=%v want=%v", full, want)
		}
	}
	if buf.Len() != 0 {
		t.Fatalf("trailing bytes after round trip: %d", buf.Len())
	}
}

func TestReadMessageCleanEOF(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader(nil), DefaultLimits())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadMessagePartialPrefix(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader([]byte{0, 0}), DefaultLimits())
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
}

func TestReadMessageTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Response{"version": Version, "type": "ping"}, DefaultLimits()); err != nil {
		t.Fatalf("write message: %v", err)
	}
	full := buf.Bytes()
	for cut := len(full) - 1; cut > 4; cut -= 7 {
		_, err := ReadMessage(bytes.NewReader(full[:cut]), DefaultLimits())
		if !errors.Is(err, ErrShortRead) {
			t.Fatalf("cut=%d: expected ErrShortRead, got %v", cut, err)
		}
	}
}

func TestReadMessageOversizedPrefixIsFatal(t *testing.T) {
	limits := Limits{MaxMessageBytes: 1024}
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], 1<<30)
	buf.Write(prefix[:])
	buf.WriteString("0123456789")
	_, err := ReadMessage(&buf, limits)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	if !IsFatal(err) {
		t.Fatalf("oversized frame must be fatal")
	}
}

func TestReadMessageBadJSONKeepsAlignment(t *testing.T) {
	var buf bytes.Buffer
	garbage := []byte("{not json")
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(garbage)))
	buf.Write(prefix[:])
	buf.Write(garbage)
	if err := WriteMessage(&buf, Response{"version": Version, "type": "ping", "id": "next"}, DefaultLimits()); err != nil {
		t.Fatalf("write message: %v", err)
	}

	_, err := ReadMessage(&buf, DefaultLimits())
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if IsFatal(err) {
		t.Fatalf("decode failure must not be fatal")
	}
	m, err := ReadMessage(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("stream lost alignment after decode failure: %v", err)
	}
	if m.Type != "ping" || string(m.ID) != `"next"` {
		t.Fatalf("unexpected follow-up message: type=%q id=%s", m.Type, m.ID)
	}
}

func TestReadMessageWrongVersionExtractsID(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Response{"version": 99, "type": "ping", "id": "v"}, DefaultLimits()); err != nil {
		t.Fatalf("write message: %v", err)
	}
	_, err := ReadMessage(&buf, DefaultLimits())
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !errors.Is(de.Err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", de.Err)
	}
	if string(de.ID) != `"v"` {
		t.Fatalf("id not extracted from rejected message: %s", de.ID)
	}
}

func TestReadMessageMissingType(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Response{"version": Version, "id": 7}, DefaultLimits()); err != nil {
		t.Fatalf("write message: %v", err)
	}
	_, err := ReadMessage(&buf, DefaultLimits())
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !errors.Is(de.Err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", de.Err)
	}
}

func TestWriteMessageOverLimit(t *testing.T) {
	err := WriteMessage(io.Discard, Response{"version": Version, "type": "x", "pad": strings.Repeat("a", 64)}, Limits{MaxMessageBytes: 16})
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestDrainExactness(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(bytes.Repeat([]byte{0xAB}, 300))
	buf.WriteByte(0x7F)
	if err := Drain(&buf, 300); err != nil {
		t.Fatalf("drain: %v", err)
	}
	b, err := buf.ReadByte()
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if b != 0x7F {
		t.Fatalf("drain misaligned: next byte %#x", b)
	}
}

func TestDrainShortStream(t *testing.T) {
	err := Drain(bytes.NewReader(make([]byte, 10)), 11)
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
}

func TestErrorResponseShape(t *testing.T) {
	resp := ErrorResponse(json.RawMessage(`"x"`), Unsupported("bogus_cmd"))
	got, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var have, want map[string]any
	if err := json.Unmarshal(got, &have); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	const exact = `{"version":1,"type":"error","id":"x","error":"UnsupportedCommand","detail":"bogus_cmd"}`
	if err := json.Unmarshal([]byte(exact), &want); err != nil {
		t.Fatalf("unmarshal want: %v", err)
	}
	if !reflect.DeepEqual(have, want) {
		t.Fatalf("error response mismatch: got=%v want=%v", have, want)
	}
}

func TestErrorResponseOmitsMissingID(t *testing.T) {
	resp := ErrorResponse(nil, &CmdError{Code: CodeDecodeError})
	if _, ok := resp["id"]; ok {
		t.Fatalf("id must be omitted when the request carried none")
	}
}
