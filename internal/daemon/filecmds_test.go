package daemon

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/Lakr233/vphone-cli/internal/protocol"
)

func putFile(t *testing.T, conn net.Conn, path string, data []byte) map[string]any {
	t.Helper()
	send(t, conn, protocol.Response{
		"version": 1, "type": "file_put", "id": "put",
		"path": path, "size": len(data),
	})
	if len(data) > 0 {
		if _, err := conn.Write(data); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}
	return recv(t, conn)
}

func getFile(t *testing.T, conn net.Conn, path string) ([]byte, map[string]any) {
	t.Helper()
	send(t, conn, protocol.Response{
		"version": 1, "type": "file_get", "id": "get",
		"path": path,
	})
	doc := recv(t, conn)
	if doc["type"] == "error" {
		return nil, doc
	}
	size := int64(doc["size"].(float64))
	data := make([]byte, size)
	if _, err := io.ReadFull(conn, data); err != nil {
		t.Fatalf("read inline payload: %v", err)
	}
	return data, doc
}

func TestPutThenGetRoundTrip(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	doc := putFile(t, conn, "/blob.bin", payload)
	if doc["type"] != "file_put" {
		t.Fatalf("put reply = %v", doc)
	}
	if int64(doc["size"].(float64)) != int64(len(payload)) {
		t.Fatalf("put size = %v, want %d", doc["size"], len(payload))
	}

	got, doc := getFile(t, conn, "/blob.bin")
	if doc["type"] != "file_get" {
		t.Fatalf("get reply = %v", doc)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %d bytes", len(got))
	}

	checkPing(t, conn, "aligned")
}

func TestPutEmptyFile(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	doc := putFile(t, conn, "/empty.bin", nil)
	if doc["type"] != "file_put" || int64(doc["size"].(float64)) != 0 {
		t.Fatalf("put reply = %v", doc)
	}
	got, doc := getFile(t, conn, "/empty.bin")
	if doc["type"] != "file_get" || len(got) != 0 {
		t.Fatalf("get reply = %v payload=%d", doc, len(got))
	}
	checkPing(t, conn, "aligned")
}

func TestPutCreateFailureDrainsPayload(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	payload := bytes.Repeat([]byte{0xAB}, 512)
	doc := putFile(t, conn, "/missing/child.bin", payload)
	if doc["type"] != "error" || doc["error"] != protocol.CodeIOError {
		t.Fatalf("put reply = %v", doc)
	}
	if doc["kind"] != protocol.KindNotFound {
		t.Fatalf("kind = %v, want %s", doc["kind"], protocol.KindNotFound)
	}
	checkPing(t, conn, "aligned")
}

func TestPutTruncatedPayloadClosesConnection(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	send(t, conn, protocol.Response{
		"version": 1, "type": "file_put", "id": "p",
		"path": "/short.bin", "size": 1000,
	})
	if _, err := conn.Write(bytes.Repeat([]byte{1}, 100)); err != nil {
		t.Fatalf("write partial payload: %v", err)
	}
	if err := conn.(*net.TCPConn).CloseWrite(); err != nil {
		t.Fatalf("close write: %v", err)
	}
	if _, err := protocol.ReadMessage(conn, protocol.DefaultLimits()); err == nil {
		t.Fatal("connection still answering after truncated payload")
	}
}

func TestGetMissingFileRecoverable(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	_, doc := getFile(t, conn, "/nope.bin")
	if doc["type"] != "error" || doc["error"] != protocol.CodeIOError {
		t.Fatalf("get reply = %v", doc)
	}
	if doc["kind"] != protocol.KindNotFound {
		t.Fatalf("kind = %v", doc["kind"])
	}
	checkPing(t, conn, "aligned")
}

func TestGetDirectoryAnsweredInBand(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	send(t, conn, protocol.Response{"version": 1, "type": "file_mkdir", "id": "m", "path": "/d"})
	if doc := recv(t, conn); doc["type"] != "file_mkdir" {
		t.Fatalf("mkdir reply = %v", doc)
	}

	_, doc := getFile(t, conn, "/d")
	if doc["type"] != "error" || doc["error"] != protocol.CodeIOError {
		t.Fatalf("get reply = %v", doc)
	}
	checkPing(t, conn, "aligned")
}

func TestListEntries(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	putFile(t, conn, "/a.bin", []byte("abc"))
	send(t, conn, protocol.Response{"version": 1, "type": "file_mkdir", "id": "m", "path": "/sub"})
	recv(t, conn)

	send(t, conn, protocol.Response{"version": 1, "type": "file_list", "id": "l", "path": "/"})
	doc := recv(t, conn)
	entries, ok := doc["entries"].([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("entries = %v", doc["entries"])
	}
	byName := map[string]map[string]any{}
	for _, raw := range entries {
		e := raw.(map[string]any)
		byName[e["name"].(string)] = e
	}
	if e := byName["a.bin"]; e == nil || e["type"] != "file" || int64(e["size"].(float64)) != 3 {
		t.Fatalf("a.bin entry = %v", byName["a.bin"])
	}
	if e := byName["sub"]; e == nil || e["type"] != "dir" {
		t.Fatalf("sub entry = %v", byName["sub"])
	}
}

func TestRenameDeleteCycle(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	putFile(t, conn, "/old.bin", []byte("payload"))

	send(t, conn, protocol.Response{
		"version": 1, "type": "file_rename", "id": "r",
		"from": "/old.bin", "to": "/new.bin",
	})
	if doc := recv(t, conn); doc["type"] != "file_rename" {
		t.Fatalf("rename reply = %v", doc)
	}

	got, doc := getFile(t, conn, "/new.bin")
	if doc["type"] != "file_get" || string(got) != "payload" {
		t.Fatalf("get after rename = %v %q", doc, got)
	}

	send(t, conn, protocol.Response{"version": 1, "type": "file_delete", "id": "d", "path": "/new.bin"})
	if doc := recv(t, conn); doc["type"] != "file_delete" {
		t.Fatalf("delete reply = %v", doc)
	}

	_, doc = getFile(t, conn, "/new.bin")
	if doc["type"] != "error" || doc["kind"] != protocol.KindNotFound {
		t.Fatalf("get after delete = %v", doc)
	}
}

func TestRenameMissingSource(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	send(t, conn, protocol.Response{
		"version": 1, "type": "file_rename", "id": "r",
		"from": "/ghost.bin", "to": "/other.bin",
	})
	doc := recv(t, conn)
	if doc["type"] != "error" || doc["kind"] != protocol.KindNotFound {
		t.Fatalf("rename reply = %v", doc)
	}
	checkPing(t, conn, "aligned")
}

func TestPathEscapeRefused(t *testing.T) {
	fx := startSimDaemon(t)
	conn := dialDaemon(t, fx.addr)

	send(t, conn, protocol.Response{"version": 1, "type": "file_list", "id": "e", "path": "/../../etc"})
	doc := recv(t, conn)
	if doc["type"] != "error" || doc["kind"] != protocol.KindPermissionDenied {
		t.Fatalf("list reply = %v", doc)
	}
	checkPing(t, conn, "aligned")
}
