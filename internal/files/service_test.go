package files

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lakr233/vphone-cli/internal/protocol"
)

func wantKind(t *testing.T, err error, kind string) {
	t.Helper()
	var ce *protocol.CmdError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CmdError, got %v", err)
	}
	if ce.Code != protocol.CodeIOError || ce.Kind != kind {
		t.Fatalf("expected IOError/%s, got %s/%s", kind, ce.Code, ce.Kind)
	}
}

func TestListEntriesAndTypes(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "a-dir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Symlink("b.txt", filepath.Join(root, "c-link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	s := NewService(root)
	entries, err := s.List("/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Name != "a-dir" || entries[0].Type != "dir" {
		t.Fatalf("entry 0: %+v", entries[0])
	}
	if entries[1].Name != "b.txt" || entries[1].Type != "file" || entries[1].Size != 5 {
		t.Fatalf("entry 1: %+v", entries[1])
	}
	if entries[2].Name != "c-link" || entries[2].Type != "symlink" {
		t.Fatalf("entry 2: %+v", entries[2])
	}
}

func TestListMissingDirectory(t *testing.T) {
	s := NewService(t.TempDir())
	_, err := s.List("/nope")
	wantKind(t, err, protocol.KindNotFound)
}

func TestListOnFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewService(root)
	_, err := s.List("/f")
	wantKind(t, err, protocol.KindNotADirectory)
}

func TestOpenCreateRoundTrip(t *testing.T) {
	s := NewService(t.TempDir())

	w, err := s.Create("/data.bin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.Write([]byte("payload bytes")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, size, err := s.Open("/data.bin")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if size != int64(len("payload bytes")) {
		t.Fatalf("size mismatch: %d", size)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "payload bytes" {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestOpenDirectoryRefused(t *testing.T) {
	root := t.TempDir()
	s := NewService(root)
	_, _, err := s.Open("/")
	var ce *protocol.CmdError
	if !errors.As(err, &ce) || ce.Code != protocol.CodeIOError {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestCreateMissingParent(t *testing.T) {
	s := NewService(t.TempDir())
	_, err := s.Create("/no/such/dir/f")
	wantKind(t, err, protocol.KindNotFound)
}

func TestCreateParentIsFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "blocker"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewService(root)
	_, err := s.Create("/blocker/child")
	wantKind(t, err, protocol.KindNotADirectory)
}

func TestMkdirAlreadyExists(t *testing.T) {
	s := NewService(t.TempDir())
	if err := s.Mkdir("/d"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	wantKind(t, s.Mkdir("/d"), protocol.KindAlreadyExists)
}

func TestRemoveMissing(t *testing.T) {
	s := NewService(t.TempDir())
	wantKind(t, s.Remove("/ghost"), protocol.KindNotFound)
}

func TestRenameAndRenameMissing(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "old"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewService(root)
	if err := s.Rename("/old", "/new"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "new")); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	wantKind(t, s.Rename("/old", "/elsewhere"), protocol.KindNotFound)
}

func TestPathEscapeConfined(t *testing.T) {
	s := NewService(t.TempDir())
	_, err := s.List("/../..")
	wantKind(t, err, protocol.KindPermissionDenied)
}

func TestMissingPathRejected(t *testing.T) {
	s := NewService(t.TempDir())
	_, err := s.List("")
	var ce *protocol.CmdError
	if !errors.As(err, &ce) || ce.Code != protocol.CodeDecodeError {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestRootSlashPassesAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "real"), []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewService("/")
	entries, err := s.List(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "real" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
