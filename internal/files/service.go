// Package files implements the rooted file service behind the file
// transfer commands.
package files

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

// Entry is one directory listing row.
type Entry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Service performs file operations confined to a root directory.
type Service struct {
	root string
}

// NewService roots the service. A root of "/" passes guest paths
// through untouched; any other root confines request paths beneath it.
func NewService(root string) *Service {
	resolved := strings.TrimSpace(root)
	if resolved == "" {
		resolved = "/"
	}
	return &Service{root: resolved}
}

func (s *Service) Metadata() capability.Metadata {
	return capability.Metadata{
		ID:          "files",
		Name:        "File transfer",
		Description: "rooted guest filesystem access",
	}
}

func (s *Service) Load() capability.ActionSet {
	return capability.NewActionSet(
		protocol.CmdFileList,
		protocol.CmdFileGet,
		protocol.CmdFilePut,
		protocol.CmdFileMkdir,
		protocol.CmdFileDelete,
		protocol.CmdFileRename,
	)
}

func (s *Service) Available() bool { return true }

func (s *Service) resolve(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", &protocol.CmdError{Code: protocol.CodeDecodeError, Detail: "missing path"}
	}
	if s.root == "/" {
		if !filepath.IsAbs(p) {
			p = "/" + p
		}
		return filepath.Clean(p), nil
	}
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", mapErr(err)
	}
	joined := filepath.Clean(filepath.Join(root, strings.TrimPrefix(p, "/")))
	if !isWithin(joined, root) {
		return "", protocol.IOErr(protocol.KindPermissionDenied, "path escapes root")
	}
	return joined, nil
}

func isWithin(path, root string) bool {
	p := filepath.Clean(path)
	r := filepath.Clean(root)
	if p == r {
		return true
	}
	return strings.HasPrefix(p, r+string(os.PathSeparator))
}

// List returns the entries of the directory at path, sorted by name.
func (s *Service) List(path string) ([]Entry, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(p)
	if err != nil {
		return nil, mapErr(err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		e := Entry{Name: d.Name(), Type: "file"}
		switch {
		case d.IsDir():
			e.Type = "dir"
		case d.Type()&fs.ModeSymlink != 0:
			e.Type = "symlink"
		}
		if info, err := d.Info(); err == nil {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Open opens the file at path for an outbound transfer and reports its
// byte size.
func (s *Service) Open(path string) (*os.File, int64, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, mapErr(err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, protocol.IOErr("", "is a directory")
	}
	return f, info.Size(), nil
}

// Create opens the file at path for an inbound transfer, truncating any
// previous content. Missing parents are not created.
func (s *Service) Create(path string) (*os.File, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, mapErr(err)
	}
	return f, nil
}

// Mkdir creates one directory level at path.
func (s *Service) Mkdir(path string) error {
	p, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Mkdir(p, 0o755); err != nil {
		return mapErr(err)
	}
	return nil
}

// Remove deletes the file or empty directory at path.
func (s *Service) Remove(path string) error {
	p, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return mapErr(err)
	}
	return nil
}

// Rename moves from to to.
func (s *Service) Rename(from, to string) error {
	src, err := s.resolve(from)
	if err != nil {
		return err
	}
	dst, err := s.resolve(to)
	if err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return mapErr(err)
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return protocol.IOErr(protocol.KindNotFound, err.Error())
	case errors.Is(err, fs.ErrPermission):
		return protocol.IOErr(protocol.KindPermissionDenied, err.Error())
	case errors.Is(err, fs.ErrExist):
		return protocol.IOErr(protocol.KindAlreadyExists, err.Error())
	case errors.Is(err, syscall.ENOTDIR):
		return protocol.IOErr(protocol.KindNotADirectory, err.Error())
	}
	return protocol.IOErr("", err.Error())
}
