package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ArchiveExtensions lists the target suffixes handled by ArchiveStorage.
var ArchiveExtensions = []string{".zip", ".tar", ".sqlite"}

// IsArchive reports whether location names an archive target.
func IsArchive(location string) bool {
	ext := strings.ToLower(filepath.Ext(location))
	for _, e := range ArchiveExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// archive stores whole records by name.
type archive interface {
	read(entry string) ([]byte, bool, error)
	write(entry string, data []byte) error
	close() error
}

// ArchiveStorage keeps entries as records of one archive file. The format
// follows the target suffix:
//
//   - .zip: the archive is rewritten on every commit, so it never holds stale
//     copies of an entry.
//   - .tar: records are appended; overwriting an entry adds a new copy and
//     the newest copy wins on read.
//   - .sqlite: one row per entry, replaced in place.
//
// Entry data is buffered in memory until the handle is closed.
type ArchiveStorage struct {
	Target string
	Group  string

	mu      sync.Mutex
	backend archive
}

// NewArchive opens or creates target.
func NewArchive(target, group string) (*ArchiveStorage, error) {
	var (
		backend archive
		err     error
	)
	switch strings.ToLower(filepath.Ext(target)) {
	case ".zip":
		backend, err = openZip(target)
	case ".tar":
		backend, err = openTar(target)
	case ".sqlite":
		backend, err = openSQLite(target)
	default:
		return nil, fmt.Errorf("unsupported archive type %q, want one of %s", target, strings.Join(ArchiveExtensions, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", target, err)
	}
	return &ArchiveStorage{Target: target, Group: group, backend: backend}, nil
}

func (a *ArchiveStorage) Open(name, m string, opts ...OpenOption) (Handle, error) {
	md, err := parseMode(m)
	if err != nil {
		return nil, err
	}
	o := resolveOptions(opts)
	name = fullName(name, o.modifiers)
	if err := validName(name); err != nil {
		return nil, err
	}
	if o.noop {
		return noopHandle{name: name}, nil
	}

	entry := name
	if a.Group != "" {
		entry = path.Join(a.Group, name)
	}

	var initial []byte
	if md != modeWrite {
		data, ok, err := a.read(entry)
		if err != nil {
			return nil, err
		}
		if !ok && md == modeRead {
			return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, entry, a.Target)
		}
		initial = data
	}

	var commit func([]byte) error
	if md != modeRead {
		commit = func(data []byte) error { return a.write(entry, data) }
	}
	if o.onFilesystem {
		return newFileHandle(name, initial, commit)
	}
	h := &bufferHandle{name: name, commit: commit}
	h.buf.Write(initial)
	return h, nil
}

func (a *ArchiveStorage) read(entry string) ([]byte, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend == nil {
		return nil, false, errors.New("archive storage is closed")
	}
	return a.backend.read(entry)
}

func (a *ArchiveStorage) write(entry string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend == nil {
		return errors.New("archive storage is closed")
	}
	return a.backend.write(entry, data)
}

func (a *ArchiveStorage) Descriptor() map[string]any {
	desc := map[string]any{"type": "ArchiveStorage", "target": a.Target, "group": nil}
	if a.Group != "" {
		desc["group"] = a.Group
	}
	return desc
}

// Close releases the archive. Handles still open fail on commit.
func (a *ArchiveStorage) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend == nil {
		return nil
	}
	err := a.backend.close()
	a.backend = nil
	return err
}

// bufferHandle holds an entry in memory. A nil commit makes it read-only.
type bufferHandle struct {
	name   string
	buf    bytes.Buffer
	commit func([]byte) error
	closed bool
}

func (h *bufferHandle) Name() string { return h.name }

func (h *bufferHandle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, os.ErrClosed
	}
	return h.buf.Read(p)
}

func (h *bufferHandle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, os.ErrClosed
	}
	if h.commit == nil {
		return 0, fmt.Errorf("%s: opened read-only", h.name)
	}
	return h.buf.Write(p)
}

func (h *bufferHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.commit == nil {
		return nil
	}
	return h.commit(h.buf.Bytes())
}

// fileHandle stages an archive entry in a temporary file so it has a real
// path. Written content is committed on Close and the file removed.
type fileHandle struct {
	*os.File
	dir    string
	commit func([]byte) error
}

func newFileHandle(name string, initial []byte, commit func([]byte) error) (Handle, error) {
	dir, err := os.MkdirTemp("", "stagegrid-")
	if err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, path.Base(name)))
	if err == nil {
		_, err = f.Write(initial)
	}
	if err == nil && commit == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		if f != nil {
			f.Close()
		}
		os.RemoveAll(dir)
		return nil, err
	}
	return &fileHandle{File: f, dir: dir, commit: commit}, nil
}

func (h *fileHandle) Close() error {
	defer os.RemoveAll(h.dir)
	if err := h.File.Close(); err != nil {
		return err
	}
	if h.commit == nil {
		return nil
	}
	data, err := os.ReadFile(h.File.Name())
	if err != nil {
		return err
	}
	return h.commit(data)
}
