// Package storage is the artifact-persistence boundary of a workflow run.
//
// A Storage hands out named handles that stages read from and write to. Two
// backends exist: DirectoryStorage keeps plain files under a root directory and
// ArchiveStorage keeps records inside a single zip, tar or sqlite file.
package storage

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when reading an entry that does not exist.
var ErrNotFound = errors.New("storage entry not found")

// Handle is an open storage entry. Closing it commits any written data.
type Handle interface {
	io.ReadWriteCloser
	// Name is the entry name, or a real filesystem path for handles opened
	// with OnFilesystem.
	Name() string
}

// Storage opens named entries.
type Storage interface {
	// Open opens name in mode "r", "w" or "a", optionally suffixed with "b".
	// Appending to a missing entry creates it.
	Open(name, mode string, opts ...OpenOption) (Handle, error)
	// Descriptor is the JSON form of the backend, tagged with a "type" field.
	Descriptor() map[string]any
	Close() error
}

type openOptions struct {
	modifiers    []string
	onFilesystem bool
	noop         bool
}

// OpenOption adjusts a single Open call.
type OpenOption func(*openOptions)

// WithModifiers inserts dot-separated modifiers before the extension of the
// entry name: "a.txt" with "x" and "y" becomes "a.x.y.txt".
func WithModifiers(modifiers ...string) OpenOption {
	return func(o *openOptions) { o.modifiers = append(o.modifiers, modifiers...) }
}

// OnFilesystem requests a handle backed by a real file whose path is reported
// by Handle.Name, for code that needs to pass a path to another program.
func OnFilesystem() OpenOption {
	return func(o *openOptions) { o.onFilesystem = true }
}

// Noop returns a handle that discards writes and reads as empty. Nothing in
// the backend is touched.
func Noop() OpenOption {
	return func(o *openOptions) { o.noop = true }
}

// NoopIf applies Noop when cond is true.
func NoopIf(cond bool) OpenOption {
	return func(o *openOptions) { o.noop = o.noop || cond }
}

// With opens name, passes the handle to fn and closes it on every path. A
// close error is returned when fn itself succeeded.
func With(st Storage, name, mode string, fn func(Handle) error, opts ...OpenOption) (err error) {
	h, err := st.Open(name, mode, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(h)
}

// ReadAll returns the whole content of an entry.
func ReadAll(st Storage, name string, opts ...OpenOption) ([]byte, error) {
	var data []byte
	err := With(st, name, "r", func(h Handle) error {
		var err error
		data, err = io.ReadAll(h)
		return err
	}, opts...)
	return data, err
}

// WriteAll replaces an entry with data.
func WriteAll(st Storage, name string, data []byte, opts ...OpenOption) error {
	return With(st, name, "w", func(h Handle) error {
		_, err := h.Write(data)
		return err
	}, opts...)
}

type mode byte

const (
	modeRead   mode = 'r'
	modeWrite  mode = 'w'
	modeAppend mode = 'a'
)

func parseMode(m string) (mode, error) {
	base := strings.TrimSuffix(m, "b")
	switch base {
	case "r", "w", "a":
		return mode(base[0]), nil
	}
	return 0, fmt.Errorf("invalid open mode %q", m)
}

func resolveOptions(opts []OpenOption) openOptions {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// fullName applies modifiers to name. A name without an extension gets the
// modifiers appended.
func fullName(name string, modifiers []string) string {
	if len(modifiers) == 0 {
		return name
	}
	ext := path.Ext(name)
	prefix := strings.TrimSuffix(name, ext)
	parts := append([]string{prefix}, modifiers...)
	if ext != "" {
		parts = append(parts, ext[1:])
	}
	return strings.Join(parts, ".")
}

func validName(name string) error {
	if name == "" || path.IsAbs(name) {
		return fmt.Errorf("invalid entry name %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return fmt.Errorf("entry name %q escapes the storage root", name)
		}
	}
	return nil
}

type noopHandle struct{ name string }

func (h noopHandle) Read([]byte) (int, error)    { return 0, io.EOF }
func (h noopHandle) Write(p []byte) (int, error) { return len(p), nil }
func (h noopHandle) Close() error                { return nil }
func (h noopHandle) Name() string                { return h.name }
