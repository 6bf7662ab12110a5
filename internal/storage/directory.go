package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirectoryStorage keeps each entry as a plain file below Root, or below
// Root/Group when Group is set.
type DirectoryStorage struct {
	Root  string
	Group string
	dir   string
}

// NewDirectory creates the target directory if needed.
func NewDirectory(root, group string) (*DirectoryStorage, error) {
	if root == "" {
		root = "."
	}
	dir := root
	if group != "" {
		dir = filepath.Join(root, group)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &DirectoryStorage{Root: root, Group: group, dir: dir}, nil
}

// Open opens the file for name. OnFilesystem changes nothing here since every
// entry already is a file.
func (d *DirectoryStorage) Open(name, m string, opts ...OpenOption) (Handle, error) {
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

	p := filepath.Join(d.dir, filepath.FromSlash(name))

	var f *os.File
	switch md {
	case modeRead:
		f, err = os.Open(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	case modeWrite, modeAppend:
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if md == modeAppend {
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err = os.OpenFile(p, flag, 0o644)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *DirectoryStorage) Descriptor() map[string]any {
	desc := map[string]any{"type": "DirectoryStorage", "root": d.Root, "group": nil}
	if d.Group != "" {
		desc["group"] = d.Group
	}
	return desc
}

func (d *DirectoryStorage) Close() error { return nil }
