package storage

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// zipArchive keeps every record in memory and rewrites the file on write.
type zipArchive struct {
	target  string
	records map[string][]byte
}

func openZip(target string) (*zipArchive, error) {
	z := &zipArchive{target: target, records: make(map[string][]byte)}
	r, err := zip.OpenReader(target)
	if errors.Is(err, fs.ErrNotExist) {
		return z, z.flush()
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		z.records[f.Name] = data
	}
	return z, nil
}

func (z *zipArchive) read(entry string) ([]byte, bool, error) {
	data, ok := z.records[entry]
	return data, ok, nil
}

func (z *zipArchive) write(entry string, data []byte) error {
	z.records[entry] = append([]byte(nil), data...)
	return z.flush()
}

// flush writes all records to a sibling temporary file and renames it over
// the target.
func (z *zipArchive) flush() error {
	dir := filepath.Dir(z.target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".stagegrid-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	names := make([]string, 0, len(z.records))
	for name := range z.records {
		names = append(names, name)
	}
	sort.Strings(names)

	w := zip.NewWriter(tmp)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := fw.Write(z.records[name]); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), z.target)
}

func (z *zipArchive) close() error { return nil }
