package storage

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"
)

const blockSize = 512

// tarArchive appends one record per write. Reads scan the whole file and
// return the last record with a matching name.
type tarArchive struct {
	target string
}

func openTar(target string) (*tarArchive, error) {
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		f, err := os.Create(target)
		if err != nil {
			return nil, err
		}
		if err := tar.NewWriter(f).Close(); err != nil {
			f.Close()
			return nil, err
		}
		return &tarArchive{target: target}, f.Close()
	} else if err != nil {
		return nil, err
	}
	return &tarArchive{target: target}, nil
}

func (t *tarArchive) read(entry string) ([]byte, bool, error) {
	f, err := os.Open(t.target)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	var (
		found bool
		data  []byte
	)
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if hdr.Name != entry {
			continue
		}
		data, err = io.ReadAll(tr)
		if err != nil {
			return nil, false, err
		}
		found = true
	}
	return data, found, nil
}

func (t *tarArchive) write(entry string, data []byte) error {
	f, err := os.OpenFile(t.target, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	offset, err := trailerOffset(f, info.Size())
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Truncate(offset); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return err
	}

	tw := tar.NewWriter(f)
	hdr := &tar.Header{
		Name:    entry,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		f.Close()
		return err
	}
	if _, err := tw.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// trailerOffset returns where the next record starts: the end of the last
// record's padded data. Everything after it is trailer or block padding.
func trailerOffset(f *os.File, size int64) (int64, error) {
	cr := &countingReader{r: io.NewSectionReader(f, 0, size)}
	tr := tar.NewReader(cr)
	var end int64
	for {
		_, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return end, nil
		}
		if err != nil {
			return 0, err
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return 0, err
		}
		end = (cr.n + blockSize - 1) / blockSize * blockSize
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (t *tarArchive) close() error { return nil }
