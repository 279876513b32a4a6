package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Reader gives ordered access to the file members of one archive.
type Reader struct {
	path  string
	zr    *zip.ReadCloser
	files map[string]*zip.File
	names []string
}

// Open opens the archive at path. Directory entries are ignored.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := &Reader{
		path:  path,
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
		names: make([]string, 0, len(zr.File)),
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if _, dup := r.files[f.Name]; dup {
			continue
		}
		r.files[f.Name] = f
		r.names = append(r.names, f.Name)
	}

	return r, nil
}

// Names returns the member names in the order they are stored.
func (r *Reader) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len is the number of file members.
func (r *Reader) Len() int {
	return len(r.names)
}

// ExtractTo writes member name to dest, replacing any existing file.
func (r *Reader) ExtractTo(name, dest string) error {
	f, ok := r.files[name]
	if !ok {
		return fmt.Errorf("%s: member %q not found", r.path, name)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%s: open member %q: %w", r.path, name, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("%s: extract %q: %w", r.path, name, err)
	}

	return out.Close()
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.zr.Close()
}
