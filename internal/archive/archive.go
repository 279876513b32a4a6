// Package archive writes and reads the zip containers used for chapters
// and volumes (.cbz).
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the extension appended to an archived directory.
const Ext = ".cbz"

// ErrEmptyArchive reports a container without file members.
var ErrEmptyArchive = errors.New("archive: no members")

// PathFor returns the archive path produced for dir.
func PathFor(dir string) string {
	return filepath.Clean(dir) + Ext
}

// CreateCBZ writes every file below dir into dir.cbz using Deflate.
// Member names are slash-separated paths relative to dir, in walk order.
// An existing archive at the same path is overwritten.
func CreateCBZ(dir string) (string, error) {
	output := PathFor(dir)

	out, err := os.Create(output)
	if err != nil {
		return "", fmt.Errorf("cbz: %w", err)
	}

	z := zip.NewWriter(out)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		return addFileToZip(z, path, filepath.ToSlash(rel))
	})

	closeErr := z.Close()
	if cerr := out.Close(); closeErr == nil {
		closeErr = cerr
	}

	if walkErr != nil {
		return output, fmt.Errorf("cbz %s: %w", output, walkErr)
	}
	if closeErr != nil {
		return output, fmt.Errorf("cbz %s: %w", output, closeErr)
	}

	return output, nil
}

func addFileToZip(z *zip.Writer, file, name string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name
	header.Method = zip.Deflate

	w, err := z.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, f)
	return err
}

// IsArchive reports whether name carries one of the chapter archive
// extensions accepted for merging.
func IsArchive(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cbz", ".cbr":
		return true
	}
	return false
}
