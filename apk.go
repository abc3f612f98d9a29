package apk

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/apkforge/apk/pkginfo"
)

// File is a complete archive held in memory together with its parsed
// metadata record. Build produces one; Open and Read recover one from an
// existing archive.
type File struct {
	pkg  *pkginfo.Package
	data []byte
}

// Open reads and parses the archive at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stageErr("read", err)
	}
	return FromBytes(data)
}

// Read consumes r to completion and parses the bytes as an archive.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, stageErr("read", err)
	}
	return FromBytes(data)
}

// FromBytes parses an in-memory archive. The data slice is retained, not
// copied; the caller must not mutate it afterward.
func FromBytes(data []byte) (*File, error) {
	pkg, err := parseMetadata(data)
	if err != nil {
		return nil, err
	}
	return &File{pkg: pkg, data: data}, nil
}

// Package returns the archive's metadata record.
func (f *File) Package() *pkginfo.Package {
	return f.pkg
}

// Bytes returns the complete archive byte stream. The slice is shared with
// the File and must not be mutated.
func (f *File) Bytes() []byte {
	return f.data
}

// WriteTo implements io.WriterTo.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.data)
	return int64(n), err
}

// Save writes the archive to path with exclusive-create semantics: an
// existing file at path fails with ErrDestinationExists rather than being
// overwritten. A failed write removes the partial file, so path is either
// a complete archive or absent.
func (f *File) Save(path string) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDestinationExists, path)
		}
		return stageErr("save", err)
	}

	if _, err := out.Write(f.data); err != nil {
		out.Close()
		os.Remove(path)
		return stageErr("save", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return stageErr("save", err)
	}
	return nil
}
