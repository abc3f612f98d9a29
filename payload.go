package apk

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// writePayload streams the admitted contents of dir to w as an uncompressed
// tar stream. Entry names are slash-separated and relative to dir, with a
// trailing "/" on directories. File modes and symlink targets are preserved.
//
// Traversal is lexically sorted, so a fixed directory tree always produces
// the same entry order.
func writePayload(ctx context.Context, dir string, filters FilterSet, includeSpecial bool, w io.Writer) error {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()

	tw := tar.NewWriter(w)
	err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if !filters.Admits(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return writePayloadEntry(root, tw, p, info, includeSpecial)
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

// writePayloadEntry emits a single tar entry for the object at p.
func writePayloadEntry(root *os.Root, tw *tar.Writer, p string, info fs.FileInfo, includeSpecial bool) error {
	mode := info.Mode()
	var link string

	switch {
	case mode.IsRegular(), mode.IsDir():
	case mode&fs.ModeSymlink != 0:
		target, err := root.Readlink(filepath.FromSlash(p))
		if err != nil {
			return err
		}
		link = target
	case mode&fs.ModeSocket != 0:
		// Sockets have no tar representation at all.
		return fmt.Errorf("%w: %s is a socket", ErrUnsupportedEntry, p)
	default:
		if !includeSpecial {
			return fmt.Errorf("%w: %s (%s)", ErrUnsupportedEntry, p, mode.Type())
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = p
	if mode.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	if !mode.IsRegular() {
		return nil
	}

	f, err := root.Open(filepath.FromSlash(p))
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := io.Copy(tw, io.LimitReader(f, hdr.Size))
	if err != nil {
		return err
	}
	if n != hdr.Size {
		return fmt.Errorf("file changed during archive creation: %s", p)
	}
	return nil
}

// installedSize sums the uncompressed sizes of all regular files admitted by
// the filter set. It walks dir independently of the archiver.
func installedSize(dir string, filters FilterSet) (int64, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return 0, err
	}
	defer root.Close()

	var total int64
	err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == "." {
			return nil
		}
		if !filters.Admits(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
