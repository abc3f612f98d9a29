package apk

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/apkforge/apk/pkginfo"
)

// parseMetadata locates and parses the .PKGINFO entry in the archive's
// first compressed member. The payload member is never decompressed.
func parseMetadata(data []byte) (*pkginfo.Package, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer zr.Close()

	// Stop at the first gzip end-of-stream marker. The metadata segment is
	// an independently valid stream, so the payload member stays untouched.
	zr.Multistream(false)

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no %s entry", ErrMalformedArchive, pkginfoName)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
		}
		if hdr.Name != pkginfoName {
			continue
		}

		pkg, err := pkginfo.Decode(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
		}
		return pkg, nil
	}
}
