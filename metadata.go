package apk

import (
	"archive/tar"
	"bytes"
	"time"

	"github.com/apkforge/apk/pkginfo"
)

const (
	// pkginfoName is the well-known metadata entry name.
	pkginfoName = ".PKGINFO"

	// signaturePrefix prefixes detached signature entry names; the public
	// key identifier follows it.
	signaturePrefix = ".SIGN.RSA."
)

// metadataArchive accumulates the uncompressed metadata tar segment.
//
// The tar stream stays open after the .PKGINFO entry is written: signature
// entries are appended to the live stream, and only finalize writes the
// end-of-archive marker. Signing therefore never requires reopening a
// closed stream.
type metadataArchive struct {
	buf bytes.Buffer
	tw  *tar.Writer
}

// newMetadataArchive writes the .PKGINFO entry for pkg and leaves the
// stream open. The record's Size and DataHash fields must already be
// populated.
func newMetadataArchive(pkg *pkginfo.Package) (*metadataArchive, error) {
	var body bytes.Buffer
	if err := pkginfo.Encode(&body, pkg); err != nil {
		return nil, err
	}

	m := &metadataArchive{}
	m.tw = tar.NewWriter(&m.buf)

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     pkginfoName,
		Size:     int64(body.Len()),
		Mode:     0o644,
		ModTime:  time.Unix(pkg.BuildDate, 0),
	}
	if err := m.tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := m.tw.Write(body.Bytes()); err != nil {
		return nil, err
	}
	if err := m.tw.Flush(); err != nil {
		return nil, err
	}
	return m, nil
}

// signable returns the segment bytes as they currently stand: flushed but
// not finalized. A signature computed over these bytes covers .PKGINFO and
// any signature entries already attached, but never the entry carrying the
// signature itself.
func (m *metadataArchive) signable() []byte {
	return m.buf.Bytes()
}

// addSignature appends a detached signature entry named after the public
// key identifier.
func (m *metadataArchive) addSignature(keyID string, sig []byte) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     signaturePrefix + keyID,
		Size:     int64(len(sig)),
		Mode:     0o644,
	}
	if err := m.tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := m.tw.Write(sig); err != nil {
		return err
	}
	return m.tw.Flush()
}

// finalize writes the end-of-archive marker and returns the complete
// uncompressed segment. The archive must not be touched afterward.
func (m *metadataArchive) finalize() ([]byte, error) {
	if err := m.tw.Close(); err != nil {
		return nil, err
	}
	return m.buf.Bytes(), nil
}
