package apk

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/apkforge/apk/internal/ioutil"
	"github.com/apkforge/apk/pkginfo"
)

// Build assembles an archive from pkg and the payload under dir.
//
// The pipeline archives the admitted directory contents into the payload
// segment, hashes the compressed payload into the metadata record, writes
// the metadata segment, optionally signs it, and concatenates the two
// independently compressed segments with the metadata segment first.
// Consumers can therefore read the metadata by decompressing only the
// first member.
//
// pkg is cloned before the pipeline mutates its Size and DataHash fields;
// the returned File carries the completed record.
//
// Every stage fails fast: an error aborts the whole build and nothing is
// written anywhere. Errors are wrapped with the failing stage's identity.
func Build(ctx context.Context, pkg *pkginfo.Package, dir string, opts ...BuildOption) (*File, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := pkg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.dataHash {
		if _, err := cfg.hashAlgorithm.newHash(); err != nil {
			return nil, err
		}
	}

	signer, err := resolveSigner(&cfg)
	if err != nil {
		return nil, err
	}

	p := pkg.Clone()
	filters := cfg.filterSet()

	size, err := installedSize(dir, filters)
	if err != nil {
		return nil, stageErr("payload", err)
	}
	p.Size = size

	metaSeg, payloadSeg, err := buildSegments(ctx, &cfg, p, dir, filters, signer)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(metaSeg)+len(payloadSeg))
	data = append(data, metaSeg...)
	data = append(data, payloadSeg...)
	return &File{pkg: p, data: data}, nil
}

// resolveSigner turns the signing configuration into a Signer, or nil when
// signing is declined.
func resolveSigner(cfg *buildConfig) (Signer, error) {
	if !cfg.signing {
		return nil, nil
	}
	if cfg.signer != nil {
		return cfg.signer, nil
	}
	if cfg.backend == nil || !cfg.backend.Available() {
		return nil, stageErr("sign", ErrSigningUnavailable)
	}
	if cfg.keyPath == "" {
		return nil, fmt.Errorf("%w: signing requested without a key", ErrInvalidConfig)
	}
	signer, err := cfg.backend.LoadSigner(cfg.keyPath, cfg.keyOpts...)
	if err != nil {
		return nil, stageErr("sign", err)
	}
	return signer, nil
}

// buildSegments produces the two compressed segments. The payload segment
// is built first because its digest lands in the metadata record.
func buildSegments(ctx context.Context, cfg *buildConfig, p *pkginfo.Package, dir string, filters FilterSet, signer Signer) (metaSeg, payloadSeg []byte, err error) {
	payloadSeg, dataHash, err := buildPayloadSegment(ctx, cfg, dir, filters)
	if err != nil {
		return nil, nil, err
	}
	p.DataHash = dataHash

	metaSeg, err = buildMetadataSegment(p, signer)
	if err != nil {
		return nil, nil, err
	}
	return metaSeg, payloadSeg, nil
}

// buildPayloadSegment archives dir into a scratch file, applies the
// optional checksum transform, and compresses the result while digesting
// the compressed bytes in the same pass.
func buildPayloadSegment(ctx context.Context, cfg *buildConfig, dir string, filters FilterSet) (seg []byte, dataHash string, err error) {
	scratch, err := newScratchFile("apk-payload-*.tar")
	if err != nil {
		return nil, "", stageErr("payload", err)
	}
	defer scratch.cleanup()

	if err := writePayload(ctx, dir, filters, cfg.includeSpecial, scratch.f); err != nil {
		return nil, "", stageErr("payload", err)
	}

	src := io.Reader(scratch.f)
	if _, err := scratch.f.Seek(0, io.SeekStart); err != nil {
		return nil, "", stageErr("payload", err)
	}

	// The checksum helper consumes the raw tar stream and its output is
	// read to completion before compression starts.
	var hashed *scratchFile
	if cfg.transform != nil {
		hashed, err = newScratchFile("apk-payload-*.sums.tar")
		if err != nil {
			return nil, "", stageErr("payload", err)
		}
		defer hashed.cleanup()

		if err := cfg.transform.Apply(ctx, hashed.f, scratch.f); err != nil {
			return nil, "", stageErr("payload", err)
		}
		if _, err := hashed.f.Seek(0, io.SeekStart); err != nil {
			return nil, "", stageErr("payload", err)
		}
		src = hashed.f
	}

	var buf bytes.Buffer
	var hasher hash.Hash
	sink := io.Writer(&buf)
	if cfg.dataHash {
		hasher, err = cfg.hashAlgorithm.newHash()
		if err != nil {
			return nil, "", err
		}
		sink = io.MultiWriter(&buf, hasher)
	}

	gz := gzip.NewWriter(sink)
	if _, err := ioutil.CopyWithContext(ctx, gz, src, nil); err != nil {
		return nil, "", stageErr("payload", err)
	}
	if err := gz.Close(); err != nil {
		return nil, "", stageErr("payload", err)
	}

	if hasher != nil {
		dataHash = hex.EncodeToString(hasher.Sum(nil))
	}
	return buf.Bytes(), dataHash, nil
}

// buildMetadataSegment writes the metadata tar stream, attaches the
// signature entry while the stream is still open, finalizes it, and
// compresses it into its own gzip stream.
func buildMetadataSegment(p *pkginfo.Package, signer Signer) ([]byte, error) {
	m, err := newMetadataArchive(p)
	if err != nil {
		return nil, stageErr("metadata", err)
	}

	if signer != nil {
		sig, err := signer.Sign(m.signable())
		if err != nil {
			return nil, stageErr("sign", err)
		}
		if err := m.addSignature(signer.KeyID(), sig); err != nil {
			return nil, stageErr("metadata", err)
		}
	}

	segment, err := m.finalize()
	if err != nil {
		return nil, stageErr("metadata", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(segment); err != nil {
		return nil, stageErr("metadata", err)
	}
	if err := gz.Close(); err != nil {
		return nil, stageErr("metadata", err)
	}
	return buf.Bytes(), nil
}

// scratchFile is a temporary file removed on every exit path.
type scratchFile struct {
	f *os.File
}

func newScratchFile(pattern string) (*scratchFile, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, err
	}
	return &scratchFile{f: f}, nil
}

func (s *scratchFile) cleanup() {
	name := s.f.Name()
	s.f.Close()
	os.Remove(name)
}
