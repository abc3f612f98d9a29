package apk

import "github.com/apkforge/apk/internal/checksum"

// buildConfig holds configuration for archive creation.
type buildConfig struct {
	filters         []Predicate
	noDefaultFilter bool
	includeSpecial  bool

	dataHash      bool
	hashAlgorithm HashAlgorithm

	signing bool
	signer  Signer
	backend SigningBackend
	keyPath string
	keyOpts []KeyOption

	transform checksum.Transform
}

func defaultBuildConfig() buildConfig {
	return buildConfig{
		dataHash:      true,
		hashAlgorithm: HashSHA256,
		backend:       RSABackend{},
	}
}

// filterSet assembles the effective filter set for one build invocation.
func (cfg *buildConfig) filterSet() FilterSet {
	base := FilterSet{}
	if !cfg.noDefaultFilter {
		base = DefaultFilterSet()
	}
	return base.With(cfg.filters...)
}

// BuildOption configures archive creation.
type BuildOption func(*buildConfig)

// BuildWithFilters adds predicates to the filter set for this build. The
// default debug-path exclusion stays active unless disabled with
// BuildWithoutDefaultFilters.
func BuildWithFilters(preds ...Predicate) BuildOption {
	return func(cfg *buildConfig) {
		cfg.filters = append(cfg.filters, preds...)
	}
}

// BuildWithoutDefaultFilters disables the default debug-path exclusion.
func BuildWithoutDefaultFilters() BuildOption {
	return func(cfg *buildConfig) {
		cfg.noDefaultFilter = true
	}
}

// BuildWithSpecialFiles opts in to archiving device nodes and FIFOs instead
// of failing on them. Sockets are never archivable.
func BuildWithSpecialFiles() BuildOption {
	return func(cfg *buildConfig) {
		cfg.includeSpecial = true
	}
}

// BuildWithoutDataHash disables the payload content hash. The metadata's
// datahash field is left empty.
func BuildWithoutDataHash() BuildOption {
	return func(cfg *buildConfig) {
		cfg.dataHash = false
	}
}

// BuildWithHashAlgorithm selects the payload content hash algorithm.
// The default is HashSHA256; HashSHA1 is the legacy mode.
func BuildWithHashAlgorithm(a HashAlgorithm) BuildOption {
	return func(cfg *buildConfig) {
		cfg.hashAlgorithm = a
	}
}

// BuildWithSigner enables signing with an already-constructed signer.
func BuildWithSigner(s Signer) BuildOption {
	return func(cfg *buildConfig) {
		cfg.signing = true
		cfg.signer = s
	}
}

// BuildWithKeyFile enables signing with a private key loaded from keyPath
// through the configured signing backend.
func BuildWithKeyFile(keyPath string, opts ...KeyOption) BuildOption {
	return func(cfg *buildConfig) {
		cfg.signing = true
		cfg.keyPath = keyPath
		cfg.keyOpts = opts
	}
}

// BuildWithSigningBackend replaces the default in-process RSA backend.
// Passing nil models a runtime without signing capability.
func BuildWithSigningBackend(b SigningBackend) BuildOption {
	return func(cfg *buildConfig) {
		cfg.backend = b
	}
}

// BuildWithChecksumHelper routes the raw payload tar stream through an
// external helper process before compression. The helper reads the stream
// on stdin and writes the transformed stream to stdout; its output is
// carried forward opaquely.
func BuildWithChecksumHelper(name string, args ...string) BuildOption {
	return func(cfg *buildConfig) {
		cfg.transform = checksum.Command{Name: name, Args: args}
	}
}
