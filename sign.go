package apk

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// Signer produces a detached signature over metadata segment bytes.
type Signer interface {
	// KeyID identifies the public key consumers verify against. It becomes
	// the suffix of the signature entry name.
	KeyID() string

	// Sign returns the raw signature bytes over data.
	Sign(data []byte) ([]byte, error)
}

// SigningBackend loads signers from key files.
//
// Availability is a queryable runtime capability: when a caller requests
// signing against an unavailable backend the build fails with
// ErrSigningUnavailable instead of quietly producing an unsigned archive.
type SigningBackend interface {
	Available() bool
	LoadSigner(keyPath string, opts ...KeyOption) (Signer, error)
}

// RSABackend is the in-process signing backend: PKCS#1 v1.5 RSA signatures
// over SHA-256 digests.
type RSABackend struct{}

// Available implements SigningBackend. The in-process backend is always
// present.
func (RSABackend) Available() bool { return true }

// LoadSigner implements SigningBackend.
func (RSABackend) LoadSigner(keyPath string, opts ...KeyOption) (Signer, error) {
	return NewRSASigner(keyPath, opts...)
}

// KeyOption configures private key loading.
type KeyOption func(*keyConfig)

type keyConfig struct {
	keyID      string
	passphrase []byte
}

// KeyWithID overrides the public key identifier derived from the key
// filename.
func KeyWithID(id string) KeyOption {
	return func(cfg *keyConfig) {
		cfg.keyID = id
	}
}

// KeyWithPassphrase supplies the passphrase for an encrypted private key.
func KeyWithPassphrase(passphrase []byte) KeyOption {
	return func(cfg *keyConfig) {
		cfg.passphrase = passphrase
	}
}

// RSASigner signs metadata segments with a loaded RSA private key.
type RSASigner struct {
	key   *rsa.PrivateKey
	keyID string
}

// NewRSASigner loads an RSA private key from keyPath. PEM (PKCS#1, PKCS#8)
// and OpenSSH encodings are accepted; encrypted keys need KeyWithPassphrase.
//
// Load and decrypt failures are reported as ErrKeyUnavailable.
func NewRSASigner(keyPath string, opts ...KeyOption) (*RSASigner, error) {
	var cfg keyConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrKeyUnavailable, keyPath, err)
	}

	var parsed any
	if cfg.passphrase != nil {
		parsed, err = ssh.ParseRawPrivateKeyWithPassphrase(data, cfg.passphrase)
	} else {
		parsed, err = ssh.ParseRawPrivateKey(data)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %s is encrypted and no passphrase was supplied", ErrKeyUnavailable, keyPath)
		}
		return nil, fmt.Errorf("%w: parse %s: %v", ErrKeyUnavailable, keyPath, err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an RSA key", ErrKeyUnavailable, keyPath)
	}

	keyID := cfg.keyID
	if keyID == "" {
		keyID = defaultKeyID(keyPath)
	}
	return &RSASigner{key: key, keyID: keyID}, nil
}

// KeyID implements Signer.
func (s *RSASigner) KeyID() string { return s.keyID }

// Sign implements Signer.
func (s *RSASigner) Sign(data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, sum[:])
}

// defaultKeyID derives the public key identifier from the key filename:
// the private key "build.rsa" pairs with the identifier "build.rsa.pub".
func defaultKeyID(keyPath string) string {
	base := filepath.Base(keyPath)
	if filepath.Ext(base) != ".pub" {
		base += ".pub"
	}
	return base
}
