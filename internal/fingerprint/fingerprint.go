// Package fingerprint computes content fingerprints for duplicate detection.
//
// A fingerprint is a hex-encoded digest of a file's full byte content. The
// algorithm is chosen once at startup and injected into the engine as a
// hasher factory; a fresh hasher is constructed for every file so concurrent
// workers never share digest state.
//
// Algorithms, in preference order:
//   - xxhash: fastest, 64-bit, non-cryptographic. The default.
//   - blake3: fast cryptographic hash, 256-bit.
//   - sha256: stdlib baseline, 256-bit.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Supported algorithm names.
const (
	AlgoXXHash = "xxhash"
	AlgoBlake3 = "blake3"
	AlgoSHA256 = "sha256"
)

// Default is the algorithm used when the caller expresses no preference.
const Default = AlgoXXHash

// DefaultBufferSize is the read buffer size used when the caller passes
// a non-positive one.
const DefaultBufferSize = 64 * 1024

// Factory constructs a fresh hasher. Each file gets its own.
type Factory func() hash.Hash

// Names returns the supported algorithm names in preference order.
func Names() []string {
	return []string{AlgoXXHash, AlgoBlake3, AlgoSHA256}
}

// New returns a hasher factory for the named algorithm.
func New(name string) (Factory, error) {
	switch name {
	case AlgoXXHash:
		return func() hash.Hash { return xxhash.New() }, nil
	case AlgoBlake3:
		return func() hash.Hash { return blake3.New() }, nil
	case AlgoSHA256:
		return func() hash.Hash { return sha256.New() }, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q (supported: %v)", name, Names())
	}
}

// File streams the file at path through a fresh hasher in bufSize chunks and
// returns the hex-encoded digest.
//
// Any open or read failure is returned as-is for the caller to report; the
// file is simply not fingerprinted.
func File(newHash Factory, path string, bufSize int) (string, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	hasher := newHash()
	buf := make([]byte, bufSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
