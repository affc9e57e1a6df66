// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import (
	"hash"
	"sort"

	sha256 "github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

const (
	Blake2b256 = "blake2b256"
	Keccak256  = "keccak256"
	Sha256     = "sha256"
	Blake3     = "blake3"

	DefaultHasherName = Blake2b256
)

var (
	ErrUnknownHasher = errors.New("chainhash: unknown hasher")
	ErrHashSize      = errors.New("chainhash: digest size must be 32 bytes")
)

// Hasher constructs a fresh digest state.
type Hasher func() hash.Hash

var hashers = map[string]Hasher{
	Blake2b256: newBlake2b256,
	Keccak256:  sha3.NewLegacyKeccak256,
	Sha256:     sha256.New,
	Blake3:     func() hash.Hash { return blake3.New() },
}

func newBlake2b256() hash.Hash {
	// New256 fails only for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return h
}

// HasherByName returns one of the registered hashers.
func HasherByName(name string) (Hasher, error) {
	h, ok := hashers[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownHasher, "name %q", name)
	}
	return h, nil
}

// SupportedHashers returns sorted names of the registered hashers.
func SupportedHashers() []string {
	names := make([]string, 0, len(hashers))
	for name := range hashers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultHasher is the unkeyed 32-byte BLAKE2b.
func DefaultHasher() Hasher { return newBlake2b256 }

// Validate checks that the hasher produces HashSize digests.
func (hasher Hasher) Validate() error {
	if hasher == nil {
		return errors.Wrap(ErrUnknownHasher, "nil hasher")
	}
	if size := hasher().Size(); size != HashSize {
		return errors.Wrapf(ErrHashSize, "got %d", size)
	}
	return nil
}

// Sum hashes data as is: no padding, no prefix.
func (hasher Hasher) Sum(data []byte) (result Hash) {
	h := hasher()
	h.Write(data)
	h.Sum(result[:0])
	return result
}

// Merge returns H(left || right). Operands are never reordered.
func (hasher Hasher) Merge(left, right Hash) (result Hash) {
	h := hasher()
	h.Write(left[:])
	h.Write(right[:])
	h.Sum(result[:0])
	return result
}
