// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import "github.com/pkg/errors"

var (
	// ErrEmptyStructure is returned by operations that need at least one leaf.
	ErrEmptyStructure = errors.New("mmr: empty mountain range")

	// ErrIndexOutOfRange is returned for leaf indexes >= leaf count.
	ErrIndexOutOfRange = errors.New("mmr: leaf index out of range")

	// ErrSizeOutOfRange is returned for historical sizes the range never had.
	ErrSizeOutOfRange = errors.New("mmr: size out of range")

	// ErrProofMismatch means the recomputed root differs from the trusted one.
	ErrProofMismatch = errors.New("mmr: proof mismatch")

	// ErrMalformedProof means the proof shape does not fit its size and index.
	ErrMalformedProof = errors.New("mmr: malformed proof")

	// ErrNodeNotFound is returned when the store misses a node or index entry.
	ErrNodeNotFound = errors.New("mmr: node not found")

	// ErrHasherMismatch is returned when a store is reopened with another hasher.
	ErrHasherMismatch = errors.New("mmr: store was built with another hasher")
)
