// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"math/bits"

	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headermmr/database"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
)

// Proof is an inclusion proof of one leaf in the range of Size leaves.
//
// Path holds the siblings from the leaf up to the top of its mountain,
// bottom-up. Peaks holds the tops of all other mountains, left-to-right.
type Proof struct {
	LeafIndex uint64           `cbor:"1,keyasint" json:"leafIndex"`
	Size      uint64           `cbor:"2,keyasint" json:"size"`
	Path      []chainhash.Hash `cbor:"3,keyasint" json:"path"`
	Peaks     []chainhash.Hash `cbor:"4,keyasint" json:"peaks"`
}

// Items returns the proof nodes in verification order: path, then peaks.
func (p *Proof) Items() []chainhash.Hash {
	items := make([]chainhash.Hash, 0, len(p.Path)+len(p.Peaks))
	items = append(items, p.Path...)
	return append(items, p.Peaks...)
}

// GenProof builds the inclusion proof of a leaf against the current root.
func (m *MountainRange) GenProof(leafIndex uint64) (*Proof, error) {
	m.RLock()
	size := m.size
	m.RUnlock()

	return m.GenProofAt(leafIndex, size)
}

// GenProofAt builds the inclusion proof of a leaf against the root the range
// had with size leaves.
// Algorithm:
//  1. Find the mountain of the leaf among the peaks of size.
//  2. Take the sibling on every level up to the mountain top.
//  3. Take the tops of the other mountains.
func (m *MountainRange) GenProofAt(leafIndex, size uint64) (proof *Proof, err error) {
	m.RLock()
	defer m.RUnlock()

	if err = m.checkSize(size); err != nil {
		return nil, err
	}
	if leafIndex >= size {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "leaf %d, size %d", leafIndex, size)
	}

	proof = &Proof{LeafIndex: leafIndex, Size: size}
	err = m.db.View(func(tx database.Tx) error {
		proof.Path, proof.Peaks, err = proveNode(tx, LeafPosition(leafIndex), size)
		return err
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

func proveNode(tx database.Tx, pos Position, size uint64) (path, peaks []chainhash.Hash, err error) {
	positions := PeakPositions(size)
	k, ok := mountainOf(pos, positions)
	if !ok {
		return nil, nil, errors.Wrapf(ErrIndexOutOfRange, "position %s, size %d", pos, size)
	}

	path = make([]chainhash.Hash, 0, positions[k].Height-pos.Height)
	for cur := pos; cur.Height < positions[k].Height; cur = cur.Parent() {
		sibling, err := getNode(tx, cur.Sibling())
		if err != nil {
			return nil, nil, err
		}
		path = append(path, sibling)
	}

	peaks = make([]chainhash.Hash, 0, len(positions)-1)
	for i, peakPos := range positions {
		if i == k {
			continue
		}
		h, err := getNode(tx, peakPos)
		if err != nil {
			return nil, nil, err
		}
		peaks = append(peaks, h)
	}
	return path, peaks, nil
}

// climb folds the path onto node: a right child is hashed after its
// sibling, a left child before it.
func climb(hasher chainhash.Hasher, pos Position, node chainhash.Hash, path []chainhash.Hash) chainhash.Hash {
	for _, sibling := range path {
		if pos.IsRight() {
			node = hasher.Merge(sibling, node)
		} else {
			node = hasher.Merge(node, sibling)
		}
		pos = pos.Parent()
	}
	return node
}

// rootFromNode recomputes the root of a range of size leaves from one node,
// its path to the mountain top and the other peaks.
func rootFromNode(hasher chainhash.Hasher, pos Position, node chainhash.Hash, size uint64,
	path, peaks []chainhash.Hash) (chainhash.Hash, error) {
	positions := PeakPositions(size)
	k, ok := mountainOf(pos, positions)
	if !ok {
		return chainhash.Hash{}, errors.Wrapf(ErrMalformedProof, "position %s is outside size %d", pos, size)
	}
	if len(path) != int(positions[k].Height-pos.Height) {
		return chainhash.Hash{}, errors.Wrapf(ErrMalformedProof, "path length %d, want %d",
			len(path), positions[k].Height-pos.Height)
	}
	if len(peaks) != len(positions)-1 {
		return chainhash.Hash{}, errors.Wrapf(ErrMalformedProof, "%d peaks, want %d",
			len(peaks), len(positions)-1)
	}

	all := make([]chainhash.Hash, 0, len(positions))
	all = append(all, peaks[:k]...)
	all = append(all, climb(hasher, pos, node, path))
	all = append(all, peaks[k:]...)
	return bagPeaks(hasher, all), nil
}

// Verify recomputes the root from the leaf data and the proof.
// It returns ErrProofMismatch when the result differs from root and
// ErrMalformedProof when the proof does not fit leafIndex and its size.
func Verify(hasher chainhash.Hasher, root chainhash.Hash, leafIndex uint64, leafData []byte, proof *Proof) error {
	if proof == nil {
		return errors.Wrap(ErrMalformedProof, "nil proof")
	}
	if proof.LeafIndex != leafIndex {
		return errors.Wrapf(ErrMalformedProof, "proof for leaf %d, want %d", proof.LeafIndex, leafIndex)
	}
	if proof.Size == 0 || leafIndex >= proof.Size {
		return errors.Wrapf(ErrMalformedProof, "leaf %d, size %d", leafIndex, proof.Size)
	}

	got, err := rootFromNode(hasher, LeafPosition(leafIndex), hasher.Sum(leafData), proof.Size, proof.Path, proof.Peaks)
	if err != nil {
		return err
	}
	if got != root {
		return errors.Wrapf(ErrProofMismatch, "got %s, want %s", got, root)
	}
	return nil
}

// VerifyProof is Verify reduced to a predicate.
func VerifyProof(hasher chainhash.Hasher, root chainhash.Hash, leafIndex uint64, leafData []byte, proof *Proof) bool {
	return Verify(hasher, root, leafIndex, leafData, proof) == nil
}

// VerifyProof checks a proof with the hasher of the range.
func (m *MountainRange) VerifyProof(root chainhash.Hash, leafIndex uint64, leafData []byte, proof *Proof) bool {
	return VerifyProof(m.hasher, root, leafIndex, leafData, proof)
}

// ProofLen returns the number of nodes in a proof of leafIndex for size leaves.
func ProofLen(leafIndex, size uint64) int {
	positions := PeakPositions(size)
	k, ok := mountainOf(LeafPosition(leafIndex), positions)
	if !ok {
		return 0
	}
	return int(positions[k].Height) + bits.OnesCount64(size) - 1
}
