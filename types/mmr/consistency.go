// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headermmr/database"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
)

// ConsistencyProof shows that the range of SizeA leaves is a prefix of the
// range of SizeB leaves.
//
// Every peak of A is a complete node of B at the same position, so
// Paths[i] lifts PeaksA[i] to the top of its mountain in B.
type ConsistencyProof struct {
	SizeA  uint64             `cbor:"1,keyasint" json:"sizeA"`
	SizeB  uint64             `cbor:"2,keyasint" json:"sizeB"`
	PeaksA []chainhash.Hash   `cbor:"3,keyasint" json:"peaksA"`
	Paths  [][]chainhash.Hash `cbor:"4,keyasint" json:"paths"`
	PeaksB []chainhash.Hash   `cbor:"5,keyasint" json:"peaksB"`
}

// GenConsistencyProof builds the proof that sizeA is a prefix of sizeB.
func (m *MountainRange) GenConsistencyProof(sizeA, sizeB uint64) (proof *ConsistencyProof, err error) {
	m.RLock()
	defer m.RUnlock()

	if err = m.checkSize(sizeA); err != nil {
		return nil, err
	}
	if err = m.checkSize(sizeB); err != nil {
		return nil, err
	}
	if sizeA > sizeB {
		return nil, errors.Wrapf(ErrSizeOutOfRange, "size %d is past %d", sizeA, sizeB)
	}

	proof = &ConsistencyProof{SizeA: sizeA, SizeB: sizeB}
	err = m.db.View(func(tx database.Tx) error {
		if proof.PeaksA, err = getPeaks(tx, sizeA); err != nil {
			return err
		}
		if proof.PeaksB, err = getPeaks(tx, sizeB); err != nil {
			return err
		}

		for _, pos := range PeakPositions(sizeA) {
			path, _, err := proveNode(tx, pos, sizeB)
			if err != nil {
				return err
			}
			proof.Paths = append(proof.Paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// VerifyConsistency checks that rootA commits to a prefix of rootB.
func VerifyConsistency(hasher chainhash.Hasher, rootA, rootB chainhash.Hash, proof *ConsistencyProof) error {
	if proof == nil {
		return errors.Wrap(ErrMalformedProof, "nil proof")
	}
	if proof.SizeA == 0 || proof.SizeA > proof.SizeB {
		return errors.Wrapf(ErrMalformedProof, "sizes %d and %d", proof.SizeA, proof.SizeB)
	}

	positionsA := PeakPositions(proof.SizeA)
	positionsB := PeakPositions(proof.SizeB)
	if len(proof.PeaksA) != len(positionsA) || len(proof.Paths) != len(positionsA) ||
		len(proof.PeaksB) != len(positionsB) {
		return errors.Wrap(ErrMalformedProof, "peak count does not fit sizes")
	}

	if got := bagPeaks(hasher, proof.PeaksA); got != rootA {
		return errors.Wrapf(ErrProofMismatch, "root A: got %s, want %s", got, rootA)
	}
	if got := bagPeaks(hasher, proof.PeaksB); got != rootB {
		return errors.Wrapf(ErrProofMismatch, "root B: got %s, want %s", got, rootB)
	}

	for i, pos := range positionsA {
		k, ok := mountainOf(pos, positionsB)
		if !ok {
			return errors.Wrapf(ErrMalformedProof, "peak %s is outside size %d", pos, proof.SizeB)
		}
		if len(proof.Paths[i]) != int(positionsB[k].Height-pos.Height) {
			return errors.Wrapf(ErrMalformedProof, "path %d has length %d", i, len(proof.Paths[i]))
		}
		if top := climb(hasher, pos, proof.PeaksA[i], proof.Paths[i]); top != proof.PeaksB[k] {
			return errors.Wrapf(ErrProofMismatch, "peak %s does not lift to %s", pos, positionsB[k])
		}
	}
	return nil
}
