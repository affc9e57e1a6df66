// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
)

func TestConsistencyProofs(t *testing.T) {
	m := newTestRange(t)
	roots := appendN(t, m, 20)

	for a := 1; a <= 20; a++ {
		for b := a; b <= 20; b++ {
			proof, err := m.GenConsistencyProof(uint64(a), uint64(b))
			require.NoError(t, err)

			err = VerifyConsistency(testHasher, roots[a-1], roots[b-1], proof)
			assert.NoError(t, err, "a=%d b=%d", a, b)
		}
	}
}

func TestConsistencyRejectsForeignRoot(t *testing.T) {
	m := newTestRange(t)
	roots := appendN(t, m, 12)

	other := newTestRange(t)
	for i := 0; i < 5; i++ {
		_, _, err := other.Append([]byte{byte(i)})
		require.NoError(t, err)
	}
	foreign, err := other.Root()
	require.NoError(t, err)

	proof, err := m.GenConsistencyProof(5, 12)
	require.NoError(t, err)

	err = VerifyConsistency(testHasher, foreign, roots[11], proof)
	assert.True(t, errors.Is(err, ErrProofMismatch))

	err = VerifyConsistency(testHasher, roots[4], roots[10], proof)
	assert.True(t, errors.Is(err, ErrProofMismatch))
}

func TestConsistencyTamper(t *testing.T) {
	m := newTestRange(t)
	roots := appendN(t, m, 13)
	rootA, rootB := roots[5], roots[12]

	proof, err := m.GenConsistencyProof(6, 13)
	require.NoError(t, err)
	require.NoError(t, VerifyConsistency(testHasher, rootA, rootB, proof))

	clone := func() *ConsistencyProof {
		c := *proof
		c.PeaksA = append([]chainhash.Hash(nil), proof.PeaksA...)
		c.PeaksB = append([]chainhash.Hash(nil), proof.PeaksB...)
		c.Paths = make([][]chainhash.Hash, len(proof.Paths))
		for i := range proof.Paths {
			c.Paths[i] = append([]chainhash.Hash(nil), proof.Paths[i]...)
		}
		return &c
	}

	tests := []struct {
		name    string
		mutate  func(p *ConsistencyProof)
		wantErr error
	}{
		{name: "path node", wantErr: ErrProofMismatch, mutate: func(p *ConsistencyProof) { p.Paths[0][0][3] ^= 1 }},
		{name: "peak of A", wantErr: ErrProofMismatch, mutate: func(p *ConsistencyProof) { p.PeaksA[1][0] ^= 1 }},
		{name: "peak of B", wantErr: ErrProofMismatch, mutate: func(p *ConsistencyProof) { p.PeaksB[0][0] ^= 1 }},
		{name: "dropped path", wantErr: ErrMalformedProof, mutate: func(p *ConsistencyProof) { p.Paths = p.Paths[:1] }},
		{name: "short path", wantErr: ErrMalformedProof, mutate: func(p *ConsistencyProof) { p.Paths[1] = p.Paths[1][:0] }},
		{name: "swapped sizes", wantErr: ErrMalformedProof, mutate: func(p *ConsistencyProof) { p.SizeA, p.SizeB = p.SizeB, p.SizeA }},
		{name: "zero size", wantErr: ErrMalformedProof, mutate: func(p *ConsistencyProof) { p.SizeA = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forged := clone()
			tt.mutate(forged)
			err := VerifyConsistency(testHasher, rootA, rootB, forged)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	assert.True(t, errors.Is(VerifyConsistency(testHasher, rootA, rootB, nil), ErrMalformedProof))
}

func TestGenConsistencyProofErrors(t *testing.T) {
	m := newTestRange(t)

	_, err := m.GenConsistencyProof(1, 1)
	assert.True(t, errors.Is(err, ErrEmptyStructure))

	appendN(t, m, 4)

	_, err = m.GenConsistencyProof(3, 2)
	assert.True(t, errors.Is(err, ErrSizeOutOfRange))

	_, err = m.GenConsistencyProof(2, 5)
	assert.True(t, errors.Is(err, ErrSizeOutOfRange))

	_, err = m.GenConsistencyProof(0, 4)
	assert.True(t, errors.Is(err, ErrEmptyStructure))
}

func TestConsistencyEncoding(t *testing.T) {
	m := newTestRange(t)
	roots := appendN(t, m, 9)

	proof, err := m.GenConsistencyProof(3, 9)
	require.NoError(t, err)

	data, err := proof.MarshalBinary()
	require.NoError(t, err)

	decoded := new(ConsistencyProof)
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, proof, decoded)
	assert.NoError(t, VerifyConsistency(testHasher, roots[2], roots[8], decoded))

	assert.True(t, errors.Is(decoded.UnmarshalBinary([]byte("not cbor")), ErrMalformedProof))
}
