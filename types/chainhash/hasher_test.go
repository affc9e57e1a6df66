// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherVectors(t *testing.T) {
	tests := []struct {
		name  string
		empty string
	}{
		{name: Blake2b256, empty: "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
		{name: Keccak256, empty: "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{name: Sha256, empty: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{name: Blake3, empty: "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasher, err := HasherByName(tt.name)
			require.NoError(t, err)
			require.NoError(t, hasher.Validate())

			assert.Equal(t, tt.empty, hasher.Sum(nil).String())
			assert.Equal(t, hasher.Sum([]byte("header")), hasher.Sum([]byte("header")))
		})
	}
}

func TestUnknownHasher(t *testing.T) {
	_, err := HasherByName("md5")
	assert.True(t, errors.Is(err, ErrUnknownHasher))
	assert.Equal(t, []string{Blake2b256, Blake3, Keccak256, Sha256}, SupportedHashers())
}

func TestMergeIsConcatenation(t *testing.T) {
	hasher := DefaultHasher()
	left := hasher.Sum([]byte("left"))
	right := hasher.Sum([]byte("right"))

	concat := append(left.CloneBytes(), right[:]...)
	assert.Equal(t, hasher.Sum(concat), hasher.Merge(left, right))
}

func TestMergeOrderSensitive(t *testing.T) {
	for _, name := range SupportedHashers() {
		hasher, _ := HasherByName(name)
		for i := 0; i < 16; i++ {
			a := hasher.Sum([]byte{byte(i)})
			b := hasher.Sum([]byte{byte(i), 1})
			assert.NotEqual(t, hasher.Merge(a, b), hasher.Merge(b, a), "%s: pair %d", name, i)
		}
	}
}

func TestHashFromStr(t *testing.T) {
	hasher := DefaultHasher()
	h := hasher.Sum([]byte("x"))

	parsed, err := NewHashFromStr(h.String())
	require.NoError(t, err)
	assert.True(t, parsed.IsEqual(&h))

	parsed, err = NewHashFromStr("0x" + h.String())
	require.NoError(t, err)
	assert.True(t, parsed.IsEqual(&h))

	_, err = NewHashFromStr("abcd")
	assert.Error(t, err)

	_, err = NewHashFromStr(h.String() + "00")
	assert.Equal(t, ErrHashStrSize, err)

	text, err := h.MarshalText()
	require.NoError(t, err)
	var back Hash
	require.NoError(t, back.UnmarshalText(text))
	assert.True(t, bytes.Equal(h[:], back[:]))
}
