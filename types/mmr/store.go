// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headermmr/database"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
)

type keyType []byte

const (
	metaKeyID      = 0x01
	nodeKeyID      = 0x02
	leafHashKeyID  = 0x03
	rootHashKeyID  = 0x04
	metaSizeKey    = 's'
	metaHasherKey  = 'h'
	nodeKeySize    = 1 + 1 + 8
	hashIndexSizeB = 1 + chainhash.HashSize
)

var (
	sizeKey    = keyType{metaKeyID, metaSizeKey}
	hasherKey  = keyType{metaKeyID, metaHasherKey}
	nodePrefix = keyType{nodeKeyID}
)

// getNodeKey uses big endian index so nodes of one level iterate in order.
func getNodeKey(pos Position) keyType {
	res := make([]byte, nodeKeySize)
	res[0] = nodeKeyID
	res[1] = pos.Height
	binary.BigEndian.PutUint64(res[2:], pos.Index)
	return res
}

func parseNodeKey(key []byte) (Position, bool) {
	if len(key) != nodeKeySize || key[0] != nodeKeyID {
		return Position{}, false
	}
	return Position{Height: key[1], Index: binary.BigEndian.Uint64(key[2:])}, true
}

func getHashIndexKey(prefix byte, hash chainhash.Hash) keyType {
	res := make([]byte, hashIndexSizeB)
	res[0] = prefix
	copy(res[1:], hash[:])
	return res
}

func getNode(tx database.Tx, pos Position) (chainhash.Hash, error) {
	var h chainhash.Hash
	data, err := tx.Get(getNodeKey(pos))
	if database.IsNotFound(err) {
		return h, errors.Wrapf(ErrNodeNotFound, "position %s", pos)
	}
	if err != nil {
		return h, err
	}
	if err = h.SetBytes(data); err != nil {
		return h, errors.Wrapf(err, "corrupted node %s", pos)
	}
	return h, nil
}

func putNode(tx database.Tx, pos Position, hash chainhash.Hash) error {
	return tx.Put(getNodeKey(pos), hash[:])
}

func getUint64(tx database.Tx, key keyType) (uint64, bool, error) {
	data, err := tx.Get(key)
	if database.IsNotFound(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, errors.Errorf("corrupted value under key %x", []byte(key))
	}
	return binary.BigEndian.Uint64(data), true, nil
}

func putUint64(tx database.Tx, key keyType, value uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return tx.Put(key, buf[:])
}

func getSize(tx database.Tx) (uint64, error) {
	size, _, err := getUint64(tx, sizeKey)
	return size, err
}

// getPeaks reads the tops of a range with size leaves, left-to-right.
func getPeaks(tx database.Tx, size uint64) ([]chainhash.Hash, error) {
	positions := PeakPositions(size)
	peaks := make([]chainhash.Hash, len(positions))
	for i, pos := range positions {
		h, err := getNode(tx, pos)
		if err != nil {
			return nil, err
		}
		peaks[i] = h
	}
	return peaks, nil
}
