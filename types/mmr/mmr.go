// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"sync"

	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headermmr/database"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
)

// copyBatchSize bounds the number of puts per transaction in Copy.
const copyBatchSize = 1024

type peak struct {
	pos  Position
	hash chainhash.Hash
}

// MountainRange is an append-only MMR persisted in a database.DB.
// Appends are serialised by the write lock, readers share the read lock.
// Nodes never change once written, so proofs for older sizes stay valid.
type MountainRange struct {
	sync.RWMutex
	hasher chainhash.Hasher
	db     database.DB

	size uint64
	// peaks is the height-indexed stack of mountain tops, left-to-right.
	peaks []peak
}

// New opens the mountain range kept in db or starts an empty one.
func New(hasher chainhash.Hasher, db database.DB) (*MountainRange, error) {
	if err := hasher.Validate(); err != nil {
		return nil, err
	}

	m := &MountainRange{hasher: hasher, db: db}
	fingerprint := hasher.Sum(nil)

	err := db.Update(func(tx database.Tx) error {
		stored, err := tx.Get(hasherKey)
		switch {
		case database.IsNotFound(err):
			if err := tx.Put(hasherKey, fingerprint[:]); err != nil {
				return err
			}
		case err != nil:
			return err
		case string(stored) != string(fingerprint[:]):
			return ErrHasherMismatch
		}

		if m.size, err = getSize(tx); err != nil {
			return err
		}

		for _, pos := range PeakPositions(m.size) {
			h, err := getNode(tx, pos)
			if err != nil {
				return err
			}
			m.peaks = append(m.peaks, peak{pos: pos, hash: h})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to load mountain range")
	}

	log.Debug().Uint64("size", m.size).Int("peaks", len(m.peaks)).
		Str("db", db.Type()).Msg("Mountain range loaded")
	return m, nil
}

// Hasher returns the hash primitive of the range.
func (m *MountainRange) Hasher() chainhash.Hasher { return m.hasher }

// Size returns the number of appended leaves.
func (m *MountainRange) Size() uint64 {
	m.RLock()
	defer m.RUnlock()
	return m.size
}

// Peaks returns the current mountain tops, left-to-right.
func (m *MountainRange) Peaks() []chainhash.Hash {
	m.RLock()
	defer m.RUnlock()
	return m.peakHashes()
}

func (m *MountainRange) peakHashes() []chainhash.Hash {
	res := make([]chainhash.Hash, len(m.peaks))
	for i := range m.peaks {
		res[i] = m.peaks[i].hash
	}
	return res
}

// Append hashes leafData into the next leaf and folds equal-height peaks
// until the heights are strictly decreasing again.
// Algorithm:
//  1. node = H(leafData) at {0, size}
//  2. While the last peak has node's height: node = H(peak || node), pop peak.
//  3. Push node, bag the peaks into the new root.
func (m *MountainRange) Append(leafData []byte) (uint64, chainhash.Hash, error) {
	return m.AppendHash(m.hasher.Sum(leafData))
}

// AppendHash appends a leaf that is already hashed, like the leaves read
// back from another store.
func (m *MountainRange) AppendHash(leaf chainhash.Hash) (uint64, chainhash.Hash, error) {
	m.Lock()
	defer m.Unlock()

	leafIndex := m.size

	peaks := make([]peak, len(m.peaks), len(m.peaks)+1)
	copy(peaks, m.peaks)

	var root chainhash.Hash
	err := m.db.Update(func(tx database.Tx) error {
		node := peak{pos: LeafPosition(leafIndex), hash: leaf}
		if err := putNode(tx, node.pos, node.hash); err != nil {
			return err
		}

		for len(peaks) > 0 && peaks[len(peaks)-1].pos.Height == node.pos.Height {
			left := peaks[len(peaks)-1]
			peaks = peaks[:len(peaks)-1]

			node = peak{pos: node.pos.Parent(), hash: m.hasher.Merge(left.hash, node.hash)}
			if err := putNode(tx, node.pos, node.hash); err != nil {
				return err
			}
		}
		peaks = append(peaks, node)

		hashes := make([]chainhash.Hash, len(peaks))
		for i := range peaks {
			hashes[i] = peaks[i].hash
		}
		root = bagPeaks(m.hasher, hashes)

		if err := putUint64(tx, sizeKey, leafIndex+1); err != nil {
			return err
		}
		if err := putIndexOnce(tx, getHashIndexKey(leafHashKeyID, leaf), leafIndex); err != nil {
			return err
		}
		return putIndexOnce(tx, getHashIndexKey(rootHashKeyID, root), leafIndex+1)
	})
	if err != nil {
		return m.size, chainhash.Hash{}, errors.Wrapf(err, "unable to append leaf %d", leafIndex)
	}

	m.size = leafIndex + 1
	m.peaks = peaks

	log.Trace().Uint64("size", m.size).Str("leaf", leaf.String()).Str("root", root.String()).
		Int("peaks", len(peaks)).Msg("Leaf appended")
	return m.size, root, nil
}

// putIndexOnce keeps the first position of a repeated hash.
func putIndexOnce(tx database.Tx, key keyType, value uint64) error {
	_, found, err := getUint64(tx, key)
	if err != nil || found {
		return err
	}
	return putUint64(tx, key, value)
}

// Root returns the bagged peaks of the current range.
func (m *MountainRange) Root() (chainhash.Hash, error) {
	m.RLock()
	defer m.RUnlock()

	if m.size == 0 {
		return chainhash.Hash{}, ErrEmptyStructure
	}
	return bagPeaks(m.hasher, m.peakHashes()), nil
}

// RootAt returns the root the range had when it held size leaves.
func (m *MountainRange) RootAt(size uint64) (root chainhash.Hash, err error) {
	m.RLock()
	defer m.RUnlock()

	if err = m.checkSize(size); err != nil {
		return root, err
	}
	if size == m.size {
		return bagPeaks(m.hasher, m.peakHashes()), nil
	}

	err = m.db.View(func(tx database.Tx) error {
		peaks, err := getPeaks(tx, size)
		if err != nil {
			return err
		}
		root = bagPeaks(m.hasher, peaks)
		return nil
	})
	return root, err
}

// PeaksAt returns the mountain tops of a past size.
func (m *MountainRange) PeaksAt(size uint64) (peaks []chainhash.Hash, err error) {
	m.RLock()
	defer m.RUnlock()

	if err = m.checkSize(size); err != nil {
		return nil, err
	}
	err = m.db.View(func(tx database.Tx) error {
		peaks, err = getPeaks(tx, size)
		return err
	})
	return peaks, err
}

func (m *MountainRange) checkSize(size uint64) error {
	if m.size == 0 || size == 0 {
		return ErrEmptyStructure
	}
	if size > m.size {
		return errors.Wrapf(ErrSizeOutOfRange, "size %d, current %d", size, m.size)
	}
	return nil
}

// Node returns a stored node. Positions not built yet give ErrNodeNotFound.
func (m *MountainRange) Node(pos Position) (node chainhash.Hash, err error) {
	m.RLock()
	defer m.RUnlock()

	if !pos.CompleteIn(m.size) {
		return node, errors.Wrapf(ErrNodeNotFound, "position %s", pos)
	}
	err = m.db.View(func(tx database.Tx) error {
		node, err = getNode(tx, pos)
		return err
	})
	return node, err
}

// LeafIndexOf returns the first leaf index holding leafHash.
func (m *MountainRange) LeafIndexOf(leafHash chainhash.Hash) (uint64, error) {
	return m.lookup(getHashIndexKey(leafHashKeyID, leafHash), "leaf")
}

// SizeOfRoot returns the first size at which the range had this root.
func (m *MountainRange) SizeOfRoot(root chainhash.Hash) (uint64, error) {
	return m.lookup(getHashIndexKey(rootHashKeyID, root), "root")
}

func (m *MountainRange) lookup(key keyType, kind string) (value uint64, err error) {
	var found bool
	err = m.db.View(func(tx database.Tx) error {
		value, found, err = getUint64(tx, key)
		return err
	})
	if err == nil && !found {
		err = errors.Wrapf(ErrNodeNotFound, "%s %x", kind, []byte(key[1:]))
	}
	return value, err
}

// Roots calls fn with the root of every size in [from, to].
func (m *MountainRange) Roots(from, to uint64, fn func(size uint64, root chainhash.Hash) error) error {
	m.RLock()
	defer m.RUnlock()

	if from == 0 {
		from = 1
	}
	if err := m.checkSize(to); err != nil {
		return err
	}

	return m.db.View(func(tx database.Tx) error {
		for size := from; size <= to; size++ {
			peaks, err := getPeaks(tx, size)
			if err != nil {
				return err
			}
			if err = fn(size, bagPeaks(m.hasher, peaks)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats reports the leaf and peak counts.
func (m *MountainRange) Stats() map[string]float64 {
	m.RLock()
	defer m.RUnlock()

	return map[string]float64{
		"leaves": float64(m.size),
		"peaks":  float64(len(m.peaks)),
	}
}

// ForEachNode walks the stored nodes level by level, left to right.
func (m *MountainRange) ForEachNode(fn func(pos Position, node chainhash.Hash) error) error {
	m.RLock()
	defer m.RUnlock()

	return m.db.View(func(tx database.Tx) error {
		return tx.ForEach(nodePrefix, func(k, v []byte) error {
			pos, ok := parseNodeKey(k)
			if !ok || len(v) != chainhash.HashSize {
				return errors.Wrapf(ErrNodeNotFound, "corrupt node entry %x", k)
			}
			var node chainhash.Hash
			copy(node[:], v)
			return fn(pos, node)
		})
	})
}

// Copy replicates every node and index entry into dst and opens it.
func (m *MountainRange) Copy(dst database.DB) (*MountainRange, error) {
	m.RLock()

	type kv struct{ k, v []byte }
	batch := make([]kv, 0, copyBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := dst.Update(func(tx database.Tx) error {
			for _, item := range batch {
				if err := tx.Put(item.k, item.v); err != nil {
					return err
				}
			}
			return nil
		})
		batch = batch[:0]
		return err
	}

	err := m.db.View(func(tx database.Tx) error {
		err := tx.ForEach(nil, func(k, v []byte) error {
			batch = append(batch, kv{
				k: append([]byte(nil), k...),
				v: append([]byte(nil), v...),
			})
			if len(batch) < copyBatchSize {
				return nil
			}
			return flush()
		})
		if err != nil {
			return err
		}
		return flush()
	})
	m.RUnlock()
	if err != nil {
		return nil, errors.Wrap(err, "unable to copy mountain range")
	}

	return New(m.hasher, dst)
}

// bagPeaks folds the peaks from the right: P0 + (P1 + (... + Pk-1)).
func bagPeaks(hasher chainhash.Hasher, peaks []chainhash.Hash) chainhash.Hash {
	if len(peaks) == 0 {
		return chainhash.Hash{}
	}

	root := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		root = hasher.Merge(peaks[i], root)
	}
	return root
}

// BagPeaks exposes the root convention for verifiers that hold peaks only.
func BagPeaks(hasher chainhash.Hasher, peaks []chainhash.Hash) (chainhash.Hash, error) {
	if len(peaks) == 0 {
		return chainhash.Hash{}, ErrEmptyStructure
	}
	return bagPeaks(hasher, peaks), nil
}
