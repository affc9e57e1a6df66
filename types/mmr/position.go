// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"fmt"
	"math/bits"
)

// Position addresses a node of the range.
// Leaves are on the Zero height.
type Position struct {
	Height uint8
	Index  uint64
}

// LeafPosition returns the position of the leaf with the given index.
func LeafPosition(index uint64) Position { return Position{Index: index} }

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Height, p.Index) }

// Sibling returns the other child of the same parent.
func (p Position) Sibling() Position { return Position{Height: p.Height, Index: p.Index ^ 1} }

// Parent returns the node one level up.
func (p Position) Parent() Position { return Position{Height: p.Height + 1, Index: p.Index >> 1} }

// IsRight checks if current node is right side sibling.
func (p Position) IsRight() bool { return p.Index&1 == 1 }

// FirstLeaf returns the index of the left-most leaf under the node.
func (p Position) FirstLeaf() uint64 { return p.Index << p.Height }

// LeafCount returns the number of leaves under the node.
func (p Position) LeafCount() uint64 { return 1 << p.Height }

// CompleteIn reports whether the node is already built in a range of size leaves.
func (p Position) CompleteIn(size uint64) bool {
	return p.FirstLeaf()+p.LeafCount() <= size
}

// Ancestor returns the node height levels above.
func (p Position) Ancestor(height uint8) Position {
	if height <= p.Height {
		return p
	}
	return Position{Height: height, Index: p.Index >> (height - p.Height)}
}

// PeakPositions returns the mountain tops of a range with size leaves,
// left-to-right with strictly decreasing heights.
func PeakPositions(size uint64) []Position {
	peaks := make([]Position, 0, bits.OnesCount64(size))

	var start uint64
	for h := 63; h >= 0; h-- {
		width := uint64(1) << uint(h)
		if size&width == 0 {
			continue
		}
		peaks = append(peaks, Position{Height: uint8(h), Index: start >> uint(h)})
		start += width
	}
	return peaks
}

// mountainOf finds the peak whose subtree holds the node.
func mountainOf(p Position, peaks []Position) (int, bool) {
	for i, peak := range peaks {
		if peak.Height < p.Height {
			continue
		}
		if p.Ancestor(peak.Height) == peak {
			return i, true
		}
	}
	return 0, false
}
