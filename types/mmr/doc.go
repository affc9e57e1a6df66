// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mmr provides an append-only Merkle Mountain Range over Ethereum
// block headers.
//
// Every header is an opaque byte string. Its leaf is H(header), a parent is
// H(left || right). The range is a forest of perfect binary trees whose
// heights follow the bits of the leaf count: bit i set means a mountain of
// height i exists. Appending a leaf is incrementing a binary counter, equal
// height peaks fold into their parent like carries.
//
// Nodes are addressed by Position{Height, Index}: the Index-th node of level
// Height, so leaf i is {0, i} and its parent is {1, i/2}.
//
// The root bags the peaks from the right, keeping positional order:
//
//	root = P0 + (P1 + ( ... + (Pk-2 + Pk-1)))
//	where  a + b = H(a || b)
//
// A single peak is the root itself.
//
// Tree Topology:
//
// For 1 leaf:
//
//	0: root = leaf0
//
// For 3 leaves:
//
//	1:      node01            root = node01 + leaf2
//	       /      \
//	0:  leaf0    leaf1    leaf2
//
// For 7 leaves:
//
//	2:          node0123
//	           /        \
//	1:    node01        node23        node45
//	      /    \        /    \        /    \
//	0: leaf0 leaf1  leaf2 leaf3  leaf4 leaf5  leaf6
//
//	root = node0123 + (node45 + leaf6)
//
// Proofs carry the siblings from the leaf up to its peak (bottom-up) and the
// other peaks left-to-right, so any size reached in the past can be proven
// against its own root.
package mmr
