// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the 32-byte node type of the header MMR and
// the hash primitive used to produce it.
//
// A Hasher is any constructor of a hash.Hash with a 32-byte digest. Leaves
// are the plain digest of the raw header bytes, parents are the digest of
// the two child nodes concatenated left then right:
//
//	leaf   = H(header)
//	parent = H(left || right)
//
// No domain tag or length prefix is added, so roots computed here match
// any other implementation using the same digest.
package chainhash
