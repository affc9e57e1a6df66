// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

// Tx is a view of the key-value store inside View or Update.
type Tx interface {
	// Get returns a copy of the value for the key.
	// Absent keys give an Error with ErrKeyNotFound.
	Get(key []byte) ([]byte, error)

	// Put stores the value. Fails with ErrTxNotWritable in View.
	Put(key, value []byte) error

	// ForEach calls fn for every key with the prefix in ascending key order.
	// Returning an error from fn stops the iteration.
	ForEach(prefix []byte, fn func(k, v []byte) error) error

	Writable() bool
}

// DB is a transactional key-value store.
type DB interface {
	// Type returns the database driver type the current database instance
	// was created with.
	Type() string

	// View invokes fn in a read-only transaction.
	View(fn func(tx Tx) error) error

	// Update invokes fn in a read-write transaction. The writes are
	// committed atomically when fn returns nil and dropped otherwise.
	Update(fn func(tx Tx) error) error

	// Close cleanly shuts down the database.
	Close() error
}
