// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memdb registers the "memdb" driver: a process-local map that is
// lost on Close. It backs unit tests and dry runs.
package memdb

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"gitlab.com/jaxnet/headermmr/database"
)

const dbType = "memdb"

type memDB struct {
	sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New returns an empty in-memory database.
func New() database.DB {
	return &memDB{data: make(map[string][]byte)}
}

func (db *memDB) Type() string { return dbType }

func (db *memDB) View(fn func(tx database.Tx) error) error {
	db.RLock()
	defer db.RUnlock()
	if db.closed {
		return database.MakeError(database.ErrDbNotOpen, "database is closed", nil)
	}

	return fn(&tx{db: db})
}

func (db *memDB) Update(fn func(tx database.Tx) error) error {
	db.Lock()
	defer db.Unlock()
	if db.closed {
		return database.MakeError(database.ErrDbNotOpen, "database is closed", nil)
	}

	t := &tx{db: db, writes: make(database.WriteSet)}
	if err := fn(t); err != nil {
		return err
	}

	for k, v := range t.writes {
		db.data[k] = v
	}
	return nil
}

func (db *memDB) Close() error {
	db.Lock()
	db.closed = true
	db.data = nil
	db.Unlock()
	return nil
}

type tx struct {
	db     *memDB
	writes database.WriteSet
}

func (t *tx) Writable() bool { return t.writes != nil }

func (t *tx) Get(key []byte) ([]byte, error) {
	if t.writes != nil {
		if v, ok := t.writes.Get(key); ok {
			return v, nil
		}
	}

	v, ok := t.db.data[string(key)]
	if !ok {
		return nil, database.MakeError(database.ErrKeyNotFound, fmt.Sprintf("key %x not found", key), nil)
	}
	return append([]byte(nil), v...), nil
}

func (t *tx) Put(key, value []byte) error {
	if t.writes == nil {
		return database.MakeError(database.ErrTxNotWritable, "put in read-only transaction", nil)
	}
	t.writes.Put(key, value)
	return nil
}

func (t *tx) ForEach(prefix []byte, fn func(k, v []byte) error) error {
	committed := func(fn func(k, v []byte) error) error {
		keys := make([]string, 0, len(t.db.data))
		for k := range t.db.data {
			if bytes.HasPrefix([]byte(k), prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		for _, k := range keys {
			if err := fn([]byte(k), t.db.data[k]); err != nil {
				return err
			}
		}
		return nil
	}

	if t.writes == nil {
		return committed(fn)
	}
	return t.writes.ForEach(prefix, committed, fn)
}

func open(args ...interface{}) (database.DB, error) {
	return New(), nil
}

func init() {
	driver := database.Driver{
		DbType: dbType,
		Create: open,
		Open:   open,
	}
	if err := database.RegisterDriver(driver); err != nil {
		panic(fmt.Sprintf("Failed to regiser database driver '%s': %v",
			dbType, err))
	}
}
