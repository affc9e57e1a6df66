// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package badgerdb registers the "badger" driver backed by
// github.com/dgraph-io/badger.
package badgerdb

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/headermmr/corelog"
	"gitlab.com/jaxnet/headermmr/database"
)

const dbType = "badger"

var log = corelog.Disabled

type badgerDB struct {
	db *badger.DB
}

func openDB(dbPath string, create bool) (database.DB, error) {
	_, err := os.Stat(dbPath)
	exists := err == nil
	if !create && !exists {
		str := fmt.Sprintf("database %q does not exist", dbPath)
		return nil, database.MakeError(database.ErrDbDoesNotExist, str, nil)
	}
	if create && exists {
		str := fmt.Sprintf("database %q already exists", dbPath)
		return nil, database.MakeError(database.ErrDbExists, str, nil)
	}

	opts := badger.DefaultOptions(dbPath).WithLogger(corelog.BadgerLogger{Logger: log})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, database.MakeError(database.ErrDriverSpecific, "can't open badger", err)
	}

	log.Debug().Str("path", dbPath).Bool("created", create).Msg("badger database opened")
	return &badgerDB{db: db}, nil
}

func (b *badgerDB) Type() string { return dbType }

func (b *badgerDB) View(fn func(tx database.Tx) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	})
}

func (b *badgerDB) Update(fn func(tx database.Tx) error) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn, writable: true})
	})
}

func (b *badgerDB) Close() error {
	return b.db.Close()
}

type tx struct {
	txn      *badger.Txn
	writable bool
}

func (t *tx) Writable() bool { return t.writable }

func (t *tx) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, database.MakeError(database.ErrKeyNotFound, fmt.Sprintf("key %x not found", key), nil)
	}
	if err != nil {
		return nil, database.MakeError(database.ErrDriverSpecific, "badger get", err)
	}

	return item.ValueCopy(nil)
}

func (t *tx) Put(key, value []byte) error {
	if !t.writable {
		return database.MakeError(database.ErrTxNotWritable, "put in read-only transaction", nil)
	}

	// badger keeps the slices until commit
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	if err := t.txn.Set(k, v); err != nil {
		return database.MakeError(database.ErrDriverSpecific, "badger set", err)
	}
	return nil
}

func (t *tx) ForEach(prefix []byte, fn func(k, v []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 10
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.KeyCopy(nil), v); err != nil {
			return err
		}
	}
	return nil
}

func createDBDriver(args ...interface{}) (database.DB, error) {
	dbPath, err := database.ParsePathArg(dbType, "Create", args...)
	if err != nil {
		return nil, err
	}
	return openDB(dbPath, true)
}

func openDBDriver(args ...interface{}) (database.DB, error) {
	dbPath, err := database.ParsePathArg(dbType, "Open", args...)
	if err != nil {
		return nil, err
	}
	return openDB(dbPath, false)
}

// useLogger is the callback provided during driver registration that sets the
// current logger to the provided one.
func useLogger(logger zerolog.Logger) {
	log = logger
}

func init() {
	driver := database.Driver{
		DbType:    dbType,
		Create:    createDBDriver,
		Open:      openDBDriver,
		UseLogger: useLogger,
	}
	if err := database.RegisterDriver(driver); err != nil {
		panic(fmt.Sprintf("Failed to regiser database driver '%s': %v",
			dbType, err))
	}
}
