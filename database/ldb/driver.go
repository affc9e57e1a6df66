// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ldb registers the "leveldb" driver backed by
// github.com/btcsuite/goleveldb. Update transactions are serialised with a
// mutex, buffered in a write set and committed as one batch.
package ldb

import (
	"fmt"
	"sync"

	"github.com/btcsuite/goleveldb/leveldb"
	ldberrors "github.com/btcsuite/goleveldb/leveldb/errors"
	"github.com/btcsuite/goleveldb/leveldb/opt"
	"github.com/btcsuite/goleveldb/leveldb/util"
	"github.com/rs/zerolog"
	"gitlab.com/jaxnet/headermmr/corelog"
	"gitlab.com/jaxnet/headermmr/database"
)

const dbType = "leveldb"

var log = corelog.Disabled

type levelDB struct {
	writeLock sync.Mutex
	ldb       *leveldb.DB
}

func openDB(dbPath string, create bool) (database.DB, error) {
	opts := opt.Options{
		ErrorIfExist:   create,
		ErrorIfMissing: !create,
		Strict:         opt.DefaultStrict,
		Compression:    opt.NoCompression,
	}

	ldb, err := leveldb.OpenFile(dbPath, &opts)
	switch {
	case err == nil:
	case !create && ldberrors.IsCorrupted(err):
		return nil, database.MakeError(database.ErrDriverSpecific, "leveldb is corrupted", err)
	case !create:
		str := fmt.Sprintf("database %q does not exist", dbPath)
		return nil, database.MakeError(database.ErrDbDoesNotExist, str, err)
	default:
		str := fmt.Sprintf("database %q already exists", dbPath)
		return nil, database.MakeError(database.ErrDbExists, str, err)
	}

	log.Debug().Str("path", dbPath).Bool("created", create).Msg("leveldb database opened")
	return &levelDB{ldb: ldb}, nil
}

func (db *levelDB) Type() string { return dbType }

func (db *levelDB) View(fn func(tx database.Tx) error) error {
	snap, err := db.ldb.GetSnapshot()
	if err != nil {
		return database.MakeError(database.ErrDriverSpecific, "leveldb snapshot", err)
	}
	defer snap.Release()

	return fn(&tx{reader: snap})
}

func (db *levelDB) Update(fn func(tx database.Tx) error) error {
	db.writeLock.Lock()
	defer db.writeLock.Unlock()

	t := &tx{reader: db.ldb, writes: make(database.WriteSet)}
	if err := fn(t); err != nil {
		return err
	}
	if len(t.writes) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)
	for k, v := range t.writes {
		batch.Put([]byte(k), v)
	}
	if err := db.ldb.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return database.MakeError(database.ErrDriverSpecific, "leveldb write", err)
	}
	return nil
}

func (db *levelDB) Close() error {
	return db.ldb.Close()
}

// reader is satisfied by both *leveldb.DB and *leveldb.Snapshot.
type reader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
}

type tx struct {
	reader reader
	writes database.WriteSet
}

func (t *tx) Writable() bool { return t.writes != nil }

func (t *tx) Get(key []byte) ([]byte, error) {
	if t.writes != nil {
		if v, ok := t.writes.Get(key); ok {
			return v, nil
		}
	}

	v, err := t.reader.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, database.MakeError(database.ErrKeyNotFound, fmt.Sprintf("key %x not found", key), nil)
	}
	if err != nil {
		return nil, database.MakeError(database.ErrDriverSpecific, "leveldb get", err)
	}
	return v, nil
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
		var it interface {
			Next() bool
			Key() []byte
			Value() []byte
			Release()
			Error() error
		}
		switch r := t.reader.(type) {
		case *leveldb.DB:
			it = r.NewIterator(util.BytesPrefix(prefix), nil)
		case *leveldb.Snapshot:
			it = r.NewIterator(util.BytesPrefix(prefix), nil)
		default:
			return database.MakeError(database.ErrInvalid, "unsupported leveldb reader", nil)
		}
		defer it.Release()

		for it.Next() {
			k := append([]byte(nil), it.Key()...)
			v := append([]byte(nil), it.Value()...)
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return it.Error()
	}

	if t.writes == nil {
		return committed(fn)
	}
	return t.writes.ForEach(prefix, committed, fn)
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
