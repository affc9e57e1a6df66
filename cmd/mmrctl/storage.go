// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// HeaderRow is one line of a header import file.
type HeaderRow struct {
	Number uint64 `csv:"number"`
	Hash   string `csv:"hash"`
	RLP    string `csv:"rlp"`
}

// Data decodes the hex-encoded RLP header.
func (row *HeaderRow) Data() ([]byte, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(row.RLP, "0x"))
	if err != nil {
		return nil, errors.Wrapf(err, "header %d", row.Number)
	}
	return data, nil
}

// RootRow is one line of a root export file.
type RootRow struct {
	Size uint64 `csv:"size"`
	Root string `csv:"root"`
}

// CSVStorage reads and writes CSV files of headers and roots.
type CSVStorage struct {
	path string
	file *os.File
}

func NewCSVStorage(path string) *CSVStorage {
	return &CSVStorage{path: path}
}

func (storage *CSVStorage) open(readOnly, truncate bool) error {
	mode := os.O_RDWR | os.O_CREATE
	if truncate {
		mode |= os.O_TRUNC
	}

	if readOnly {
		mode = os.O_RDONLY
	}

	file, err := os.OpenFile(storage.path, mode, 0o644)
	storage.file = file
	return err
}

func (storage *CSVStorage) Close() {
	if storage.file != nil {
		_ = storage.file.Close()
		storage.file = nil
	}
}

// FetchHeaders reads every header row of the file.
func (storage *CSVStorage) FetchHeaders() ([]HeaderRow, error) {
	if err := storage.open(true, false); err != nil {
		return nil, err
	}
	defer storage.Close()

	rows := make([]HeaderRow, 0)
	err := gocsv.UnmarshalFile(storage.file, &rows)
	return rows, err
}

// SaveHeaders replaces the file with the header rows.
func (storage *CSVStorage) SaveHeaders(rows []HeaderRow) error {
	if err := storage.open(false, true); err != nil {
		return err
	}
	defer storage.Close()

	return gocsv.MarshalFile(&rows, storage.file)
}

// FetchRoots reads every root row of the file.
func (storage *CSVStorage) FetchRoots() ([]RootRow, error) {
	if err := storage.open(true, false); err != nil {
		return nil, err
	}
	defer storage.Close()

	rows := make([]RootRow, 0)
	err := gocsv.UnmarshalFile(storage.file, &rows)
	return rows, err
}

// SaveRoots replaces the file with the root rows.
func (storage *CSVStorage) SaveRoots(rows []RootRow) error {
	if err := storage.open(false, true); err != nil {
		return err
	}
	defer storage.Close()

	return gocsv.MarshalFile(&rows, storage.file)
}
