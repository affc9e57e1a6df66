// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"sort"
)

// WriteSet buffers the puts of a writable transaction for drivers that
// have no native read-your-writes transactions.
type WriteSet map[string][]byte

func (ws WriteSet) Put(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	ws[string(key)] = v
}

func (ws WriteSet) Get(key []byte) ([]byte, bool) {
	v, ok := ws[string(key)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// ForEach merges the buffered writes into the committed iteration so the
// caller sees keys in ascending order with pending values winning.
// committed must itself iterate in ascending key order.
func (ws WriteSet) ForEach(prefix []byte, committed func(fn func(k, v []byte) error) error,
	fn func(k, v []byte) error) error {
	pending := make([]string, 0, len(ws))
	for k := range ws {
		if bytes.HasPrefix([]byte(k), prefix) {
			pending = append(pending, k)
		}
	}
	sort.Strings(pending)

	err := committed(func(k, v []byte) error {
		for len(pending) > 0 && pending[0] < string(k) {
			if err := fn([]byte(pending[0]), ws[pending[0]]); err != nil {
				return err
			}
			pending = pending[1:]
		}
		if len(pending) > 0 && pending[0] == string(k) {
			v = ws[pending[0]]
			pending = pending[1:]
		}
		return fn(k, v)
	})
	if err != nil {
		return err
	}

	for _, k := range pending {
		if err := fn([]byte(k), ws[k]); err != nil {
			return err
		}
	}
	return nil
}
