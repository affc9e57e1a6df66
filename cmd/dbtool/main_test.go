// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/jaxnet/headermmr/database"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

// seedRange stores n headers in a leveldb range under dir and returns its root.
func seedRange(t *testing.T, dir string, n int) chainhash.Hash {
	db, err := database.Create("leveldb", filepath.Join(dir, "mmr_leveldb"))
	require.NoError(t, err)
	defer db.Close()

	m, err := mmr.New(chainhash.DefaultHasher(), db)
	require.NoError(t, err)

	var root chainhash.Hash
	for i := 0; i < n; i++ {
		_, root, err = m.Append([]byte(fmt.Sprintf("rlp_header_%d", i)))
		require.NoError(t, err)
	}
	return root
}

func runTool(t *testing.T, dir string, args ...string) (string, error) {
	var buf bytes.Buffer
	out = &buf
	t.Cleanup(func() { out = os.Stdout })

	base := []string{"--datadir", dir, "--dbtype", "leveldb", "--debuglevel", "error"}
	err := realMain(append(base, args...))
	return buf.String(), err
}

func tempDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "dbtool")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestInspect(t *testing.T) {
	dir := tempDir(t)
	root := seedRange(t, dir, 13)

	output, err := runTool(t, dir, "inspect", "--nodes")
	require.NoError(t, err)
	assert.Contains(t, output, "size:    13")
	assert.Contains(t, output, root.String())
	assert.Contains(t, output, "height 0: 13 nodes")
	assert.Contains(t, output, "height 3: 1 nodes")
	assert.Contains(t, output, "peak 2:  0:12")
}

func TestCopyAndCheck(t *testing.T) {
	dir := tempDir(t)
	root := seedRange(t, dir, 21)

	output, err := runTool(t, dir, "copy", "--dstdbtype", "badger")
	require.NoError(t, err)
	assert.Contains(t, output, "copied 21 leaves")

	output, err = runTool(t, dir, "check")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ok 21 %s\n", root), output)

	db, err := database.Open("badger", filepath.Join(dir, "mmr_badger"))
	require.NoError(t, err)
	defer db.Close()
	copied, err := mmr.New(chainhash.DefaultHasher(), db)
	require.NoError(t, err)
	got, err := copied.Root()
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestCommandErrors(t *testing.T) {
	dir := tempDir(t)

	_, err := runTool(t, dir, "inspect")
	assert.True(t, database.IsErrorCode(err, database.ErrDbDoesNotExist), "got %v", err)

	seedRange(t, dir, 2)
	_, err = runTool(t, dir, "copy", "--dstdbtype", "leveldb")
	assert.Error(t, err)

	_, err = runTool(t, dir, "--hasher", "keccak256", "check")
	assert.True(t, errors.Is(err, mmr.ErrHasherMismatch), "got %v", err)
}
