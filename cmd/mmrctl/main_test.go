// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/headermmr/database/memdb"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

func init() {
	cli.OsExiter = func(int) {}
}

type testEnv struct {
	t       *testing.T
	dir     string
	headers [][]byte
	local   *mmr.MountainRange
}

func newTestEnv(t *testing.T, n int) *testEnv {
	dir, err := os.MkdirTemp("", "mmrctl")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	local, err := mmr.New(chainhash.DefaultHasher(), memdb.New())
	require.NoError(t, err)

	env := &testEnv{t: t, dir: dir, local: local}
	for i := 0; i < n; i++ {
		header := []byte(fmt.Sprintf("rlp_header_%d", i))
		env.headers = append(env.headers, header)
		_, _, err := local.Append(header)
		require.NoError(t, err)
	}
	return env
}

func (env *testEnv) run(args ...string) (string, error) {
	var out bytes.Buffer
	app := (&App{}).cliApp()
	app.Writer = &out
	app.ErrWriter = &out

	base := []string{"mmrctl", "--datadir", env.dir, "--dbtype", "leveldb", "--debuglevel", "error"}
	err := app.Run(append(base, args...))
	return strings.TrimSpace(out.String()), err
}

func (env *testEnv) mustRun(args ...string) string {
	out, err := env.run(args...)
	require.NoError(env.t, err, out)
	return out
}

func (env *testEnv) writeHeaders(name string) string {
	hasher := chainhash.DefaultHasher()
	rows := make([]HeaderRow, 0, len(env.headers))
	for i, header := range env.headers {
		rows = append(rows, HeaderRow{
			Number: uint64(i),
			Hash:   hasher.Sum(header).String(),
			RLP:    "0x" + hex.EncodeToString(header),
		})
	}
	path := filepath.Join(env.dir, name)
	require.NoError(env.t, NewCSVStorage(path).SaveHeaders(rows))
	return path
}

func TestImportAndProve(t *testing.T) {
	env := newTestEnv(t, 10)
	want, err := env.local.Root()
	require.NoError(t, err)

	out := env.mustRun("import", "--file", env.writeHeaders("headers.csv"))
	assert.Equal(t, fmt.Sprintf("10 %s", want), out)

	assert.Equal(t, fmt.Sprintf("10 %s", want), env.mustRun("root"))

	past, err := env.local.RootAt(4)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("4 %s", past), env.mustRun("root", "--size", "4"))

	for _, format := range []string{formatCBOR, formatJSON} {
		proof := env.mustRun("proof", "--leaf", "3", "--format", format)
		out = env.mustRun("verify", "--root", want.String(), "--leaf", "3",
			"--proof", proof, "--format", format, hex.EncodeToString(env.headers[3]))
		assert.Equal(t, "valid", out)

		_, err = env.run("verify", "--root", want.String(), "--leaf", "3",
			"--proof", proof, "--format", format, hex.EncodeToString(env.headers[4]))
		require.Error(t, err)
		exitErr, ok := err.(cli.ExitCoder)
		require.True(t, ok)
		assert.Equal(t, 2, exitErr.ExitCode())
	}

	proof := env.mustRun("proof", "--leaf", "2", "--size", "5")
	out = env.mustRun("verify", "--root", past.String(), "--leaf", "2", "--proof", proof,
		hex.EncodeToString(env.headers[2]))
	assert.Equal(t, "valid", out)
}

func TestImportRejectsGaps(t *testing.T) {
	env := newTestEnv(t, 3)
	path := filepath.Join(env.dir, "gap.csv")
	require.NoError(t, NewCSVStorage(path).SaveHeaders([]HeaderRow{
		{Number: 0, RLP: hex.EncodeToString(env.headers[0])},
		{Number: 2, RLP: hex.EncodeToString(env.headers[2])},
	}))

	_, err := env.run("import", "--file", path)
	assert.Error(t, err)

	// the first row was stored before the gap
	assert.Contains(t, env.mustRun("root"), "1 ")
}

func TestAppendExportAndPeaks(t *testing.T) {
	env := newTestEnv(t, 7)

	args := []string{"append"}
	for _, header := range env.headers {
		args = append(args, hex.EncodeToString(header))
	}
	lines := strings.Split(env.mustRun(args...), "\n")
	require.Len(t, lines, 7)

	path := filepath.Join(env.dir, "roots.csv")
	env.mustRun("export", "--file", path)

	rows, err := NewCSVStorage(path).FetchRoots()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	for i, row := range rows {
		root, err := env.local.RootAt(uint64(i + 1))
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), row.Size)
		assert.Equal(t, root.String(), row.Root)
		assert.Equal(t, fmt.Sprintf("%d %s", i+1, root), lines[i])
	}

	out := env.mustRun("peaks")
	for _, peak := range env.local.Peaks() {
		assert.Contains(t, out, peak.String())
	}

	out = env.mustRun("consistency", "--from", "3")
	data, err := hex.DecodeString(out)
	require.NoError(t, err)
	proof := new(mmr.ConsistencyProof)
	require.NoError(t, proof.UnmarshalBinary(data))
	assert.Equal(t, uint64(3), proof.SizeA)
	assert.Equal(t, uint64(7), proof.SizeB)
}

func TestBadGlobalFlags(t *testing.T) {
	env := newTestEnv(t, 0)

	_, err := env.run("--hasher", "md5", "root")
	assert.Error(t, err)

	_, err = env.run("root")
	assert.Error(t, err, "empty range has no root")
}

func TestRelayGame(t *testing.T) {
	env := newTestEnv(t, 8)
	args := []string{"append"}
	for _, header := range env.headers {
		args = append(args, hex.EncodeToString(header))
	}
	env.mustRun(args...)

	cfgPath := filepath.Join(env.dir, "relay.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("relay:\n  response_window: 2m\n  challenge_window: 30m\n"), 0o600))
	relayRun := func(args ...string) (string, error) {
		return env.run(append([]string{"--config", cfgPath, "relay"}, args...)...)
	}
	mustRelay := func(args ...string) string {
		out, err := relayRun(args...)
		require.NoError(t, err, out)
		return out
	}

	honest := mustRelay("affirm", "--relayer", "alice", "--at", "2020-09-01T00:00:00Z")
	forgedRoot := chainhash.DefaultHasher().Sum([]byte("forged"))
	forged := mustRelay("affirm", "--relayer", "mallory", "--size", "8",
		"--root", forgedRoot.String(), "--at", "2020-09-01T00:00:00Z")

	// nothing is final inside the challenge window
	_, err := relayRun("finalize", "--claim", forged, "--at", "2020-09-01T00:29:00Z")
	assert.Error(t, err)

	deadline := mustRelay("challenge", "--claim", honest, "--challenger", "bob",
		"--leaf", "3", "--at", "2020-09-01T00:01:00Z")
	assert.Equal(t, "2020-09-01T00:03:00Z", deadline)
	mustRelay("challenge", "--claim", forged, "--challenger", "bob",
		"--leaf", "5", "--at", "2020-09-01T00:01:00Z")

	// only the claim's relayer can answer
	_, err = relayRun("respond", "--claim", honest, "--relayer", "mallory", "--leaf", "3", "00")
	assert.Error(t, err)
	assert.Contains(t, mustRelay("status"), "pending")

	out := mustRelay("respond", "--claim", honest, "--relayer", "alice", "--leaf", "3",
		hex.EncodeToString(env.headers[3]))
	assert.Equal(t, "pending", out)

	assert.Equal(t, forged, mustRelay("advance", "--at", "2020-09-01T00:04:00Z"))

	root, err := env.local.RootAt(8)
	require.NoError(t, err)
	out = mustRelay("finalize", "--claim", honest, "--at", "2020-09-01T00:31:00Z")
	assert.Equal(t, fmt.Sprintf("8 %s", root), out)

	status := mustRelay("status")
	assert.Contains(t, status, "confirmed")
	assert.Contains(t, status, "rejected")
	assert.Contains(t, status, "timed out")
}
