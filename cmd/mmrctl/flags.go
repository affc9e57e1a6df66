// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
)

const (
	flagConfig     = "config"
	flagDataDir    = "datadir"
	flagDBType     = "dbtype"
	flagHasher     = "hasher"
	flagDebugLevel = "debuglevel"

	flagData   = "data"
	flagFile   = "file"
	flagLeaf   = "leaf"
	flagSize   = "size"
	flagFrom   = "from"
	flagTo     = "to"
	flagFormat = "format"
	flagRoot   = "root"
	flagProof  = "proof"
	flagPort   = "port"
	flagRoute  = "route"
)

const (
	formatCBOR = "cbor"
	formatJSON = "json"
)

var standardFlags = map[string]cli.Flag{
	flagConfig: &cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"C"},
		Usage:   "path to configuration file (.yaml, .yml or .toml)",
	},
	flagDataDir: &cli.StringFlag{
		Name:    flagDataDir,
		Aliases: []string{"b"},
		Usage:   "directory to store the mountain range",
	},
	flagDBType: &cli.StringFlag{
		Name:  flagDBType,
		Usage: "database backend {badger, leveldb, memdb}",
	},
	flagHasher: &cli.StringFlag{
		Name:  flagHasher,
		Usage: "hash function of leaves and nodes {" + chainhash.DefaultHasherName + ", keccak256, sha256, blake3}",
	},
	flagDebugLevel: &cli.StringFlag{
		Name:    flagDebugLevel,
		Aliases: []string{"d"},
		Usage:   "logging level for all subsystems or <subsystem>=<level>,...",
	},
	flagData: &cli.StringSliceFlag{
		Name:  flagData,
		Usage: "hex-encoded RLP header, may be repeated",
	},
	flagFile: &cli.StringFlag{
		Name:     flagFile,
		Aliases:  []string{"f"},
		Usage:    "path to CSV file",
		Required: true,
	},
	flagLeaf: &cli.Uint64Flag{
		Name:     flagLeaf,
		Aliases:  []string{"l"},
		Usage:    "leaf index",
		Required: true,
	},
	flagSize: &cli.Uint64Flag{
		Name:  flagSize,
		Usage: "number of leaves of the historical snapshot, current size if omitted",
	},
	flagFrom: &cli.Uint64Flag{
		Name:  flagFrom,
		Usage: "first size",
		Value: 1,
	},
	flagTo: &cli.Uint64Flag{
		Name:  flagTo,
		Usage: "last size, current size if omitted",
	},
	flagFormat: &cli.StringFlag{
		Name:  flagFormat,
		Usage: "proof encoding {cbor, json}",
		Value: formatCBOR,
	},
	flagRoot: &cli.StringFlag{
		Name:     flagRoot,
		Usage:    "hex-encoded root",
		Required: true,
	},
	flagProof: &cli.StringFlag{
		Name:     flagProof,
		Aliases:  []string{"p"},
		Usage:    "proof as hex-encoded CBOR or JSON, see --format",
		Required: true,
	},
	flagPort: &cli.UintFlag{
		Name:  flagPort,
		Usage: "port of the metrics endpoint, config value if omitted",
	},
	flagRoute: &cli.StringFlag{
		Name:  flagRoute,
		Usage: "HTTP route of the metrics endpoint, config value if omitted",
	},
}
