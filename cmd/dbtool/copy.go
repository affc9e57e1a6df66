// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// copyCmd defines the configuration options for the copy command.
type copyCmd struct {
	DstDBType  string `long:"dstdbtype" description:"Database backend of the copy" required:"true"`
	DstDataDir string `long:"dstdatadir" description:"Data directory of the copy, the source data directory if omitted"`
}

// copyCfg defines the configuration options for the command.
var copyCfg = copyCmd{}

// Execute is the main entry point for the command.  It's invoked by the parser.
func (cmd *copyCmd) Execute(args []string) error {
	// Setup the global config options and ensure they are valid.
	if err := setupGlobalConfig(); err != nil {
		return err
	}
	if cmd.DstDBType == cfg.DBType && (cmd.DstDataDir == "" || cmd.DstDataDir == cfg.DataDir) {
		return errors.New("source and destination are the same database")
	}

	src, srcDB, err := loadRange(cfg.DBType, cfg.DBPath(), false)
	if err != nil {
		return err
	}
	defer srcDB.Close()

	dataDir := cmd.DstDataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	dstPath := filepath.Join(dataDir, "mmr_"+cmd.DstDBType)

	_, dstDB, err := loadRange(cmd.DstDBType, dstPath, true)
	if err != nil {
		return err
	}
	defer dstDB.Close()

	startTime := time.Now()
	dst, err := src.Copy(dstDB)
	if err != nil {
		return err
	}

	if dst.Size() != src.Size() {
		return errors.Errorf("copy has %d leaves, source has %d", dst.Size(), src.Size())
	}
	if src.Size() > 0 {
		want, err := src.Root()
		if err != nil {
			return err
		}
		got, err := dst.Root()
		if err != nil {
			return err
		}
		if got != want {
			return errors.Errorf("copy root %s differs from source root %s", got, want)
		}
	}

	log.Info().Uint64("size", dst.Size()).Dur("elapsed", time.Since(startTime)).
		Str("path", dstPath).Msg("Mountain range copied")
	fmt.Fprintf(out, "copied %d leaves to %s\n", dst.Size(), dstPath)
	return nil
}
