// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/pkg/errors"
	"gitlab.com/jaxnet/headermmr/database/memdb"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

// checkCmd defines the configuration options for the check command.
type checkCmd struct{}

// checkCfg defines the configuration options for the command.
var checkCfg = checkCmd{}

// Execute is the main entry point for the command.  It's invoked by the parser.
// Leaves are stored as hashes, so the rebuild folds them with the peaks
// arithmetic instead of appending raw headers.
func (cmd *checkCmd) Execute(args []string) error {
	// Setup the global config options and ensure they are valid.
	if err := setupGlobalConfig(); err != nil {
		return err
	}

	m, db, err := loadRange(cfg.DBType, cfg.DBPath(), false)
	if err != nil {
		return err
	}
	defer db.Close()

	if m.Size() == 0 {
		fmt.Fprintln(out, "empty")
		return nil
	}

	leaves := make([]chainhash.Hash, 0, m.Size())
	err = m.ForEachNode(func(pos mmr.Position, node chainhash.Hash) error {
		if pos.Height != 0 {
			return nil
		}
		if pos.Index != uint64(len(leaves)) {
			return errors.Wrapf(mmr.ErrNodeNotFound, "leaf %d is missing", len(leaves))
		}
		leaves = append(leaves, node)
		return nil
	})
	if err != nil {
		return err
	}
	if uint64(len(leaves)) != m.Size() {
		return errors.Errorf("%d leaves stored, size is %d", len(leaves), m.Size())
	}

	rebuilt, err := mmr.New(m.Hasher(), memdb.New())
	if err != nil {
		return err
	}
	for _, leaf := range leaves {
		if _, _, err = rebuilt.AppendHash(leaf); err != nil {
			return err
		}
	}

	want, err := m.Root()
	if err != nil {
		return err
	}
	got, err := rebuilt.Root()
	if err != nil {
		return err
	}
	if got != want {
		return errors.Errorf("rebuilt root %s differs from stored root %s", got, want)
	}

	log.Info().Uint64("size", m.Size()).Str("root", want.String()).Msg("Mountain range is consistent")
	fmt.Fprintf(out, "ok %d %s\n", m.Size(), want)
	return nil
}
