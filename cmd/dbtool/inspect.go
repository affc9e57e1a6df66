// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"gitlab.com/jaxnet/headermmr/types/chainhash"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

// inspectCmd defines the configuration options for the inspect command.
type inspectCmd struct {
	Nodes bool `long:"nodes" description:"Print the number of stored nodes per height"`
}

// inspectCfg defines the configuration options for the command.
var inspectCfg = inspectCmd{}

// Execute is the main entry point for the command.  It's invoked by the parser.
func (cmd *inspectCmd) Execute(args []string) error {
	// Setup the global config options and ensure they are valid.
	if err := setupGlobalConfig(); err != nil {
		return err
	}

	m, db, err := loadRange(cfg.DBType, cfg.DBPath(), false)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(out, "backend: %s\nhasher:  %s\nsize:    %d\n", db.Type(), cfg.Hasher, m.Size())
	if m.Size() == 0 {
		return nil
	}

	root, err := m.Root()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "root:    %s\n", root)
	for i, pos := range mmr.PeakPositions(m.Size()) {
		fmt.Fprintf(out, "peak %d:  %s %s\n", i, pos, m.Peaks()[i])
	}

	if !cmd.Nodes {
		return nil
	}

	perHeight := make(map[uint8]int)
	var maxHeight uint8
	err = m.ForEachNode(func(pos mmr.Position, _ chainhash.Hash) error {
		perHeight[pos.Height]++
		if pos.Height > maxHeight {
			maxHeight = pos.Height
		}
		return nil
	})
	if err != nil {
		return err
	}
	for h := uint8(0); h <= maxHeight; h++ {
		fmt.Fprintf(out, "height %d: %d nodes\n", h, perHeight[h])
	}
	return nil
}
