// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"gitlab.com/jaxnet/headermmr/config"
	"gitlab.com/jaxnet/headermmr/corelog"
	"gitlab.com/jaxnet/headermmr/database"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

var (
	log = corelog.Disabled
	out io.Writer = os.Stdout

	// cfg is shared by all commands; setupGlobalConfig reloads it with the
	// config file applied under the command line.
	cfg        = config.Default()
	globalArgs []string
)

// setupGlobalConfig loads the config file, validates the options and
// starts logging.
func setupGlobalConfig() error {
	loaded, _, err := config.LoadConfig(globalArgs)
	if err != nil {
		return err
	}
	*cfg = *loaded

	log, err = cfg.SetupLogging()
	return err
}

// loadRange opens the mountain range of the given backend.
func loadRange(dbType, dbPath string, create bool) (*mmr.MountainRange, database.DB, error) {
	hasher, err := cfg.HasherFunc()
	if err != nil {
		return nil, nil, err
	}

	var args []interface{}
	if dbType != "memdb" {
		args = append(args, dbPath)
	}

	log.Info().Str("type", dbType).Str("path", dbPath).Msg("Loading mountain range database")
	var db database.DB
	if create {
		if err = os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, nil, err
		}
		db, err = database.Create(dbType, args...)
	} else {
		db, err = database.Open(dbType, args...)
	}
	if err != nil {
		return nil, nil, err
	}

	m, err := mmr.New(hasher, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, db, nil
}

// realMain is the real main function for the utility.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func realMain(args []string) error {
	globalArgs = args

	// Setup the parser options and commands.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	parserFlags := flags.Options(flags.HelpFlag | flags.PassDoubleDash)
	parser := flags.NewNamedParser(appName, parserFlags)
	if _, err := parser.AddGroup("Global Options", "", cfg); err != nil {
		return err
	}
	if _, err := parser.AddCommand("inspect",
		"Print the size, root, peaks and node counts of the mountain range",
		"", &inspectCfg); err != nil {
		return err
	}
	if _, err := parser.AddCommand("copy",
		"Copy the mountain range into another database backend",
		"Copy every node and index entry into a new database and check "+
			"that the copy has the same root.", &copyCfg); err != nil {
		return err
	}
	if _, err := parser.AddCommand("check",
		"Rebuild the mountain range from its leaves and compare the roots",
		"", &checkCfg); err != nil {
		return err
	}

	// Parse command line and invoke the Execute function for the specified
	// command.
	if _, err := parser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		} else {
			log.Error().Err(err).Msg("Command failed")
		}

		return err
	}

	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := realMain(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
