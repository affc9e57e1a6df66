// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/headermmr/config"
	"gitlab.com/jaxnet/headermmr/database"
	"gitlab.com/jaxnet/headermmr/node/relay"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

func main() {
	app := &App{}
	if err := app.cliApp().Run(os.Args); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

// App keeps the state shared by the commands of one run.
type App struct {
	config *config.Config
	log    zerolog.Logger

	db      database.DB
	mmrange *mmr.MountainRange
	game    *relay.Game
}

func (app *App) cliApp() *cli.App {
	return &cli.App{
		Name:     "mmrctl",
		Usage:    "append Ethereum headers to a Merkle Mountain Range and prove them",
		Flags:    app.InitFlags(),
		Before:   app.InitCfg,
		After:    app.Close,
		Commands: app.getCommands(),
	}
}

func (app *App) InitFlags() []cli.Flag {
	return []cli.Flag{
		standardFlags[flagConfig],
		standardFlags[flagDataDir],
		standardFlags[flagDBType],
		standardFlags[flagHasher],
		standardFlags[flagDebugLevel],
	}
}

// InitCfg loads the config file and applies the global flags over it.
func (app *App) InitCfg(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return cli.Exit(err, 1)
		}
		cfg.ConfigFile = path
	}

	if dataDir := c.String(flagDataDir); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if dbType := c.String(flagDBType); dbType != "" {
		cfg.DBType = dbType
	}
	if hasher := c.String(flagHasher); hasher != "" {
		cfg.Hasher = hasher
	}
	if level := c.String(flagDebugLevel); level != "" {
		cfg.DebugLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err, 1)
	}

	logger, err := cfg.SetupLogging()
	if err != nil {
		return cli.Exit(err, 1)
	}

	app.config = cfg
	app.log = logger
	return nil
}

// openRange opens the configured store once per run.
func (app *App) openRange() (*mmr.MountainRange, error) {
	if app.mmrange != nil {
		return app.mmrange, nil
	}

	hasher, err := app.config.HasherFunc()
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(app.config.DataDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "unable to create data dir")
	}

	var args []interface{}
	if app.config.DBType != "memdb" {
		args = append(args, app.config.DBPath())
	}
	db, err := database.OpenOrCreate(app.config.DBType, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s database", app.config.DBType)
	}

	m, err := mmr.New(hasher, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app.log.Debug().Str("db", app.config.DBType).Str("path", app.config.DBPath()).
		Uint64("size", m.Size()).Msg("Mountain range loaded")
	app.db = db
	app.mmrange = m
	return m, nil
}

// Close releases the database.
func (app *App) Close(*cli.Context) error {
	if app.db == nil {
		return nil
	}
	err := app.db.Close()
	app.db = nil
	app.mmrange = nil
	return err
}
