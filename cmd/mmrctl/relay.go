// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/headermmr/node/relay"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

const (
	flagClaim      = "claim"
	flagRelayer    = "relayer"
	flagChallenger = "challenger"
	flagAt         = "at"
)

var relayFlags = map[string]cli.Flag{
	flagClaim: &cli.StringFlag{
		Name:     flagClaim,
		Usage:    "hex-encoded claim id",
		Required: true,
	},
	flagRelayer: &cli.StringFlag{
		Name:     flagRelayer,
		Usage:    "name of the relayer",
		Required: true,
	},
	flagChallenger: &cli.StringFlag{
		Name:     flagChallenger,
		Usage:    "name of the challenger",
		Required: true,
	},
	flagAt: &cli.StringFlag{
		Name:  flagAt,
		Usage: "RFC3339 time of the action, now if omitted",
	},
	flagRoot: &cli.StringFlag{
		Name:  flagRoot,
		Usage: "claimed root, root of --size in the local range if omitted",
	},
	flagProof: &cli.StringFlag{
		Name:    flagProof,
		Aliases: []string{"p"},
		Usage:   "proof as hex-encoded CBOR or JSON, generated from the local range if omitted",
	},
}

func (app *App) relayCommand() *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "play the relayer game over claimed header-chain roots",
		Subcommands: []*cli.Command{
			{
				Name:  "affirm",
				Usage: "claim a root for the first --size headers, prints the claim id",
				Flags: []cli.Flag{
					relayFlags[flagRelayer],
					standardFlags[flagSize],
					relayFlags[flagRoot],
					relayFlags[flagAt],
				},
				Action: app.affirmCmd,
			},
			{
				Name:  "challenge",
				Usage: "ask the relayer of a claim for one header, prints the deadline",
				Flags: []cli.Flag{
					relayFlags[flagClaim],
					relayFlags[flagChallenger],
					standardFlags[flagLeaf],
					relayFlags[flagAt],
				},
				Action: app.challengeCmd,
			},
			{
				Name:      "respond",
				Usage:     "answer a challenge with the header and its inclusion proof",
				ArgsUsage: "<hex header>",
				Flags: []cli.Flag{
					relayFlags[flagClaim],
					relayFlags[flagRelayer],
					standardFlags[flagLeaf],
					relayFlags[flagProof],
					standardFlags[flagFormat],
				},
				Action: app.respondCmd,
			},
			{
				Name:   "advance",
				Usage:  "reject claims with challenges past their deadline",
				Flags:  []cli.Flag{relayFlags[flagAt]},
				Action: app.advanceCmd,
			},
			{
				Name:  "finalize",
				Usage: "confirm a claim whose challenge window has passed",
				Flags: []cli.Flag{
					relayFlags[flagClaim],
					relayFlags[flagAt],
				},
				Action: app.finalizeCmd,
			},
			{
				Name:   "status",
				Usage:  "print the claims of the game",
				Action: app.statusCmd,
			},
		},
	}
}

// loadGame restores the game saved in the data dir once per run.
func (app *App) loadGame() (*relay.Game, error) {
	if app.game != nil {
		return app.game, nil
	}

	game, err := app.config.NewGame()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(app.config.GameStatePath())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrap(err, "unable to read relayer game")
	default:
		if err = game.UnmarshalBinary(data); err != nil {
			return nil, err
		}
	}

	app.game = game
	return game, nil
}

func (app *App) saveGame() error {
	data, err := app.game.MarshalBinary()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(app.config.DataDir, 0o700); err != nil {
		return errors.Wrap(err, "unable to create data dir")
	}
	return errors.Wrap(os.WriteFile(app.config.GameStatePath(), data, 0o600), "unable to save relayer game")
}

func atArg(c *cli.Context) (time.Time, error) {
	if !c.IsSet(flagAt) {
		return time.Now().UTC(), nil
	}
	at, err := time.Parse(time.RFC3339, c.String(flagAt))
	return at, errors.Wrap(err, "bad --at")
}

func claimArg(c *cli.Context) (chainhash.Hash, error) {
	var id chainhash.Hash
	err := chainhash.Decode(&id, c.String(flagClaim))
	return id, errors.Wrap(err, "bad claim id")
}

func (app *App) affirmCmd(c *cli.Context) error {
	now, err := atArg(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	game, err := app.loadGame()
	if err != nil {
		return cli.Exit(err, 1)
	}

	size := c.Uint64(flagSize)
	var root chainhash.Hash
	if c.IsSet(flagRoot) {
		if err = chainhash.Decode(&root, c.String(flagRoot)); err != nil {
			return cli.Exit(errors.Wrap(err, "bad root"), 1)
		}
	}
	if !c.IsSet(flagSize) || !c.IsSet(flagRoot) {
		m, err := app.openRange()
		if err != nil {
			return cli.Exit(err, 1)
		}
		size = sizeArg(c, flagSize, m)
		if !c.IsSet(flagRoot) {
			if root, err = m.RootAt(size); err != nil {
				return cli.Exit(err, 1)
			}
		}
	}

	id, err := game.Affirm(c.String(flagRelayer), size, root, now)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err = app.saveGame(); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

func (app *App) challengeCmd(c *cli.Context) error {
	now, err := atArg(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	id, err := claimArg(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	game, err := app.loadGame()
	if err != nil {
		return cli.Exit(err, 1)
	}

	deadline, err := game.Challenge(id, c.String(flagChallenger), c.Uint64(flagLeaf), now)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err = app.saveGame(); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(c.App.Writer, deadline.UTC().Format(time.RFC3339))
	return nil
}

func (app *App) respondCmd(c *cli.Context) error {
	id, err := claimArg(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if c.NArg() != 1 {
		return cli.Exit("exactly one hex header expected", 1)
	}
	header, err := (&HeaderRow{RLP: c.Args().First()}).Data()
	if err != nil {
		return cli.Exit(err, 1)
	}
	game, err := app.loadGame()
	if err != nil {
		return cli.Exit(err, 1)
	}
	claim, err := game.Claim(id)
	if err != nil {
		return cli.Exit(err, 1)
	}

	leaf := c.Uint64(flagLeaf)
	var proof *mmr.Proof
	if c.IsSet(flagProof) {
		proof, err = decodeProof(c.String(flagFormat), c.String(flagProof))
	} else {
		var m *mmr.MountainRange
		if m, err = app.openRange(); err == nil {
			proof, err = m.GenProofAt(leaf, claim.Size)
		}
	}
	if err != nil {
		return cli.Exit(err, 1)
	}

	status, err := game.Respond(id, c.String(flagRelayer), leaf, header, proof)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err = app.saveGame(); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(c.App.Writer, status)
	return nil
}

func (app *App) advanceCmd(c *cli.Context) error {
	now, err := atArg(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	game, err := app.loadGame()
	if err != nil {
		return cli.Exit(err, 1)
	}

	rejected := game.Advance(now)
	if err = app.saveGame(); err != nil {
		return cli.Exit(err, 1)
	}
	for _, id := range rejected {
		fmt.Fprintln(c.App.Writer, id)
	}
	return nil
}

func (app *App) finalizeCmd(c *cli.Context) error {
	now, err := atArg(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	id, err := claimArg(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	game, err := app.loadGame()
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err = game.Finalize(id, now); err != nil {
		return cli.Exit(err, 1)
	}
	if err = app.saveGame(); err != nil {
		return cli.Exit(err, 1)
	}
	claim, err := game.Claim(id)
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintf(c.App.Writer, "%d %s\n", claim.Size, claim.Root)
	return nil
}

func (app *App) statusCmd(c *cli.Context) error {
	game, err := app.loadGame()
	if err != nil {
		return cli.Exit(err, 1)
	}

	claims := game.Claims()
	rows := make([][]string, 0, len(claims))
	for _, claim := range claims {
		open := 0
		for _, ch := range claim.Challenges {
			if !ch.Answered {
				open++
			}
		}
		rows = append(rows, []string{
			claim.ID.String(),
			claim.Relayer,
			strconv.FormatUint(claim.Size, 10),
			claim.Root.String(),
			claim.Status.String(),
			strconv.Itoa(open),
			claim.Reason,
		})
	}

	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"Claim", "Relayer", "Size", "Root", "Status", "Open", "Reason"})
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
	return nil
}
