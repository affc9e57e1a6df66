// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"gitlab.com/jaxnet/headermmr/node/metrics"
	"gitlab.com/jaxnet/headermmr/types/chainhash"
	"gitlab.com/jaxnet/headermmr/types/mmr"
)

func (app *App) getCommands() cli.Commands {
	return []*cli.Command{
		{
			Name:      "append",
			Usage:     "append RLP headers, prints the new size and root",
			ArgsUsage: "[hex header]...",
			Flags:     []cli.Flag{standardFlags[flagData]},
			Action:    app.appendCmd,
		},
		{
			Name:   "import",
			Usage:  "append every header of a CSV file (number,hash,rlp)",
			Flags:  []cli.Flag{standardFlags[flagFile]},
			Action: app.importCmd,
		},
		{
			Name:   "root",
			Usage:  "print the root of the current or a historical size",
			Flags:  []cli.Flag{standardFlags[flagSize]},
			Action: app.rootCmd,
		},
		{
			Name:  "proof",
			Usage: "generate the inclusion proof of one leaf",
			Flags: []cli.Flag{
				standardFlags[flagLeaf],
				standardFlags[flagSize],
				standardFlags[flagFormat],
			},
			Action: app.proofCmd,
		},
		{
			Name:      "verify",
			Usage:     "verify an inclusion proof against a root",
			ArgsUsage: "<hex header>",
			Flags: []cli.Flag{
				standardFlags[flagRoot],
				standardFlags[flagLeaf],
				standardFlags[flagProof],
				standardFlags[flagFormat],
			},
			Action: app.verifyCmd,
		},
		{
			Name:  "consistency",
			Usage: "prove that the range of one size is a prefix of a larger one",
			Flags: []cli.Flag{
				standardFlags[flagFrom],
				standardFlags[flagTo],
				standardFlags[flagFormat],
			},
			Action: app.consistencyCmd,
		},
		{
			Name:  "export",
			Usage: "write the root of every size to a CSV file (size,root)",
			Flags: []cli.Flag{
				standardFlags[flagFile],
				standardFlags[flagFrom],
				standardFlags[flagTo],
			},
			Action: app.exportCmd,
		},
		{
			Name:   "peaks",
			Usage:  "print the peaks of the current or a historical size",
			Flags:  []cli.Flag{standardFlags[flagSize]},
			Action: app.peaksCmd,
		},
		{
			Name:  "serve",
			Usage: "serve prometheus metrics of the mountain range",
			Flags: []cli.Flag{
				standardFlags[flagPort],
				standardFlags[flagRoute],
			},
			Action: app.serveCmd,
		},
		app.relayCommand(),
	}
}

func (app *App) appendCmd(c *cli.Context) error {
	m, err := app.openRange()
	if err != nil {
		return cli.Exit(err, 1)
	}

	headers := append(c.StringSlice(flagData), c.Args().Slice()...)
	if len(headers) == 0 {
		return cli.Exit("no headers given", 1)
	}

	for _, header := range headers {
		row := HeaderRow{Number: m.Size(), RLP: header}
		data, err := row.Data()
		if err != nil {
			return cli.Exit(err, 1)
		}
		size, root, err := m.Append(data)
		if err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Fprintf(c.App.Writer, "%d %s\n", size, root)
	}
	return nil
}

func (app *App) importCmd(c *cli.Context) error {
	m, err := app.openRange()
	if err != nil {
		return cli.Exit(err, 1)
	}

	rows, err := NewCSVStorage(c.String(flagFile)).FetchHeaders()
	if err != nil {
		return cli.Exit(errors.Wrap(err, "unable to read headers"), 1)
	}

	hasher := m.Hasher()
	for _, row := range rows {
		if row.Number != m.Size() {
			return cli.Exit(fmt.Sprintf("header %d is out of order, next leaf is %d", row.Number, m.Size()), 1)
		}
		data, err := row.Data()
		if err != nil {
			return cli.Exit(err, 1)
		}
		if row.Hash != "" {
			var want chainhash.Hash
			if err := chainhash.Decode(&want, row.Hash); err != nil {
				return cli.Exit(errors.Wrapf(err, "header %d", row.Number), 1)
			}
			if got := hasher.Sum(data); got != want {
				return cli.Exit(fmt.Sprintf("header %d hashes to %s, file says %s", row.Number, got, want), 1)
			}
		}
		if _, _, err = m.Append(data); err != nil {
			return cli.Exit(err, 1)
		}
	}

	root, err := m.Root()
	if err != nil {
		return cli.Exit(err, 1)
	}
	app.log.Info().Int("headers", len(rows)).Uint64("size", m.Size()).Msg("Headers imported")
	fmt.Fprintf(c.App.Writer, "%d %s\n", m.Size(), root)
	return nil
}

// sizeArg returns the size flag or the current size.
func sizeArg(c *cli.Context, name string, m *mmr.MountainRange) uint64 {
	if c.IsSet(name) {
		return c.Uint64(name)
	}
	return m.Size()
}

func (app *App) rootCmd(c *cli.Context) error {
	m, err := app.openRange()
	if err != nil {
		return cli.Exit(err, 1)
	}

	size := sizeArg(c, flagSize, m)
	root, err := m.RootAt(size)
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintf(c.App.Writer, "%d %s\n", size, root)
	return nil
}

type binaryMarshaler interface {
	MarshalBinary() ([]byte, error)
}

func encodeProof(format string, proof binaryMarshaler) (string, error) {
	switch format {
	case formatCBOR:
		data, err := proof.MarshalBinary()
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(data), nil
	case formatJSON:
		data, err := json.MarshalIndent(proof, "", "  ")
		return string(data), err
	default:
		return "", errors.Errorf("unknown proof format %q", format)
	}
}

func decodeProof(format, value string) (*mmr.Proof, error) {
	proof := new(mmr.Proof)
	switch format {
	case formatCBOR:
		data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
		if err != nil {
			return nil, errors.Wrap(mmr.ErrMalformedProof, err.Error())
		}
		return proof, proof.UnmarshalBinary(data)
	case formatJSON:
		if err := json.Unmarshal([]byte(value), proof); err != nil {
			return nil, errors.Wrap(mmr.ErrMalformedProof, err.Error())
		}
		return proof, nil
	default:
		return nil, errors.Errorf("unknown proof format %q", format)
	}
}

func (app *App) proofCmd(c *cli.Context) error {
	m, err := app.openRange()
	if err != nil {
		return cli.Exit(err, 1)
	}

	proof, err := m.GenProofAt(c.Uint64(flagLeaf), sizeArg(c, flagSize, m))
	if err != nil {
		return cli.Exit(err, 1)
	}
	out, err := encodeProof(c.String(flagFormat), proof)
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}

func (app *App) verifyCmd(c *cli.Context) error {
	hasher, err := app.config.HasherFunc()
	if err != nil {
		return cli.Exit(err, 1)
	}

	var root chainhash.Hash
	if err = chainhash.Decode(&root, c.String(flagRoot)); err != nil {
		return cli.Exit(errors.Wrap(err, "bad root"), 1)
	}
	if c.NArg() != 1 {
		return cli.Exit("exactly one hex header expected", 1)
	}
	header, err := (&HeaderRow{RLP: c.Args().First()}).Data()
	if err != nil {
		return cli.Exit(err, 1)
	}
	proof, err := decodeProof(c.String(flagFormat), c.String(flagProof))
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err = mmr.Verify(hasher, root, c.Uint64(flagLeaf), header, proof); err != nil {
		return cli.Exit(err, 2)
	}
	fmt.Fprintln(c.App.Writer, "valid")
	return nil
}

func (app *App) consistencyCmd(c *cli.Context) error {
	m, err := app.openRange()
	if err != nil {
		return cli.Exit(err, 1)
	}

	from, to := c.Uint64(flagFrom), sizeArg(c, flagTo, m)
	proof, err := m.GenConsistencyProof(from, to)
	if err != nil {
		return cli.Exit(err, 1)
	}

	rootA, err := m.RootAt(from)
	if err != nil {
		return cli.Exit(err, 1)
	}
	rootB, err := m.RootAt(to)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err = mmr.VerifyConsistency(m.Hasher(), rootA, rootB, proof); err != nil {
		return cli.Exit(err, 1)
	}

	out, err := encodeProof(c.String(flagFormat), proof)
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}

func (app *App) exportCmd(c *cli.Context) error {
	m, err := app.openRange()
	if err != nil {
		return cli.Exit(err, 1)
	}

	from, to := c.Uint64(flagFrom), sizeArg(c, flagTo, m)
	rows := make([]RootRow, 0)
	err = m.Roots(from, to, func(size uint64, root chainhash.Hash) error {
		rows = append(rows, RootRow{Size: size, Root: root.String()})
		return nil
	})
	if err != nil {
		return cli.Exit(err, 1)
	}

	if err = NewCSVStorage(c.String(flagFile)).SaveRoots(rows); err != nil {
		return cli.Exit(errors.Wrap(err, "unable to write roots"), 1)
	}
	app.log.Info().Int("roots", len(rows)).Str("file", c.String(flagFile)).Msg("Roots exported")
	return nil
}

func (app *App) peaksCmd(c *cli.Context) error {
	m, err := app.openRange()
	if err != nil {
		return cli.Exit(err, 1)
	}

	size := sizeArg(c, flagSize, m)
	peaks, err := m.PeaksAt(size)
	if err != nil {
		return cli.Exit(err, 1)
	}

	rows := make([][]string, 0, len(peaks))
	for i, pos := range mmr.PeakPositions(size) {
		rows = append(rows, []string{
			strconv.Itoa(int(pos.Height)),
			strconv.FormatUint(pos.Index, 10),
			strconv.FormatUint(pos.FirstLeaf(), 10),
			strconv.FormatUint(pos.LeafCount(), 10),
			peaks[i].String(),
		})
	}

	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"Height", "Index", "First Leaf", "Leaves", "Hash"})
	table.SetRowLine(true)
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func (app *App) serveCmd(c *cli.Context) error {
	m, err := app.openRange()
	if err != nil {
		return cli.Exit(err, 1)
	}

	cfg := app.config.Metrics
	if c.IsSet(flagPort) {
		cfg.Port = uint16(c.Uint(flagPort))
	}
	if c.IsSet(flagRoute) {
		cfg.Route = c.String(flagRoute)
	}

	game, err := app.loadGame()
	if err != nil {
		return cli.Exit(err, 1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	manager := metrics.Metrics(ctx, cfg.Interval, registry)
	manager.Add(
		metrics.MetricsOfStats("mmr", m, registry, prometheus.Labels{"hasher": app.config.Hasher}),
		metrics.MetricsOfStats("relay", game, registry, nil),
		metrics.MetricsOfDirs(map[string]string{"data": app.config.DataDir}, registry),
	)

	if err = manager.Listen(ctx, cfg.Route, cfg.Port); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}
