// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package lotlist implements the "lot list" command.
package lotlist

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/ibtradecmd"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradedata"
	"github.com/bufdev/ibtrade/internal/pkg/cliio"
	"github.com/spf13/pflag"
)

// accountFlagName is the flag name for filtering by account.
const accountFlagName = "account"

// NewCommand returns a new lot list command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List the lots left open after matching all stored trades",
		Long: `List the lots left open after matching all stored trades.

A positive remaining quantity is a long position, a negative one a short
position. Matching runs in memory and nothing is written to the store.`,
		Args: appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Dir is the ibtrade directory containing ibtrade.yaml.
	Dir string
	// Format is the output format (table, csv, json).
	Format string
	// Account filters lots to an account. Empty means all accounts.
	Account string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibtradecmd.BindDirFlag(flagSet, &f.Dir)
	ibtradecmd.BindFormatFlag(flagSet, &f.Format)
	flagSet.StringVar(&f.Account, accountFlagName, "", "Filter by account id")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	config, store, err := ibtradecmd.NewStore(ctx, container, flags.Dir)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, store.Close())
	}()
	saver, err := ibtradecmd.NewSaver(container, flags.Dir, config, store, false)
	if err != nil {
		return err
	}
	openLots, err := saver.OpenLots(ctx)
	if err != nil {
		return err
	}
	if flags.Account != "" {
		openLots = filterByAccount(openLots, flags.Account)
	}
	return cliio.Write(container.Stdout(), format, newColumns(config.Location), openLots)
}

func newColumns(location *time.Location) []cliio.Column[*ibtradedata.OpenLot] {
	return []cliio.Column[*ibtradedata.OpenLot]{
		{Header: "INSTRUMENT_KEY", Value: func(l *ibtradedata.OpenLot) string { return l.InstrumentKey }},
		{Header: "TRADE_ID", Value: func(l *ibtradedata.OpenLot) string { return strconv.FormatInt(l.TradeID, 10) }},
		{Header: "OPENED", Value: func(l *ibtradedata.OpenLot) string { return ibtradecmd.FormatDateTime(l.DateTime, location) }},
		{Header: "REMAINING", Value: func(l *ibtradedata.OpenLot) string { return l.RemainingQuantity.String() }},
	}
}

func filterByAccount(openLots []*ibtradedata.OpenLot, accountID string) []*ibtradedata.OpenLot {
	var filtered []*ibtradedata.OpenLot
	for _, openLot := range openLots {
		if strings.HasPrefix(openLot.InstrumentKey, accountID+"/") {
			filtered = append(filtered, openLot)
		}
	}
	return filtered
}
