// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package closedlist implements the "closed list" command.
package closedlist

import (
	"context"
	"errors"
	"strconv"
	"time"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/ibtradecmd"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradedata"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradestore"
	"github.com/bufdev/ibtrade/internal/pkg/cliio"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

const (
	accountFlagName       = "account"
	instrumentKeyFlagName = "instrument-key"
	sinceFlagName         = "since"
	untilFlagName         = "until"
)

// NewCommand returns a new closed list command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List stored closed trades",
		Long: `List stored closed trades.

Closed trades are listed per instrument in match order. Table output ends with
a totals row. The base currency result is in the base_currency of ibtrade.yaml.`,
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
	// Account filters closed trades to an account.
	Account string
	// InstrumentKey filters closed trades to an instrument key.
	InstrumentKey string
	// Since is the first closing date to include.
	Since string
	// Until is the last closing date to include.
	Until string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibtradecmd.BindDirFlag(flagSet, &f.Dir)
	ibtradecmd.BindFormatFlag(flagSet, &f.Format)
	flagSet.StringVar(&f.Account, accountFlagName, "", "Filter by account id")
	flagSet.StringVar(&f.InstrumentKey, instrumentKeyFlagName, "", "Filter by instrument key (ACCOUNT/INSTRUMENT)")
	flagSet.StringVar(&f.Since, sinceFlagName, "", "First closing date to include (YYYYMMDD)")
	flagSet.StringVar(&f.Until, untilFlagName, "", "Last closing date to include (YYYYMMDD)")
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
	since, until, err := ibtradecmd.ParseDateRangeFlags(sinceFlagName, flags.Since, untilFlagName, flags.Until, config.Location)
	if err != nil {
		return err
	}
	closedTrades, err := store.ListClosedTrades(
		ctx,
		ibtradestore.ClosedTradeFilter{
			AccountID:     flags.Account,
			InstrumentKey: flags.InstrumentKey,
			Since:         since,
			Until:         until,
		},
	)
	if err != nil {
		return err
	}
	columns := newColumns(config.Location)
	return cliio.WriteWithTotals(container.Stdout(), format, columns, closedTrades, newTotalsRow(len(columns), closedTrades))
}

func newColumns(location *time.Location) []cliio.Column[*ibtradedata.ClosedTrade] {
	return []cliio.Column[*ibtradedata.ClosedTrade]{
		{Header: "INSTRUMENT_KEY", Value: func(c *ibtradedata.ClosedTrade) string { return c.InstrumentKey }},
		{Header: "OPEN_TRADE_ID", Value: func(c *ibtradedata.ClosedTrade) string { return strconv.FormatInt(c.OpenTradeID, 10) }},
		{Header: "CLOSE_TRADE_ID", Value: func(c *ibtradedata.ClosedTrade) string { return strconv.FormatInt(c.CloseTradeID, 10) }},
		{Header: "OPENED", Value: func(c *ibtradedata.ClosedTrade) string { return ibtradecmd.FormatDateTime(c.OpenDateTime, location) }},
		{Header: "CLOSED", Value: func(c *ibtradedata.ClosedTrade) string { return ibtradecmd.FormatDateTime(c.CloseDateTime, location) }},
		{Header: "QUANTITY", Value: func(c *ibtradedata.ClosedTrade) string { return c.Quantity.String() }},
		{Header: "RESULT", Value: func(c *ibtradedata.ClosedTrade) string { return c.Result.StringFixed(2) }},
		{Header: "RESULT_BASE", Value: func(c *ibtradedata.ClosedTrade) string { return c.ResultBaseCurrency.StringFixed(2) }},
	}
}

// newTotalsRow sums the base currency results. Results in trade currencies
// are not summed since they can mix currencies.
func newTotalsRow(numColumns int, closedTrades []*ibtradedata.ClosedTrade) []string {
	total := decimal.Zero
	for _, closedTrade := range closedTrades {
		total = total.Add(closedTrade.ResultBaseCurrency)
	}
	totalsRow := make([]string, numColumns)
	totalsRow[0] = "TOTAL"
	totalsRow[numColumns-1] = total.StringFixed(2)
	return totalsRow
}
