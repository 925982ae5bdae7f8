// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package tradelist implements the "trade list" command.
package tradelist

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
	"github.com/spf13/pflag"
)

const (
	// accountFlagName is the flag name for filtering by account.
	accountFlagName = "account"
	// symbolFlagName is the flag name for filtering by symbol.
	symbolFlagName = "symbol"
	// sinceFlagName is the flag name for the first date.
	sinceFlagName = "since"
	// untilFlagName is the flag name for the last date.
	untilFlagName = "until"
)

// NewCommand returns a new trade list command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List stored trades in execution order",
		Args:  appcmd.NoArgs,
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
	// Account filters trades to an account. Empty means all accounts.
	Account string
	// Symbol filters trades to a symbol. Empty means all symbols.
	Symbol string
	// Since is the first date to include.
	Since string
	// Until is the last date to include.
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
	flagSet.StringVar(&f.Symbol, symbolFlagName, "", "Filter by symbol")
	flagSet.StringVar(&f.Since, sinceFlagName, "", "First trade date to include (YYYYMMDD)")
	flagSet.StringVar(&f.Until, untilFlagName, "", "Last trade date to include (YYYYMMDD)")
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
	trades, err := store.ListTrades(
		ctx,
		ibtradestore.TradeFilter{
			AccountID: flags.Account,
			Symbol:    flags.Symbol,
			Since:     since,
			Until:     until,
		},
	)
	if err != nil {
		return err
	}
	return cliio.Write(container.Stdout(), format, newColumns(config.Location), trades)
}

func newColumns(location *time.Location) []cliio.Column[*ibtradedata.Trade] {
	return []cliio.Column[*ibtradedata.Trade]{
		{Header: "TRADE_ID", Value: func(t *ibtradedata.Trade) string { return strconv.FormatInt(t.TradeID, 10) }},
		{Header: "ACCOUNT", Value: func(t *ibtradedata.Trade) string { return t.AccountID }},
		{Header: "DATE_TIME", Value: func(t *ibtradedata.Trade) string { return ibtradecmd.FormatDateTime(t.DateTime, location) }},
		{Header: "SYMBOL", Value: func(t *ibtradedata.Trade) string { return t.Symbol }},
		{Header: "DESCRIPTION", Value: func(t *ibtradedata.Trade) string { return t.Description }},
		{Header: "BUY_SELL", Value: func(t *ibtradedata.Trade) string { return t.BuySell }},
		{Header: "QUANTITY", Value: func(t *ibtradedata.Trade) string { return t.Quantity.String() }},
		{Header: "PRICE", Value: func(t *ibtradedata.Trade) string { return t.TradePrice.String() }},
		{Header: "CURRENCY", Value: func(t *ibtradedata.Trade) string { return t.Currency }},
		{Header: "NET_CASH", Value: func(t *ibtradedata.Trade) string { return t.NetCash.String() }},
		{Header: "FX_RATE", Value: func(t *ibtradedata.Trade) string { return t.FXRateToBase.String() }},
	}
}
