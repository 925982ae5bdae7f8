// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package cashlist implements the "cash list" command.
package cashlist

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
	accountFlagName = "account"
	symbolFlagName  = "symbol"
	sinceFlagName   = "since"
	untilFlagName   = "until"
)

// NewCommand returns a new cash list command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List stored cash transactions such as dividends, interest, and fees",
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
	Dir     string
	Format  string
	Account string
	Symbol  string
	Since   string
	Until   string
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
	flagSet.StringVar(&f.Since, sinceFlagName, "", "First date to include (YYYYMMDD)")
	flagSet.StringVar(&f.Until, untilFlagName, "", "Last date to include (YYYYMMDD)")
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
	cashTransactions, err := store.ListCashTransactions(
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
	return cliio.Write(container.Stdout(), format, newColumns(config.Location), cashTransactions)
}

func newColumns(location *time.Location) []cliio.Column[*ibtradedata.CashTransaction] {
	return []cliio.Column[*ibtradedata.CashTransaction]{
		{Header: "TRANSACTION_ID", Value: func(c *ibtradedata.CashTransaction) string { return strconv.FormatInt(c.TransactionID, 10) }},
		{Header: "ACCOUNT", Value: func(c *ibtradedata.CashTransaction) string { return c.AccountID }},
		{Header: "DATE_TIME", Value: func(c *ibtradedata.CashTransaction) string { return ibtradecmd.FormatDateTime(c.DateTime, location) }},
		{Header: "TYPE", Value: func(c *ibtradedata.CashTransaction) string { return c.Type }},
		{Header: "SYMBOL", Value: func(c *ibtradedata.CashTransaction) string { return c.Symbol }},
		{Header: "DESCRIPTION", Value: func(c *ibtradedata.CashTransaction) string { return c.Description }},
		{Header: "CURRENCY", Value: func(c *ibtradedata.CashTransaction) string { return c.Currency }},
		{Header: "AMOUNT", Value: func(c *ibtradedata.CashTransaction) string { return c.Amount.String() }},
		{Header: "FX_RATE", Value: func(c *ibtradedata.CashTransaction) string { return c.FXRateToBase.String() }},
	}
}
