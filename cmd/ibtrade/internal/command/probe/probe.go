// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package probe implements the "probe" command for testing Flex Query date ranges.
package probe

import (
	"context"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/ibtradecmd"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradeconfig"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradeflex"
	"github.com/bufdev/ibtrade/internal/pkg/ibkrflexquery"
	"github.com/spf13/pflag"
)

const (
	// fromFlagName is the flag name for the start date.
	fromFlagName = "from"
	// toFlagName is the flag name for the end date.
	toFlagName = "to"
)

// NewCommand returns a new probe command for testing Flex Query date ranges.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Probe the Flex Web Service with a specific date range",
		Long: `Probe the Flex Web Service with a specific date range.

Makes a single download with the given --from and --to dates and prints the
number of statements, trades, and cash transactions returned. Nothing is
written to the store or to flex/. Useful for testing which historical date
ranges the Flex Query accepts.`,
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
	// From is the start date.
	From string
	// To is the end date.
	To string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibtradecmd.BindDirFlag(flagSet, &f.Dir)
	flagSet.StringVar(&f.From, fromFlagName, "", "Start date (YYYYMMDD), requires --to")
	flagSet.StringVar(&f.To, toFlagName, "", "End date (YYYYMMDD), requires --from")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	if (flags.From == "") != (flags.To == "") {
		return appcmd.NewInvalidArgumentErrorf("--%s and --%s must be set together", fromFlagName, toFlagName)
	}
	fromDate, err := ibtradecmd.ParseDateFlag(fromFlagName, flags.From)
	if err != nil {
		return err
	}
	toDate, err := ibtradecmd.ParseDateFlag(toFlagName, flags.To)
	if err != nil {
		return err
	}
	config, err := ibtradeconfig.ReadConfig(flags.Dir)
	if err != nil {
		return err
	}
	ibkrToken, err := ibtradecmd.IBKRToken(container, flags.Dir)
	if err != nil {
		return err
	}
	logger := container.Logger()
	logger.Info("probing flex web service", "from", fromDate.String(), "to", toDate.String(), "query_id", config.IBKRQueryID)
	data, err := ibkrflexquery.NewClient(logger).Download(ctx, ibkrToken, config.IBKRQueryID, fromDate, toDate)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	response, err := ibkrflexquery.Parse(data)
	if err != nil {
		return err
	}
	records := ibtradeflex.RecordsFromResponse(response, config.Location)
	stdout := container.Stdout()
	for _, statement := range response.FlexStatements {
		if _, err := fmt.Fprintf(
			stdout,
			"statement: account=%s from=%s to=%s\n",
			statement.AccountID,
			statement.FromDate,
			statement.ToDate,
		); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(
		stdout,
		"trades: %d (%d errors)\ncash_transactions: %d (%d errors)\n",
		len(records.Trades),
		len(records.TradeErrors),
		len(records.CashTransactions),
		len(records.CashTransactionErrors),
	)
	return err
}
