// Copyright 2026 Peter Edge
//
// All rights reserved.

package main

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/cash"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/closed"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/config"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/data"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/db"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/download"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/flex"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/load"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/lot"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/probe"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/trade"
)

func main() {
	appcmd.Main(context.Background(), newRootCommand("ibtrade"))
}

// newRootCommand creates the root ibtrade command with all sub-commands.
func newRootCommand(name string) *appcmd.Command {
	builder := appext.NewBuilder(name)
	return &appcmd.Command{
		Use:   name,
		Short: "Store Interactive Brokers trades and match them into closed trades",
		Long: `Store Interactive Brokers trades and match them into closed trades.

Trades and cash transactions are downloaded through the IBKR Flex Web Service,
or loaded from saved Flex Query XML statements, and stored in a SQLite database.
Trades are matched first-in first-out per account and instrument, producing
closed trades with results in the trade currency and the base currency.

The base directory (--dir) contains ibtrade.yaml, the database, and backups of
downloaded statements under flex/. Downloading requires the IBKR_TOKEN
environment variable, or IBKR_TOKEN set in a .env file in the base directory.`,
		BindPersistentFlags: builder.BindRoot,
		SubCommands: []*appcmd.Command{
			config.NewCommand("config", builder),
			download.NewCommand("download", builder),
			load.NewCommand("load", builder),
			probe.NewCommand("probe", builder),
			trade.NewCommand("trade", builder),
			cash.NewCommand("cash", builder),
			closed.NewCommand("closed", builder),
			lot.NewCommand("lot", builder),
			db.NewCommand("db", builder),
			flex.NewCommand("flex", builder),
			data.NewCommand("data", builder),
		},
	}
}
