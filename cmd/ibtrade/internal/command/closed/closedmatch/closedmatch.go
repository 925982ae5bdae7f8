// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package closedmatch implements the "closed match" command.
package closedmatch

import (
	"context"
	"errors"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/ibtradecmd"
	"github.com/spf13/pflag"
)

// NewCommand returns a new closed match command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Match stored trades first-in first-out into closed trades",
		Long: `Match stored trades first-in first-out into closed trades.

Every run matches all stored trades from the start and replaces the stored
closed trades in a single transaction, so they always reflect the stored
trades and the match settings in ibtrade.yaml. Closed trades that no longer
occur, for example after loading an earlier statement or changing
match.group_by, are removed.

Missing FX rates to the base currency are filled from the configured
fx_rate_source. Trades whose rate cannot be determined are skipped and logged.`,
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
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibtradecmd.BindDirFlag(flagSet, &f.Dir)
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
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
	matchStatistics, err := saver.Match(ctx)
	if err != nil {
		return err
	}
	return ibtradecmd.PrintMatchStatistics(container, matchStatistics)
}
