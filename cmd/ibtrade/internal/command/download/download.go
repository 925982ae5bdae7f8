// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package download implements the "download" command.
package download

import (
	"context"
	"errors"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/ibtradecmd"
	"github.com/spf13/pflag"
)

const (
	// fromFlagName is the flag name for the start date.
	fromFlagName = "from"
	// toFlagName is the flag name for the end date.
	toFlagName = "to"
	// matchFlagName is the flag name for matching trades after downloading.
	matchFlagName = "match"
)

// NewCommand returns a new download command that downloads a statement into the trade store.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Download trades and cash transactions via the Flex Web Service",
		Long: `Download trades and cash transactions via the Flex Web Service.

Without --from and --to, the period configured on the Flex Query is used.
Records already in the store are updated in place, so overlapping downloads
are safe.`,
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
	// Match matches trades after downloading.
	Match bool
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibtradecmd.BindDirFlag(flagSet, &f.Dir)
	flagSet.StringVar(&f.From, fromFlagName, "", "Start date (YYYYMMDD), requires --to")
	flagSet.StringVar(&f.To, toFlagName, "", "End date (YYYYMMDD), requires --from")
	flagSet.BoolVar(&f.Match, matchFlagName, false, "Match trades into closed trades after downloading")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
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
	config, store, err := ibtradecmd.NewStore(ctx, container, flags.Dir)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, store.Close())
	}()
	saver, err := ibtradecmd.NewSaver(container, flags.Dir, config, store, true)
	if err != nil {
		return err
	}
	saveResult, err := saver.Download(ctx, fromDate, toDate)
	if err != nil {
		return err
	}
	if err := ibtradecmd.PrintSaveResult(container, saveResult); err != nil {
		return err
	}
	if !flags.Match {
		return nil
	}
	matchStatistics, err := saver.Match(ctx)
	if err != nil {
		return err
	}
	return ibtradecmd.PrintMatchStatistics(container, matchStatistics)
}
