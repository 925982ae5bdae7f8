// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dbdrop implements the "db drop" command.
package dbdrop

import (
	"context"
	"errors"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/ibtradecmd"
	"github.com/spf13/pflag"
)

// forceFlagName is the flag name for confirming the drop.
const forceFlagName = "force"

// NewCommand returns a new db drop command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Drop all tables of the database",
		Long: `Drop all tables of the database.

All stored trades, cash transactions, and closed trades are deleted. Statements
backed up under flex/ are kept and can be loaded again with "ibtrade load".`,
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
	// Force confirms the drop.
	Force bool
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibtradecmd.BindDirFlag(flagSet, &f.Dir)
	flagSet.BoolVar(&f.Force, forceFlagName, false, "Confirm dropping all tables")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	if !flags.Force {
		return appcmd.NewInvalidArgumentErrorf("--%s is required to drop all tables", forceFlagName)
	}
	config, store, err := ibtradecmd.NewStore(ctx, container, flags.Dir)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, store.Close())
	}()
	if err := store.DropTables(ctx); err != nil {
		return err
	}
	container.Logger().Info("dropped all tables", "path", config.DatabaseFilePath)
	return nil
}
