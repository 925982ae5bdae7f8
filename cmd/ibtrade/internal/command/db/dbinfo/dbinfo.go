// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dbinfo implements the "db info" command.
package dbinfo

import (
	"context"
	"errors"
	"strconv"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/ibtradecmd"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradestore"
	"github.com/bufdev/ibtrade/internal/pkg/cliio"
	"github.com/spf13/pflag"
)

var columns = []cliio.Column[ibtradestore.TableCount]{
	{Header: "TABLE", Value: func(t ibtradestore.TableCount) string { return t.Name }},
	{Header: "EXISTS", Value: func(t ibtradestore.TableCount) string { return strconv.FormatBool(t.Exists) }},
	{Header: "ROWS", Value: func(t ibtradestore.TableCount) string { return strconv.FormatInt(t.Count, 10) }},
}

// NewCommand returns a new db info command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Print the tables of the database and their row counts",
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
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibtradecmd.BindDirFlag(flagSet, &f.Dir)
	ibtradecmd.BindFormatFlag(flagSet, &f.Format)
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
	tableCounts, err := store.TableCounts(ctx)
	if err != nil {
		return err
	}
	container.Logger().Info("database", "path", config.DatabaseFilePath)
	return cliio.Write(container.Stdout(), format, columns, tableCounts)
}
