// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package load implements the "load" command.
package load

import (
	"context"
	"errors"
	"os"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/ibtradecmd"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradesave"
	"github.com/spf13/pflag"
)

// matchFlagName is the flag name for matching trades after loading.
const matchFlagName = "match"

// NewCommand returns a new load command that loads statement files into the trade store.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " PATH",
		Short: "Load Flex Query XML statements into the trade store",
		Long: `Load Flex Query XML statements into the trade store.

PATH is either a single statement file or a directory, in which case every .xml
file in the directory is loaded in name order. Use the flex/ directory of the
base directory to rebuild a store from downloaded backups.`,
		Args: appcmd.ExactArgs(1),
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
	// Match matches trades after loading.
	Match bool
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibtradecmd.BindDirFlag(flagSet, &f.Dir)
	flagSet.BoolVar(&f.Match, matchFlagName, false, "Match trades into closed trades after loading")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	path := container.Arg(0)
	fileInfo, err := os.Stat(path)
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
	saver, err := ibtradecmd.NewSaver(container, flags.Dir, config, store, false)
	if err != nil {
		return err
	}
	var saveResult *ibtradesave.SaveResult
	if fileInfo.IsDir() {
		saveResult, err = saver.LoadDir(ctx, path)
	} else {
		saveResult, err = saver.LoadFile(ctx, path)
	}
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
