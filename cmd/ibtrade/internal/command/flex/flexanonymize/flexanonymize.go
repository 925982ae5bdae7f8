// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package flexanonymize implements the "flex anonymize" command.
package flexanonymize

import (
	"context"
	"os"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/internal/pkg/ibkrflexquery"
	"github.com/bufdev/ibtrade/internal/standard/xos"
	"github.com/spf13/pflag"
)

// outputFlagName is the flag name for the output file path.
const outputFlagName = "output"

// NewCommand returns a new flex anonymize command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " FILE",
		Short: "Replace account and identifier values in a statement with pseudonyms",
		Long: `Replace account and identifier values in a statement with pseudonyms.

Account ids, contract ids, trade ids, transaction ids, and order ids are
replaced consistently, so equal values in the input stay equal in the output
and the statement still loads and matches the same way. Amounts, symbols,
and dates are unchanged. The result is written to stdout unless --output is set.`,
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
	// Output is the output file path.
	Output string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.Output, outputFlagName, "o", "", "Output file path (defaults to stdout)")
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	data, err := os.ReadFile(container.Arg(0))
	if err != nil {
		return err
	}
	anonymizedData, err := ibkrflexquery.Anonymize(data)
	if err != nil {
		return err
	}
	if flags.Output == "" {
		_, err := container.Stdout().Write(anonymizedData)
		return err
	}
	if err := xos.WriteFileAtomic(flags.Output, anonymizedData, 0o600); err != nil {
		return err
	}
	container.Logger().Info("anonymized statement written", "path", flags.Output)
	return nil
}
