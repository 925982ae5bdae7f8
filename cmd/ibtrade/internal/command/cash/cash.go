// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package cash implements the "cash" command group.
package cash

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/cash/cashlist"
)

// NewCommand returns a new cash command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Inspect stored cash transactions",
		SubCommands: []*appcmd.Command{
			cashlist.NewCommand("list", builder),
		},
	}
}
