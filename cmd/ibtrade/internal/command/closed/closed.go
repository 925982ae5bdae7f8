// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package closed implements the "closed" command group.
package closed

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/closed/closedlist"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/closed/closedmatch"
)

// NewCommand returns a new closed command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Match trades into closed trades and inspect them",
		SubCommands: []*appcmd.Command{
			closedmatch.NewCommand("match", builder),
			closedlist.NewCommand("list", builder),
		},
	}
}
