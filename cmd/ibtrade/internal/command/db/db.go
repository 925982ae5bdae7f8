// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package db implements the "db" command group.
package db

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/db/dbdrop"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/db/dbinfo"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/db/dbinit"
)

// NewCommand returns a new db command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Manage the trade store database",
		SubCommands: []*appcmd.Command{
			dbinit.NewCommand("init", builder),
			dbdrop.NewCommand("drop", builder),
			dbinfo.NewCommand("info", builder),
		},
	}
}
