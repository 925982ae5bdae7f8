// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package flex implements the "flex" command group.
package flex

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibtrade/cmd/ibtrade/internal/command/flex/flexanonymize"
)

// NewCommand returns a new flex command group for working with Flex Query statement files.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Work with Flex Query XML statement files",
		SubCommands: []*appcmd.Command{
			flexanonymize.NewCommand("anonymize", builder),
		},
	}
}
