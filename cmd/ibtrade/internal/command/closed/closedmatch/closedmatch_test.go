// Copyright 2026 Peter Edge
//
// All rights reserved.

package closedmatch

import (
	"testing"

	"buf.build/go/app/appext"
	"github.com/stretchr/testify/require"
)

func TestNewCommandHelp(t *testing.T) {
	t.Parallel()
	command := NewCommand("match", appext.NewBuilder("ibtrade"))
	// The FX source is configurable, so the help must not name a single one.
	require.Contains(t, command.Long, "fx_rate_source")
	require.NotContains(t, command.Long, "frankfurter")
	require.NotContains(t, command.Long, "--rebuild")
}
