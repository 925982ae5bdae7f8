// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibtradepath

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDatabaseFilePath(t *testing.T) {
	t.Parallel()
	require.Equal(t, filepath.Join("base", "ibtrade.db"), DatabaseFilePath("base", ""))
	require.Equal(t, filepath.Join("base", "x", "y.db"), DatabaseFilePath("base", filepath.Join("x", "y.db")))
	absolutePath := filepath.Join(t.TempDir(), "z.db")
	require.Equal(t, absolutePath, DatabaseFilePath("base", absolutePath))
}

func TestFlexBackupFilePath(t *testing.T) {
	t.Parallel()
	downloadTime := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	require.Equal(
		t,
		filepath.Join("base", "flex", "20240102-020405.xml"),
		FlexBackupFilePath("base", downloadTime),
	)
}
