// Copyright 2026 Peter Edge
//
// All rights reserved.

package xos

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	t.Parallel()
	path, err := ExpandHome("relative/path")
	require.NoError(t, err)
	require.Equal(t, "relative/path", path)
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	path, err = ExpandHome("~/ibtrade")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(homeDir, "ibtrade"), path)
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	filePath := filepath.Join(dirPath, "nested", "statement.xml")
	require.NoError(t, WriteFileAtomic(filePath, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(filePath, []byte("second"), 0o644))
	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(filePath))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
