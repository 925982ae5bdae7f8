// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibtradeconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradefifo"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradepath"
	"github.com/stretchr/testify/require"
)

func TestInitConfig(t *testing.T) {
	t.Parallel()
	dirPath := filepath.Join(t.TempDir(), "ibtrade")
	filePath, err := InitConfig(dirPath)
	require.NoError(t, err)
	require.Equal(t, ibtradepath.ConfigFilePath(dirPath), filePath)
	_, err = InitConfig(dirPath)
	require.ErrorContains(t, err, "already exists")

	// The template parses but the query id must be filled in.
	err = ValidateConfig(dirPath)
	require.ErrorContains(t, err, "ibkr.query_id is required")

	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	data = []byte(strings.Replace(string(data), `query_id: ""`, `query_id: "123456"`, 1))
	require.NoError(t, os.WriteFile(filePath, data, 0o644))
	config, err := ReadConfig(dirPath)
	require.NoError(t, err)
	require.Equal(t, "123456", config.IBKRQueryID)
	require.Equal(t, "USD", config.BaseCurrency)
	require.Equal(t, FXRateSourceFrankfurter, config.FXRateSource)
	require.Equal(t, "America/New_York", config.Location.String())
	require.Equal(t, filepath.Join(dirPath, "ibtrade.db"), config.DatabaseFilePath)
	require.True(t, config.Backup)
	require.Equal(t, ibtradefifo.GroupByDescription, config.GroupBy)
	require.Equal(t, 4, config.Concurrency)
}

func TestReadConfigMissing(t *testing.T) {
	t.Parallel()
	_, err := ReadConfig(t.TempDir())
	require.ErrorContains(t, err, "ibtrade config init")
}

func TestReadConfigUnknownField(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	require.NoError(t, os.WriteFile(
		ibtradepath.ConfigFilePath(dirPath),
		[]byte("version: v1\nibkr:\n  query_id: \"1\"\nbase_currency: EUR\nsymbols: []\n"),
		0o644,
	))
	_, err := ReadConfig(dirPath)
	require.ErrorContains(t, err, "field symbols not found")
}

func TestNewConfig(t *testing.T) {
	t.Parallel()
	backup := false
	config, err := NewConfig(
		"/base",
		ExternalConfig{
			Version:      "v1",
			IBKR:         ExternalIBKRConfig{QueryID: "1", Timezone: "Europe/Zurich"},
			BaseCurrency: "CAD",
			FXRateSource: "bankofcanada",
			Database:     "data/trades.db",
			Backup:       &backup,
			Match:        ExternalMatchConfig{GroupBy: "conid", Concurrency: 2},
		},
	)
	require.NoError(t, err)
	require.Equal(t, "Europe/Zurich", config.Location.String())
	require.Equal(t, FXRateSourceBankOfCanada, config.FXRateSource)
	require.Equal(t, filepath.Join("/base", "data", "trades.db"), config.DatabaseFilePath)
	require.False(t, config.Backup)
	require.Equal(t, ibtradefifo.GroupByConid, config.GroupBy)
	require.Equal(t, 2, config.Concurrency)

	valid := ExternalConfig{Version: "v1", IBKR: ExternalIBKRConfig{QueryID: "1"}, BaseCurrency: "USD"}
	for name, modify := range map[string]func(*ExternalConfig){
		"version":     func(c *ExternalConfig) { c.Version = "v2" },
		"query id":    func(c *ExternalConfig) { c.IBKR.QueryID = "" },
		"timezone":    func(c *ExternalConfig) { c.IBKR.Timezone = "Mars/Olympus" },
		"currency":    func(c *ExternalConfig) { c.BaseCurrency = "usd" },
		"fx source":   func(c *ExternalConfig) { c.FXRateSource = "ecb" },
		"fx base":     func(c *ExternalConfig) { c.FXRateSource = "bankofcanada" },
		"group by":    func(c *ExternalConfig) { c.Match.GroupBy = "isin" },
		"concurrency": func(c *ExternalConfig) { c.Match.Concurrency = -1 },
	} {
		externalConfig := valid
		modify(&externalConfig)
		_, err := NewConfig("/base", externalConfig)
		require.Error(t, err, name)
	}
	_, err = NewConfig("/base", valid)
	require.NoError(t, err)
}
