// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibtradecmd

import (
	"os"
	"testing"
	"time"

	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradepath"
	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/stretchr/testify/require"
)

func TestParseDateFlag(t *testing.T) {
	t.Parallel()
	want := xtime.Date{Year: 2024, Month: time.February, Day: 29}
	date, err := ParseDateFlag("from", "20240229")
	require.NoError(t, err)
	require.Equal(t, want, date)
	date, err = ParseDateFlag("from", "2024-02-29")
	require.NoError(t, err)
	require.Equal(t, want, date)
	date, err = ParseDateFlag("from", "")
	require.NoError(t, err)
	require.True(t, date.IsZero())
	_, err = ParseDateFlag("from", "20230229")
	require.ErrorContains(t, err, "--from")
}

func TestParseDateRangeFlags(t *testing.T) {
	t.Parallel()
	location, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	since, until, err := ParseDateRangeFlags("since", "20240301", "until", "20240310", location)
	require.NoError(t, err)
	require.True(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, location).Equal(since))
	require.True(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, location).Equal(until))
	since, until, err = ParseDateRangeFlags("since", "", "until", "", location)
	require.NoError(t, err)
	require.True(t, since.IsZero())
	require.True(t, until.IsZero())
	_, _, err = ParseDateRangeFlags("since", "", "until", "tomorrow", location)
	require.ErrorContains(t, err, "--until")
}

func TestFormatDateTime(t *testing.T) {
	t.Parallel()
	location, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	require.Equal(t, "2024-03-01 09:30:00", FormatDateTime(time.Date(2024, time.March, 1, 14, 30, 0, 0, time.UTC), location))
	require.Equal(t, "", FormatDateTime(time.Time{}, location))
}

func TestGetIBKRToken(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	emptyEnv := func(string) string { return "" }
	_, err := getIBKRToken(emptyEnv, dirPath)
	require.ErrorContains(t, err, "IBKR_TOKEN is required")

	require.NoError(t, os.WriteFile(ibtradepath.EnvFilePath(dirPath), []byte("# flex token\nIBKR_TOKEN=from-file\n"), 0o600))
	ibkrToken, err := getIBKRToken(emptyEnv, dirPath)
	require.NoError(t, err)
	require.Equal(t, "from-file", ibkrToken)

	ibkrToken, err = getIBKRToken(
		func(key string) string {
			if key == "IBKR_TOKEN" {
				return "from-env"
			}
			return ""
		},
		dirPath,
	)
	require.NoError(t, err)
	require.Equal(t, "from-env", ibkrToken)
}
