// Copyright 2026 Peter Edge
//
// All rights reserved.

package cliio

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testRow struct {
	Symbol   string `json:"symbol"`
	Quantity int    `json:"quantity"`
}

var testColumns = []Column[testRow]{
	{Header: "SYMBOL", Value: func(row testRow) string { return row.Symbol }},
	{Header: "QUANTITY", Value: func(row testRow) string { return strconv.Itoa(row.Quantity) }},
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for input, want := range map[string]Format{
		"table": FormatTable,
		"CSV":   FormatCSV,
		" json": FormatJSON,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("yaml")
	require.Error(t, err)
}

func TestWrite(t *testing.T) {
	t.Parallel()
	rows := []testRow{{Symbol: "KMI", Quantity: 100}, {Symbol: "GME", Quantity: 5}}

	var buffer bytes.Buffer
	require.NoError(t, Write(&buffer, FormatTable, testColumns, rows))
	require.Equal(t, "SYMBOL  QUANTITY\nKMI     100\nGME     5\n", buffer.String())

	buffer.Reset()
	require.NoError(t, Write(&buffer, FormatCSV, testColumns, rows))
	require.Equal(t, "SYMBOL,QUANTITY\nKMI,100\nGME,5\n", buffer.String())

	buffer.Reset()
	require.NoError(t, Write(&buffer, FormatJSON, testColumns, rows))
	require.Equal(t, "{\"symbol\":\"KMI\",\"quantity\":100}\n{\"symbol\":\"GME\",\"quantity\":5}\n", buffer.String())

	require.Error(t, Write(&buffer, Format("xml"), testColumns, rows))
}

func TestWriteWithTotals(t *testing.T) {
	t.Parallel()
	rows := []testRow{{Symbol: "KMI", Quantity: 100}}

	var buffer bytes.Buffer
	require.NoError(t, WriteWithTotals(&buffer, FormatTable, testColumns, rows, []string{"TOTAL", "100"}))
	require.True(t, strings.HasPrefix(buffer.String(), "SYMBOL  QUANTITY\nKMI     100\n"))
	require.True(t, strings.HasSuffix(buffer.String(), "\nTOTAL   100\n"))
	require.Len(t, strings.Split(strings.TrimSuffix(buffer.String(), "\n"), "\n"), 4)

	buffer.Reset()
	require.NoError(t, WriteWithTotals(&buffer, FormatCSV, testColumns, rows, []string{"TOTAL", "100"}))
	require.Equal(t, "SYMBOL,QUANTITY\nKMI,100\n", buffer.String())
}
