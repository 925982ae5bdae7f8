// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package cliio provides output formatting for CLI commands (table, CSV, JSON).
//
// List commands describe their output once as a slice of Columns and call Write,
// which renders the same objects in whichever Format the user selected.
package cliio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	// FormatTable is the default table output format.
	FormatTable Format = "table"
	// FormatCSV is the CSV output format.
	FormatCSV Format = "csv"
	// FormatJSON is the JSON output format, one object per line.
	FormatJSON Format = "json"
)

// Format represents the output format for CLI commands.
type Format string

// ParseFormat parses a string into a Format, returning an error for unknown formats.
func ParseFormat(s string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(s))); format {
	case FormatTable, FormatCSV, FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: table, csv, json", s)
	}
}

// Column is a single output column for objects of type T.
type Column[T any] struct {
	// Header is the column header for table and CSV output.
	Header string
	// Value renders the column value for an object.
	Value func(T) string
}

// Write writes the objects in the given format.
//
// Table and CSV output use the columns. JSON output marshals each object as is.
func Write[T any](writer io.Writer, format Format, columns []Column[T], objects []T) error {
	return WriteWithTotals(writer, format, columns, objects, nil)
}

// WriteWithTotals is Write with a totals row appended to table output.
//
// The totals row is ignored for CSV and JSON, which are meant for further
// processing. A nil totals row writes no totals.
func WriteWithTotals[T any](writer io.Writer, format Format, columns []Column[T], objects []T, totalsRow []string) error {
	switch format {
	case FormatTable, "":
		return writeTable(writer, headers(columns), rows(columns, objects), totalsRow)
	case FormatCSV:
		return writeCSV(writer, append([][]string{headers(columns)}, rows(columns, objects)...))
	case FormatJSON:
		return writeJSON(writer, objects...)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// *** PRIVATE ***

func headers[T any](columns []Column[T]) []string {
	headers := make([]string, len(columns))
	for i, column := range columns {
		headers[i] = column.Header
	}
	return headers
}

func rows[T any](columns []Column[T], objects []T) [][]string {
	rows := make([][]string, len(objects))
	for i, object := range objects {
		row := make([]string, len(columns))
		for j, column := range columns {
			row[j] = column.Value(object)
		}
		rows[i] = row
	}
	return rows
}

// writeTable writes aligned columns. A non-nil totals row is written after a
// blank separator line through the same tabwriter so the columns line up.
func writeTable(writer io.Writer, headers []string, rows [][]string, totalsRow []string) error {
	tabWriter := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	lines := append([][]string{headers}, rows...)
	if totalsRow != nil {
		lines = append(lines, make([]string, len(headers)), totalsRow)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(tabWriter, strings.Join(line, "\t")); err != nil {
			return err
		}
	}
	return tabWriter.Flush()
}

func writeCSV(writer io.Writer, records [][]string) error {
	csvWriter := csv.NewWriter(writer)
	// WriteAll flushes and returns any write error.
	return csvWriter.WriteAll(records)
}

func writeJSON[T any](writer io.Writer, objects ...T) error {
	encoder := json.NewEncoder(writer)
	for _, object := range objects {
		if err := encoder.Encode(object); err != nil {
			return err
		}
	}
	return nil
}
