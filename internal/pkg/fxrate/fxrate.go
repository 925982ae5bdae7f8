// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package fxrate defines the interface shared by daily exchange rate sources.
package fxrate

import (
	"context"
	"slices"

	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// DailyRate is a single daily exchange rate.
type DailyRate struct {
	// Date is the rate date.
	Date xtime.Date
	// Rate is the number of quote currency units per base currency unit.
	Rate decimal.Decimal
}

// Client fetches daily exchange rates.
type Client interface {
	// GetRates fetches daily exchange rates for an inclusive date range.
	//
	// Rates are returned sorted by date. Days without a published rate
	// (weekends, holidays) are absent.
	GetRates(ctx context.Context, baseCurrency string, quoteCurrency string, startDate xtime.Date, endDate xtime.Date) ([]DailyRate, error)
}

// RateOnOrBefore returns the rate for the latest date on or before date.
//
// The rates must be sorted by date, as returned by GetRates.
// Returns false if no rate is on or before date.
func RateOnOrBefore(rates []DailyRate, date xtime.Date) (decimal.Decimal, bool) {
	index, found := slices.BinarySearchFunc(rates, date, func(rate DailyRate, target xtime.Date) int {
		return rate.Date.Compare(target)
	})
	if found {
		return rates[index].Rate, true
	}
	if index == 0 {
		return decimal.Decimal{}, false
	}
	return rates[index-1].Rate, true
}

// SortRates sorts rates by date.
func SortRates(rates []DailyRate) {
	slices.SortFunc(rates, func(a DailyRate, b DailyRate) int {
		return a.Date.Compare(b.Date)
	})
}
