// Copyright 2026 Peter Edge
//
// All rights reserved.

package fxrate

import (
	"testing"
	"time"

	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRateOnOrBefore(t *testing.T) {
	t.Parallel()
	rates := []DailyRate{
		{Date: xtime.Date{Year: 2023, Month: time.March, Day: 7}, Rate: decimal.RequireFromString("0.93817")},
		{Date: xtime.Date{Year: 2023, Month: time.March, Day: 3}, Rate: decimal.RequireFromString("0.94171")},
		{Date: xtime.Date{Year: 2023, Month: time.March, Day: 6}, Rate: decimal.RequireFromString("0.93721")},
	}
	SortRates(rates)
	require.Equal(t, "2023-03-03", rates[0].Date.String())
	require.Equal(t, "2023-03-07", rates[2].Date.String())

	// Saturday and Sunday fall back to Friday.
	rate, ok := RateOnOrBefore(rates, xtime.Date{Year: 2023, Month: time.March, Day: 5})
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("0.94171").Equal(rate))
	rate, ok = RateOnOrBefore(rates, xtime.Date{Year: 2023, Month: time.March, Day: 6})
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("0.93721").Equal(rate))
	rate, ok = RateOnOrBefore(rates, xtime.Date{Year: 2024, Month: time.January, Day: 1})
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("0.93817").Equal(rate))
	_, ok = RateOnOrBefore(rates, xtime.Date{Year: 2023, Month: time.March, Day: 2})
	require.False(t, ok)
	_, ok = RateOnOrBefore(nil, xtime.Date{Year: 2023, Month: time.March, Day: 2})
	require.False(t, ok)
}
