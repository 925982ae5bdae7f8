// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibtradestore

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradedata"
	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	decimalComparer = cmp.Comparer(func(a decimal.Decimal, b decimal.Decimal) bool {
		return a.Equal(b)
	})
	testTime = time.Date(2023, time.March, 1, 9, 30, 0, 123456789, time.FixedZone("EST", -5*3600))
)

func TestSaveStatementData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	trades := []*ibtradedata.Trade{
		newTestTrade(2, "U1", "KMI", "-100", testTime.Add(time.Hour)),
		newTestTrade(1, "U1", "KMI", "100", testTime),
		newTestTrade(3, "U2", "GME", "5", testTime.Add(2*time.Hour)),
	}
	cashTransactions := []*ibtradedata.CashTransaction{
		{
			TransactionID: 10,
			AccountID:     "U1",
			Currency:      "USD",
			FXRateToBase:  decimal.RequireFromString("0.92"),
			Symbol:        "KMI",
			Description:   "KMI CASH DIVIDEND",
			DateTime:      testTime,
			SettleDate:    xtime.TimeToDate(testTime),
			Amount:        decimal.RequireFromString("27.75"),
			Type:          "Dividends",
		},
	}
	newTrades, newCashTransactions, err := store.SaveStatementData(ctx, trades, cashTransactions)
	require.NoError(t, err)
	require.Equal(t, 3, newTrades)
	require.Equal(t, 1, newCashTransactions)

	// Saving again updates in place and reports nothing new.
	trades[0].NetCash = decimal.RequireFromString("1900.5")
	newTrades, newCashTransactions, err = store.SaveStatementData(ctx, trades, cashTransactions)
	require.NoError(t, err)
	require.Equal(t, 0, newTrades)
	require.Equal(t, 0, newCashTransactions)

	gotTrades, err := store.ListTrades(ctx, TradeFilter{})
	require.NoError(t, err)
	require.Len(t, gotTrades, 3)
	require.Equal(t, []int64{1, 2, 3}, []int64{gotTrades[0].TradeID, gotTrades[1].TradeID, gotTrades[2].TradeID})
	if diff := cmp.Diff(trades[1], gotTrades[0], decimalComparer); diff != "" {
		t.Errorf("trade mismatch (-want +got):\n%s", diff)
	}
	require.True(t, decimal.RequireFromString("1900.5").Equal(gotTrades[1].NetCash))

	gotTrades, err = store.ListTrades(ctx, TradeFilter{AccountID: "U1", Since: testTime.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, gotTrades, 1)
	require.Equal(t, int64(2), gotTrades[0].TradeID)
	gotTrades, err = store.ListTrades(ctx, TradeFilter{Symbol: "GME", Until: testTime.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Empty(t, gotTrades)

	gotCashTransactions, err := store.ListCashTransactions(ctx, TradeFilter{AccountID: "U1"})
	require.NoError(t, err)
	if diff := cmp.Diff(cashTransactions, gotCashTransactions, decimalComparer); diff != "" {
		t.Errorf("cash transactions mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceClosedTrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	closedTrades := []*ibtradedata.ClosedTrade{
		newTestClosedTrade(1, 3, "U1/KMI", "129", testTime, testTime.Add(2*time.Hour)),
		newTestClosedTrade(2, 4, "U1/KMI", "179", testTime.Add(time.Hour), testTime.Add(3*time.Hour)),
		// A short sale closed by a later buy sorts by the later buy.
		newTestClosedTrade(6, 5, "U1/KMI", "-3", testTime.Add(5*time.Hour), testTime.Add(4*time.Hour)),
		newTestClosedTrade(7, 8, "U12/X", "1", testTime, testTime.Add(time.Hour)),
	}
	newClosedTrades, removedClosedTrades, err := store.ReplaceClosedTrades(ctx, closedTrades)
	require.NoError(t, err)
	require.Equal(t, 4, newClosedTrades)
	require.Equal(t, 0, removedClosedTrades)

	// Re-running a match does not duplicate rows.
	closedTrades[0].Result = decimal.RequireFromString("130")
	newClosedTrades, removedClosedTrades, err = store.ReplaceClosedTrades(ctx, closedTrades)
	require.NoError(t, err)
	require.Equal(t, 0, newClosedTrades)
	require.Equal(t, 0, removedClosedTrades)

	gotClosedTrades, err := store.ListClosedTrades(ctx, ClosedTradeFilter{})
	require.NoError(t, err)
	if diff := cmp.Diff(closedTrades, gotClosedTrades, decimalComparer); diff != "" {
		t.Errorf("closed trades mismatch (-want +got):\n%s", diff)
	}
	gotClosedTrades, err = store.ListClosedTrades(ctx, ClosedTradeFilter{AccountID: "U1"})
	require.NoError(t, err)
	require.Len(t, gotClosedTrades, 3)
	gotClosedTrades, err = store.ListClosedTrades(ctx, ClosedTradeFilter{InstrumentKey: "U12/X"})
	require.NoError(t, err)
	require.Len(t, gotClosedTrades, 1)
	gotClosedTrades, err = store.ListClosedTrades(ctx, ClosedTradeFilter{Since: testTime.Add(3 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, gotClosedTrades, 2)

	// Matches that no longer occur are removed.
	replacement := []*ibtradedata.ClosedTrade{
		closedTrades[1],
		newTestClosedTrade(9, 3, "U1/KMI", "12", testTime.Add(-time.Hour), testTime.Add(2*time.Hour)),
	}
	newClosedTrades, removedClosedTrades, err = store.ReplaceClosedTrades(ctx, replacement)
	require.NoError(t, err)
	require.Equal(t, 1, newClosedTrades)
	require.Equal(t, 3, removedClosedTrades)
	gotClosedTrades, err = store.ListClosedTrades(ctx, ClosedTradeFilter{})
	require.NoError(t, err)
	require.Len(t, gotClosedTrades, 2)

	newClosedTrades, removedClosedTrades, err = store.ReplaceClosedTrades(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 0, newClosedTrades)
	require.Equal(t, 2, removedClosedTrades)
	gotClosedTrades, err = store.ListClosedTrades(ctx, ClosedTradeFilter{})
	require.NoError(t, err)
	require.Empty(t, gotClosedTrades)
}

func TestReplaceClosedTradesCanceled(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	closedTrades := []*ibtradedata.ClosedTrade{
		newTestClosedTrade(1, 3, "U1/KMI", "129", testTime, testTime.Add(2*time.Hour)),
	}
	_, _, err := store.ReplaceClosedTrades(context.Background(), closedTrades)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = store.ReplaceClosedTrades(ctx, nil)
	require.Error(t, err)
	// A failed replace keeps the previous set.
	gotClosedTrades, err := store.ListClosedTrades(context.Background(), ClosedTradeFilter{})
	require.NoError(t, err)
	require.Len(t, gotClosedTrades, 1)
}

func TestTables(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	_, _, err := store.SaveStatementData(ctx, []*ibtradedata.Trade{newTestTrade(1, "U1", "KMI", "1", testTime)}, nil)
	require.NoError(t, err)
	tableCounts, err := store.TableCounts(ctx)
	require.NoError(t, err)
	require.Equal(
		t,
		[]TableCount{
			{Name: TradeTableName, Exists: true, Count: 1},
			{Name: CashTransactionTableName, Exists: true, Count: 0},
			{Name: ClosedTradeTableName, Exists: true, Count: 0},
		},
		tableCounts,
	)
	require.NoError(t, store.DropTables(ctx))
	tableCounts, err = store.TableCounts(ctx)
	require.NoError(t, err)
	for _, tableCount := range tableCounts {
		require.False(t, tableCount.Exists, tableCount.Name)
	}
	require.NoError(t, store.CreateTables(ctx))
	tableCounts, err = store.TableCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, TableCount{Name: TradeTableName, Exists: true}, tableCounts[0])
}

func TestNewStoreReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	filePath := filepath.Join(t.TempDir(), "nested", "ibtrade.db")
	store, err := NewStore(ctx, slog.New(slog.DiscardHandler), filePath)
	require.NoError(t, err)
	_, _, err = store.SaveStatementData(ctx, []*ibtradedata.Trade{newTestTrade(1, "U1", "KMI", "1", testTime)}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	store, err = NewStore(ctx, slog.New(slog.DiscardHandler), filePath)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	trades, err := store.ListTrades(ctx, TradeFilter{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.True(t, testTime.Equal(trades[0].DateTime))
}

// *** PRIVATE ***

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(context.Background(), slog.New(slog.DiscardHandler), filepath.Join(t.TempDir(), "ibtrade.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

// newTestTrade returns a trade with its DateTime in UTC, as the store returns it.
func newTestTrade(tradeID int64, accountID string, symbol string, quantity string, dateTime time.Time) *ibtradedata.Trade {
	return &ibtradedata.Trade{
		TradeID:         tradeID,
		AccountID:       accountID,
		AssetCategory:   "STK",
		Symbol:          symbol,
		Description:     symbol + " INC",
		Conid:           "1234",
		Currency:        "USD",
		FXRateToBase:    decimal.RequireFromString("0.9"),
		TradeDate:       xtime.TimeToDate(dateTime),
		DateTime:        dateTime.UTC(),
		BuySell:         "BUY",
		Quantity:        decimal.RequireFromString(quantity),
		TradePrice:      decimal.RequireFromString("17.71"),
		Multiplier:      decimal.NewFromInt(1),
		Proceeds:        decimal.RequireFromString("-1770"),
		IBCommission:    decimal.RequireFromString("-1"),
		NetCash:         decimal.RequireFromString("-1771"),
		FifoPnlRealized: decimal.Zero,
	}
}

func newTestClosedTrade(
	openTradeID int64,
	closeTradeID int64,
	instrumentKey string,
	result string,
	openDateTime time.Time,
	closeDateTime time.Time,
) *ibtradedata.ClosedTrade {
	return &ibtradedata.ClosedTrade{
		OpenTradeID:        openTradeID,
		CloseTradeID:       closeTradeID,
		InstrumentKey:      instrumentKey,
		Quantity:           decimal.NewFromInt(100),
		Result:             decimal.RequireFromString(result),
		ResultBaseCurrency: decimal.RequireFromString(result),
		OpenDateTime:       openDateTime.UTC(),
		CloseDateTime:      closeDateTime.UTC(),
	}
}
