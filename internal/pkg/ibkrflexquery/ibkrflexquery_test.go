// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrflexquery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bufdev/ibtrade/internal/pkg/backoff"
	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/stretchr/testify/require"
)

const testStatement = `<?xml version="1.0" encoding="UTF-8"?>
<FlexQueryResponse queryName="trades" type="AF">
<FlexStatements count="1">
<FlexStatement accountId="U1234567" fromDate="20230101" toDate="20231231" whenGenerated="20240102;101500">
<Trades>
<Trade accountId="U1234567" currency="USD" fxRateToBase="0.9" assetCategory="STK" symbol="KMI" description="KINDER MORGAN INC" conid="60002" tradeID="987654321" tradeDate="20230301" dateTime="20230301;093000" buySell="BUY" openCloseIndicator="O" quantity="100" tradePrice="17.7" multiplier="1" proceeds="-1770" ibCommission="-1" netCash="-1771" fifoPnlRealized="0" ibOrderID="555555" />
<Trade accountId="U1234567" currency="USD" fxRateToBase="0.96" assetCategory="STK" symbol="KMI" description="KINDER MORGAN INC" conid="60002" tradeID="987654399" tradeDate="20230601" dateTime="20230601;140000" buySell="SELL" openCloseIndicator="C" quantity="-100" tradePrice="19.01" multiplier="1" proceeds="1901" ibCommission="-1" netCash="1900" fifoPnlRealized="129" ibOrderID="555556" />
</Trades>
<CashTransactions>
<CashTransaction accountId="U1234567" currency="USD" fxRateToBase="0.92" symbol="KMI" description="KMI CASH DIVIDEND" dateTime="20230515" settleDate="20230515" amount="27.75" type="Dividends" transactionID="1122334455" tradeID="" />
</CashTransactions>
</FlexStatement>
</FlexStatements>
</FlexQueryResponse>
`

func TestParse(t *testing.T) {
	t.Parallel()
	response, err := Parse([]byte(testStatement))
	require.NoError(t, err)
	require.Equal(t, "trades", response.QueryName)
	require.Len(t, response.FlexStatements, 1)
	statement := response.FlexStatements[0]
	require.Equal(t, "U1234567", statement.AccountID)
	require.Equal(t, "20230101", statement.FromDate)
	require.Len(t, statement.Trades, 2)
	require.Equal(t, "987654321", statement.Trades[0].TradeID)
	require.Equal(t, "-1771", statement.Trades[0].NetCash)
	require.Equal(t, "0.9", statement.Trades[0].FXRateToBase)
	require.Equal(t, "20230301;093000", statement.Trades[0].DateTime)
	require.Equal(t, "C", statement.Trades[1].OpenCloseIndicator)
	require.Len(t, statement.CashTransactions, 1)
	require.Equal(t, "Dividends", statement.CashTransactions[0].Type)
	require.Equal(t, "1122334455", statement.CashTransactions[0].TransactionID)

	_, err = Parse([]byte("<FlexQueryResponse>"))
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	t.Parallel()
	filePath := filepath.Join(t.TempDir(), "statement.xml")
	require.NoError(t, os.WriteFile(filePath, []byte(testStatement), 0o600))
	response, err := ParseFile(filePath)
	require.NoError(t, err)
	require.Len(t, response.FlexStatements[0].Trades, 2)
	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)
}

func TestDownload(t *testing.T) {
	t.Parallel()
	var getCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("User-Agent") != "Java" {
			writer.WriteHeader(http.StatusForbidden)
			return
		}
		query := request.URL.Query()
		switch request.URL.Path {
		case "/SendRequest":
			if query.Get("t") != "token" || query.Get("q") != "123" || query.Get("fd") != "20230101" || query.Get("td") != "20231231" {
				_, _ = fmt.Fprint(writer, `<FlexStatementResponse><Status>Fail</Status><ErrorCode>1020</ErrorCode><ErrorMessage>Invalid request</ErrorMessage></FlexStatementResponse>`)
				return
			}
			_, _ = fmt.Fprint(writer, `<FlexStatementResponse><Status>Success</Status><ReferenceCode>ref1</ReferenceCode></FlexStatementResponse>`)
		case "/GetStatement":
			if query.Get("q") != "ref1" {
				writer.WriteHeader(http.StatusBadRequest)
				return
			}
			// The first poll reports that the statement is still generating.
			if getCalls.Add(1) == 1 {
				_, _ = fmt.Fprint(writer, `<FlexStatementResponse><Status>Warn</Status><ErrorCode>1019</ErrorCode><ErrorMessage>Statement generation in progress.</ErrorMessage></FlexStatementResponse>`)
				return
			}
			_, _ = fmt.Fprint(writer, testStatement)
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	client := newTestClient(server.URL)
	data, err := client.Download(
		context.Background(),
		"token",
		"123",
		xtime.Date{Year: 2023, Month: time.January, Day: 1},
		xtime.Date{Year: 2023, Month: time.December, Day: 31},
	)
	require.NoError(t, err)
	require.Equal(t, testStatement, string(data))
	require.Equal(t, int32(2), getCalls.Load())

	// A non-retryable error code fails immediately.
	_, err = client.Download(context.Background(), "bad", "123", xtime.Date{}, xtime.Date{})
	require.ErrorContains(t, err, "Invalid request (code: 1020)")
	require.False(t, backoff.IsRetryable(err))
}

func TestDownloadValidation(t *testing.T) {
	t.Parallel()
	client := newTestClient("http://127.0.0.1:0")
	ctx := context.Background()
	date := xtime.Date{Year: 2023, Month: time.January, Day: 1}
	_, err := client.Download(ctx, "", "123", xtime.Date{}, xtime.Date{})
	require.ErrorContains(t, err, "token is required")
	_, err = client.Download(ctx, "token", "", xtime.Date{}, xtime.Date{})
	require.ErrorContains(t, err, "query ID is required")
	_, err = client.Download(ctx, "token", "123", date, xtime.Date{})
	require.ErrorContains(t, err, "both be set")
	_, err = client.Download(ctx, "token", "123", date.AddDays(1), date)
	require.ErrorContains(t, err, "is before")
}

func TestDownloadHTTPError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		http.Error(writer, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	_, err := newTestClient(server.URL).Download(context.Background(), "token", "123", xtime.Date{}, xtime.Date{})
	require.ErrorContains(t, err, "unexpected status 500")
}

func TestAnonymize(t *testing.T) {
	t.Parallel()
	data, err := Anonymize([]byte(testStatement))
	require.NoError(t, err)
	response, err := Parse(data)
	require.NoError(t, err)
	statement := response.FlexStatements[0]
	require.Equal(t, "U0000001", statement.AccountID)
	require.Equal(t, "U0000001", statement.Trades[0].AccountID)
	require.Equal(t, "400000001", statement.Trades[0].TradeID)
	require.Equal(t, "400000002", statement.Trades[1].TradeID)
	require.Equal(t, "30001", statement.Trades[0].Conid)
	require.Equal(t, "30001", statement.Trades[1].Conid)
	require.Equal(t, "5000000001", statement.CashTransactions[0].TransactionID)
	require.Empty(t, statement.CashTransactions[0].TradeID)
	// Non-sensitive attributes are untouched.
	require.Equal(t, "KMI", statement.Trades[0].Symbol)
	require.Equal(t, "-1771", statement.Trades[0].NetCash)
	require.NotContains(t, string(data), "U1234567")
	require.NotContains(t, string(data), "555555")

	_, err = Anonymize([]byte("<FlexQueryResponse><Trade></FlexQueryResponse>"))
	require.Error(t, err)
}

// *** PRIVATE ***

func newTestClient(baseURL string) Client {
	return NewClient(
		slog.New(slog.DiscardHandler),
		ClientWithBaseURL(baseURL),
		ClientWithRetryPolicy(
			backoff.Policy{
				MaxAttempts:  3,
				InitialDelay: time.Millisecond,
				MaxDelay:     time.Millisecond,
			},
		),
	)
}
