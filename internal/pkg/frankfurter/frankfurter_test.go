// Copyright 2026 Peter Edge
//
// All rights reserved.

package frankfurter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/stretchr/testify/require"
)

func TestGetRates(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/2023-03-03..2023-03-07" ||
			request.URL.Query().Get("base") != "USD" ||
			request.URL.Query().Get("symbols") != "EUR" {
			http.NotFound(writer, request)
			return
		}
		_, _ = fmt.Fprint(writer, `{"amount":1.0,"base":"USD","start_date":"2023-03-03","end_date":"2023-03-07","rates":{"2023-03-07":{"EUR":0.93817},"2023-03-03":{"EUR":0.94171},"2023-03-06":{"EUR":0.93721}}}`)
	}))
	t.Cleanup(server.Close)
	client := NewClient(ClientWithBaseURL(server.URL + "/"))
	rates, err := client.GetRates(
		context.Background(),
		"USD",
		"EUR",
		xtime.Date{Year: 2023, Month: time.March, Day: 3},
		xtime.Date{Year: 2023, Month: time.March, Day: 7},
	)
	require.NoError(t, err)
	require.Len(t, rates, 3)
	require.Equal(t, "2023-03-03", rates[0].Date.String())
	require.Equal(t, "0.94171", rates[0].Rate.String())
	require.Equal(t, "2023-03-06", rates[1].Date.String())
	require.Equal(t, "2023-03-07", rates[2].Date.String())
}

func TestGetRatesErrors(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		http.Error(writer, "not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	client := NewClient(ClientWithBaseURL(server.URL))
	date := xtime.Date{Year: 2023, Month: time.March, Day: 3}
	_, err := client.GetRates(context.Background(), "USD", "EUR", date, date)
	require.ErrorContains(t, err, "unexpected status 404")
	_, err = client.GetRates(context.Background(), "", "EUR", date, date)
	require.Error(t, err)
	_, err = client.GetRates(context.Background(), "USD", "EUR", date, date.AddDays(-1))
	require.ErrorContains(t, err, "before start date")
}
