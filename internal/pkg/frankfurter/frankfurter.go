// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package frankfurter provides a client for fetching exchange rates from frankfurter.dev.
//
// The frankfurter.dev API is free and does not require an API key or authentication.
// It publishes rates for business days only. See https://frankfurter.dev for usage
// details and rate limits.
package frankfurter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bufdev/ibtrade/internal/pkg/fxrate"
	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the frankfurter.dev API base URL.
const DefaultBaseURL = "https://api.frankfurter.dev/v1"

// ClientOption is an option for a new Client.
type ClientOption func(*client)

// ClientWithBaseURL returns a new ClientOption that overrides the API base URL.
func ClientWithBaseURL(baseURL string) ClientOption {
	return func(client *client) {
		client.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// NewClient creates a new exchange rate client.
func NewClient(options ...ClientOption) fxrate.Client {
	client := &client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// *** PRIVATE ***

type client struct {
	httpClient *http.Client
	baseURL    string
}

// frankfurterResponse is the JSON response from the frankfurter.dev API for time series.
//
// Rates are decoded as json.Number so that the published digits are kept exactly.
type frankfurterResponse struct {
	Rates map[string]map[string]json.Number `json:"rates"`
}

func (c *client) GetRates(ctx context.Context, baseCurrency string, quoteCurrency string, startDate xtime.Date, endDate xtime.Date) ([]fxrate.DailyRate, error) {
	if baseCurrency == "" || quoteCurrency == "" {
		return nil, errors.New("base and quote currencies are required")
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}
	// The time series endpoint takes an inclusive range.
	requestURL := fmt.Sprintf("%s/%s..%s?base=%s&symbols=%s", c.baseURL, startDate, endDate, baseCurrency, quoteCurrency)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", response.StatusCode, string(body))
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var frankfurterResponse frankfurterResponse
	if err := decoder.Decode(&frankfurterResponse); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	rates := make([]fxrate.DailyRate, 0, len(frankfurterResponse.Rates))
	for dateString, currencyToRate := range frankfurterResponse.Rates {
		rateNumber, ok := currencyToRate[quoteCurrency]
		if !ok {
			continue
		}
		date, err := xtime.ParseDate(dateString)
		if err != nil {
			return nil, fmt.Errorf("parsing rate date %q: %w", dateString, err)
		}
		rate, err := decimal.NewFromString(rateNumber.String())
		if err != nil {
			return nil, fmt.Errorf("parsing rate %q for %s: %w", rateNumber, dateString, err)
		}
		rates = append(rates, fxrate.DailyRate{Date: date, Rate: rate})
	}
	fxrate.SortRates(rates)
	return rates, nil
}
