// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package bankofcanada provides a client for fetching FX rates from the
// Bank of Canada valet API.
//
// The valet API provides daily exchange rates for currencies quoted in CAD.
// Series names follow the pattern FX{base}CAD (e.g., FXUSDCAD for USD→CAD).
// The API is free and does not require authentication.
//
// See https://www.bankofcanada.ca/valet/docs for API documentation.
package bankofcanada

import (
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

const (
	// DefaultBaseURL is the Bank of Canada valet observations base URL.
	DefaultBaseURL = "https://www.bankofcanada.ca/valet/observations"
	// QuoteCurrency is the only quote currency the valet API publishes.
	QuoteCurrency = "CAD"
)

// ClientOption is an option for a new Client.
type ClientOption func(*client)

// ClientWithBaseURL returns a new ClientOption that overrides the API base URL.
func ClientWithBaseURL(baseURL string) ClientOption {
	return func(client *client) {
		client.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// NewClient creates a new Bank of Canada API client.
//
// The client only serves rates quoted in CAD.
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

func (c *client) GetRates(ctx context.Context, baseCurrency string, quoteCurrency string, startDate xtime.Date, endDate xtime.Date) ([]fxrate.DailyRate, error) {
	if quoteCurrency != QuoteCurrency {
		return nil, fmt.Errorf("the Bank of Canada only publishes rates quoted in %s, not %q", QuoteCurrency, quoteCurrency)
	}
	if baseCurrency == "" {
		return nil, errors.New("base currency is required")
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}
	seriesName := "FX" + baseCurrency + QuoteCurrency
	requestURL := fmt.Sprintf("%s/%s/json?start_date=%s&end_date=%s", c.baseURL, seriesName, startDate, endDate)
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
	var valetResponse valetResponse
	if err := json.Unmarshal(body, &valetResponse); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	rates := make([]fxrate.DailyRate, 0, len(valetResponse.Observations))
	for _, observation := range valetResponse.Observations {
		rateValue, ok := observation.Rates[seriesName]
		// Holidays can have an empty value.
		if !ok || rateValue.Value == "" {
			continue
		}
		date, err := xtime.ParseDate(observation.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing observation date %q: %w", observation.Date, err)
		}
		rate, err := decimal.NewFromString(rateValue.Value)
		if err != nil {
			return nil, fmt.Errorf("parsing rate %q for %s: %w", rateValue.Value, observation.Date, err)
		}
		rates = append(rates, fxrate.DailyRate{Date: date, Rate: rate})
	}
	fxrate.SortRates(rates)
	return rates, nil
}

// valetResponse is the JSON response from the Bank of Canada valet API.
type valetResponse struct {
	Observations []valetObservation `json:"observations"`
}

// valetObservation is a single daily observation.
//
// The observation is a flat object with "d" for the date and one key per
// series, e.g. {"d": "2024-01-02", "FXUSDCAD": {"v": "1.3316"}}.
type valetObservation struct {
	Date  string
	Rates map[string]valetRateValue
}

type valetRateValue struct {
	Value string `json:"v"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *valetObservation) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Rates = make(map[string]valetRateValue)
	for key, value := range raw {
		if key == "d" {
			if err := json.Unmarshal(value, &o.Date); err != nil {
				return fmt.Errorf("parsing date: %w", err)
			}
			continue
		}
		var rateValue valetRateValue
		// Keys that are not rate series are ignored.
		if err := json.Unmarshal(value, &rateValue); err != nil {
			continue
		}
		o.Rates[key] = rateValue
	}
	return nil
}
