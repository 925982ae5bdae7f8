// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibkrflexquery provides an API client for the IBKR Flex Query Web Service
// and types for the Flex Query XML statement format.
//
// The Flex Query Web Service is a two-step REST API:
//  1. SendRequest: Submits a query and returns a reference code.
//  2. GetStatement: Polls with the reference code until the XML statement is ready.
//
// Both endpoints require a Flex Web Service token for authentication and
// a "Java" User-Agent header. IBKR reports "server busy" (1001) and
// "statement generating" (1019) as protocol states rather than failures; these
// are polled with backoff. Transport failures are returned to the caller as is.
package ibkrflexquery

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bufdev/ibtrade/internal/pkg/backoff"
	"github.com/bufdev/ibtrade/internal/standard/xtime"
)

const (
	// DefaultBaseURL is the IBKR Flex Web Service base URL.
	DefaultBaseURL = "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService"
	// userAgent is the required User-Agent header for IBKR (IBKR expects "Java").
	userAgent = "Java"
	// apiVersion is the Flex Web Service version sent as the "v" parameter.
	apiVersion = "3"
)

// DefaultRetryPolicy is the polling policy used for the generating states.
var DefaultRetryPolicy = backoff.Policy{
	MaxAttempts:  10,
	InitialDelay: 2 * time.Second,
	MaxDelay:     30 * time.Second,
}

// Client downloads Flex Query statements from IBKR.
type Client interface {
	// Download fetches a Flex Query statement and returns the raw XML.
	//
	// The token is the Flex Web Service token generated in the IBKR portal.
	// The queryID identifies which Flex Query to execute.
	// The fromDate and toDate optionally override the query's configured period.
	// Pass zero-value dates to use the query's default period.
	// If one is set, both must be set. Each request is limited to 365 days.
	//
	// The raw XML is returned so callers can keep a copy before parsing it with Parse.
	Download(ctx context.Context, token string, queryID string, fromDate xtime.Date, toDate xtime.Date) ([]byte, error)
}

// ClientOption is an option for a new Client.
type ClientOption func(*client)

// ClientWithBaseURL returns a new ClientOption that overrides the Flex Web
// Service base URL. The SendRequest and GetStatement paths are appended to it.
func ClientWithBaseURL(baseURL string) ClientOption {
	return func(client *client) {
		client.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// ClientWithHTTPClient returns a new ClientOption that uses the given http.Client.
func ClientWithHTTPClient(httpClient *http.Client) ClientOption {
	return func(client *client) {
		client.httpClient = httpClient
	}
}

// ClientWithRetryPolicy returns a new ClientOption that overrides the polling policy.
func ClientWithRetryPolicy(retryPolicy backoff.Policy) ClientOption {
	return func(client *client) {
		client.retryPolicy = retryPolicy
	}
}

// NewClient creates a new Flex Query API client. The logger is required.
func NewClient(logger *slog.Logger, options ...ClientOption) Client {
	client := &client{
		logger:      logger,
		httpClient:  http.DefaultClient,
		baseURL:     DefaultBaseURL,
		retryPolicy: DefaultRetryPolicy,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// *** PRIVATE ***

// retryableErrorCodes are IBKR error codes that indicate the statement is not ready yet.
var retryableErrorCodes = map[string]bool{
	"1001": true, // Statement could not be generated at this time.
	"1019": true, // Statement is being generated, please try again shortly.
}

type client struct {
	logger      *slog.Logger
	httpClient  *http.Client
	baseURL     string
	retryPolicy backoff.Policy
}

// statementResponse is the XML status response from both endpoints.
type statementResponse struct {
	XMLName       xml.Name `xml:"FlexStatementResponse"`
	Status        string   `xml:"Status"`
	ReferenceCode string   `xml:"ReferenceCode"`
	URL           string   `xml:"Url"`
	ErrorCode     string   `xml:"ErrorCode"`
	ErrorMessage  string   `xml:"ErrorMessage"`
}

func (c *client) Download(ctx context.Context, token string, queryID string, fromDate xtime.Date, toDate xtime.Date) ([]byte, error) {
	if token == "" {
		return nil, errors.New("token is required")
	}
	if queryID == "" {
		return nil, errors.New("query ID is required")
	}
	if fromDate.IsZero() != toDate.IsZero() {
		return nil, errors.New("fromDate and toDate must both be set or both be zero")
	}
	if !fromDate.IsZero() && toDate.Before(fromDate) {
		return nil, fmt.Errorf("toDate %s is before fromDate %s", toDate, fromDate)
	}
	referenceCode, err := c.sendRequest(ctx, token, queryID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("sending flex query request: %w", err)
	}
	c.logger.Info("flex query request sent", "reference_code", referenceCode)
	data, err := c.getStatement(ctx, token, referenceCode)
	if err != nil {
		return nil, fmt.Errorf("getting flex query statement: %w", err)
	}
	c.logger.Info("flex query statement received", "bytes", len(data))
	return data, nil
}

// sendRequest initiates a Flex Query and returns the reference code.
func (c *client) sendRequest(ctx context.Context, token string, queryID string, fromDate xtime.Date, toDate xtime.Date) (string, error) {
	// Parameter order matches IBKR docs: t, q, [fd, td], v.
	query := []queryParam{{"t", token}, {"q", queryID}}
	if !fromDate.IsZero() {
		query = append(query, queryParam{"fd", formatYYYYMMDD(fromDate)}, queryParam{"td", formatYYYYMMDD(toDate)})
	}
	query = append(query, queryParam{"v", apiVersion})
	requestURL := c.baseURL + "/SendRequest?" + encodeQuery(query)
	return backoff.Retry(ctx, c.retryPolicy, func(ctx context.Context, attempt int) (string, error) {
		if attempt > 0 {
			c.logger.Info("retrying send request", "attempt", attempt+1)
		}
		c.logger.Debug("send request", "query_id", queryID, "has_dates", !fromDate.IsZero())
		body, err := c.get(ctx, requestURL)
		if err != nil {
			return "", err
		}
		var response statementResponse
		if err := xml.Unmarshal(body, &response); err != nil {
			return "", fmt.Errorf("parsing send response: %w", err)
		}
		if response.Status != "Success" {
			return "", c.newStatusError(response)
		}
		if response.ReferenceCode == "" {
			return "", errors.New("send response is missing a reference code")
		}
		return response.ReferenceCode, nil
	})
}

// getStatement polls the GetStatement endpoint until the statement is ready.
func (c *client) getStatement(ctx context.Context, token string, referenceCode string) ([]byte, error) {
	// Parameter order matches IBKR docs: t, q, v.
	requestURL := c.baseURL + "/GetStatement?" + encodeQuery([]queryParam{{"t", token}, {"q", referenceCode}, {"v", apiVersion}})
	return backoff.Retry(ctx, c.retryPolicy, func(ctx context.Context, attempt int) ([]byte, error) {
		if attempt > 0 {
			c.logger.Info("waiting for flex query statement", "attempt", attempt+1)
		}
		body, err := c.get(ctx, requestURL)
		if err != nil {
			return nil, err
		}
		// A status response instead of a statement means it is not ready or failed.
		if strings.HasPrefix(strings.TrimSpace(string(body)), "<FlexStatementResponse") {
			var response statementResponse
			if err := xml.Unmarshal(body, &response); err != nil {
				return nil, fmt.Errorf("parsing get response: %w", err)
			}
			return nil, c.newStatusError(response)
		}
		return body, nil
	})
}

func (c *client) get(ctx context.Context, requestURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	// IBKR requires the "Java" User-Agent header.
	request.Header.Set("User-Agent", userAgent)
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
	return body, nil
}

func (c *client) newStatusError(response statementResponse) error {
	err := fmt.Errorf("%s (code: %s)", response.ErrorMessage, response.ErrorCode)
	if retryableErrorCodes[response.ErrorCode] {
		c.logger.Warn("statement not ready, will retry", "code", response.ErrorCode, "message", response.ErrorMessage)
		return backoff.Retryable(err)
	}
	return err
}

type queryParam struct {
	key   string
	value string
}

// encodeQuery encodes parameters in the given order, which url.Values does not preserve.
func encodeQuery(params []queryParam) string {
	pairs := make([]string, len(params))
	for i, param := range params {
		pairs[i] = url.QueryEscape(param.key) + "=" + url.QueryEscape(param.value)
	}
	return strings.Join(pairs, "&")
}

func formatYYYYMMDD(date xtime.Date) string {
	return fmt.Sprintf("%04d%02d%02d", date.Year, date.Month, date.Day)
}
