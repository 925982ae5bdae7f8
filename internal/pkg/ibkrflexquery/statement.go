// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrflexquery

import (
	"encoding/xml"
	"fmt"
	"os"
)

// FlexQueryResponse is the top-level element of a Flex Query statement.
type FlexQueryResponse struct {
	XMLName xml.Name `xml:"FlexQueryResponse"`
	// QueryName is the name of the Flex Query in the IBKR portal.
	QueryName string `xml:"queryName,attr"`
	// Type is the statement type, "AF" for activity flex queries.
	Type string `xml:"type,attr"`
	// FlexStatements contains one FlexStatement per IBKR account.
	FlexStatements []FlexStatement `xml:"FlexStatements>FlexStatement"`
}

// FlexStatement contains the data returned by a Flex Query for a single IBKR account.
type FlexStatement struct {
	// AccountID is the IBKR account identifier (e.g., "U1234567").
	AccountID string `xml:"accountId,attr"`
	// FromDate is the first day covered, in YYYYMMDD format.
	FromDate string `xml:"fromDate,attr"`
	// ToDate is the last day covered, in YYYYMMDD format.
	ToDate string `xml:"toDate,attr"`
	// WhenGenerated is the generation time, in YYYYMMDD;HHMMSS format.
	WhenGenerated string `xml:"whenGenerated,attr"`
	// Trades is the list of trade executions.
	Trades []XMLTrade `xml:"Trades>Trade"`
	// CashTransactions is the list of cash transactions.
	CashTransactions []XMLCashTransaction `xml:"CashTransactions>CashTransaction"`
}

// XMLTrade represents a trade in the IBKR Flex Query XML format.
// All fields are XML attributes and are kept as the raw strings IBKR sends.
type XMLTrade struct {
	AccountID          string `xml:"accountId,attr"`
	Currency           string `xml:"currency,attr"`
	FXRateToBase       string `xml:"fxRateToBase,attr"`
	AssetCategory      string `xml:"assetCategory,attr"`
	Symbol             string `xml:"symbol,attr"`
	Description        string `xml:"description,attr"`
	Conid              string `xml:"conid,attr"`
	TradeID            string `xml:"tradeID,attr"`
	TradeDate          string `xml:"tradeDate,attr"`
	DateTime           string `xml:"dateTime,attr"`
	BuySell            string `xml:"buySell,attr"`
	OpenCloseIndicator string `xml:"openCloseIndicator,attr"`
	Quantity           string `xml:"quantity,attr"`
	TradePrice         string `xml:"tradePrice,attr"`
	Multiplier         string `xml:"multiplier,attr"`
	Proceeds           string `xml:"proceeds,attr"`
	IBCommission       string `xml:"ibCommission,attr"`
	NetCash            string `xml:"netCash,attr"`
	FifoPnlRealized    string `xml:"fifoPnlRealized,attr"`
}

// XMLCashTransaction represents a cash transaction in the IBKR Flex Query XML format.
type XMLCashTransaction struct {
	AccountID     string `xml:"accountId,attr"`
	Currency      string `xml:"currency,attr"`
	FXRateToBase  string `xml:"fxRateToBase,attr"`
	Symbol        string `xml:"symbol,attr"`
	Description   string `xml:"description,attr"`
	DateTime      string `xml:"dateTime,attr"`
	SettleDate    string `xml:"settleDate,attr"`
	Amount        string `xml:"amount,attr"`
	Type          string `xml:"type,attr"`
	TransactionID string `xml:"transactionID,attr"`
	TradeID       string `xml:"tradeID,attr"`
}

// Parse parses Flex Query statement XML.
func Parse(data []byte) (*FlexQueryResponse, error) {
	var response FlexQueryResponse
	if err := xml.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("parsing flex query statement: %w", err)
	}
	return &response, nil
}

// ParseFile reads and parses a Flex Query statement XML file.
func ParseFile(filePath string) (*FlexQueryResponse, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	response, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return response, nil
}
