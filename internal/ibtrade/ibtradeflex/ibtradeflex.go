// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibtradeflex converts Flex Query XML records into ibtrade records.
package ibtradeflex

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradedata"
	"github.com/bufdev/ibtrade/internal/pkg/ibkrflexquery"
	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// dateTimeLayouts are the date-time formats a Flex Query may be configured to emit.
// Date-only layouts come last so that a date-only value means midnight.
var dateTimeLayouts = []string{
	"20060102;150405",
	"20060102 150405",
	"2006-01-02;15:04:05",
	"2006-01-02, 15:04:05",
	"2006-01-02 15:04:05",
	"20060102",
	"2006-01-02",
}

// Records are the records converted from a Flex Query statement.
type Records struct {
	// Trades are the successfully converted trades.
	Trades []*ibtradedata.Trade
	// CashTransactions are the successfully converted cash transactions.
	CashTransactions []*ibtradedata.CashTransaction
	// TradeErrors has one error per trade that could not be converted.
	TradeErrors []error
	// CashTransactionErrors has one error per cash transaction that could not be converted.
	CashTransactionErrors []error
}

// RecordsFromResponse converts all statements of a Flex Query response.
//
// Records that fail to convert are reported in the error slices and do not
// stop the conversion of other records. Times without a zone are interpreted
// in location.
func RecordsFromResponse(response *ibkrflexquery.FlexQueryResponse, location *time.Location) *Records {
	records := &Records{}
	for i := range response.FlexStatements {
		statement := &response.FlexStatements[i]
		for j := range statement.Trades {
			trade, err := TradeFromXML(statement.AccountID, &statement.Trades[j], location)
			if err != nil {
				records.TradeErrors = append(records.TradeErrors, err)
				continue
			}
			records.Trades = append(records.Trades, trade)
		}
		for j := range statement.CashTransactions {
			cashTransaction, err := CashTransactionFromXML(statement.AccountID, &statement.CashTransactions[j], location)
			if err != nil {
				records.CashTransactionErrors = append(records.CashTransactionErrors, err)
				continue
			}
			records.CashTransactions = append(records.CashTransactions, cashTransaction)
		}
	}
	return records
}

// TradeFromXML converts an XML trade into a Trade.
//
// The statementAccountID is used when the trade itself has no accountId attribute.
func TradeFromXML(statementAccountID string, xmlTrade *ibkrflexquery.XMLTrade, location *time.Location) (*ibtradedata.Trade, error) {
	tradeID, err := parseID(xmlTrade.TradeID)
	if err != nil {
		return nil, fmt.Errorf("trade %q: parsing trade id: %w", xmlTrade.TradeID, err)
	}
	// Wrap every remaining error with the trade id.
	newError := func(field string, value string, err error) error {
		return fmt.Errorf("trade %d: parsing %s %q: %w", tradeID, field, value, err)
	}
	dateTime, err := ParseDateTime(xmlTrade.DateTime, location)
	if err != nil {
		return nil, newError("date time", xmlTrade.DateTime, err)
	}
	tradeDate := xtime.TimeToDate(dateTime)
	if xmlTrade.TradeDate != "" {
		tradeDateTime, err := ParseDateTime(xmlTrade.TradeDate, location)
		if err != nil {
			return nil, newError("trade date", xmlTrade.TradeDate, err)
		}
		tradeDate = xtime.TimeToDate(tradeDateTime)
	}
	quantity, err := ParseDecimal(xmlTrade.Quantity)
	if err != nil {
		return nil, newError("quantity", xmlTrade.Quantity, err)
	}
	var fxRateToBase, tradePrice, multiplier, proceeds, ibCommission, netCash, fifoPnlRealized decimal.Decimal
	for _, optionalField := range []struct {
		name   string
		value  string
		target *decimal.Decimal
	}{
		{"fx rate to base", xmlTrade.FXRateToBase, &fxRateToBase},
		{"trade price", xmlTrade.TradePrice, &tradePrice},
		{"multiplier", xmlTrade.Multiplier, &multiplier},
		{"proceeds", xmlTrade.Proceeds, &proceeds},
		{"ib commission", xmlTrade.IBCommission, &ibCommission},
		{"net cash", xmlTrade.NetCash, &netCash},
		{"fifo pnl realized", xmlTrade.FifoPnlRealized, &fifoPnlRealized},
	} {
		if *optionalField.target, err = ParseOptionalDecimal(optionalField.value); err != nil {
			return nil, newError(optionalField.name, optionalField.value, err)
		}
	}
	accountID := xmlTrade.AccountID
	if accountID == "" {
		accountID = statementAccountID
	}
	return &ibtradedata.Trade{
		TradeID:            tradeID,
		AccountID:          accountID,
		AssetCategory:      xmlTrade.AssetCategory,
		Symbol:             xmlTrade.Symbol,
		Description:        xmlTrade.Description,
		Conid:              xmlTrade.Conid,
		Currency:           xmlTrade.Currency,
		FXRateToBase:       fxRateToBase,
		TradeDate:          tradeDate,
		DateTime:           dateTime,
		BuySell:            xmlTrade.BuySell,
		OpenCloseIndicator: xmlTrade.OpenCloseIndicator,
		Quantity:           quantity,
		TradePrice:         tradePrice,
		Multiplier:         multiplier,
		Proceeds:           proceeds,
		IBCommission:       ibCommission,
		NetCash:            netCash,
		FifoPnlRealized:    fifoPnlRealized,
	}, nil
}

// CashTransactionFromXML converts an XML cash transaction into a CashTransaction.
//
// The statementAccountID is used when the transaction itself has no accountId attribute.
func CashTransactionFromXML(
	statementAccountID string,
	xmlCashTransaction *ibkrflexquery.XMLCashTransaction,
	location *time.Location,
) (*ibtradedata.CashTransaction, error) {
	transactionID, err := parseID(xmlCashTransaction.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("cash transaction %q: parsing transaction id: %w", xmlCashTransaction.TransactionID, err)
	}
	newError := func(field string, value string, err error) error {
		return fmt.Errorf("cash transaction %d: parsing %s %q: %w", transactionID, field, value, err)
	}
	dateTime, err := ParseDateTime(xmlCashTransaction.DateTime, location)
	if err != nil {
		return nil, newError("date time", xmlCashTransaction.DateTime, err)
	}
	var settleDate xtime.Date
	if xmlCashTransaction.SettleDate != "" {
		settleDateTime, err := ParseDateTime(xmlCashTransaction.SettleDate, location)
		if err != nil {
			return nil, newError("settle date", xmlCashTransaction.SettleDate, err)
		}
		settleDate = xtime.TimeToDate(settleDateTime)
	}
	amount, err := ParseDecimal(xmlCashTransaction.Amount)
	if err != nil {
		return nil, newError("amount", xmlCashTransaction.Amount, err)
	}
	fxRateToBase, err := ParseOptionalDecimal(xmlCashTransaction.FXRateToBase)
	if err != nil {
		return nil, newError("fx rate to base", xmlCashTransaction.FXRateToBase, err)
	}
	var tradeID int64
	if xmlCashTransaction.TradeID != "" {
		if tradeID, err = parseID(xmlCashTransaction.TradeID); err != nil {
			return nil, newError("trade id", xmlCashTransaction.TradeID, err)
		}
	}
	accountID := xmlCashTransaction.AccountID
	if accountID == "" {
		accountID = statementAccountID
	}
	return &ibtradedata.CashTransaction{
		TransactionID: transactionID,
		AccountID:     accountID,
		Currency:      xmlCashTransaction.Currency,
		FXRateToBase:  fxRateToBase,
		Symbol:        xmlCashTransaction.Symbol,
		Description:   xmlCashTransaction.Description,
		DateTime:      dateTime,
		SettleDate:    settleDate,
		Amount:        amount,
		Type:          xmlCashTransaction.Type,
		TradeID:       tradeID,
	}, nil
}

// ParseDateTime parses an IBKR date or date-time string in location.
//
// Accepts YYYYMMDD;HHMMSS and YYYY-MM-DD;HH:MM:SS with ";", ", ", or " " as the
// separator, and the date-only forms YYYYMMDD and YYYY-MM-DD.
func ParseDateTime(s string, location *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateTimeLayouts {
		if len(layout) != len(s) {
			continue
		}
		if t, err := time.ParseInLocation(layout, s, location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// ParseDecimal parses a required decimal.
//
// IBKR formats large numbers with thousands separators in some reports; these are removed.
// NaN and infinities are rejected.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Decimal{}, errors.New("empty number")
	}
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return decimal.Decimal{}, errors.New("non-finite number")
	}
	return decimal.NewFromString(s)
}

// ParseOptionalDecimal is ParseDecimal, except that an empty string is zero.
func ParseOptionalDecimal(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return ParseDecimal(s)
}

// *** PRIVATE ***

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive, got %d", id)
	}
	return id, nil
}
