// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibtradedata defines the records ibtrade reads from Flex statements,
// persists in the trade store, and produces from FIFO matching.
//
// Monetary amounts and quantities are exact decimals. Amounts are in the trade
// currency unless the field name says otherwise.
package ibtradedata

import (
	"time"

	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// Trade is a single trade execution from a Flex statement.
type Trade struct {
	// TradeID is the IBKR trade identifier, unique across accounts.
	TradeID int64 `json:"trade_id"`
	// AccountID is the IBKR account identifier (e.g., "U1234567").
	AccountID string `json:"account_id"`
	// AssetCategory is the IBKR asset category (e.g., "STK", "OPT").
	AssetCategory string `json:"asset_category"`
	// Symbol is the ticker symbol.
	Symbol string `json:"symbol"`
	// Description is the instrument description (e.g., "KINDER MORGAN INC").
	Description string `json:"description"`
	// Conid is the IBKR contract identifier.
	Conid string `json:"conid,omitempty"`
	// Currency is the ISO code of the trade currency.
	Currency string `json:"currency"`
	// FXRateToBase converts trade currency amounts into the account base currency.
	// Zero means the rate is unknown.
	FXRateToBase decimal.Decimal `json:"fx_rate_to_base"`
	// TradeDate is the trade date.
	TradeDate xtime.Date `json:"trade_date"`
	// DateTime is the execution time, used for FIFO ordering.
	DateTime time.Time `json:"date_time"`
	// BuySell is the IBKR side string ("BUY", "SELL", "BUY (Ca.)", ...).
	BuySell string `json:"buy_sell"`
	// OpenCloseIndicator is "O" for opening and "C" for closing executions, if reported.
	OpenCloseIndicator string `json:"open_close_indicator,omitempty"`
	// Quantity is the signed quantity; positive for buys and negative for sells.
	Quantity decimal.Decimal `json:"quantity"`
	// TradePrice is the execution price per unit.
	TradePrice decimal.Decimal `json:"trade_price"`
	// Multiplier is the contract multiplier (1 for stocks).
	Multiplier decimal.Decimal `json:"multiplier"`
	// Proceeds is the gross cash amount of the execution.
	Proceeds decimal.Decimal `json:"proceeds"`
	// IBCommission is the commission charged, usually negative.
	IBCommission decimal.Decimal `json:"ib_commission"`
	// NetCash is proceeds plus commission and taxes.
	NetCash decimal.Decimal `json:"net_cash"`
	// FifoPnlRealized is the realized P&L IBKR computed for this execution.
	FifoPnlRealized decimal.Decimal `json:"fifo_pnl_realized"`
}

// CashTransaction is a single cash transaction (dividend, interest, fee, ...)
// from a Flex statement.
type CashTransaction struct {
	// TransactionID is the IBKR transaction identifier.
	TransactionID int64 `json:"transaction_id"`
	// AccountID is the IBKR account identifier.
	AccountID string `json:"account_id"`
	// Currency is the ISO code of the transaction currency.
	Currency string `json:"currency"`
	// FXRateToBase converts the amount into the account base currency.
	FXRateToBase decimal.Decimal `json:"fx_rate_to_base"`
	// Symbol is the related ticker symbol, if any.
	Symbol string `json:"symbol,omitempty"`
	// Description is the IBKR description of the transaction.
	Description string `json:"description"`
	// DateTime is when the transaction occurred.
	DateTime time.Time `json:"date_time"`
	// SettleDate is the settlement date, if reported.
	SettleDate xtime.Date `json:"settle_date"`
	// Amount is the signed cash amount.
	Amount decimal.Decimal `json:"amount"`
	// Type is the IBKR transaction type (e.g., "Dividends", "Withholding Tax").
	Type string `json:"type"`
	// TradeID is the related trade, or zero.
	TradeID int64 `json:"trade_id,omitempty"`
}

// ClosedTrade is one FIFO match between an opening (buy-side) execution and a
// closing (sell-side) execution.
type ClosedTrade struct {
	// OpenTradeID is the trade id of the buy-side execution.
	OpenTradeID int64 `json:"open_trade_id"`
	// CloseTradeID is the trade id of the sell-side execution.
	CloseTradeID int64 `json:"close_trade_id"`
	// InstrumentKey is the grouping key both executions share.
	InstrumentKey string `json:"instrument_key"`
	// Quantity is the absolute matched quantity.
	Quantity decimal.Decimal `json:"quantity"`
	// Result is the realized result in trade currency.
	Result decimal.Decimal `json:"result"`
	// ResultBaseCurrency is the realized result in account base currency.
	ResultBaseCurrency decimal.Decimal `json:"result_base_currency"`
	// OpenDateTime is the execution time of the buy-side execution.
	OpenDateTime time.Time `json:"open_date_time"`
	// CloseDateTime is the execution time of the sell-side execution.
	CloseDateTime time.Time `json:"close_date_time"`
}

// OpenLot is the unconsumed remainder of an execution after FIFO matching.
type OpenLot struct {
	// TradeID is the trade id of the execution that opened the lot.
	TradeID int64 `json:"trade_id"`
	// InstrumentKey is the grouping key of the lot.
	InstrumentKey string `json:"instrument_key"`
	// DateTime is the execution time of the opening execution.
	DateTime time.Time `json:"date_time"`
	// RemainingQuantity is the signed quantity not yet offset; negative for short lots.
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
}
