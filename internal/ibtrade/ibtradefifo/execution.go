// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibtradefifo

import (
	"fmt"
	"strings"

	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradedata"
)

const (
	// GroupByDescription groups trades by instrument description.
	GroupByDescription GroupBy = iota + 1
	// GroupBySymbol groups trades by ticker symbol.
	GroupBySymbol
	// GroupByConid groups trades by IBKR contract identifier.
	GroupByConid
)

var (
	groupByToString = map[GroupBy]string{
		GroupByDescription: "description",
		GroupBySymbol:      "symbol",
		GroupByConid:       "conid",
	}
	stringToGroupBy = map[string]GroupBy{
		"description": GroupByDescription,
		"symbol":      GroupBySymbol,
		"conid":       GroupByConid,
	}
)

// GroupBy selects which trade field, together with the account, forms the
// instrument key.
type GroupBy int

// String implements fmt.Stringer.
func (g GroupBy) String() string {
	if s, ok := groupByToString[g]; ok {
		return s
	}
	return fmt.Sprintf("GroupBy(%d)", int(g))
}

// ParseGroupBy parses a GroupBy from its string form.
func ParseGroupBy(s string) (GroupBy, error) {
	groupBy, ok := stringToGroupBy[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown group by %q, must be one of description, symbol, conid", s)
	}
	return groupBy, nil
}

// ExecutionsFromTrades converts trades into executions.
//
// The instrument key is the account id joined with the field selected by
// groupBy, so lots never cross accounts. Proceeds are the trade's net cash and
// base-currency proceeds are net cash times the FX rate to base. Trades that
// have no FX rate to base are returned as skipped.
func ExecutionsFromTrades(trades []*ibtradedata.Trade, groupBy GroupBy) ([]Execution, []SkippedExecution, error) {
	if _, ok := groupByToString[groupBy]; !ok {
		return nil, nil, fmt.Errorf("invalid group by: %v", groupBy)
	}
	executions := make([]Execution, 0, len(trades))
	var skipped []SkippedExecution
	for _, trade := range trades {
		instrumentKey := InstrumentKey(trade, groupBy)
		if trade.FXRateToBase.IsZero() {
			skipped = append(skipped, SkippedExecution{
				ID:            trade.TradeID,
				InstrumentKey: instrumentKey,
				Reason:        "missing fx rate to base",
			})
			continue
		}
		executions = append(executions, Execution{
			ID:            trade.TradeID,
			InstrumentKey: instrumentKey,
			Quantity:      trade.Quantity,
			DateTime:      trade.DateTime,
			Proceeds:      trade.NetCash,
			ProceedsBase:  trade.NetCash.Mul(trade.FXRateToBase),
		})
	}
	return executions, skipped, nil
}

// InstrumentKey returns the instrument key of the trade for the given GroupBy.
//
// Returns an empty string if the selected field is empty, which Match
// reports as a skipped execution.
func InstrumentKey(trade *ibtradedata.Trade, groupBy GroupBy) string {
	var field string
	switch groupBy {
	case GroupByDescription:
		field = trade.Description
	case GroupBySymbol:
		field = trade.Symbol
	case GroupByConid:
		field = trade.Conid
	}
	if field == "" || trade.AccountID == "" {
		return ""
	}
	return trade.AccountID + "/" + field
}
