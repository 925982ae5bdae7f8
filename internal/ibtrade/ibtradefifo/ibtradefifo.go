// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibtradefifo matches opening and closing trade executions using FIFO
// lot consumption and computes realized results for each match.
//
// Executions are grouped by instrument key and each group is matched
// independently. Within a group, buys and sells are kept in two FIFO queues
// of open lots. An incoming execution first consumes lots from the front of
// the opposing queue; whatever is left becomes a new lot on its own queue.
// Every consumption produces one closed trade. The buy-side execution is always
// the open side and the sell-side execution the close side, so short sales
// covered by later buys are reported the same way as long round trips.
//
// Results are pro-rated linearly: each side contributes
// proceeds * matched / |original quantity| and the two contributions are summed.
package ibtradefifo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradedata"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Execution is a single trade execution used as input to matching.
//
// Executions are read-only for the duration of a matching run.
type Execution struct {
	// ID uniquely identifies the execution. Zero is invalid.
	ID int64
	// InstrumentKey groups executions that can offset each other.
	InstrumentKey string
	// Quantity is the signed quantity; positive for buys, negative for sells.
	Quantity decimal.Decimal
	// DateTime is the execution time that establishes FIFO order.
	DateTime time.Time
	// Proceeds is the net cash of the execution in trade currency.
	Proceeds decimal.Decimal
	// ProceedsBase is the net cash of the execution in base currency.
	ProceedsBase decimal.Decimal
}

// Result contains the output of a matching run.
type Result struct {
	// ClosedTrades is the list of FIFO matches, ordered by instrument key and
	// then by the order in which the matches occurred.
	ClosedTrades []*ibtradedata.ClosedTrade
	// OpenLots is the list of lots left unconsumed, ordered by instrument key
	// and then by execution order.
	OpenLots []*ibtradedata.OpenLot
	// Skipped records executions rejected before matching.
	Skipped []SkippedExecution
}

// SkippedExecution records an execution that was rejected before matching.
type SkippedExecution struct {
	// ID is the id of the rejected execution (may be zero if the id was missing).
	ID int64
	// InstrumentKey is the instrument key of the rejected execution, if any.
	InstrumentKey string
	// Reason describes why the execution was rejected.
	Reason string
}

// InvariantError is returned when matching reaches a state that indicates a
// bug in the algorithm rather than bad input data.
type InvariantError struct {
	// InstrumentKey is the group in which the violation occurred.
	InstrumentKey string
	// ExecutionID is the execution being processed when the violation occurred.
	ExecutionID int64
	// Message describes the violation.
	Message string
}

// Error implements error.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("fifo invariant violated for %q at execution %d: %s", e.InstrumentKey, e.ExecutionID, e.Message)
}

// Match matches executions using FIFO ordering within each instrument key.
//
// Executions do not need to be sorted or grouped. Invalid executions are
// skipped and reported in the result rather than failing the run.
// Zero-quantity executions are ignored.
func Match(executions []Execution) (*Result, error) {
	groups, skipped := groupExecutions(executions)
	result := &Result{Skipped: skipped}
	for _, group := range groups {
		closedTrades, openLots, err := matchGroup(group)
		if err != nil {
			return nil, err
		}
		result.ClosedTrades = append(result.ClosedTrades, closedTrades...)
		result.OpenLots = append(result.OpenLots, openLots...)
	}
	return result, nil
}

// MatchParallel is Match with instrument groups matched concurrently.
//
// Groups are independent, so no synchronization is needed between them.
// The output is identical to Match. A concurrency of zero or less means no limit.
func MatchParallel(ctx context.Context, executions []Execution, concurrency int) (*Result, error) {
	groups, skipped := groupExecutions(executions)
	groupResults := make([]groupResult, len(groups))
	eg, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		eg.SetLimit(concurrency)
	}
	for i, group := range groups {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			closedTrades, openLots, err := matchGroup(group)
			if err != nil {
				return err
			}
			groupResults[i] = groupResult{closedTrades: closedTrades, openLots: openLots}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	// Assemble in group order so output matches Match.
	result := &Result{Skipped: skipped}
	for _, matched := range groupResults {
		result.ClosedTrades = append(result.ClosedTrades, matched.closedTrades...)
		result.OpenLots = append(result.OpenLots, matched.openLots...)
	}
	return result, nil
}

// *** PRIVATE ***

// executionGroup is the sorted executions of a single instrument key.
type executionGroup struct {
	instrumentKey string
	executions    []*Execution
}

type groupResult struct {
	closedTrades []*ibtradedata.ClosedTrade
	openLots     []*ibtradedata.OpenLot
}

// lot is an unconsumed portion of an execution. The remaining quantity has the
// same sign as the execution's quantity.
type lot struct {
	execution *Execution
	remaining decimal.Decimal
}

// lotQueue is a FIFO of indexes into the lot arena. Consumed lots are popped by
// advancing head, so the backing slice is never shifted.
type lotQueue struct {
	indexes []int
	head    int
}

func (q *lotQueue) len() int {
	return len(q.indexes) - q.head
}

func (q *lotQueue) front() int {
	return q.indexes[q.head]
}

func (q *lotQueue) pop() {
	q.head++
}

func (q *lotQueue) push(index int) {
	q.indexes = append(q.indexes, index)
}

// groupExecutions validates executions, groups them by instrument key, and
// sorts each group into FIFO order. Groups are returned sorted by key.
func groupExecutions(executions []Execution) ([]*executionGroup, []SkippedExecution) {
	var skipped []SkippedExecution
	seenIDs := make(map[int64]struct{}, len(executions))
	keyToGroup := make(map[string]*executionGroup)
	for i := range executions {
		execution := &executions[i]
		if reason := validateExecution(execution); reason != "" {
			skipped = append(skipped, SkippedExecution{
				ID:            execution.ID,
				InstrumentKey: execution.InstrumentKey,
				Reason:        reason,
			})
			continue
		}
		if _, ok := seenIDs[execution.ID]; ok {
			skipped = append(skipped, SkippedExecution{
				ID:            execution.ID,
				InstrumentKey: execution.InstrumentKey,
				Reason:        "duplicate execution id",
			})
			continue
		}
		seenIDs[execution.ID] = struct{}{}
		// Zero-quantity executions cannot open or close anything.
		if execution.Quantity.IsZero() {
			continue
		}
		group, ok := keyToGroup[execution.InstrumentKey]
		if !ok {
			group = &executionGroup{instrumentKey: execution.InstrumentKey}
			keyToGroup[execution.InstrumentKey] = group
		}
		group.executions = append(group.executions, execution)
	}
	groups := make([]*executionGroup, 0, len(keyToGroup))
	for _, group := range keyToGroup {
		// Order by time, then by id so that any input permutation yields the same order.
		slices.SortStableFunc(group.executions, func(a *Execution, b *Execution) int {
			if c := a.DateTime.Compare(b.DateTime); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		groups = append(groups, group)
	}
	slices.SortFunc(groups, func(a *executionGroup, b *executionGroup) int {
		return cmp.Compare(a.instrumentKey, b.instrumentKey)
	})
	return groups, skipped
}

// validateExecution returns a non-empty reason if the execution cannot be matched.
func validateExecution(execution *Execution) string {
	switch {
	case execution.ID == 0:
		return "missing execution id"
	case execution.InstrumentKey == "":
		return "missing instrument key"
	case execution.DateTime.IsZero():
		return "missing execution time"
	default:
		return ""
	}
}

// matchGroup runs FIFO matching over the sorted executions of one instrument key.
func matchGroup(group *executionGroup) ([]*ibtradedata.ClosedTrade, []*ibtradedata.OpenLot, error) {
	var (
		closedTrades []*ibtradedata.ClosedTrade
		arena        []lot
		buyQueue     lotQueue
		sellQueue    lotQueue
	)
	for _, execution := range group.executions {
		ownQueue, opposingQueue := &buyQueue, &sellQueue
		if execution.Quantity.IsNegative() {
			ownQueue, opposingQueue = &sellQueue, &buyQueue
		}
		remaining := execution.Quantity
		for !remaining.IsZero() && opposingQueue.len() > 0 {
			frontLot := &arena[opposingQueue.front()]
			delta := decimal.Min(remaining.Abs(), frontLot.remaining.Abs())
			if !delta.IsPositive() {
				return nil, nil, newInvariantError(group, execution, "non-positive match quantity %s", delta)
			}
			closedTrades = append(closedTrades, newClosedTrade(group.instrumentKey, frontLot.execution, execution, delta))
			var err error
			if remaining, err = reduceTowardZero(remaining, delta); err != nil {
				return nil, nil, newInvariantError(group, execution, "incoming execution: %v", err)
			}
			if frontLot.remaining, err = reduceTowardZero(frontLot.remaining, delta); err != nil {
				return nil, nil, newInvariantError(group, execution, "lot of execution %d: %v", frontLot.execution.ID, err)
			}
			if frontLot.remaining.IsZero() {
				opposingQueue.pop()
			}
		}
		// Whatever could not be offset opens a new lot.
		if !remaining.IsZero() {
			arena = append(arena, lot{execution: execution, remaining: remaining})
			ownQueue.push(len(arena) - 1)
		}
	}
	// At most one queue is non-empty here. Report leftovers as open lots in execution order.
	var openLots []*ibtradedata.OpenLot
	for _, queue := range []*lotQueue{&buyQueue, &sellQueue} {
		for ; queue.len() > 0; queue.pop() {
			openLot := arena[queue.front()]
			openLots = append(openLots, &ibtradedata.OpenLot{
				TradeID:           openLot.execution.ID,
				InstrumentKey:     group.instrumentKey,
				DateTime:          openLot.execution.DateTime,
				RemainingQuantity: openLot.remaining,
			})
		}
	}
	slices.SortStableFunc(openLots, func(a *ibtradedata.OpenLot, b *ibtradedata.OpenLot) int {
		if c := a.DateTime.Compare(b.DateTime); c != 0 {
			return c
		}
		return cmp.Compare(a.TradeID, b.TradeID)
	})
	return closedTrades, openLots, nil
}

// newClosedTrade builds the closed trade for a match of quantity delta between
// two executions of opposite sign, in either chronological order.
func newClosedTrade(instrumentKey string, a *Execution, b *Execution, delta decimal.Decimal) *ibtradedata.ClosedTrade {
	buy, sell := a, b
	if buy.Quantity.IsNegative() {
		buy, sell = b, a
	}
	return &ibtradedata.ClosedTrade{
		OpenTradeID:   buy.ID,
		CloseTradeID:  sell.ID,
		InstrumentKey: instrumentKey,
		Quantity:      delta,
		Result: prorate(buy.Proceeds, delta, buy.Quantity).
			Add(prorate(sell.Proceeds, delta, sell.Quantity)),
		ResultBaseCurrency: prorate(buy.ProceedsBase, delta, buy.Quantity).
			Add(prorate(sell.ProceedsBase, delta, sell.Quantity)),
		OpenDateTime:  buy.DateTime,
		CloseDateTime: sell.DateTime,
	}
}

// prorate returns the share of amount attributable to delta units out of
// |quantity| units.
func prorate(amount decimal.Decimal, delta decimal.Decimal, quantity decimal.Decimal) decimal.Decimal {
	total := quantity.Abs()
	if delta.Equal(total) {
		return amount
	}
	return amount.Mul(delta).Div(total)
}

// reduceTowardZero moves a signed quantity toward zero by delta.
// It fails if the quantity would cross zero.
func reduceTowardZero(quantity decimal.Decimal, delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.GreaterThan(quantity.Abs()) {
		return decimal.Decimal{}, fmt.Errorf("cannot consume %s from remaining %s", delta, quantity)
	}
	if quantity.IsNegative() {
		return quantity.Add(delta), nil
	}
	return quantity.Sub(delta), nil
}

func newInvariantError(group *executionGroup, execution *Execution, format string, args ...any) *InvariantError {
	return &InvariantError{
		InstrumentKey: group.instrumentKey,
		ExecutionID:   execution.ID,
		Message:       fmt.Sprintf(format, args...),
	}
}
