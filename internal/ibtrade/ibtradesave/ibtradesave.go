// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibtradesave orchestrates getting Flex Query statements into the trade
// store and running FIFO matching over the stored trades.
package ibtradesave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradeconfig"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradedata"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradefifo"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradeflex"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradepath"
	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradestore"
	"github.com/bufdev/ibtrade/internal/pkg/fxrate"
	"github.com/bufdev/ibtrade/internal/pkg/ibkrflexquery"
	"github.com/bufdev/ibtrade/internal/standard/xos"
	"github.com/bufdev/ibtrade/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// fxRateLookbackDays is how far before the earliest trade rates are fetched,
// so that trades on a weekend or holiday still find an earlier rate.
const fxRateLookbackDays = 7

// Statistics counts the records of one kind processed by a save.
type Statistics struct {
	// New is the number of records that were not in the store before.
	New int
	// Total is the number of records processed, including failed ones.
	Total int
	// Errors has one error per record that could not be converted.
	Errors []error
}

// SaveResult is the result of saving one or more statements.
type SaveResult struct {
	// Trades are the trade statistics.
	Trades Statistics
	// CashTransactions are the cash transaction statistics.
	CashTransactions Statistics
}

// MatchStatistics is the result of a matching run.
type MatchStatistics struct {
	// ClosedTrades counts the closed trades. Errors is always empty.
	ClosedTrades Statistics
	// Removed is the number of stored closed trades that no longer occur,
	// for example after an earlier statement was loaded.
	Removed int
	// OpenLots is the number of lots left open.
	OpenLots int
	// FXRatesFilled is the number of trades whose missing FX rate was filled in.
	FXRatesFilled int
	// Skipped are the trades that could not be matched.
	Skipped []ibtradefifo.SkippedExecution
}

// Saver saves statements into the trade store and matches stored trades.
type Saver interface {
	// Download downloads a statement from the Flex Web Service and saves it.
	//
	// Zero dates use the period configured on the Flex Query. If backups are
	// enabled, the raw statement is written under flex/ before it is parsed.
	Download(ctx context.Context, fromDate xtime.Date, toDate xtime.Date) (*SaveResult, error)
	// LoadFile parses a local statement file and saves it.
	LoadFile(ctx context.Context, filePath string) (*SaveResult, error)
	// LoadDir parses every .xml statement file in a directory, in name order, and saves them.
	LoadDir(ctx context.Context, dirPath string) (*SaveResult, error)
	// Match matches all stored trades and replaces the stored closed trades
	// with the result.
	//
	// Every run matches from the first stored trade, so stored closed trades
	// always reflect the stored trades and the match settings.
	Match(ctx context.Context) (*MatchStatistics, error)
	// OpenLots matches all stored trades and returns the lots left open,
	// without saving closed trades.
	OpenLots(ctx context.Context) ([]*ibtradedata.OpenLot, error)
}

// SaverOption is an option for a new Saver.
type SaverOption func(*saver)

// SaverWithFlexQueryClient returns a new SaverOption that enables Download.
//
// The ibkrToken is the Flex Web Service token.
func SaverWithFlexQueryClient(flexQueryClient ibkrflexquery.Client, ibkrToken string) SaverOption {
	return func(saver *saver) {
		saver.flexQueryClient = flexQueryClient
		saver.ibkrToken = ibkrToken
	}
}

// SaverWithFXRateClient returns a new SaverOption that fills in missing FX
// rates when matching.
func SaverWithFXRateClient(fxRateClient fxrate.Client) SaverOption {
	return func(saver *saver) {
		saver.fxRateClient = fxRateClient
	}
}

// SaverWithNow returns a new SaverOption that overrides the clock used to name backups.
func SaverWithNow(now func() time.Time) SaverOption {
	return func(saver *saver) {
		saver.now = now
	}
}

// NewSaver creates a new Saver.
//
// The dirPath is the base directory, used for statement backups.
func NewSaver(
	logger *slog.Logger,
	dirPath string,
	config *ibtradeconfig.Config,
	store ibtradestore.Store,
	options ...SaverOption,
) Saver {
	saver := &saver{
		logger:  logger,
		dirPath: dirPath,
		config:  config,
		store:   store,
		now:     time.Now,
	}
	for _, option := range options {
		option(saver)
	}
	return saver
}

// Add adds other's statistics to s.
func (s *SaveResult) Add(other *SaveResult) {
	s.Trades.add(other.Trades)
	s.CashTransactions.add(other.CashTransactions)
}

// *** PRIVATE ***

type saver struct {
	logger          *slog.Logger
	dirPath         string
	config          *ibtradeconfig.Config
	store           ibtradestore.Store
	flexQueryClient ibkrflexquery.Client
	ibkrToken       string
	fxRateClient    fxrate.Client
	now             func() time.Time
}

func (s *saver) Download(ctx context.Context, fromDate xtime.Date, toDate xtime.Date) (*SaveResult, error) {
	if s.flexQueryClient == nil || s.ibkrToken == "" {
		return nil, errors.New("downloading requires an IBKR Flex Web Service token")
	}
	s.logger.Info("downloading flex query statement", "query_id", s.config.IBKRQueryID)
	data, err := s.flexQueryClient.Download(ctx, s.ibkrToken, s.config.IBKRQueryID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("downloading flex query: %w", err)
	}
	if s.config.Backup {
		backupFilePath := ibtradepath.FlexBackupFilePath(s.dirPath, s.now())
		if err := xos.WriteFileAtomic(backupFilePath, data, 0o600); err != nil {
			return nil, fmt.Errorf("writing statement backup: %w", err)
		}
		s.logger.Info("statement backup written", "path", backupFilePath)
	}
	response, err := ibkrflexquery.Parse(data)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, response)
}

func (s *saver) LoadFile(ctx context.Context, filePath string) (*SaveResult, error) {
	response, err := ibkrflexquery.ParseFile(filePath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("loading statement", "path", filePath)
	return s.save(ctx, response)
}

func (s *saver) LoadDir(ctx context.Context, dirPath string) (*SaveResult, error) {
	dirEntries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}
	// ReadDir returns entries sorted by name, so backups load oldest first.
	saveResult := &SaveResult{}
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".xml") {
			continue
		}
		fileSaveResult, err := s.LoadFile(ctx, filepath.Join(dirPath, name))
		if err != nil {
			return nil, err
		}
		saveResult.Add(fileSaveResult)
	}
	return saveResult, nil
}

func (s *saver) Match(ctx context.Context) (*MatchStatistics, error) {
	result, matchStatistics, err := s.match(ctx)
	if err != nil {
		return nil, err
	}
	newClosedTrades, removedClosedTrades, err := s.store.ReplaceClosedTrades(ctx, result.ClosedTrades)
	if err != nil {
		return nil, err
	}
	matchStatistics.ClosedTrades.New = newClosedTrades
	matchStatistics.Removed = removedClosedTrades
	s.logger.Info(
		"matched trades",
		"closed_trades", matchStatistics.ClosedTrades.Total,
		"new_closed_trades", newClosedTrades,
		"removed_closed_trades", removedClosedTrades,
		"open_lots", matchStatistics.OpenLots,
		"skipped", len(matchStatistics.Skipped),
	)
	return matchStatistics, nil
}

func (s *saver) OpenLots(ctx context.Context) ([]*ibtradedata.OpenLot, error) {
	result, _, err := s.match(ctx)
	if err != nil {
		return nil, err
	}
	return result.OpenLots, nil
}

// match runs the matcher over all stored trades.
func (s *saver) match(ctx context.Context) (*ibtradefifo.Result, *MatchStatistics, error) {
	trades, err := s.store.ListTrades(ctx, ibtradestore.TradeFilter{})
	if err != nil {
		return nil, nil, err
	}
	filledTrades := s.fillFXRates(ctx, trades)
	if len(filledTrades) > 0 {
		// Persist filled rates so they are not fetched again.
		if _, _, err := s.store.SaveStatementData(ctx, filledTrades, nil); err != nil {
			return nil, nil, err
		}
		s.logger.Info("filled missing fx rates", "count", len(filledTrades))
	}
	executions, skipped, err := ibtradefifo.ExecutionsFromTrades(trades, s.config.GroupBy)
	if err != nil {
		return nil, nil, err
	}
	result, err := ibtradefifo.MatchParallel(ctx, executions, s.config.Concurrency)
	if err != nil {
		return nil, nil, fmt.Errorf("matching trades: %w", err)
	}
	skipped = append(skipped, result.Skipped...)
	for _, skippedExecution := range skipped {
		s.logger.Warn(
			"skipped trade",
			"trade_id", skippedExecution.ID,
			"instrument_key", skippedExecution.InstrumentKey,
			"reason", skippedExecution.Reason,
		)
	}
	return result, &MatchStatistics{
		ClosedTrades:  Statistics{Total: len(result.ClosedTrades)},
		OpenLots:      len(result.OpenLots),
		FXRatesFilled: len(filledTrades),
		Skipped:       skipped,
	}, nil
}

// fillFXRates sets the FX rate to base on trades that have none, in place,
// and returns the trades that were changed.
//
// Trades in the base currency get a rate of 1. Other trades get the latest
// published rate on or before their trade date. Trades whose rate cannot be
// determined are left unchanged and are skipped by matching.
func (s *saver) fillFXRates(ctx context.Context, trades []*ibtradedata.Trade) []*ibtradedata.Trade {
	var filledTrades []*ibtradedata.Trade
	currencyToTrades := make(map[string][]*ibtradedata.Trade)
	for _, trade := range trades {
		if !trade.FXRateToBase.IsZero() {
			continue
		}
		if trade.Currency == s.config.BaseCurrency {
			trade.FXRateToBase = decimal.NewFromInt(1)
			filledTrades = append(filledTrades, trade)
			continue
		}
		if trade.Currency == "" || trade.TradeDate.IsZero() {
			continue
		}
		currencyToTrades[trade.Currency] = append(currencyToTrades[trade.Currency], trade)
	}
	if s.fxRateClient == nil {
		return filledTrades
	}
	currencies := make([]string, 0, len(currencyToTrades))
	for currency := range currencyToTrades {
		currencies = append(currencies, currency)
	}
	slices.Sort(currencies)
	for _, currency := range currencies {
		currencyTrades := currencyToTrades[currency]
		startDate, endDate := currencyTrades[0].TradeDate, currencyTrades[0].TradeDate
		for _, trade := range currencyTrades[1:] {
			if trade.TradeDate.Before(startDate) {
				startDate = trade.TradeDate
			}
			if trade.TradeDate.After(endDate) {
				endDate = trade.TradeDate
			}
		}
		rates, err := s.fxRateClient.GetRates(ctx, currency, s.config.BaseCurrency, startDate.AddDays(-fxRateLookbackDays), endDate)
		if err != nil {
			s.logger.Warn("failed to fetch fx rates", "currency", currency, "base_currency", s.config.BaseCurrency, "error", err)
			continue
		}
		for _, trade := range currencyTrades {
			if rate, ok := fxrate.RateOnOrBefore(rates, trade.TradeDate); ok {
				trade.FXRateToBase = rate
				filledTrades = append(filledTrades, trade)
			}
		}
	}
	return filledTrades
}

func (s *saver) save(ctx context.Context, response *ibkrflexquery.FlexQueryResponse) (*SaveResult, error) {
	records := ibtradeflex.RecordsFromResponse(response, s.config.Location)
	for _, err := range records.TradeErrors {
		s.logger.Warn("skipping trade", "error", err)
	}
	for _, err := range records.CashTransactionErrors {
		s.logger.Warn("skipping cash transaction", "error", err)
	}
	newTrades, newCashTransactions, err := s.store.SaveStatementData(ctx, records.Trades, records.CashTransactions)
	if err != nil {
		return nil, err
	}
	saveResult := &SaveResult{
		Trades: Statistics{
			New:    newTrades,
			Total:  len(records.Trades) + len(records.TradeErrors),
			Errors: records.TradeErrors,
		},
		CashTransactions: Statistics{
			New:    newCashTransactions,
			Total:  len(records.CashTransactions) + len(records.CashTransactionErrors),
			Errors: records.CashTransactionErrors,
		},
	}
	s.logger.Info(
		"statement saved",
		"trades", saveResult.Trades.Total,
		"new_trades", saveResult.Trades.New,
		"cash_transactions", saveResult.CashTransactions.Total,
		"new_cash_transactions", saveResult.CashTransactions.New,
	)
	return saveResult, nil
}

func (s *Statistics) add(other Statistics) {
	s.New += other.New
	s.Total += other.Total
	s.Errors = append(s.Errors, other.Errors...)
}
