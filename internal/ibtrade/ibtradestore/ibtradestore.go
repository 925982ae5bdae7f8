// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibtradestore persists trades, cash transactions, and closed trades in SQLite.
//
// Saves are idempotent: each record is keyed by its IBKR identifier, existing
// rows are updated in place, and the number of rows that did not exist before
// is reported. Closed trades are keyed by their open and close trade ids and
// are always replaced as a whole set, since one match run produces all of them.
//
// Decimals are stored as TEXT so that no precision is lost, and are read back
// through decimal.Decimal's sql.Scanner implementation. Times are stored
// as fixed-width UTC text, which keeps lexical and chronological order equal.
package ibtradestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bufdev/ibtrade/internal/ibtrade/ibtradedata"
	"github.com/bufdev/ibtrade/internal/standard/xtime"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registered as "sqlite".
)

const (
	// TradeTableName is the table of trades.
	TradeTableName = "trade"
	// CashTransactionTableName is the table of cash transactions.
	CashTransactionTableName = "cash_transaction"
	// ClosedTradeTableName is the table of FIFO matches.
	ClosedTradeTableName = "closed_trade"

	// timeLayout is fixed-width so that stored times sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// tableNames is every table in creation order.
var tableNames = []string{
	TradeTableName,
	CashTransactionTableName,
	ClosedTradeTableName,
}

// Store is the trade store.
type Store interface {
	// CreateTables creates all tables and indexes that do not exist yet.
	CreateTables(ctx context.Context) error
	// DropTables drops all tables.
	DropTables(ctx context.Context) error
	// TableCounts returns the number of rows in each table, in creation order.
	//
	// Tables that do not exist are reported with Exists set to false.
	TableCounts(ctx context.Context) ([]TableCount, error)
	// SaveStatementData saves trades and cash transactions in a single transaction.
	//
	// Existing rows are replaced. Returns how many of each did not exist before.
	SaveStatementData(
		ctx context.Context,
		trades []*ibtradedata.Trade,
		cashTransactions []*ibtradedata.CashTransaction,
	) (newTrades int, newCashTransactions int, retErr error)
	// ListTrades lists trades matching the filter, ordered by time and then trade id.
	ListTrades(ctx context.Context, filter TradeFilter) ([]*ibtradedata.Trade, error)
	// ListCashTransactions lists cash transactions matching the filter, ordered
	// by time and then transaction id.
	ListCashTransactions(ctx context.Context, filter TradeFilter) ([]*ibtradedata.CashTransaction, error)
	// ReplaceClosedTrades replaces all closed trades with closedTrades in a
	// single transaction.
	//
	// Rows are keyed by open and close trade id. Returns how many keys did not
	// exist before, and how many existing keys are no longer present. On error
	// the stored closed trades are unchanged.
	ReplaceClosedTrades(
		ctx context.Context,
		closedTrades []*ibtradedata.ClosedTrade,
	) (newClosedTrades int, removedClosedTrades int, retErr error)
	// ListClosedTrades lists closed trades matching the filter, ordered by
	// instrument key and then by match order.
	ListClosedTrades(ctx context.Context, filter ClosedTradeFilter) ([]*ibtradedata.ClosedTrade, error)
	// Close closes the database.
	Close() error
}

// TableCount is the row count of a table.
type TableCount struct {
	// Name is the table name.
	Name string
	// Exists is false if the table has not been created.
	Exists bool
	// Count is the number of rows.
	Count int64
}

// TradeFilter filters trades and cash transactions. Zero fields do not filter.
type TradeFilter struct {
	// AccountID selects a single account.
	AccountID string
	// Symbol selects a single symbol.
	Symbol string
	// Since selects records at or after this time.
	Since time.Time
	// Until selects records before this time.
	Until time.Time
}

// ClosedTradeFilter filters closed trades. Zero fields do not filter.
type ClosedTradeFilter struct {
	// AccountID selects closed trades whose instrument key belongs to the account.
	AccountID string
	// InstrumentKey selects a single instrument key.
	InstrumentKey string
	// Since selects closed trades closed at or after this time.
	Since time.Time
	// Until selects closed trades closed before this time.
	Until time.Time
}

// NewStore opens the SQLite database at filePath, creating the file, its
// directory, and all tables if needed.
func NewStore(ctx context.Context, logger *slog.Logger, filePath string) (Store, error) {
	db, err := open(ctx, filePath)
	if err != nil {
		return nil, err
	}
	store := &store{
		logger: logger,
		db:     db,
	}
	if err := store.CreateTables(ctx); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	logger.Debug("opened trade store", "path", filePath)
	return store, nil
}

// *** PRIVATE ***

// schema is the DDL for all tables, idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS trade (
	trade_id INTEGER PRIMARY KEY,
	account_id TEXT NOT NULL,
	asset_category TEXT NOT NULL,
	symbol TEXT NOT NULL,
	description TEXT NOT NULL,
	conid TEXT NOT NULL,
	currency TEXT NOT NULL,
	fx_rate_to_base TEXT NOT NULL,
	trade_date TEXT NOT NULL,
	date_time TEXT NOT NULL,
	buy_sell TEXT NOT NULL,
	open_close_indicator TEXT NOT NULL,
	quantity TEXT NOT NULL,
	trade_price TEXT NOT NULL,
	multiplier TEXT NOT NULL,
	proceeds TEXT NOT NULL,
	ib_commission TEXT NOT NULL,
	net_cash TEXT NOT NULL,
	fifo_pnl_realized TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trade_account_date_time ON trade (account_id, date_time);
CREATE TABLE IF NOT EXISTS cash_transaction (
	transaction_id INTEGER PRIMARY KEY,
	account_id TEXT NOT NULL,
	currency TEXT NOT NULL,
	fx_rate_to_base TEXT NOT NULL,
	symbol TEXT NOT NULL,
	description TEXT NOT NULL,
	date_time TEXT NOT NULL,
	settle_date TEXT NOT NULL,
	amount TEXT NOT NULL,
	type TEXT NOT NULL,
	trade_id INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cash_transaction_account_date_time ON cash_transaction (account_id, date_time);
CREATE TABLE IF NOT EXISTS closed_trade (
	open_trade_id INTEGER NOT NULL,
	close_trade_id INTEGER NOT NULL,
	instrument_key TEXT NOT NULL,
	quantity TEXT NOT NULL,
	result TEXT NOT NULL,
	result_base_currency TEXT NOT NULL,
	open_date_time TEXT NOT NULL,
	close_date_time TEXT NOT NULL,
	PRIMARY KEY (open_trade_id, close_trade_id)
);
CREATE INDEX IF NOT EXISTS idx_closed_trade_instrument_key ON closed_trade (instrument_key);
`

const tradeColumns = `trade_id, account_id, asset_category, symbol, description, conid, currency,
	fx_rate_to_base, trade_date, date_time, buy_sell, open_close_indicator, quantity,
	trade_price, multiplier, proceeds, ib_commission, net_cash, fifo_pnl_realized`

const cashTransactionColumns = `transaction_id, account_id, currency, fx_rate_to_base, symbol,
	description, date_time, settle_date, amount, type, trade_id`

const closedTradeColumns = `open_trade_id, close_trade_id, instrument_key, quantity, result,
	result_base_currency, open_date_time, close_date_time`

type store struct {
	logger *slog.Logger
	db     *sql.DB
}

func open(ctx context.Context, filePath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	// WAL with NORMAL synchronous is durable across application crashes, and
	// busy_timeout lets a second ibtrade process wait instead of failing.
	dataSourceName := filePath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", filePath, err)
	}
	// A single connection serializes writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("opening database %s: %w", filePath, err), db.Close())
	}
	return db, nil
}

func (s *store) CreateTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

func (s *store) DropTables(ctx context.Context) error {
	// Reverse creation order.
	for i := len(tableNames) - 1; i >= 0; i-- {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+tableNames[i]); err != nil {
			return fmt.Errorf("dropping table %s: %w", tableNames[i], err)
		}
		s.logger.Debug("dropped table", "table", tableNames[i])
	}
	return nil
}

func (s *store) TableCounts(ctx context.Context) ([]TableCount, error) {
	tableCounts := make([]TableCount, 0, len(tableNames))
	for _, tableName := range tableNames {
		var exists int
		if err := s.db.QueryRowContext(
			ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
			tableName,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("checking table %s: %w", tableName, err)
		}
		tableCount := TableCount{Name: tableName, Exists: exists > 0}
		if tableCount.Exists {
			// Table names are constants, never user input.
			if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName).Scan(&tableCount.Count); err != nil {
				return nil, fmt.Errorf("counting table %s: %w", tableName, err)
			}
		}
		tableCounts = append(tableCounts, tableCount)
	}
	return tableCounts, nil
}

func (s *store) SaveStatementData(
	ctx context.Context,
	trades []*ibtradedata.Trade,
	cashTransactions []*ibtradedata.CashTransaction,
) (newTrades int, newCashTransactions int, retErr error) {
	retErr = s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if newTrades, err = upsertAll(ctx, tx, trades, upsertTrade); err != nil {
			return fmt.Errorf("saving trades: %w", err)
		}
		if newCashTransactions, err = upsertAll(ctx, tx, cashTransactions, upsertCashTransaction); err != nil {
			return fmt.Errorf("saving cash transactions: %w", err)
		}
		return nil
	})
	if retErr != nil {
		return 0, 0, retErr
	}
	s.logger.Debug(
		"saved statement data",
		"trades", len(trades),
		"new_trades", newTrades,
		"cash_transactions", len(cashTransactions),
		"new_cash_transactions", newCashTransactions,
	)
	return newTrades, newCashTransactions, nil
}

func (s *store) ListTrades(ctx context.Context, filter TradeFilter) ([]*ibtradedata.Trade, error) {
	where, args := filter.where()
	return queryAll(
		ctx,
		s.db,
		"SELECT "+tradeColumns+" FROM trade"+where+" ORDER BY date_time, trade_id",
		args,
		scanTrade,
	)
}

func (s *store) ListCashTransactions(ctx context.Context, filter TradeFilter) ([]*ibtradedata.CashTransaction, error) {
	where, args := filter.where()
	return queryAll(
		ctx,
		s.db,
		"SELECT "+cashTransactionColumns+" FROM cash_transaction"+where+" ORDER BY date_time, transaction_id",
		args,
		scanCashTransaction,
	)
}

func (s *store) ReplaceClosedTrades(
	ctx context.Context,
	closedTrades []*ibtradedata.ClosedTrade,
) (newClosedTrades int, removedClosedTrades int, retErr error) {
	retErr = s.withTx(ctx, func(tx *sql.Tx) error {
		oldKeys, err := listClosedTradeKeys(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM closed_trade"); err != nil {
			return fmt.Errorf("deleting closed trades: %w", err)
		}
		if _, err := upsertAll(ctx, tx, closedTrades, upsertClosedTrade); err != nil {
			return fmt.Errorf("saving closed trades: %w", err)
		}
		newKeys := make(map[closedTradeKey]struct{}, len(closedTrades))
		for _, closedTrade := range closedTrades {
			key := closedTradeKey{openTradeID: closedTrade.OpenTradeID, closeTradeID: closedTrade.CloseTradeID}
			if _, ok := newKeys[key]; ok {
				continue
			}
			newKeys[key] = struct{}{}
			if _, ok := oldKeys[key]; !ok {
				newClosedTrades++
			}
		}
		for key := range oldKeys {
			if _, ok := newKeys[key]; !ok {
				removedClosedTrades++
			}
		}
		return nil
	})
	if retErr != nil {
		return 0, 0, retErr
	}
	s.logger.Debug(
		"replaced closed trades",
		"closed_trades", len(closedTrades),
		"new_closed_trades", newClosedTrades,
		"removed_closed_trades", removedClosedTrades,
	)
	return newClosedTrades, removedClosedTrades, nil
}

func (s *store) ListClosedTrades(ctx context.Context, filter ClosedTradeFilter) ([]*ibtradedata.ClosedTrade, error) {
	where, args := filter.where()
	// A match happens when the later of its two executions arrives.
	return queryAll(
		ctx,
		s.db,
		"SELECT "+closedTradeColumns+" FROM closed_trade"+where+
			" ORDER BY instrument_key, MAX(open_date_time, close_date_time), MIN(open_date_time, close_date_time), open_trade_id, close_trade_id",
		args,
		scanClosedTrade,
	)
}

func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) withTx(ctx context.Context, f func(*sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			retErr = errors.Join(retErr, tx.Rollback())
		}
	}()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (f TradeFilter) where() (string, []any) {
	var whereBuilder whereBuilder
	whereBuilder.addIf(f.AccountID != "", "account_id = ?", f.AccountID)
	whereBuilder.addIf(f.Symbol != "", "symbol = ?", f.Symbol)
	whereBuilder.addIf(!f.Since.IsZero(), "date_time >= ?", formatTime(f.Since))
	whereBuilder.addIf(!f.Until.IsZero(), "date_time < ?", formatTime(f.Until))
	return whereBuilder.build()
}

func (f ClosedTradeFilter) where() (string, []any) {
	var whereBuilder whereBuilder
	// Instrument keys are "<account>/<field>"; substr avoids LIKE wildcards in account ids.
	whereBuilder.addIf(f.AccountID != "", "substr(instrument_key, 1, length(?)) = ?", f.AccountID+"/", f.AccountID+"/")
	whereBuilder.addIf(f.InstrumentKey != "", "instrument_key = ?", f.InstrumentKey)
	whereBuilder.addIf(!f.Since.IsZero(), "close_date_time >= ?", formatTime(f.Since))
	whereBuilder.addIf(!f.Until.IsZero(), "close_date_time < ?", formatTime(f.Until))
	return whereBuilder.build()
}

type whereBuilder struct {
	conditions []string
	args       []any
}

func (w *whereBuilder) addIf(ok bool, condition string, args ...any) {
	if ok {
		w.conditions = append(w.conditions, condition)
		w.args = append(w.args, args...)
	}
}

func (w *whereBuilder) build() (string, []any) {
	if len(w.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(w.conditions, " AND "), w.args
}

// upsertAll upserts each value and returns how many rows were inserted rather than updated.
func upsertAll[T any](ctx context.Context, tx *sql.Tx, values []T, upsert func(context.Context, *sql.Tx, T) (bool, error)) (int, error) {
	var inserted int
	for _, value := range values {
		wasInserted, err := upsert(ctx, tx, value)
		if err != nil {
			return 0, err
		}
		if wasInserted {
			inserted++
		}
	}
	return inserted, nil
}

// insertOrUpdate runs insertQuery, which must do nothing on conflict, and
// runs updateQuery if no row was inserted. Returns true if a row was inserted.
func insertOrUpdate(ctx context.Context, tx *sql.Tx, insertQuery string, updateQuery string, insertArgs []any, updateArgs []any) (bool, error) {
	result, err := tx.ExecContext(ctx, insertQuery, insertArgs...)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rowsAffected > 0 {
		return true, nil
	}
	if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
		return false, err
	}
	return false, nil
}

func upsertTrade(ctx context.Context, tx *sql.Tx, trade *ibtradedata.Trade) (bool, error) {
	values := []any{
		trade.AccountID,
		trade.AssetCategory,
		trade.Symbol,
		trade.Description,
		trade.Conid,
		trade.Currency,
		trade.FXRateToBase.String(),
		formatDate(trade.TradeDate),
		formatTime(trade.DateTime),
		trade.BuySell,
		trade.OpenCloseIndicator,
		trade.Quantity.String(),
		trade.TradePrice.String(),
		trade.Multiplier.String(),
		trade.Proceeds.String(),
		trade.IBCommission.String(),
		trade.NetCash.String(),
		trade.FifoPnlRealized.String(),
	}
	wasInserted, err := insertOrUpdate(
		ctx,
		tx,
		`INSERT INTO trade (`+tradeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (trade_id) DO NOTHING`,
		`UPDATE trade SET account_id = ?, asset_category = ?, symbol = ?, description = ?, conid = ?,
		currency = ?, fx_rate_to_base = ?, trade_date = ?, date_time = ?, buy_sell = ?,
		open_close_indicator = ?, quantity = ?, trade_price = ?, multiplier = ?, proceeds = ?,
		ib_commission = ?, net_cash = ?, fifo_pnl_realized = ? WHERE trade_id = ?`,
		append([]any{trade.TradeID}, values...),
		append(values, trade.TradeID),
	)
	if err != nil {
		return false, fmt.Errorf("trade %d: %w", trade.TradeID, err)
	}
	return wasInserted, nil
}

func upsertCashTransaction(ctx context.Context, tx *sql.Tx, cashTransaction *ibtradedata.CashTransaction) (bool, error) {
	values := []any{
		cashTransaction.AccountID,
		cashTransaction.Currency,
		cashTransaction.FXRateToBase.String(),
		cashTransaction.Symbol,
		cashTransaction.Description,
		formatTime(cashTransaction.DateTime),
		formatDate(cashTransaction.SettleDate),
		cashTransaction.Amount.String(),
		cashTransaction.Type,
		cashTransaction.TradeID,
	}
	wasInserted, err := insertOrUpdate(
		ctx,
		tx,
		`INSERT INTO cash_transaction (`+cashTransactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO NOTHING`,
		`UPDATE cash_transaction SET account_id = ?, currency = ?, fx_rate_to_base = ?, symbol = ?,
		description = ?, date_time = ?, settle_date = ?, amount = ?, type = ?, trade_id = ?
		WHERE transaction_id = ?`,
		append([]any{cashTransaction.TransactionID}, values...),
		append(values, cashTransaction.TransactionID),
	)
	if err != nil {
		return false, fmt.Errorf("cash transaction %d: %w", cashTransaction.TransactionID, err)
	}
	return wasInserted, nil
}

func upsertClosedTrade(ctx context.Context, tx *sql.Tx, closedTrade *ibtradedata.ClosedTrade) (bool, error) {
	values := []any{
		closedTrade.InstrumentKey,
		closedTrade.Quantity.String(),
		closedTrade.Result.String(),
		closedTrade.ResultBaseCurrency.String(),
		formatTime(closedTrade.OpenDateTime),
		formatTime(closedTrade.CloseDateTime),
	}
	wasInserted, err := insertOrUpdate(
		ctx,
		tx,
		`INSERT INTO closed_trade (`+closedTradeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (open_trade_id, close_trade_id) DO NOTHING`,
		`UPDATE closed_trade SET instrument_key = ?, quantity = ?, result = ?, result_base_currency = ?,
		open_date_time = ?, close_date_time = ? WHERE open_trade_id = ? AND close_trade_id = ?`,
		append([]any{closedTrade.OpenTradeID, closedTrade.CloseTradeID}, values...),
		append(values, closedTrade.OpenTradeID, closedTrade.CloseTradeID),
	)
	if err != nil {
		return false, fmt.Errorf("closed trade %d/%d: %w", closedTrade.OpenTradeID, closedTrade.CloseTradeID, err)
	}
	return wasInserted, nil
}

type closedTradeKey struct {
	openTradeID  int64
	closeTradeID int64
}

func listClosedTradeKeys(ctx context.Context, tx *sql.Tx) (_ map[closedTradeKey]struct{}, retErr error) {
	rows, err := tx.QueryContext(ctx, "SELECT open_trade_id, close_trade_id FROM closed_trade")
	if err != nil {
		return nil, fmt.Errorf("listing closed trade keys: %w", err)
	}
	defer func() {
		retErr = errors.Join(retErr, rows.Close())
	}()
	keys := make(map[closedTradeKey]struct{})
	for rows.Next() {
		var key closedTradeKey
		if err := rows.Scan(&key.openTradeID, &key.closeTradeID); err != nil {
			return nil, fmt.Errorf("scanning closed trade key: %w", err)
		}
		keys[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func queryAll[T any](ctx context.Context, db *sql.DB, query string, args []any, scan func(rowScanner) (T, error)) (_ []T, retErr error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		retErr = errors.Join(retErr, rows.Close())
	}()
	var values []T
	for rows.Next() {
		value, err := scan(rows)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func scanTrade(scanner rowScanner) (*ibtradedata.Trade, error) {
	trade := &ibtradedata.Trade{}
	var tradeDate, dateTime string
	if err := scanner.Scan(
		&trade.TradeID,
		&trade.AccountID,
		&trade.AssetCategory,
		&trade.Symbol,
		&trade.Description,
		&trade.Conid,
		&trade.Currency,
		&trade.FXRateToBase,
		&tradeDate,
		&dateTime,
		&trade.BuySell,
		&trade.OpenCloseIndicator,
		&trade.Quantity,
		&trade.TradePrice,
		&trade.Multiplier,
		&trade.Proceeds,
		&trade.IBCommission,
		&trade.NetCash,
		&trade.FifoPnlRealized,
	); err != nil {
		return nil, fmt.Errorf("scanning trade: %w", err)
	}
	var err error
	if trade.TradeDate, err = parseDate(tradeDate); err != nil {
		return nil, fmt.Errorf("trade %d: %w", trade.TradeID, err)
	}
	if trade.DateTime, err = parseTime(dateTime); err != nil {
		return nil, fmt.Errorf("trade %d: %w", trade.TradeID, err)
	}
	return trade, nil
}

func scanCashTransaction(scanner rowScanner) (*ibtradedata.CashTransaction, error) {
	cashTransaction := &ibtradedata.CashTransaction{}
	var dateTime, settleDate string
	if err := scanner.Scan(
		&cashTransaction.TransactionID,
		&cashTransaction.AccountID,
		&cashTransaction.Currency,
		&cashTransaction.FXRateToBase,
		&cashTransaction.Symbol,
		&cashTransaction.Description,
		&dateTime,
		&settleDate,
		&cashTransaction.Amount,
		&cashTransaction.Type,
		&cashTransaction.TradeID,
	); err != nil {
		return nil, fmt.Errorf("scanning cash transaction: %w", err)
	}
	var err error
	if cashTransaction.DateTime, err = parseTime(dateTime); err != nil {
		return nil, fmt.Errorf("cash transaction %d: %w", cashTransaction.TransactionID, err)
	}
	if cashTransaction.SettleDate, err = parseDate(settleDate); err != nil {
		return nil, fmt.Errorf("cash transaction %d: %w", cashTransaction.TransactionID, err)
	}
	return cashTransaction, nil
}

func scanClosedTrade(scanner rowScanner) (*ibtradedata.ClosedTrade, error) {
	closedTrade := &ibtradedata.ClosedTrade{}
	var openDateTime, closeDateTime string
	if err := scanner.Scan(
		&closedTrade.OpenTradeID,
		&closedTrade.CloseTradeID,
		&closedTrade.InstrumentKey,
		&closedTrade.Quantity,
		&closedTrade.Result,
		&closedTrade.ResultBaseCurrency,
		&openDateTime,
		&closeDateTime,
	); err != nil {
		return nil, fmt.Errorf("scanning closed trade: %w", err)
	}
	var err error
	if closedTrade.OpenDateTime, err = parseTime(openDateTime); err != nil {
		return nil, err
	}
	if closedTrade.CloseDateTime, err = parseTime(closeDateTime); err != nil {
		return nil, err
	}
	return closedTrade, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func formatDate(date xtime.Date) string {
	if date.IsZero() {
		return ""
	}
	return date.String()
}

func parseDate(s string) (xtime.Date, error) {
	if s == "" {
		return xtime.Date{}, nil
	}
	date, err := xtime.ParseDate(s)
	if err != nil {
		return xtime.Date{}, fmt.Errorf("parsing stored date %q: %w", s, err)
	}
	return date, nil
}
