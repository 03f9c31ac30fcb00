package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"TradeSentry/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists bars to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so readers (ad hoc analysis, Grafana) don't block the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_bar (
			code       TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			open       REAL,
			high       REAL,
			low        REAL,
			close      REAL,
			prev_close REAL,
			change     REAL,
			pct_change REAL,
			volume     REAL,
			amount     REAL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (code, trade_date)
		)`,
		`CREATE TABLE IF NOT EXISTS minute_snapshot (
			code       TEXT NOT NULL,
			bar_time   INTEGER NOT NULL,
			trade_date TEXT NOT NULL,
			open       REAL,
			high       REAL,
			low        REAL,
			close      REAL,
			volume     REAL,
			amount     REAL,
			pct_change REAL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (code, bar_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_minute_trade_date ON minute_snapshot(code, trade_date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// UpsertDaily replaces the row for (code, trade date) atomically.
func (s *SQLiteStore) UpsertDaily(ctx context.Context, bar model.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO daily_bar
		(code, trade_date, open, high, low, close, prev_close, change, pct_change, volume, amount, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(code, trade_date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, prev_close=excluded.prev_close,
			change=excluded.change, pct_change=excluded.pct_change,
			volume=excluded.volume, amount=excluded.amount,
			updated_at=excluded.updated_at`,
		bar.Code, bar.TradeDate, bar.Open, bar.High, bar.Low, bar.Close,
		bar.PrevClose, bar.Change, bar.PctChange, bar.Volume, bar.Amount,
		time.Now().Unix(),
	)
	if err != nil {
		return &PersistError{Op: "upsert daily", Code: bar.Code, Err: err}
	}
	return nil
}

// UpsertMinuteSnapshot writes the row for (code, bar time). BarTime must
// already be minute-aligned; the key makes same-minute re-delivery an
// overwrite and everything else an append.
func (s *SQLiteStore) UpsertMinuteSnapshot(ctx context.Context, bar model.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO minute_snapshot
		(code, bar_time, trade_date, open, high, low, close, volume, amount, pct_change, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(code, bar_time) DO UPDATE SET
			trade_date=excluded.trade_date,
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, volume=excluded.volume,
			amount=excluded.amount, pct_change=excluded.pct_change,
			updated_at=excluded.updated_at`,
		bar.Code, bar.BarTime.Unix(), bar.TradeDate, bar.Open, bar.High,
		bar.Low, bar.Close, bar.Volume, bar.Amount, bar.PctChange,
		time.Now().Unix(),
	)
	if err != nil {
		return &PersistError{Op: "upsert minute snapshot", Code: bar.Code, Err: err}
	}
	return nil
}

// QueryHistory returns up to lookbackDays daily bars, oldest first.
func (s *SQLiteStore) QueryHistory(ctx context.Context, code string, lookbackDays int) ([]model.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, trade_date, open, high, low, close, prev_close, change, pct_change, volume, amount
		FROM (
			SELECT * FROM daily_bar WHERE code = ? ORDER BY trade_date DESC LIMIT ?
		) ORDER BY trade_date ASC`,
		code, lookbackDays,
	)
	if err != nil {
		return nil, fmt.Errorf("query history %s: %w", code, err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Code, &b.TradeDate, &b.Open, &b.High, &b.Low,
			&b.Close, &b.PrevClose, &b.Change, &b.PctChange, &b.Volume, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan history %s: %w", code, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// QueryMinuteTrajectory returns the minute snapshots for one trade date,
// oldest first.
func (s *SQLiteStore) QueryMinuteTrajectory(ctx context.Context, code, tradeDate string) ([]model.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, bar_time, trade_date, open, high, low, close, volume, amount, pct_change
		FROM minute_snapshot WHERE code = ? AND trade_date = ? ORDER BY bar_time ASC`,
		code, tradeDate,
	)
	if err != nil {
		return nil, fmt.Errorf("query trajectory %s: %w", code, err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var unix int64
		if err := rows.Scan(&b.Code, &unix, &b.TradeDate, &b.Open, &b.High,
			&b.Low, &b.Close, &b.Volume, &b.Amount, &b.PctChange); err != nil {
			return nil, fmt.Errorf("scan trajectory %s: %w", code, err)
		}
		b.BarTime = time.Unix(unix, 0)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}
