// Package sqlite persists price bars and the backtest run journal in a
// single SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// Store owns the database handle shared by the bar store and the journal.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens (or creates) the database at path with WAL mode and the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; readers share the one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", path)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL    NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			id                TEXT    PRIMARY KEY,
			symbol            TEXT    NOT NULL,
			label             TEXT    NOT NULL,
			config            TEXT    NOT NULL,
			period_start      INTEGER NOT NULL,
			period_end        INTEGER NOT NULL,
			initial_capital   REAL    NOT NULL,
			final_capital     REAL    NOT NULL,
			total_return      REAL    NOT NULL,
			annualized_return REAL    NOT NULL,
			max_drawdown      REAL    NOT NULL,
			sharpe_ratio      REAL    NOT NULL,
			trade_count       INTEGER NOT NULL,
			win_rate          REAL    NOT NULL,
			equity_curve      TEXT,
			created_at        INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON backtest_runs(created_at);
		CREATE INDEX IF NOT EXISTS idx_runs_symbol ON backtest_runs(symbol);

		CREATE TABLE IF NOT EXISTS backtest_trades (
			run_id       TEXT    NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
			seq          INTEGER NOT NULL,
			ts           INTEGER NOT NULL,
			action       TEXT    NOT NULL,
			price        REAL    NOT NULL,
			quantity     REAL    NOT NULL,
			realized_pnl REAL    NOT NULL,
			reason       TEXT    NOT NULL,
			PRIMARY KEY (run_id, seq)
		);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
