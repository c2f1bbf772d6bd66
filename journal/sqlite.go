package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(id, position_id, action, symbol, direction, size, leverage, margin,
		 entry_price, exit_price, realized_pnl, time, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PositionID, t.Action, t.Symbol, t.Direction, t.Size, t.Leverage, t.Margin,
		t.EntryPrice, t.ExitPrice, t.RealizedPnL, t.Time.UTC(), t.Reason,
	)
	if err != nil {
		return fmt.Errorf("record trade %s: %w", t.ID, err)
	}
	return nil
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, cash, total_value, margin_used, unrealized_pnl, open_positions)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Cash, e.TotalValue, e.MarginUsed, e.UnrealizedPnL, e.OpenPositions,
	)
	if err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
