package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

const tradeColumns = `id, position_id, action, symbol, direction, size, leverage, margin,
	entry_price, exit_price, realized_pnl, time, reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(r rowScanner) (TradeRecord, error) {
	var rec TradeRecord
	err := r.Scan(
		&rec.ID,
		&rec.PositionID,
		&rec.Action,
		&rec.Symbol,
		&rec.Direction,
		&rec.Size,
		&rec.Leverage,
		&rec.Margin,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.RealizedPnL,
		&rec.Time,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(id string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", id)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListPositionTrades returns the open and close records of one position.
func (j *SQLite) ListPositionTrades(positionID string) ([]TradeRecord, error) {
	return j.queryTrades(`SELECT `+tradeColumns+` FROM trades
		WHERE position_id = ?
		ORDER BY time ASC, action DESC`, positionID)
}

// ListTradesBetween returns all records whose time is within [start, end).
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.queryTrades(`SELECT `+tradeColumns+` FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
}

// ListClosedBetween returns only close records within [start, end).
func (j *SQLite) ListClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.queryTrades(`SELECT `+tradeColumns+` FROM trades
		WHERE action = ? AND time >= ? AND time < ?
		ORDER BY time ASC`, ActionClose, start.UTC(), end.UTC())
}

func (j *SQLite) queryTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity snapshots within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, cash, total_value, margin_used, unrealized_pnl, open_positions
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Cash, &e.TotalValue, &e.MarginUsed, &e.UnrealizedPnL, &e.OpenPositions); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Performance aggregates realized results over a set of close records.
type Performance struct {
	Trades       int
	Wins         int
	Losses       int
	GrossProfit  float64
	GrossLoss    float64 // absolute value
	NetPnL       float64
	ProfitFactor float64 // +Inf when there are no losses but some profit
}

// Summarize computes Performance over recs, ignoring open records.
func Summarize(recs []TradeRecord) Performance {
	var p Performance
	for _, r := range recs {
		if !r.IsClose() {
			continue
		}
		p.Trades++
		p.NetPnL += r.RealizedPnL
		if r.RealizedPnL > 0 {
			p.Wins++
			p.GrossProfit += r.RealizedPnL
		} else {
			p.Losses++
			p.GrossLoss += -r.RealizedPnL
		}
	}
	switch {
	case p.GrossLoss > 0:
		p.ProfitFactor = p.GrossProfit / p.GrossLoss
	case p.GrossProfit > 0:
		p.ProfitFactor = math.Inf(1)
	}
	return p
}
