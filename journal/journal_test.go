package journal

import (
	"time"
)

var baseTime = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func openRec(id, pos, symbol string, at time.Time) TradeRecord {
	return TradeRecord{
		ID:         id,
		PositionID: pos,
		Action:     ActionOpen,
		Symbol:     symbol,
		Direction:  "long",
		Size:       200,
		Leverage:   2,
		Margin:     100,
		EntryPrice: 100,
		Time:       at,
		Reason:     "test",
	}
}

func closeRec(id, pos, symbol string, at time.Time, pnl float64) TradeRecord {
	r := openRec(id, pos, symbol, at)
	r.Action = ActionClose
	r.ExitPrice = 110
	r.RealizedPnL = pnl
	return r
}
