package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader  = []string{"id", "position_id", "action", "symbol", "direction", "size", "leverage", "margin", "entry_price", "exit_price", "realized_pnl", "time", "reason"}
	equityHeader = []string{"time", "cash", "total_value", "margin_used", "unrealized_pnl", "open_positions"}
)

type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

// NewCSV opens (or creates) the two files in append mode. A header row is
// written only when a file is empty, so restarts keep extending the log.
func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, tw, err := openCSV(tradesPath, tradeHeader)
	if err != nil {
		return nil, err
	}
	ef, ew, err := openCSV(equityPath, equityHeader)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}
	return &CSVJournal{trades: tw, equity: ew, tf: tf, ef: ef}, nil
}

func openCSV(path string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(header); err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, nil, err
		}
	}
	return f, w, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.ID,
		t.PositionID,
		t.Action,
		t.Symbol,
		t.Direction,
		f(t.Size),
		f(t.Leverage),
		f(t.Margin),
		f(t.EntryPrice),
		f(t.ExitPrice),
		f(t.RealizedPnL),
		t.Time.UTC().Format(time.RFC3339),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Time.UTC().Format(time.RFC3339),
		f(e.Cash),
		f(e.TotalValue),
		f(e.MarginUsed),
		f(e.UnrealizedPnL),
		strconv.Itoa(e.OpenPositions),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	j.equity.Flush()
	return errors.Join(j.trades.Error(), j.equity.Error(), j.tf.Close(), j.ef.Close())
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
