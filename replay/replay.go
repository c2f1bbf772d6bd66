// Package replay drives a ledger from a CSV of prices and scripted events.
package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/levtrader/internal/logger"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/sim"
)

// Reason recorded on positions closed by CLOSE events without one.
const ReasonReplay = "replay"

// Clock follows the row times. Pass its Now to sim.WithClock so position
// and trade times match the data.
type Clock struct{ t time.Time }

func (c *Clock) Now() time.Time { return c.t }

type Options struct {
	Clock *Clock
	// Triggers closes positions whose target or stop is crossed by a row's
	// price, before the row's event is applied.
	Triggers bool
}

type Result struct {
	Rows       int            `json:"rows"`
	Opened     int            `json:"opened"`
	Closed     int            `json:"closed"`
	Rejected   int            `json:"rejected"`
	Triggered  int            `json:"triggered"`
	Prices     market.Prices  `json:"prices"`
	Statistics sim.Statistics `json:"stats"`
}

// CSV replays the file at path. See Run for the format.
func CSV(ctx context.Context, path string, l *sim.Ledger, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Run(ctx, f, l, opts)
}

// Run replays rows of the form
//
//	time,symbol,price[,event,arg1..arg6]
//
// with an optional header row. Events (case-insensitive):
//
//	OPEN       symbol direction size leverage
//	OPEN_TPSL  symbol direction size leverage target stop
//	CLOSE      symbol [reason]
//	CLOSE_ID   position-id [reason]
//	CLOSE_ALL  [reason]
//
// Each row updates the price snapshot and then applies its event. Ledger
// rejections and closes of missing positions are counted, not returned.
// Malformed rows stop the replay with an error naming the line.
func Run(ctx context.Context, r io.Reader, l *sim.Ledger, opts Options) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rp := &replayer{ledger: l, opts: opts, prices: market.Prices{}}
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return rp.result(), err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rp.result(), err
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if err := rp.row(row); err != nil {
			return rp.result(), fmt.Errorf("line %d: %w", line, err)
		}
	}

	res := rp.result()
	logger.Infof("replay: %d rows, %d opened, %d closed, %d rejected, %d triggered",
		res.Rows, res.Opened, res.Closed, res.Rejected, res.Triggered)
	return res, nil
}

type replayer struct {
	ledger *sim.Ledger
	opts   Options
	prices market.Prices
	res    Result
}

func (rp *replayer) result() Result {
	res := rp.res
	res.Prices = rp.prices.Clone()
	res.Statistics = rp.ledger.Statistics(rp.prices)
	return res
}

func (rp *replayer) row(row []string) error {
	if len(row) < 3 {
		return fmt.Errorf("need at least 3 columns time,symbol,price: %v", row)
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	t, err := parseTime(row[0])
	if err != nil {
		return err
	}
	symbol := strings.ToUpper(row[1])
	if symbol == "" {
		return fmt.Errorf("symbol is empty")
	}
	price, err := strconv.ParseFloat(row[2], 64)
	if err != nil || !(price > 0) {
		return fmt.Errorf("bad price %q", row[2])
	}

	rp.res.Rows++
	if rp.opts.Clock != nil {
		rp.opts.Clock.t = t
	}
	rp.prices[symbol] = price

	if rp.opts.Triggers {
		rp.trigger(symbol, price)
	}
	if len(row) < 4 || row[3] == "" {
		return nil
	}
	return rp.event(strings.ToUpper(row[3]), row[4:])
}

func (rp *replayer) trigger(symbol string, price float64) {
	for _, p := range rp.ledger.PositionsBySymbol(symbol) {
		status := p.CheckTargets(price)
		if status == sim.TargetNone {
			continue
		}
		pnl, err := rp.ledger.CloseWithReason(p.ID, price, status.String())
		if err != nil {
			logger.Warnf("replay: trigger close %s: %v", p.ID, err)
			continue
		}
		rp.res.Closed++
		rp.res.Triggered++
		logger.Debugf("replay: %s %s %s @ %.4f, P&L %+.2f", status, p.Symbol, p.ID, price, pnl)
	}
}

func (rp *replayer) event(event string, args []string) error {
	switch event {
	case "OPEN", "OPEN_TPSL":
		req, err := parseOpen(event, args)
		if err != nil {
			return fmt.Errorf("%s: %w", event, err)
		}
		req.Price = rp.prices[req.Symbol]
		pos, err := rp.ledger.Open(req)
		if err != nil {
			return rp.rejected(event, err)
		}
		rp.res.Opened++
		logger.Debugf("replay: opened %s %s $%.2f @ %.4f (%s)", pos.Direction, pos.Symbol, pos.Size, pos.EntryPrice, pos.ID)
		return nil

	case "CLOSE":
		if len(args) < 1 || args[0] == "" {
			return fmt.Errorf("CLOSE: missing symbol")
		}
		symbol := strings.ToUpper(args[0])
		price, ok := rp.prices.Get(symbol)
		if !ok {
			return fmt.Errorf("CLOSE: no price for %s", symbol)
		}
		closed, err := rp.ledger.CloseSymbol(symbol, price, reasonArg(args, 1))
		rp.res.Closed += len(closed)
		if err != nil {
			return rp.rejected(event, err)
		}
		return nil

	case "CLOSE_ID":
		if len(args) < 1 || args[0] == "" {
			return fmt.Errorf("CLOSE_ID: missing position id")
		}
		pid := sim.PositionID(args[0])
		p, ok := rp.ledger.Position(pid)
		if !ok {
			return rp.rejected(event, fmt.Errorf("close %s: %w", pid, sim.ErrPositionNotFound))
		}
		price, ok := rp.prices.Get(p.Symbol)
		if !ok {
			return fmt.Errorf("CLOSE_ID: no price for %s", p.Symbol)
		}
		if _, err := rp.ledger.CloseWithReason(pid, price, reasonArg(args, 1)); err != nil {
			return rp.rejected(event, err)
		}
		rp.res.Closed++
		return nil

	case "CLOSE_ALL":
		closed := rp.ledger.CloseAllWithReason(rp.prices, reasonArg(args, 0))
		rp.res.Closed += len(closed)
		return nil
	}
	return fmt.Errorf("unknown event %q", event)
}

// rejected counts ledger refusals and passes anything else through.
func (rp *replayer) rejected(event string, err error) error {
	if sim.IsRejection(err) || errors.Is(err, sim.ErrPositionNotFound) {
		rp.res.Rejected++
		logger.Debugf("replay: %s rejected: %v", event, err)
		return nil
	}
	return err
}

func parseOpen(event string, args []string) (sim.OpenRequest, error) {
	need := 4
	if event == "OPEN_TPSL" {
		need = 6
	}
	if len(args) < need {
		return sim.OpenRequest{}, fmt.Errorf("need %d args, got %d", need, len(args))
	}

	req := sim.OpenRequest{Symbol: strings.ToUpper(args[0]), Reason: ReasonReplay}
	if req.Symbol == "" {
		return req, fmt.Errorf("symbol is empty")
	}
	dir, err := sim.ParseDirection(args[1])
	if err != nil {
		return req, err
	}
	req.Direction = dir

	nums := make([]float64, need-2)
	for i := range nums {
		v, err := strconv.ParseFloat(args[i+2], 64)
		if err != nil {
			return req, fmt.Errorf("bad number %q", args[i+2])
		}
		nums[i] = v
	}
	req.Size, req.Leverage = nums[0], nums[1]
	if event == "OPEN_TPSL" {
		req.TargetPrice, req.StopLoss = &nums[2], &nums[3]
	}
	return req, nil
}

func reasonArg(args []string, i int) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	return ReasonReplay
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("time is empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}
