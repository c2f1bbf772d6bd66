// Package cadence decides when the bot should ask for a new decision.
//
// Evaluation walks a fixed ladder of rules and stops at the first that
// fires: cooldown, schedule, first run, single-symbol emergency move,
// market-wide volatility, position risk, then a relaxed threshold once
// most of the interval has elapsed.
package cadence

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/sim"
)

// Reasons reported by Evaluate.
const (
	ReasonCooldown         = "cooldown_active"
	ReasonScheduled        = "scheduled_interval"
	ReasonFirstRun         = "first_run"
	ReasonEmergency        = "emergency_volatility"
	ReasonMarketVolatility = "market_volatility"
	ReasonTargetReached    = "target_reached"
	ReasonStopLossHit      = "stop_loss_hit"
	ReasonPositionRisk     = "position_risk"
	ReasonDecay            = "decay_trigger"
	ReasonNoTrigger        = "no_trigger"
)

// Policy holds the thresholds. Fractions are price-change ratios, so 0.02
// means a 2% move.
type Policy struct {
	Cooldown              time.Duration
	Interval              time.Duration
	Volatility            float64
	Emergency             float64
	MarketVolatilityCoins int
	PositionRisk          float64
	DecayFraction         float64
	DecayFactor           float64
}

func DefaultPolicy() Policy {
	return Policy{
		Cooldown:              60 * time.Second,
		Interval:              300 * time.Second,
		Volatility:            0.02,
		Emergency:             0.05,
		MarketVolatilityCoins: 2,
		PositionRisk:          0.03,
		DecayFraction:         0.6,
		DecayFactor:           0.75,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.Interval <= 0:
		return fmt.Errorf("cadence: interval must be positive")
	case p.Cooldown < 0:
		return fmt.Errorf("cadence: cooldown must not be negative")
	case p.Cooldown > p.Interval:
		return fmt.Errorf("cadence: cooldown %s exceeds interval %s", p.Cooldown, p.Interval)
	case p.Volatility <= 0 || p.Emergency <= 0 || p.PositionRisk <= 0:
		return fmt.Errorf("cadence: thresholds must be positive")
	case p.Emergency < p.Volatility:
		return fmt.Errorf("cadence: emergency threshold below volatility threshold")
	case p.MarketVolatilityCoins < 1:
		return fmt.Errorf("cadence: market_volatility_coins must be at least 1")
	case p.DecayFraction <= 0 || p.DecayFraction > 1:
		return fmt.Errorf("cadence: decay_fraction must be in (0, 1]")
	case p.DecayFactor <= 0 || p.DecayFactor > 1:
		return fmt.Errorf("cadence: decay_factor must be in (0, 1]")
	}
	return nil
}

// Exposure is the part of an open position the policy looks at.
type Exposure struct {
	Symbol      string
	Direction   sim.Direction
	TargetPrice *float64
	StopLoss    *float64
}

// Exposures converts ledger positions.
func Exposures(ps []sim.Position) []Exposure {
	out := make([]Exposure, 0, len(ps))
	for _, p := range ps {
		out = append(out, Exposure{
			Symbol:      p.Symbol,
			Direction:   p.Direction,
			TargetPrice: p.TargetPrice,
			StopLoss:    p.StopLoss,
		})
	}
	return out
}

type Input struct {
	Now          time.Time
	LastDecision time.Time // zero means never
	Prices       market.Prices
	LastPrices   market.Prices
	Positions    []Exposure
}

type Result struct {
	Wake   bool
	Reason string
	Symbol string  // symbol that triggered, if any
	Change float64 // signed fractional move that triggered, if any
	Count  int     // volatile symbols, for market_volatility
}

func (r Result) String() string {
	switch {
	case r.Count > 0:
		return fmt.Sprintf("%s (%d symbols)", r.Reason, r.Count)
	case r.Symbol != "":
		return fmt.Sprintf("%s %s %+.2f%%", r.Reason, r.Symbol, r.Change*100)
	}
	return r.Reason
}

// Evaluate applies the policy to in. It is a pure function.
func (p Policy) Evaluate(in Input) Result {
	elapsed := time.Duration(math.MaxInt64)
	if !in.LastDecision.IsZero() {
		elapsed = in.Now.Sub(in.LastDecision)
	}

	if elapsed < p.Cooldown {
		return Result{Reason: ReasonCooldown}
	}
	if elapsed >= p.Interval {
		return Result{Wake: true, Reason: ReasonScheduled}
	}
	if len(in.LastPrices) == 0 {
		return Result{Wake: true, Reason: ReasonFirstRun}
	}

	moves := changes(in.Prices, in.LastPrices)

	for _, m := range moves {
		if math.Abs(m.change) > p.Emergency {
			return Result{Wake: true, Reason: ReasonEmergency, Symbol: m.symbol, Change: m.change}
		}
	}

	volatile := 0
	for _, m := range moves {
		if math.Abs(m.change) > p.Volatility {
			volatile++
		}
	}
	if volatile >= p.MarketVolatilityCoins {
		return Result{Wake: true, Reason: ReasonMarketVolatility, Count: volatile}
	}

	if r, ok := p.positionRisk(in); ok {
		return r
	}

	if float64(elapsed) > float64(p.Interval)*p.DecayFraction {
		threshold := p.Volatility * p.DecayFactor
		for _, m := range moves {
			if math.Abs(m.change) > threshold {
				return Result{Wake: true, Reason: ReasonDecay, Symbol: m.symbol, Change: m.change}
			}
		}
	}

	return Result{Reason: ReasonNoTrigger}
}

func (p Policy) positionRisk(in Input) (Result, bool) {
	for _, e := range in.Positions {
		cur, ok := in.Prices.Get(e.Symbol)
		if !ok {
			continue
		}
		last, ok := in.LastPrices.Get(e.Symbol)
		if !ok {
			continue
		}
		change := (cur - last) / last

		if e.TargetPrice != nil && *e.TargetPrice > 0 && sim.TargetHit(e.Direction, *e.TargetPrice, cur) {
			return Result{Wake: true, Reason: ReasonTargetReached, Symbol: e.Symbol, Change: change}, true
		}
		if e.StopLoss != nil && *e.StopLoss > 0 && sim.StopHit(e.Direction, *e.StopLoss, cur) {
			return Result{Wake: true, Reason: ReasonStopLossHit, Symbol: e.Symbol, Change: change}, true
		}
		if (e.Direction == sim.Long && change < -p.PositionRisk) ||
			(e.Direction == sim.Short && change > p.PositionRisk) {
			return Result{Wake: true, Reason: ReasonPositionRisk, Symbol: e.Symbol, Change: change}, true
		}
	}
	return Result{}, false
}

type move struct {
	symbol string
	change float64
}

// changes returns the fractional move of every symbol priced in both
// snapshots, sorted by symbol.
func changes(cur, last market.Prices) []move {
	symbols := make([]string, 0, len(cur))
	for s := range cur {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := make([]move, 0, len(symbols))
	for _, s := range symbols {
		c, ok := cur.Get(s)
		if !ok {
			continue
		}
		l, ok := last.Get(s)
		if !ok {
			continue
		}
		out = append(out, move{symbol: s, change: (c - l) / l})
	}
	return out
}
