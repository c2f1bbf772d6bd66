package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rustyeddy/levtrader/sim"
)

const (
	ActionOpen  = "open"
	ActionClose = "close"
	ActionHold  = "hold"
)

const noSummary = "No summary provided"

var (
	ErrNoJSON    = errors.New("llm: no JSON object in reply")
	ErrMalformed = errors.New("llm: malformed decision")
)

// Signal is the model's per-symbol reasoning.
type Signal struct {
	Signal        string   `json:"signal"`
	Confidence    float64  `json:"confidence"`
	Justification string   `json:"justification,omitempty"`
	TargetPrice   *float64 `json:"target_price,omitempty"`
	StopLoss      *float64 `json:"stop_loss,omitempty"`
	Leverage      float64  `json:"leverage,omitempty"`
	RiskUSD       float64  `json:"risk_usd,omitempty"`
}

// Action is one instruction from the model. Size is leveraged notional in
// quote currency.
type Action struct {
	Action       string   `json:"action"`
	Symbol       string   `json:"symbol,omitempty"`
	PositionType string   `json:"position_type,omitempty"`
	Size         float64  `json:"size,omitempty"`
	Leverage     float64  `json:"leverage,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	TargetPrice  *float64 `json:"target_price,omitempty"`
	StopLoss     *float64 `json:"stop_loss,omitempty"`
}

// Kind is the normalized action verb.
func (a Action) Kind() string {
	return strings.ToLower(strings.TrimSpace(a.Action))
}

func (a Action) Direction() (sim.Direction, error) {
	return sim.ParseDirection(a.PositionType)
}

// WithDefaults fills the optional open fields: a missing position_type is
// long and a missing leverage is 1x. Explicit values are left alone.
func (a Action) WithDefaults() Action {
	if strings.TrimSpace(a.PositionType) == "" {
		a.PositionType = sim.Long.String()
	}
	if a.Leverage == 0 {
		a.Leverage = 1
	}
	return a
}

type Decision struct {
	ID             string            `json:"id"`
	Time           time.Time         `json:"timestamp"`
	Summary        string            `json:"summary"`
	ChainOfThought map[string]Signal `json:"chain_of_thought"`
	Actions        []Action          `json:"actions"`
	Raw            string            `json:"raw,omitempty"`
}

// emptyDecision is what callers get back when the model could not be used.
func emptyDecision(summary string) Decision {
	return Decision{
		Summary:        summary,
		ChainOfThought: map[string]Signal{},
		Actions:        []Action{},
	}
}

// Parse turns a model reply into a Decision. The reply may wrap the JSON
// object in prose or a code fence. Open actions without a target or stop
// inherit them from chain_of_thought for the same symbol.
func Parse(raw string) (Decision, error) {
	obj, ok := extractJSON(raw)
	if !ok {
		return Decision{}, ErrNoJSON
	}

	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return Decision{}, fmt.Errorf("%w: root is not an object", ErrMalformed)
	}
	coerceActionNumbers(m)

	sch, err := decisionSchema()
	if err != nil {
		return Decision{}, fmt.Errorf("llm: compile schema: %w", err)
	}
	if err := sch.Validate(m); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	clean, err := json.Marshal(m)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var wire struct {
		Summary string   `json:"summary"`
		Actions []Action `json:"actions"`
	}
	if err := json.Unmarshal(clean, &wire); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	d := emptyDecision(strings.TrimSpace(wire.Summary))
	if d.Summary == "" {
		d.Summary = noSummary
	}
	d.Raw = raw
	d.ChainOfThought = parseSignals(gjson.GetBytes(clean, "chain_of_thought"))

	for _, a := range wire.Actions {
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		a.PositionType = strings.ToLower(strings.TrimSpace(a.PositionType))
		if a.Kind() == ActionOpen {
			a = a.WithDefaults()
			if sig, ok := lookupSignal(d.ChainOfThought, a.Symbol); ok {
				if a.TargetPrice == nil {
					a.TargetPrice = sig.TargetPrice
				}
				if a.StopLoss == nil {
					a.StopLoss = sig.StopLoss
				}
			}
		}
		d.Actions = append(d.Actions, a)
	}
	return d, nil
}

func parseSignals(cot gjson.Result) map[string]Signal {
	out := map[string]Signal{}
	if !cot.IsObject() {
		return out
	}
	cot.ForEach(func(key, val gjson.Result) bool {
		if !val.IsObject() {
			return true
		}
		out[strings.ToUpper(strings.TrimSpace(key.String()))] = Signal{
			Signal:        strings.ToLower(strings.TrimSpace(val.Get("signal").String())),
			Confidence:    val.Get("confidence").Float(),
			Justification: val.Get("justification").String(),
			TargetPrice:   positive(val.Get("target_price")),
			StopLoss:      positive(val.Get("stop_loss")),
			Leverage:      val.Get("leverage").Float(),
			RiskUSD:       val.Get("risk_usd").Float(),
		}
		return true
	})
	return out
}

// lookupSignal matches "BTCUSDT" against either "BTCUSDT" or "BTC".
func lookupSignal(cot map[string]Signal, symbol string) (Signal, bool) {
	if s, ok := cot[symbol]; ok {
		return s, true
	}
	s, ok := cot[strings.TrimSuffix(symbol, "USDT")]
	return s, ok
}

func positive(r gjson.Result) *float64 {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	f, ok := parseNumber(r.String())
	if !ok || f <= 0 {
		return nil
	}
	return &f
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
