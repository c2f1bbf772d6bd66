package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/levtrader/indicators"
	"github.com/rustyeddy/levtrader/internal/logger"
	"github.com/rustyeddy/levtrader/sim"
)

// Completer is anything that can answer a system+user prompt pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// MarketContext is everything the prompt shows the model.
type MarketContext struct {
	Now             time.Time
	Analyses        map[string]indicators.Analysis
	Stats           sim.Statistics
	Positions       []sim.PositionSummary
	MaxPositionSize float64
	WakeReason      string
}

// Exchange is one prompt/reply pair, kept for the dashboard.
type Exchange struct {
	Prompt   string
	Reply    string
	Decision Decision
}

// Agent builds prompts and turns replies into decisions. It counts how
// often it has been invoked since it started.
type Agent struct {
	llm    Completer
	system string
	now    func() time.Time

	mu          sync.Mutex
	start       time.Time
	invocations int
	last        *Exchange
}

type AgentOption func(*Agent)

func WithAgentClock(now func() time.Time) AgentOption {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

func WithSystemPrompt(p string) AgentOption {
	return func(a *Agent) {
		if strings.TrimSpace(p) != "" {
			a.system = p
		}
	}
}

func NewAgent(c Completer, opts ...AgentOption) *Agent {
	a := &Agent{llm: c, system: SystemPrompt, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	a.start = a.now()
	return a
}

func (a *Agent) Invocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.invocations
}

// Restore carries the invocation count over from a saved session.
func (a *Agent) Restore(invocations int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if invocations > 0 {
		a.invocations = invocations
	}
}

// Last returns the most recent exchange, if any.
func (a *Agent) Last() (Exchange, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return Exchange{}, false
	}
	return *a.last, true
}

// Decide prompts the model and parses its reply. On failure the returned
// decision is still usable: it has no actions and its summary says what
// went wrong.
func (a *Agent) Decide(ctx context.Context, mc MarketContext) (Decision, error) {
	prompt := a.BuildPrompt(mc)

	a.mu.Lock()
	a.invocations++
	n := a.invocations
	a.mu.Unlock()

	now := mc.Now
	if now.IsZero() {
		now = a.now()
	}

	reply, err := a.llm.Complete(ctx, a.system, prompt)
	var d Decision
	switch {
	case err != nil:
		d = emptyDecision("Error: " + err.Error())
		err = fmt.Errorf("decision %d: %w", n, err)
	default:
		d, err = Parse(reply)
		if err != nil {
			d = emptyDecision("Error: Could not parse LLM response")
			d.Raw = reply
			err = fmt.Errorf("decision %d: %w", n, err)
		}
	}
	d.ID = uuid.NewString()
	d.Time = now.UTC()

	a.mu.Lock()
	a.last = &Exchange{Prompt: prompt, Reply: reply, Decision: d}
	a.mu.Unlock()

	if err != nil {
		logger.Warnf("[llm] %v", err)
	} else {
		logger.Infof("[llm] decision %d: %d action(s): %s", n, len(d.Actions), d.Summary)
	}
	return d, err
}

// BuildPrompt renders the user prompt: market block per symbol (sorted),
// then the account block, then the sizing line.
func (a *Agent) BuildPrompt(mc MarketContext) string {
	now := mc.Now
	if now.IsZero() {
		now = a.now()
	}
	a.mu.Lock()
	elapsed := int(now.Sub(a.start).Minutes())
	count := a.invocations
	a.mu.Unlock()
	if elapsed < 0 {
		elapsed = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "It has been %d minutes since you started trading. The current time is %s and you've been invoked %d times.\n\n",
		elapsed, now.Format("2006-01-02 15:04:05"), count)
	if mc.WakeReason != "" {
		fmt.Fprintf(&b, "You were woken because: %s\n\n", mc.WakeReason)
	}
	b.WriteString("ALL OF THE PRICE OR SIGNAL DATA BELOW IS ORDERED: OLDEST → NEWEST\n\n")
	b.WriteString("CURRENT MARKET STATE FOR ALL COINS\n")

	symbols := make([]string, 0, len(mc.Analyses))
	for s := range mc.Analyses {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		writeSymbol(&b, s, mc.Analyses[s])
	}

	writeAccount(&b, mc.Stats, mc.Positions)
	fmt.Fprintf(&b, "\n\nMax position size available: $%.2f\n\n", mc.MaxPositionSize)
	b.WriteString("Provide your analysis and trading decision in JSON format.")
	return b.String()
}

var rule = strings.Repeat("=", 60)

func writeSymbol(b *strings.Builder, symbol string, an indicators.Analysis) {
	fmt.Fprintf(b, "\n%s\nALL %s DATA\n%s\n", rule, strings.TrimSuffix(symbol, "USDT"), rule)
	fmt.Fprintf(b, "current_price = %.2f, current_ema20 = %.3f, current_macd = %.3f, current_rsi_7 = %.3f\n\n",
		an.CurrentPrice, an.EMA20, an.MACD.MACD, an.RSI7)

	if len(an.Series.Prices) > 0 {
		b.WriteString("Intraday series (recent data, oldest → latest):\n\n")
		fmt.Fprintf(b, "Prices: %s\n\n", list(an.Series.Prices, 2))
		fmt.Fprintf(b, "EMA-20: %s\n\n", list(an.Series.EMA20, 3))
		fmt.Fprintf(b, "MACD: %s\n\n", list(an.Series.MACD, 3))
		fmt.Fprintf(b, "RSI (7-period): %s\n\n", list(an.Series.RSI7, 3))
		fmt.Fprintf(b, "RSI (14-period): %s\n\n", list(an.Series.RSI14, 3))
	}

	b.WriteString("Longer-term context:\n")
	fmt.Fprintf(b, "  20-Period EMA: %.3f vs. 50-Period SMA: %.3f\n", an.EMA20, an.SMA50)
	fmt.Fprintf(b, "  Current Volume: %.2f vs. Avg Volume: %.2f\n", an.CurrentVolume, an.AvgVolume)
	fmt.Fprintf(b, "  Trend: %s\n", an.Trend)
	fmt.Fprintf(b, "  RSI Signal: %s\n", an.RSISignal)
	fmt.Fprintf(b, "  Bollinger Bands: %s\n\n", an.BBSignal)
}

func writeAccount(b *strings.Builder, st sim.Statistics, positions []sim.PositionSummary) {
	fmt.Fprintf(b, "\n%s\nYOUR ACCOUNT INFORMATION & PERFORMANCE\n%s\n", rule, rule)
	fmt.Fprintf(b, "Current Total Return: %.2f%%\n\n", st.ROIPercent)
	fmt.Fprintf(b, "Available Cash: $%.2f\n\n", st.Cash)
	fmt.Fprintf(b, "Current Account Value: $%.2f\n\n", st.TotalValue)

	if len(positions) == 0 {
		b.WriteString("Current live positions: None\n")
	} else {
		b.WriteString("Current live positions & performance:\n")
		for _, p := range positions {
			fmt.Fprintf(b, "  - %s: %s $%.2f @ $%.2f, Current: $%.2f, P&L: $%+.2f (%+.2f%%), Leverage: %gx\n",
				p.Symbol, strings.ToUpper(p.Direction.String()), p.Size, p.EntryPrice,
				p.CurrentPrice, p.UnrealizedPnL, p.PnLPercent, p.Leverage)
		}
	}

	fmt.Fprintf(b, "\nTotal Trades: %d\n", st.TotalTrades)
	fmt.Fprintf(b, "Winning Trades: %d\n", st.WinningTrades)
	fmt.Fprintf(b, "Losing Trades: %d\n", st.LosingTrades)
	fmt.Fprintf(b, "Win Rate: %.2f%%", st.WinRate)
}

func list(xs []float64, prec int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%.*f", prec, x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
