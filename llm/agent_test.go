package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/levtrader/indicators"
	"github.com/rustyeddy/levtrader/sim"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

var agentStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleContext(now time.Time) MarketContext {
	return MarketContext{
		Now: now,
		Analyses: map[string]indicators.Analysis{
			"ETHUSDT": {CurrentPrice: 3200, EMA20: 3150.5, RSI7: 55, Trend: "bullish", RSISignal: "neutral", BBSignal: "within_bands"},
			"BTCUSDT": {
				CurrentPrice: 65000, EMA20: 64000, SMA50: 63000, RSI7: 61.234,
				MACD:   indicators.MACD{MACD: 120.5},
				Series: indicators.Series{Prices: []float64{64000, 65000}, EMA20: []float64{1, 2}},
			},
		},
		Stats: sim.Statistics{ROIPercent: 2.5, Cash: 900, TotalValue: 1025, TotalTrades: 3, WinningTrades: 2, LosingTrades: 1, WinRate: 66.6667},
		Positions: []sim.PositionSummary{{
			Symbol: "BTCUSDT", Direction: sim.Long, Size: 1000, EntryPrice: 62500,
			CurrentPrice: 65000, Leverage: 10, UnrealizedPnL: 40, PnLPercent: 4,
		}},
		MaxPositionSize: 180,
		WakeReason:      "scheduled_interval",
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	a := NewAgent(&mockCompleter{}, WithAgentClock(func() time.Time { return agentStart }))
	p := a.BuildPrompt(sampleContext(agentStart.Add(7 * time.Minute)))

	assert.Contains(t, p, "It has been 7 minutes since you started trading.")
	assert.Contains(t, p, "you've been invoked 0 times")
	assert.Contains(t, p, "You were woken because: scheduled_interval")
	assert.Contains(t, p, "ALL BTC DATA")
	assert.Contains(t, p, "current_price = 65000.00, current_ema20 = 64000.000, current_macd = 120.500, current_rsi_7 = 61.234")
	assert.Contains(t, p, "Prices: [64000.00, 65000.00]")
	assert.Contains(t, p, "Current Total Return: 2.50%")
	assert.Contains(t, p, "BTCUSDT: LONG $1000.00 @ $62500.00, Current: $65000.00, P&L: $+40.00 (+4.00%), Leverage: 10x")
	assert.Contains(t, p, "Win Rate: 66.67%")
	assert.Contains(t, p, "Max position size available: $180.00")
	assert.Less(t, strings.Index(p, "ALL BTC DATA"), strings.Index(p, "ALL ETH DATA"), "symbols are sorted")
}

func TestBuildPromptNoPositions(t *testing.T) {
	t.Parallel()

	a := NewAgent(&mockCompleter{})
	mc := sampleContext(time.Now())
	mc.Positions = nil
	assert.Contains(t, a.BuildPrompt(mc), "Current live positions: None")
}

func TestDecide(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{}
	m.On("Complete", mock.Anything, SystemPrompt, mock.AnythingOfType("string")).
		Return(`{"summary":"go long","actions":[{"action":"open","symbol":"BTCUSDT","position_type":"long","size":500,"leverage":10}]}`, nil).
		Once()

	a := NewAgent(m, WithAgentClock(func() time.Time { return agentStart }))
	d, err := a.Decide(context.Background(), sampleContext(agentStart))
	require.NoError(t, err)
	assert.Equal(t, "go long", d.Summary)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, agentStart, d.Time)
	require.Len(t, d.Actions, 1)
	assert.Equal(t, 1, a.Invocations())

	ex, ok := a.Last()
	require.True(t, ok)
	assert.Contains(t, ex.Prompt, "invoked 0 times")
	assert.Equal(t, d.ID, ex.Decision.ID)
	m.AssertExpectations(t)
}

func TestDecideFailuresReturnEmptyDecision(t *testing.T) {
	t.Parallel()

	m := &mockCompleter{}
	m.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()
	m.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("not json at all", nil).Once()

	a := NewAgent(m)

	d, err := a.Decide(context.Background(), sampleContext(time.Now()))
	require.Error(t, err)
	assert.Equal(t, "Error: boom", d.Summary)
	assert.Empty(t, d.Actions)
	assert.NotEmpty(t, d.ID)

	d, err = a.Decide(context.Background(), sampleContext(time.Now()))
	assert.ErrorIs(t, err, ErrNoJSON)
	assert.Equal(t, "Error: Could not parse LLM response", d.Summary)
	assert.Equal(t, "not json at all", d.Raw)
	assert.Equal(t, 2, a.Invocations())
	m.AssertExpectations(t)
}

func TestRestoreInvocations(t *testing.T) {
	t.Parallel()

	a := NewAgent(&mockCompleter{})
	a.Restore(12)
	assert.Equal(t, 12, a.Invocations())
	a.Restore(-1)
	assert.Equal(t, 12, a.Invocations())
}
