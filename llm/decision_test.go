package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/levtrader/sim"
)

const fullReply = "Here is my call:\n```json\n" + `{
  "summary": "BTC breaking out, ETH weak.",
  "chain_of_thought": {
    "BTCUSDT": {"signal": "buy_long", "confidence": 0.85, "justification": "MACD up", "target_price": 70000, "stop_loss": 63000, "leverage": 15, "risk_usd": 20},
    "ETH": {"signal": "buy_short", "confidence": "0.6", "target_price": "3000", "stop_loss": null}
  },
  "actions": [
    {"action": "open", "symbol": "btcusdt", "position_type": "LONG", "size": 1500, "leverage": 15, "reason": "breakout"},
    {"action": "open", "symbol": "ETHUSDT", "position_type": "short", "size": "800", "leverage": "10", "stop_loss": 3400},
    {"action": "close", "symbol": "SOLUSDT"}
  ]
}` + "\n```\nGood luck."

func TestParseFullReply(t *testing.T) {
	t.Parallel()

	d, err := Parse(fullReply)
	require.NoError(t, err)
	assert.Equal(t, "BTC breaking out, ETH weak.", d.Summary)
	assert.Equal(t, fullReply, d.Raw)
	require.Len(t, d.Actions, 3)

	btc := d.Actions[0]
	assert.Equal(t, "BTCUSDT", btc.Symbol)
	assert.Equal(t, "long", btc.PositionType)
	dir, err := btc.Direction()
	require.NoError(t, err)
	assert.Equal(t, sim.Long, dir)
	require.NotNil(t, btc.TargetPrice)
	assert.Equal(t, 70000.0, *btc.TargetPrice)
	require.NotNil(t, btc.StopLoss)
	assert.Equal(t, 63000.0, *btc.StopLoss)

	eth := d.Actions[1]
	assert.Equal(t, 800.0, eth.Size)
	assert.Equal(t, 10.0, eth.Leverage)
	require.NotNil(t, eth.TargetPrice, "target back-filled from the ETH signal")
	assert.Equal(t, 3000.0, *eth.TargetPrice)
	require.NotNil(t, eth.StopLoss)
	assert.Equal(t, 3400.0, *eth.StopLoss, "explicit stop wins over the signal")

	sol := d.Actions[2]
	assert.Equal(t, ActionClose, sol.Kind())
	assert.Nil(t, sol.TargetPrice)

	sig := d.ChainOfThought["BTCUSDT"]
	assert.Equal(t, "buy_long", sig.Signal)
	assert.InDelta(t, 0.85, sig.Confidence, 1e-9)
	assert.Equal(t, 15.0, sig.Leverage)
	assert.InDelta(t, 0.6, d.ChainOfThought["ETH"].Confidence, 1e-9)
	assert.Nil(t, d.ChainOfThought["ETH"].StopLoss)
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	d, err := Parse(`{}`)
	require.NoError(t, err)
	assert.Equal(t, "No summary provided", d.Summary)
	assert.NotNil(t, d.Actions)
	assert.Empty(t, d.Actions)
	assert.NotNil(t, d.ChainOfThought)
}

func TestParseOpenDefaults(t *testing.T) {
	t.Parallel()

	d, err := Parse(`{"actions": [
		{"action": "open", "symbol": "btcusdt", "size": 100},
		{"action": "open", "symbol": "ETHUSDT", "position_type": "sideways", "size": 100, "leverage": 3}
	]}`)
	require.NoError(t, err)
	require.Len(t, d.Actions, 2)

	btc := d.Actions[0]
	assert.Equal(t, "long", btc.PositionType)
	assert.Equal(t, 1.0, btc.Leverage)

	eth := d.Actions[1]
	assert.Equal(t, 3.0, eth.Leverage)
	_, err = eth.Direction()
	assert.ErrorIs(t, err, sim.ErrUnknownDirection)
}

func TestParseBareObjectInProse(t *testing.T) {
	t.Parallel()

	d, err := Parse(`I think {"summary": "hold {steady}", "actions": [{"action": "hold"}]} and that's it`)
	require.NoError(t, err)
	assert.Equal(t, "hold {steady}", d.Summary)
	require.Len(t, d.Actions, 1)
	assert.Equal(t, ActionHold, d.Actions[0].Kind())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrNoJSON},
		{"no object", "nothing to see", ErrNoJSON},
		{"unterminated", `{"summary": "x"`, ErrNoJSON},
		{"actions not array", `{"actions": {"action": "open"}}`, ErrMalformed},
		{"action missing verb", `{"actions": [{"symbol": "BTCUSDT"}]}`, ErrMalformed},
		{"size not a number", `{"actions": [{"action": "open", "size": "lots"}]}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	got, ok := extractJSON("```\n{\"a\": 1}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"a": 1}`, got)

	got, ok = extractJSON(`x {"s": "a \" } b", "n": {"m": 2}} y`)
	require.True(t, ok)
	assert.Equal(t, `{"s": "a \" } b", "n": {"m": 2}}`, got)

	_, ok = extractJSON("   ")
	assert.False(t, ok)
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	f, ok := parseNumber(" $65,000.5 ")
	require.True(t, ok)
	assert.Equal(t, 65000.5, f)
	_, ok = parseNumber("n/a")
	assert.False(t, ok)
}
