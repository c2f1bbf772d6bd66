package sim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionPnL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		dir   Direction
		size  float64
		entry float64
		lev   float64
		price float64
		want  float64
	}{
		{"long up", Long, 200, 100, 2, 110, 40},
		{"short up", Short, 200, 100, 2, 110, -40},
		{"long down", Long, 200, 100, 2, 90, -40},
		{"short down", Short, 200, 100, 2, 90, 40},
		{"flat", Long, 200, 100, 20, 100, 0},
		{"leverage one", Long, 1000, 50, 1, 55, 100},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Position{Direction: tt.dir, Size: tt.size, EntryPrice: tt.entry, Leverage: tt.lev}
			assert.InDelta(t, tt.want, p.PnL(tt.price), 1e-9)
		})
	}
}

func TestPositionMargin(t *testing.T) {
	t.Parallel()

	p := Position{Size: 200, Leverage: 8}
	assert.Equal(t, 25.0, p.Margin())
}

func TestCheckTargets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		dir    Direction
		target *float64
		stop   *float64
		price  float64
		want   TargetStatus
	}{
		{"long target", Long, ptr(110), ptr(95), 110, TargetReached},
		{"long stop", Long, ptr(110), ptr(95), 95, StopLossHit},
		{"long between", Long, ptr(110), ptr(95), 100, TargetNone},
		{"short target", Short, ptr(90), ptr(105), 89, TargetReached},
		{"short stop", Short, ptr(90), ptr(105), 106, StopLossHit},
		{"short between", Short, ptr(90), ptr(105), 100, TargetNone},
		{"only target set", Long, ptr(110), nil, 200, TargetNone},
		{"only stop set", Long, nil, ptr(95), 1, TargetNone},
		{"none set", Short, nil, nil, 1, TargetNone},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Position{Direction: tt.dir, TargetPrice: tt.target, StopLoss: tt.stop}
			assert.Equal(t, tt.want, p.CheckTargets(tt.price))
		})
	}
}

func TestTargetStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", TargetNone.String())
	assert.Equal(t, "target_reached", TargetReached.String())
	assert.Equal(t, "stop_loss_hit", StopLossHit.String())
}

func TestDirectionText(t *testing.T) {
	t.Parallel()

	d, err := ParseDirection(" SHORT ")
	require.NoError(t, err)
	assert.Equal(t, Short, d)

	_, err = ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrUnknownDirection)

	b, err := json.Marshal(struct {
		D Direction `json:"d"`
	}{Long})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"long"}`, string(b))

	var out struct {
		D Direction `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"Short"}`), &out))
	assert.Equal(t, Short, out.D)

	_, err = Direction(0).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "unknown", Direction(9).String())
}
