package journal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTradeNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetTrade("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `trade "missing" not found`)
}

func TestListTradesBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	recs := []TradeRecord{
		openRec("R1", "P1", "BTCUSDT", baseTime.Add(2*time.Hour)),
		closeRec("R2", "P1", "BTCUSDT", baseTime.Add(5*time.Hour), 10),
		openRec("R3", "P2", "ETHUSDT", baseTime.Add(10*time.Hour)),
		closeRec("R4", "P2", "ETHUSDT", baseTime.Add(24*time.Hour), -5),
	}
	for _, r := range recs {
		require.NoError(t, j.RecordTrade(r))
	}

	got, err := j.ListTradesBetween(baseTime.Add(3*time.Hour), baseTime.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "R2", got[0].ID)
	assert.Equal(t, "R3", got[1].ID)

	closed, err := j.ListClosedBetween(baseTime, baseTime.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, closed, 2)
	assert.Equal(t, "R2", closed[0].ID)
	assert.Equal(t, "R4", closed[1].ID)
}

func TestListTradesBetweenBoundaries(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	at := baseTime.Add(12 * time.Hour)
	require.NoError(t, j.RecordTrade(openRec("R1", "P1", "BTCUSDT", at)))

	got, err := j.ListTradesBetween(at, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 1, "start is inclusive")

	got, err = j.ListTradesBetween(at.Add(-time.Hour), at)
	require.NoError(t, err)
	assert.Empty(t, got, "end is exclusive")
}

func TestListPositionTrades(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	require.NoError(t, j.RecordTrade(closeRec("R2", "P1", "BTCUSDT", baseTime.Add(time.Hour), 3)))
	require.NoError(t, j.RecordTrade(openRec("R1", "P1", "BTCUSDT", baseTime)))
	require.NoError(t, j.RecordTrade(openRec("R3", "P2", "BTCUSDT", baseTime)))

	got, err := j.ListPositionTrades("P1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActionOpen, got[0].Action)
	assert.Equal(t, ActionClose, got[1].Action)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	recs := []TradeRecord{
		openRec("R0", "P0", "BTCUSDT", baseTime),
		closeRec("R1", "P1", "BTCUSDT", baseTime, 30),
		closeRec("R2", "P2", "BTCUSDT", baseTime, -10),
		closeRec("R3", "P3", "BTCUSDT", baseTime, 0),
	}
	p := Summarize(recs)
	assert.Equal(t, 3, p.Trades)
	assert.Equal(t, 1, p.Wins)
	assert.Equal(t, 2, p.Losses)
	assert.InDelta(t, 20, p.NetPnL, 1e-9)
	assert.InDelta(t, 3, p.ProfitFactor, 1e-9)

	onlyWins := Summarize([]TradeRecord{closeRec("R1", "P1", "BTCUSDT", baseTime, 5)})
	assert.True(t, math.IsInf(onlyWins.ProfitFactor, 1))

	assert.Zero(t, Summarize(nil).ProfitFactor)
}
