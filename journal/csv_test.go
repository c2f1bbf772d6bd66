package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{tradeHeader}, readCSV(t, tradesPath))
	assert.Equal(t, [][]string{equityHeader}, readCSV(t, equityPath))
}

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")

	j, err := NewCSV(tradesPath, filepath.Join(dir, "equity.csv"))
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordTrade(closeRec("R1", "P1", "SOLUSDT", at, -12.5)))
	require.NoError(t, j.Close())

	rows := readCSV(t, tradesPath)
	require.Len(t, rows, 2)
	want := []string{
		"R1", "P1", "close", "SOLUSDT", "long",
		"200.000000", "2.000000", "100.000000",
		"100.000000", "110.000000", "-12.500000",
		at.Format(time.RFC3339), "test",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalRecordEquity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(filepath.Join(dir, "trades.csv"), equityPath)
	require.NoError(t, err)

	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Time:          ts,
		Cash:          900.5,
		TotalValue:    1001.25,
		MarginUsed:    100,
		UnrealizedPnL: 0.75,
		OpenPositions: 2,
	}))
	require.NoError(t, j.Close())

	rows := readCSV(t, equityPath)
	require.Len(t, rows, 2)
	want := []string{ts.Format(time.RFC3339), "900.500000", "1001.250000", "100.000000", "0.750000", "2"}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalAppendsWithoutSecondHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	for i := 0; i < 2; i++ {
		j, err := NewCSV(tradesPath, equityPath)
		require.NoError(t, err)
		require.NoError(t, j.RecordTrade(openRec("R"+string(rune('1'+i)), "P1", "BTCUSDT", baseTime)))
		require.NoError(t, j.Close())
	}

	rows := readCSV(t, tradesPath)
	require.Len(t, rows, 3)
	assert.Equal(t, tradeHeader, rows[0])
	assert.Equal(t, "R1", rows[1][0])
	assert.Equal(t, "R2", rows[2][0])
}
