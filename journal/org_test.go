package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrgClose(t *testing.T) {
	t.Parallel()

	rec := closeRec("01HZX0000000000000000000AA", "01HZX00000000000000000POS1", "BTCUSDT",
		time.Date(2024, 3, 15, 14, 20, 30, 0, time.UTC), 250)

	out := FormatTradeOrg(rec)

	assert.True(t, strings.HasPrefix(out, "** Close LONG BTCUSDT (0000POS1)\n"))
	assert.Contains(t, out, ":PROPERTIES:")
	assert.Contains(t, out, ":POSITION_ID: 01HZX00000000000000000POS1")
	assert.Contains(t, out, ":SIZE: 200.00")
	assert.Contains(t, out, ":LEVERAGE: 2.0x")
	assert.Contains(t, out, ":EXIT_PRICE: 110.0000")
	assert.Contains(t, out, ":REALIZED_PNL: 250.00")
	assert.Contains(t, out, ":TIME: 2024-03-15T14:20:30Z")
	assert.Contains(t, out, ":END:")
	assert.Contains(t, out, "*** Review")
}

func TestFormatTradeOrgOpenOmitsExit(t *testing.T) {
	t.Parallel()

	out := FormatTradeOrg(openRec("R1", "P1", "ETHUSDT", baseTime))
	assert.True(t, strings.HasPrefix(out, "** Open LONG ETHUSDT (P1)"))
	assert.NotContains(t, out, ":EXIT_PRICE:")
	assert.NotContains(t, out, ":REALIZED_PNL:")
	assert.Contains(t, out, "*** Thesis")
}

func TestFormatTradesOrgSeparates(t *testing.T) {
	t.Parallel()

	out := FormatTradesOrg([]TradeRecord{
		openRec("R1", "P1", "ETHUSDT", baseTime),
		closeRec("R2", "P1", "ETHUSDT", baseTime, 1),
	})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Contains(t, out, "\n\n\n** Close")
	assert.Empty(t, FormatTradesOrg(nil))
}
