package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/levtrader/internal/logger"
	"github.com/rustyeddy/levtrader/llm"
	"github.com/rustyeddy/levtrader/market"
	"github.com/rustyeddy/levtrader/sim"
	"github.com/rustyeddy/levtrader/state"
)

var pubTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleUpdate() Update {
	return Update{
		Time:   pubTime,
		Prices: market.Prices{"BTCUSDT": 65000, "ETHUSDT": 3200},
		Positions: []sim.PositionSummary{{
			ID: "p1", Symbol: "BTCUSDT", Direction: sim.Long, Size: 1000, EntryPrice: 62500,
			CurrentPrice: 65000, Leverage: 10, Margin: 100, UnrealizedPnL: 40, PnLPercent: 4,
		}},
		Stats:        sim.Statistics{InitialCapital: 1000, Cash: 900, TotalValue: 1040, ROIPercent: 4, OpenPositions: 1},
		ValueHistory: []state.ValuePoint{{Time: pubTime, Value: 1040}},
		PriceHistory: map[string][]state.PricePoint{"BTCUSDT": {{Time: pubTime, Price: 65000}}},
	}
}

func TestHubStateIsACopy(t *testing.T) {
	t.Parallel()

	h := NewHub()
	u := sampleUpdate()
	h.PublishIteration(3, u)

	u.Prices["BTCUSDT"] = 1
	u.ValueHistory[0].Value = 1

	s := h.State()
	assert.Equal(t, 65000.0, s.Prices["BTCUSDT"])
	assert.Equal(t, 1040.0, s.ValueHistory[0].Value)
	assert.Equal(t, 3, s.Iteration)
	require.NotNil(t, s.LastUpdate)
	assert.True(t, pubTime.Equal(*s.LastUpdate))

	s.Prices["ETHUSDT"] = 0
	s.PriceHistory["BTCUSDT"][0].Price = 0
	again := h.State()
	assert.Equal(t, 3200.0, again.Prices["ETHUSDT"])
	assert.Equal(t, 65000.0, again.PriceHistory["BTCUSDT"][0].Price)
}

func TestHubCapsConversations(t *testing.T) {
	t.Parallel()

	h := NewHub()
	for i := 0; i < MaxConversations+7; i++ {
		h.PublishConversation(Conversation{ID: fmt.Sprint(i), Summary: "s"})
	}
	convs := h.State().Conversations
	require.Len(t, convs, MaxConversations)
	assert.Equal(t, "7", convs[0].ID)
	assert.Equal(t, fmt.Sprint(MaxConversations+6), convs[len(convs)-1].ID)
}

func TestConversationFrom(t *testing.T) {
	t.Parallel()

	d := llm.Decision{ID: "abc", Time: pubTime, Summary: "hold", Actions: []llm.Action{{Action: "hold"}}}
	c := ConversationFrom(d, "prompt text", "first_run")
	assert.Equal(t, "abc", c.ID)
	assert.Equal(t, "prompt text", c.UserPrompt)
	assert.Equal(t, "first_run", c.WakeReason)
	assert.Len(t, c.Actions, 1)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAPIRoutes(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	hub.SetRunning(true)
	hub.PublishIteration(1, sampleUpdate())
	hub.PublishConversation(Conversation{ID: "c1", Summary: "go long"})
	h := NewServer("", hub).Handler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	var status Status
	rec = get(t, h, "/api/status")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.Iteration)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var prices map[string]float64
	require.NoError(t, json.Unmarshal(get(t, h, "/api/prices").Body.Bytes(), &prices))
	assert.Equal(t, 3200.0, prices["ETHUSDT"])

	var positions []map[string]any
	require.NoError(t, json.Unmarshal(get(t, h, "/api/positions").Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "long", positions[0]["type"])
	assert.Equal(t, 40.0, positions[0]["current_pnl"])

	var stats map[string]any
	require.NoError(t, json.Unmarshal(get(t, h, "/api/stats").Body.Bytes(), &stats))
	assert.Equal(t, 1040.0, stats["total_value"])

	var convs []Conversation
	require.NoError(t, json.Unmarshal(get(t, h, "/api/llm_conversations").Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	assert.Equal(t, "go long", convs[0].Summary)

	var all map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(get(t, h, "/api/all").Body.Bytes(), &all))
	for _, k := range []string{"prices", "price_history", "value_history", "positions", "trades", "stats", "last_update", "running", "llm_conversations"} {
		assert.Contains(t, all, k)
	}

	for _, p := range []string{"/api/trades", "/api/value_history", "/api/price_history"} {
		assert.Equal(t, http.StatusOK, get(t, h, p).Code, p)
	}
}

func TestIndexRendersChart(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	hub.PublishIteration(1, sampleUpdate())
	rec := get(t, NewServer("", hub).Handler(), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Account value")
	assert.Contains(t, rec.Body.String(), "BTCUSDT")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(ln.Addr().String(), NewHub())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeLogsListenAddressOnce(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(ln.Addr().String(), NewHub())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, srv.Serve(ctx, ln))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "dashboard listening on"), out)
	assert.Contains(t, out, ln.Addr().String())
}
