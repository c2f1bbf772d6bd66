// Package indicators computes the technical analysis block the decision
// source sees for each symbol.
package indicators

import (
	"errors"

	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/levtrader/market"
)

// SeriesLen is how many trailing points are kept in Series.
const SeriesLen = 10

var ErrNoCandles = errors.New("indicators: no candles")

type MACD struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Series holds the trailing values of each indicator, oldest first.
type Series struct {
	Prices  []float64 `json:"prices"`
	EMA20   []float64 `json:"ema_20"`
	RSI7    []float64 `json:"rsi_7"`
	RSI14   []float64 `json:"rsi_14"`
	MACD    []float64 `json:"macd"`
	Volumes []float64 `json:"volumes"`
}

type Analysis struct {
	CurrentPrice       float64 `json:"current_price"`
	PriceChangePercent float64 `json:"price_change_percent"`
	SMA20              float64 `json:"sma_20"`
	SMA50              float64 `json:"sma_50"`
	EMA12              float64 `json:"ema_12"`
	EMA20              float64 `json:"ema_20"`
	RSI7               float64 `json:"rsi_7"`
	RSI14              float64 `json:"rsi_14"`
	ATR14              float64 `json:"atr_14"`
	MACD               MACD    `json:"macd"`
	Bollinger          Bands   `json:"bollinger_bands"`
	Trend              string  `json:"trend"`
	RSISignal          string  `json:"rsi_signal"`
	BBSignal           string  `json:"bb_signal"`
	VolumeTrend        string  `json:"volume_trend"`
	AvgVolume          float64 `json:"avg_volume"`
	CurrentVolume      float64 `json:"current_volume"`
	Series             Series  `json:"series"`
}

// Analyze runs every indicator over candles (oldest first). Indicators
// whose lookback exceeds the input report neutral defaults: zero for
// averages, 50 for RSI, the current price for the bands.
func Analyze(candles []market.Candle) (Analysis, error) {
	if len(candles) == 0 {
		return Analysis{}, ErrNoCandles
	}

	closes := market.Closes(candles)
	volumes := market.Volumes(candles)
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
	}

	cur := closes[len(closes)-1]
	a := Analysis{CurrentPrice: cur, CurrentVolume: volumes[len(volumes)-1]}
	if closes[0] > 0 {
		a.PriceChangePercent = (cur - closes[0]) / closes[0] * 100
	}

	a.SMA20 = last(sma(closes, 20))
	a.SMA50 = last(sma(closes, 50))
	a.EMA12 = last(ema(closes, 12))
	ema20 := ema(closes, 20)
	a.EMA20 = last(ema20)

	rsi7 := rsi(closes, 7)
	rsi14 := rsi(closes, 14)
	a.RSI7 = last(rsi7)
	a.RSI14 = last(rsi14)

	if len(candles) > 14 {
		a.ATR14 = last(talib.Atr(highs, lows, closes, 14))
	}

	macd, signal, hist := macdSeries(closes)
	a.MACD = MACD{MACD: last(macd), Signal: last(signal), Histogram: last(hist)}
	a.Bollinger = bollinger(closes, 20, 2)

	a.Trend = classifyTrend(cur, a.SMA20, a.SMA50)
	a.RSISignal = rsiSignal(a.RSI14)
	a.BBSignal = bandSignal(cur, a.Bollinger)
	a.AvgVolume = mean(tail(volumes, 20))
	a.VolumeTrend = volumeTrend(a.CurrentVolume, a.AvgVolume)

	a.Series = Series{
		Prices:  tail(closes, SeriesLen),
		EMA20:   tail(ema20, SeriesLen),
		RSI7:    tail(rsi7, SeriesLen),
		RSI14:   tail(rsi14, SeriesLen),
		MACD:    tail(macd, SeriesLen),
		Volumes: tail(volumes, SeriesLen),
	}
	return a, nil
}

func sma(xs []float64, period int) []float64 {
	if len(xs) < period {
		return make([]float64, len(xs))
	}
	return talib.Sma(xs, period)
}

func ema(xs []float64, period int) []float64 {
	if len(xs) < period {
		return make([]float64, len(xs))
	}
	return talib.Ema(xs, period)
}

func rsi(xs []float64, period int) []float64 {
	if len(xs) <= period {
		out := make([]float64, len(xs))
		for i := range out {
			out[i] = 50
		}
		return out
	}
	return talib.Rsi(xs, period)
}

// macdSeries uses the standard 12/26/9 periods.
func macdSeries(xs []float64) (macd, signal, hist []float64) {
	if len(xs) < 26+9 {
		z := make([]float64, len(xs))
		return z, z, z
	}
	return talib.Macd(xs, 12, 26, 9)
}

func bollinger(xs []float64, period int, dev float64) Bands {
	cur := xs[len(xs)-1]
	if len(xs) < period {
		return Bands{Upper: cur, Middle: cur, Lower: cur}
	}
	up, mid, low := talib.BBands(xs, period, dev, dev, talib.SMA)
	return Bands{Upper: last(up), Middle: last(mid), Lower: last(low)}
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

func tail(xs []float64, n int) []float64 {
	if len(xs) < n {
		n = len(xs)
	}
	return append([]float64(nil), xs[len(xs)-n:]...)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
