package indicators

const (
	TrendStrongUp   = "strong_uptrend"
	TrendWeakUp     = "weak_uptrend"
	TrendStrongDown = "strong_downtrend"
	TrendWeakDown   = "weak_downtrend"
	Neutral         = "neutral"
)

func classifyTrend(price, sma20, sma50 float64) string {
	if sma20 <= 0 || sma50 <= 0 {
		return Neutral
	}
	switch {
	case price > sma20 && sma20 > sma50:
		return TrendStrongUp
	case price > sma20 && sma20 < sma50:
		return TrendWeakUp
	case price < sma20 && sma20 < sma50:
		return TrendStrongDown
	case price < sma20 && sma20 > sma50:
		return TrendWeakDown
	}
	return Neutral
}

func rsiSignal(rsi14 float64) string {
	switch {
	case rsi14 > 70:
		return "overbought"
	case rsi14 < 30:
		return "oversold"
	}
	return Neutral
}

func bandSignal(price float64, b Bands) string {
	switch {
	case price > b.Upper:
		return "above_upper_band"
	case price < b.Lower:
		return "below_lower_band"
	}
	return Neutral
}

func volumeTrend(cur, avg float64) string {
	switch {
	case cur > avg*1.2:
		return "high"
	case cur > avg*0.8:
		return "normal"
	}
	return "low"
}
