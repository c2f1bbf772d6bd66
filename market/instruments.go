package market

import "strings"

type InstrumentMeta struct {
	Symbol            string
	BaseAsset         string
	QuoteAsset        string
	QuantityPrecision int32
}

// Instruments lists the perpetual pairs the bot trades by default along
// with their lot-size precision on the exchange.
var Instruments = map[string]InstrumentMeta{
	"BTCUSDT": {Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", QuantityPrecision: 3},
	"ETHUSDT": {Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", QuantityPrecision: 3},
	"BNBUSDT": {Symbol: "BNBUSDT", BaseAsset: "BNB", QuoteAsset: "USDT", QuantityPrecision: 2},
	"SOLUSDT": {Symbol: "SOLUSDT", BaseAsset: "SOL", QuoteAsset: "USDT", QuantityPrecision: 1},
	"ADAUSDT": {Symbol: "ADAUSDT", BaseAsset: "ADA", QuoteAsset: "USDT", QuantityPrecision: 0},
}

// DefaultSymbols returns the default trading universe in a stable order.
func DefaultSymbols() []string {
	return []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "ADAUSDT"}
}

// BaseAsset returns the base asset for symbol, e.g. "BTC" for "BTCUSDT".
func BaseAsset(symbol string) string {
	if m, ok := Instruments[symbol]; ok {
		return m.BaseAsset
	}
	return strings.TrimSuffix(symbol, "USDT")
}

// QuantityPrecision returns the number of decimals allowed for order
// quantities on symbol. Unknown symbols fall back to 3.
func QuantityPrecision(symbol string) int32 {
	if m, ok := Instruments[symbol]; ok {
		return m.QuantityPrecision
	}
	return 3
}
