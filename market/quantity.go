package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity converts a quote-currency notional into a base-asset quantity at
// price, truncated (never rounded up) to precision decimals.
func Quantity(notional, price float64, precision int32) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("quantity: price must be positive, got %v", price)
	}
	if notional < 0 {
		return 0, fmt.Errorf("quantity: notional must not be negative, got %v", notional)
	}
	q := decimal.NewFromFloat(notional).Div(decimal.NewFromFloat(price)).Truncate(precision)
	f, _ := q.Float64()
	return f, nil
}

// SymbolQuantity is Quantity using the symbol's lot-size precision.
func SymbolQuantity(symbol string, notional, price float64) (float64, error) {
	return Quantity(notional, price, QuantityPrecision(symbol))
}
