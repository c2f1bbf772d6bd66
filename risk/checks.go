package risk

import (
	"errors"
	"fmt"
	"strings"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	Margin         float64
	MaxMargin      float64
	PlannedLoss    float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Err returns nil when allowed, otherwise an error listing every violation.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	msgs := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		msgs = append(msgs, v.Code+": "+v.Msg)
	}
	return errors.New("risk check failed: " + strings.Join(msgs, "; "))
}

// Has reports whether the decision contains a violation with code.
func (d Decision) Has(code string) bool {
	for _, v := range d.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func Evaluate(p Policy, intent Intent, acct AccountSnapshot) Decision {
	d := Decision{Allowed: true}

	// Basic sanity
	if !(intent.Size > 0) {
		d.add("SIZE_NOT_POSITIVE", fmt.Sprintf("size must be positive, got %v", intent.Size))
		return d
	}
	if !(intent.Price > 0) {
		d.add("NO_PRICE", fmt.Sprintf("no price for %s", intent.Symbol))
		return d
	}

	if p.MaxLeverage > 0 && intent.Leverage > p.MaxLeverage {
		d.add("LEVERAGE_TOO_HIGH",
			fmt.Sprintf("leverage %.1fx exceeds policy max %.1fx", intent.Leverage, p.MaxLeverage))
	}

	d.Margin = intent.Margin()
	d.MaxMargin = p.MaxPositionSize(acct.Cash)
	if d.Margin > d.MaxMargin {
		d.add("MARGIN_TOO_HIGH",
			fmt.Sprintf("margin %.2f exceeds max position size %.2f", d.Margin, d.MaxMargin))
	}

	if p.MaxOpenPositions > 0 && acct.OpenPositions >= p.MaxOpenPositions {
		d.add("TOO_MANY_OPEN_POSITIONS",
			fmt.Sprintf("open positions %d >= max %d", acct.OpenPositions, p.MaxOpenPositions))
	}

	if intent.StopLoss != nil && *intent.StopLoss > 0 {
		d.PlannedLoss = LossAtStop(intent.Direction, intent.Size, intent.Leverage, intent.Price, *intent.StopLoss)
		d.PlannedRiskPct = RiskPct(d.PlannedLoss, acct.TotalValue)
		if p.MaxRiskPct > 0 && d.PlannedRiskPct > p.MaxRiskPct {
			d.add("RISK_TOO_HIGH",
				fmt.Sprintf("loss at stop %.2f%% exceeds max %.2f%%", 100*d.PlannedRiskPct, 100*p.MaxRiskPct))
		}
		if intent.TargetPrice != nil && *intent.TargetPrice > 0 {
			d.PlannedRR = RR(intent.Price, *intent.StopLoss, *intent.TargetPrice)
			if p.MinRR > 0 && d.PlannedRR < p.MinRR {
				d.add("RR_TOO_LOW", fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
			}
		}
	}

	if p.MaxDailyLossPct > 0 {
		limit := -p.MaxDailyLossPct * acct.TotalValue
		if acct.DayRealized <= limit {
			d.add("DAILY_LOSS_LIMIT",
				fmt.Sprintf("day realized %.2f <= limit %.2f", acct.DayRealized, limit))
		}
	}

	return d
}
