package strategy

import (
	"fmt"
	"strconv"

	"TrendSignal/internal/model"
)

const (
	ExplainMissingIndicators = "missing required indicator values"
	ExplainNoCriteria        = "signal does not meet BUY or SELL criteria"
)

// Evaluation is the outcome of comparing a signal with the configured thresholds.
type Evaluation struct {
	Valid       bool
	Action      model.Action // empty when !Valid
	Explanation string
}

// Evaluate classifies a DMI/ADX signal.
//
// BUY requires all three strict conditions: +DI above its threshold, -DI below
// its threshold and ADX above the minimum. Failing that, any one of the opposite
// strict conditions yields SELL. A signal sitting exactly on the thresholds
// matches neither and is rejected.
func Evaluate(sig *model.TradingSignal, th model.Thresholds) Evaluation {
	if !sig.HasIndicators() {
		return Evaluation{Explanation: ExplainMissingIndicators}
	}
	plusDI, minusDI, adx := *sig.PlusDI, *sig.MinusDI, *sig.ADX

	if plusDI > th.PlusDI && minusDI < th.MinusDI && adx > th.ADXMinimum {
		return Evaluation{
			Valid:  true,
			Action: model.ActionBuy,
			Explanation: fmt.Sprintf(
				"Strong uptrend detected: +DI (%.2f) > threshold (%s), -DI (%.2f) < threshold (%s), ADX (%.2f) > minimum (%s)",
				plusDI, num(th.PlusDI), minusDI, num(th.MinusDI), adx, num(th.ADXMinimum)),
		}
	}

	if plusDI < th.PlusDI || minusDI > th.MinusDI || adx < th.ADXMinimum {
		return Evaluation{
			Valid:  true,
			Action: model.ActionSell,
			Explanation: fmt.Sprintf(
				"Potential downtrend or weak trend: +DI (%.2f) < threshold (%s) or -DI (%.2f) > threshold (%s) or ADX (%.2f) < minimum (%s)",
				plusDI, num(th.PlusDI), minusDI, num(th.MinusDI), adx, num(th.ADXMinimum)),
		}
	}

	return Evaluation{Explanation: ExplainNoCriteria}
}

// num prints a threshold in its shortest form (25, 20.5).
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
