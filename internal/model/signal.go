package model

// Action is the simulated trade direction derived from a signal.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Valid reports whether a is BUY or SELL.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell
}

// TradingSignal is one externally submitted +DI/-DI/ADX reading.
// Indicators are pointers so an absent value is distinguishable from zero.
type TradingSignal struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	PlusDI    *float64 `json:"plusDI"`
	MinusDI   *float64 `json:"minusDI"`
	ADX       *float64 `json:"adx"`
}

// HasIndicators reports whether all three indicator readings are present.
func (s *TradingSignal) HasIndicators() bool {
	return s != nil && s.PlusDI != nil && s.MinusDI != nil && s.ADX != nil
}

// Float returns a pointer to v. Handy for building signals in code.
func Float(v float64) *float64 {
	return &v
}
