package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a DecisionRecord.
type OrderStatus string

const (
	StatusActive OrderStatus = "ACTIVE"
	// Reserved for future exit tracking; nothing transitions into them today.
	StatusTPHit  OrderStatus = "TP_HIT"
	StatusSLHit  OrderStatus = "SL_HIT"
	StatusClosed OrderStatus = "CLOSED"
)

// DecisionRecord is a simulated trade decision with its computed exit levels.
type DecisionRecord struct {
	ID              string          `json:"id"`
	Symbol          string          `json:"symbol"`
	Action          Action          `json:"action"`
	EntryPrice      float64         `json:"price_entry"`
	TakeProfitPrice decimal.Decimal `json:"tp_price"`
	StopLossPrice   decimal.Decimal `json:"sl_price"`
	Leverage        string          `json:"leverage"`
	Timeframe       string          `json:"timeframe"`
	Status          OrderStatus     `json:"status"`
	Timestamp       time.Time       `json:"timestamp"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MarshalJSON renders the exit levels at a fixed scale of two decimals.
func (r DecisionRecord) MarshalJSON() ([]byte, error) {
	type plain DecisionRecord
	return json.Marshal(struct {
		plain
		TakeProfitPrice string `json:"tp_price"`
		StopLossPrice   string `json:"sl_price"`
	}{
		plain:           plain(r),
		TakeProfitPrice: FormatPrice(r.TakeProfitPrice),
		StopLossPrice:   FormatPrice(r.StopLossPrice),
	})
}

// FormatPrice renders d rounded to two decimals, keeping trailing zeros.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Clone returns a copy of r.
func (r *DecisionRecord) Clone() *DecisionRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
