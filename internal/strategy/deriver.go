package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"TrendSignal/internal/model"
)

var (
	ErrInvalidPrice      = errors.New("reference price must be positive")
	ErrInvalidPercentage = errors.New("take profit and stop loss percentages must be positive")
	ErrInvalidAction     = errors.New("action must be BUY or SELL")
)

var hundred = decimal.NewFromInt(100)

// OrderRequest holds the inputs needed to derive a simulated order.
type OrderRequest struct {
	Symbol         string
	Action         model.Action
	ReferencePrice float64
	Leverage       int
	TakeProfitPct  float64
	StopLossPct    float64
	At             time.Time
}

// Derive computes take-profit and stop-loss levels around the reference price.
// Exit prices are rounded to 2 decimals; the entry price is kept as given.
// Leverage is only recorded as a label and never changes the prices.
func Derive(req OrderRequest) (*model.DecisionRecord, error) {
	if !req.Action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}
	if math.IsNaN(req.ReferencePrice) || math.IsInf(req.ReferencePrice, 0) || req.ReferencePrice <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, req.ReferencePrice)
	}
	if !(req.TakeProfitPct > 0) || !(req.StopLossPct > 0) {
		return nil, fmt.Errorf("%w: tp=%v sl=%v", ErrInvalidPercentage, req.TakeProfitPct, req.StopLossPct)
	}

	price := decimal.NewFromFloat(req.ReferencePrice)
	tp := decimal.NewFromFloat(req.TakeProfitPct)
	sl := decimal.NewFromFloat(req.StopLossPct)

	var tpFactor, slFactor decimal.Decimal
	if req.Action == model.ActionBuy {
		tpFactor = hundred.Add(tp)
		slFactor = hundred.Sub(sl)
	} else {
		tpFactor = hundred.Sub(tp)
		slFactor = hundred.Add(sl)
	}

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}

	return &model.DecisionRecord{
		Symbol:          req.Symbol,
		Action:          req.Action,
		EntryPrice:      req.ReferencePrice,
		TakeProfitPrice: price.Mul(tpFactor).Div(hundred).Round(2),
		StopLossPrice:   price.Mul(slFactor).Div(hundred).Round(2),
		Leverage:        LeverageLabel(req.Leverage),
		Status:          model.StatusActive,
		Timestamp:       at.UTC(),
	}, nil
}

// LeverageLabel formats leverage as a multiplier, e.g. "10x".
func LeverageLabel(leverage int) string {
	return fmt.Sprintf("%dx", leverage)
}
