// Package pipeline turns a trading signal into a persisted simulated order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"TrendSignal/internal/model"
	"TrendSignal/internal/observability"
	"TrendSignal/internal/strategy"
)

// ConfigSource yields the active strategy configuration.
type ConfigSource interface {
	Current() model.StrategyConfig
}

// PriceSource looks up the reference price for a symbol.
type PriceSource interface {
	FetchCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// OrderSink persists a derived order and returns the stored copy.
type OrderSink interface {
	AppendOrder(ctx context.Context, rec *model.DecisionRecord) (*model.DecisionRecord, error)
}

// Result is the outcome of an accepted signal.
type Result struct {
	Action      model.Action          `json:"action"`
	Explanation string                `json:"explanation"`
	Order       *model.DecisionRecord `json:"order"`
}

// Pipeline validates, evaluates, prices and records signals.
type Pipeline struct {
	config ConfigSource
	prices PriceSource
	sink   OrderSink
	log    *zap.Logger
	now    func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for decision and failure logs.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock overrides the time source stamped on derived orders.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds a Pipeline over the given configuration, price and order collaborators.
func New(config ConfigSource, prices PriceSource, sink OrderSink, opts ...Option) *Pipeline {
	p := &Pipeline{
		config: config,
		prices: prices,
		sink:   sink,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one signal through validation, evaluation, pricing and
// persistence. Each failure is terminal and leaves nothing recorded.
func (p *Pipeline) Process(ctx context.Context, sig *model.TradingSignal) (*Result, error) {
	if missing := missingFields(sig); len(missing) > 0 {
		observability.RecordSignal(observability.OutcomeMalformed)
		p.log.Warn("malformed signal", zap.Strings("missing", missing))
		return nil, &MalformedSignalError{Missing: missing}
	}

	cfg := p.config.Current()
	ev := strategy.Evaluate(sig, cfg.Thresholds())
	if !ev.Valid {
		observability.RecordSignal(observability.OutcomeInvalid)
		p.log.Info("signal rejected", zap.String("signal", describe(sig)), zap.String("reason", ev.Explanation))
		return nil, &InvalidSignalError{Explanation: ev.Explanation}
	}

	price, err := p.prices.FetchCurrentPrice(ctx, sig.Symbol)
	if err != nil {
		observability.RecordSignal(observability.OutcomePriceError)
		p.log.Error("price lookup failed", zap.String("symbol", sig.Symbol), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, sig.Symbol, err)
	}

	order, err := strategy.Derive(strategy.OrderRequest{
		Symbol:         sig.Symbol,
		Action:         ev.Action,
		ReferencePrice: price,
		Leverage:       cfg.Leverage,
		TakeProfitPct:  cfg.TakeProfitPercentage,
		StopLossPct:    cfg.StopLossPercentage,
		At:             p.now(),
	})
	if err != nil {
		if errors.Is(err, strategy.ErrInvalidPrice) {
			observability.RecordSignal(observability.OutcomePriceError)
			return nil, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, sig.Symbol, err)
		}
		return nil, fmt.Errorf("derive order: %w", err)
	}
	order.Timeframe = sig.Timeframe

	stored, err := p.sink.AppendOrder(ctx, order)
	if err != nil {
		observability.RecordSignal(observability.OutcomePersistenceErr)
		p.log.Error("persist order failed", zap.String("symbol", sig.Symbol), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if ev.Action == model.ActionBuy {
		observability.RecordSignal(observability.OutcomeBuy)
	} else {
		observability.RecordSignal(observability.OutcomeSell)
	}
	observability.RecordOrder(string(ev.Action))
	p.log.Info("order recorded",
		zap.String("id", stored.ID),
		zap.String("symbol", stored.Symbol),
		zap.String("action", string(stored.Action)),
		zap.Float64("entry", stored.EntryPrice),
		zap.String("tp", stored.TakeProfitPrice.StringFixed(2)),
		zap.String("sl", stored.StopLossPrice.StringFixed(2)))

	return &Result{Action: ev.Action, Explanation: ev.Explanation, Order: stored}, nil
}
