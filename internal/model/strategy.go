package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidStrategy is returned when a strategy configuration fails validation.
var ErrInvalidStrategy = errors.New("invalid strategy configuration")

// StrategyConfig holds the thresholds and exit parameters used to evaluate signals.
// Exactly one is active at a time.
type StrategyConfig struct {
	Symbol               string    `json:"symbol" yaml:"symbol" validate:"required"`
	Timeframe            string    `json:"timeframe" yaml:"timeframe" validate:"required"`
	PlusDIThreshold      float64   `json:"plusDIThreshold" yaml:"plus_di_threshold" validate:"gte=0"`
	MinusDIThreshold     float64   `json:"minusDIThreshold" yaml:"minus_di_threshold" validate:"gte=0"`
	ADXMinimum           float64   `json:"adxMinimum" yaml:"adx_minimum" validate:"gte=0"`
	TakeProfitPercentage float64   `json:"takeProfitPercentage" yaml:"take_profit_percentage" validate:"gt=0"`
	StopLossPercentage   float64   `json:"stopLossPercentage" yaml:"stop_loss_percentage" validate:"gt=0"`
	Leverage             int       `json:"leverage" yaml:"leverage" validate:"gte=1,lte=125"`
	UpdatedAt            time.Time `json:"updatedAt,omitempty" yaml:"-"`
}

// DefaultStrategyConfig returns the configuration used on first start and after a reset.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Symbol:               "BTCUSDT",
		Timeframe:            "5m",
		PlusDIThreshold:      25,
		MinusDIThreshold:     20,
		ADXMinimum:           20,
		TakeProfitPercentage: 2,
		StopLossPercentage:   1,
		Leverage:             10,
	}
}

// StrategyUpdate carries a configuration change. Nil fields fall back to defaults.
type StrategyUpdate struct {
	Symbol               *string  `json:"symbol"`
	Timeframe            *string  `json:"timeframe"`
	PlusDIThreshold      *float64 `json:"plusDIThreshold"`
	MinusDIThreshold     *float64 `json:"minusDIThreshold"`
	ADXMinimum           *float64 `json:"adxMinimum"`
	TakeProfitPercentage *float64 `json:"takeProfitPercentage"`
	StopLossPercentage   *float64 `json:"stopLossPercentage"`
	Leverage             *int     `json:"leverage"`
}

// Apply overlays the non-nil fields of u onto base and returns the result.
func (u StrategyUpdate) Apply(base StrategyConfig) StrategyConfig {
	if u.Symbol != nil {
		base.Symbol = *u.Symbol
	}
	if u.Timeframe != nil {
		base.Timeframe = *u.Timeframe
	}
	if u.PlusDIThreshold != nil {
		base.PlusDIThreshold = *u.PlusDIThreshold
	}
	if u.MinusDIThreshold != nil {
		base.MinusDIThreshold = *u.MinusDIThreshold
	}
	if u.ADXMinimum != nil {
		base.ADXMinimum = *u.ADXMinimum
	}
	if u.TakeProfitPercentage != nil {
		base.TakeProfitPercentage = *u.TakeProfitPercentage
	}
	if u.StopLossPercentage != nil {
		base.StopLossPercentage = *u.StopLossPercentage
	}
	if u.Leverage != nil {
		base.Leverage = *u.Leverage
	}
	return base
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges. The returned error wraps ErrInvalidStrategy and
// carries a message fit for an API client.
func (c *StrategyConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidStrategy, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidStrategy, describeField(verrs[0]))
}

func describeField(fe validator.FieldError) string {
	switch fe.StructField() {
	case "TakeProfitPercentage", "StopLossPercentage":
		return "Take Profit and Stop Loss must be positive values"
	case "Leverage":
		return "Leverage must be between 1 and 125"
	case "PlusDIThreshold", "MinusDIThreshold", "ADXMinimum":
		return "Indicator thresholds must not be negative"
	case "Symbol", "Timeframe":
		return "Symbol and timeframe are required"
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// Thresholds returns the indicator thresholds of c.
func (c StrategyConfig) Thresholds() Thresholds {
	return Thresholds{
		PlusDI:     c.PlusDIThreshold,
		MinusDI:    c.MinusDIThreshold,
		ADXMinimum: c.ADXMinimum,
	}
}

// Thresholds are the indicator limits a signal is compared against.
type Thresholds struct {
	PlusDI     float64
	MinusDI    float64
	ADXMinimum float64
}
