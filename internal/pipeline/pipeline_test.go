package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"TrendSignal/internal/model"
)

type staticConfig struct{ cfg model.StrategyConfig }

func (s staticConfig) Current() model.StrategyConfig { return s.cfg }

type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

// MockOrderSink returns a copy of the appended record carrying the configured ID.
type MockOrderSink struct {
	mock.Mock
}

func (m *MockOrderSink) AppendOrder(ctx context.Context, rec *model.DecisionRecord) (*model.DecisionRecord, error) {
	args := m.Called(ctx, rec)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	out := rec.Clone()
	out.ID = args.String(0)
	out.CreatedAt = rec.Timestamp
	return out, nil
}

var fixedNow = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

func newTestPipeline(prices PriceSource, sink OrderSink) *Pipeline {
	return New(staticConfig{model.DefaultStrategyConfig()}, prices, sink,
		WithClock(func() time.Time { return fixedNow }))
}

func signal(plusDI, minusDI, adx float64) *model.TradingSignal {
	return &model.TradingSignal{
		Symbol:    "BTCUSDT",
		Timeframe: "5m",
		PlusDI:    model.Float(plusDI),
		MinusDI:   model.Float(minusDI),
		ADX:       model.Float(adx),
	}
}

func TestProcess_BuyRecordsOrder(t *testing.T) {
	prices := new(MockPriceSource)
	sink := new(MockOrderSink)
	prices.On("FetchCurrentPrice", mock.Anything, "BTCUSDT").Return(50000.0, nil)

	var appended *model.DecisionRecord
	sink.On("AppendOrder", mock.Anything, mock.AnythingOfType("*model.DecisionRecord")).
		Run(func(args mock.Arguments) { appended = args.Get(1).(*model.DecisionRecord) }).
		Return("order-1", nil).Once()

	res, err := newTestPipeline(prices, sink).Process(context.Background(), signal(30, 15, 25))
	require.NoError(t, err)

	assert.Equal(t, model.ActionBuy, res.Action)
	assert.Contains(t, res.Explanation, "Strong uptrend detected")
	require.NotNil(t, res.Order)
	assert.Equal(t, "order-1", res.Order.ID)
	assert.Equal(t, model.ActionBuy, res.Order.Action)
	assert.Equal(t, 50000.0, res.Order.EntryPrice)
	assert.Equal(t, "51000.00", res.Order.TakeProfitPrice.StringFixed(2))
	assert.Equal(t, "49500.00", res.Order.StopLossPrice.StringFixed(2))
	assert.Equal(t, "10x", res.Order.Leverage)
	assert.Equal(t, "5m", res.Order.Timeframe)
	assert.Equal(t, model.StatusActive, res.Order.Status)
	assert.Equal(t, fixedNow, res.Order.Timestamp)

	require.NotNil(t, appended)
	assert.Empty(t, appended.ID, "identity is assigned by the sink")
	prices.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestProcess_SellRecordsOrder(t *testing.T) {
	prices := new(MockPriceSource)
	sink := new(MockOrderSink)
	prices.On("FetchCurrentPrice", mock.Anything, "BTCUSDT").Return(50000.0, nil)
	sink.On("AppendOrder", mock.Anything, mock.Anything).Return("order-2", nil).Once()

	res, err := newTestPipeline(prices, sink).Process(context.Background(), signal(10, 10, 10))
	require.NoError(t, err)

	assert.Equal(t, model.ActionSell, res.Action)
	assert.Equal(t, "49000.00", res.Order.TakeProfitPrice.StringFixed(2))
	assert.Equal(t, "50500.00", res.Order.StopLossPrice.StringFixed(2))
	sink.AssertExpectations(t)
}

func TestProcess_MissingADXRecordsNothing(t *testing.T) {
	prices := new(MockPriceSource)
	sink := new(MockOrderSink)

	sig := signal(30, 15, 25)
	sig.ADX = nil
	_, err := newTestPipeline(prices, sink).Process(context.Background(), sig)

	require.ErrorIs(t, err, ErrMalformedSignal)
	var malformed *MalformedSignalError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, []string{"adx"}, malformed.Missing)
	prices.AssertNotCalled(t, "FetchCurrentPrice", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "AppendOrder", mock.Anything, mock.Anything)
}

func TestProcess_MissingFieldsOrder(t *testing.T) {
	_, err := newTestPipeline(new(MockPriceSource), new(MockOrderSink)).
		Process(context.Background(), &model.TradingSignal{PlusDI: model.Float(1)})

	var malformed *MalformedSignalError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, []string{"symbol", "minusDI", "adx", "timeframe"}, malformed.Missing)
}

func TestProcess_InvalidSignal(t *testing.T) {
	prices := new(MockPriceSource)
	sink := new(MockOrderSink)

	_, err := newTestPipeline(prices, sink).Process(context.Background(), signal(25, 20, 20))

	require.ErrorIs(t, err, ErrInvalidSignal)
	var invalid *InvalidSignalError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "signal does not meet BUY or SELL criteria", invalid.Explanation)
	prices.AssertNotCalled(t, "FetchCurrentPrice", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "AppendOrder", mock.Anything, mock.Anything)
}

func TestProcess_PriceUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		err   error
	}{
		{"lookup error", 0, errors.New("exchange timeout")},
		{"zero price", 0, nil},
		{"negative price", -5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices := new(MockPriceSource)
			sink := new(MockOrderSink)
			prices.On("FetchCurrentPrice", mock.Anything, "BTCUSDT").Return(tt.price, tt.err)

			_, err := newTestPipeline(prices, sink).Process(context.Background(), signal(30, 15, 25))

			assert.ErrorIs(t, err, ErrPriceUnavailable)
			sink.AssertNotCalled(t, "AppendOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestProcess_PersistenceFailure(t *testing.T) {
	prices := new(MockPriceSource)
	sink := new(MockOrderSink)
	prices.On("FetchCurrentPrice", mock.Anything, "BTCUSDT").Return(50000.0, nil)
	sink.On("AppendOrder", mock.Anything, mock.Anything).Return("", errors.New("disk full"))

	res, err := newTestPipeline(prices, sink).Process(context.Background(), signal(30, 15, 25))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "disk full")
}

func TestProcess_UsesConfigSnapshot(t *testing.T) {
	cfg := model.DefaultStrategyConfig()
	cfg.PlusDIThreshold = 40
	cfg.TakeProfitPercentage = 5
	cfg.Leverage = 3

	prices := new(MockPriceSource)
	sink := new(MockOrderSink)
	prices.On("FetchCurrentPrice", mock.Anything, "BTCUSDT").Return(100.0, nil)
	sink.On("AppendOrder", mock.Anything, mock.Anything).Return("order-3", nil)

	p := New(staticConfig{cfg}, prices, sink)
	res, err := p.Process(context.Background(), signal(30, 15, 25))
	require.NoError(t, err)

	assert.Equal(t, model.ActionSell, res.Action, "+DI below the raised threshold")
	assert.Equal(t, "95.00", res.Order.TakeProfitPrice.StringFixed(2))
	assert.Equal(t, "3x", res.Order.Leverage)
}

func TestProcess_NoDeduplication(t *testing.T) {
	prices := new(MockPriceSource)
	sink := new(MockOrderSink)
	prices.On("FetchCurrentPrice", mock.Anything, "BTCUSDT").Return(50000.0, nil)
	sink.On("AppendOrder", mock.Anything, mock.Anything).Return("dup", nil)

	p := newTestPipeline(prices, sink)
	for i := 0; i < 3; i++ {
		_, err := p.Process(context.Background(), signal(30, 15, 25))
		require.NoError(t, err)
	}
	sink.AssertNumberOfCalls(t, "AppendOrder", 3)
}
