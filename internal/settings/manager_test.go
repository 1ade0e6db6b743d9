package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSignal/internal/model"
	"TrendSignal/internal/recorder"
)

type failingStore struct {
	loadErr error
	saveErr error
}

func (f *failingStore) LoadStrategy(context.Context) (*model.StrategyConfig, error) {
	return nil, f.loadErr
}

func (f *failingStore) SaveStrategy(context.Context, *model.StrategyConfig) error {
	return f.saveErr
}

func ptr[T any](v T) *T { return &v }

func TestNewManager_SeedsDefaults(t *testing.T) {
	ctx := context.Background()
	store := recorder.NewMemoryRecorder(0)

	m, err := NewManager(ctx, store, nil)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", m.Current().Symbol)

	saved, err := store.LoadStrategy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25.0, saved.PlusDIThreshold)
	assert.Equal(t, 10, saved.Leverage)
}

func TestNewManager_LoadsStored(t *testing.T) {
	ctx := context.Background()
	store := recorder.NewMemoryRecorder(0)
	cfg := model.DefaultStrategyConfig()
	cfg.Symbol = "ETHUSDT"
	cfg.Leverage = 3
	require.NoError(t, store.SaveStrategy(ctx, &cfg))

	m, err := NewManager(ctx, store, nil)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", m.Current().Symbol)
	assert.Equal(t, 3, m.Current().Leverage)
}

func TestNewManager_UnreadableStoreUsesDefaults(t *testing.T) {
	m, err := NewManager(context.Background(), &failingStore{loadErr: errors.New("disk gone")}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultStrategyConfig().Symbol, m.Current().Symbol)
}

func TestUpdate_OverlaysDefaults(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, recorder.NewMemoryRecorder(0), nil)
	require.NoError(t, err)

	_, err = m.Update(ctx, model.StrategyUpdate{Symbol: ptr("SOLUSDT"), Leverage: ptr(50)})
	require.NoError(t, err)

	got, err := m.Update(ctx, model.StrategyUpdate{TakeProfitPercentage: ptr(4.0)})
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.TakeProfitPercentage)
	assert.Equal(t, "BTCUSDT", got.Symbol, "absent fields revert to defaults")
	assert.Equal(t, 10, got.Leverage)
	assert.False(t, got.UpdatedAt.IsZero())
	assert.Equal(t, got, m.Current())
}

func TestUpdate_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, recorder.NewMemoryRecorder(0), nil)
	require.NoError(t, err)
	before := m.Current()

	tests := []struct {
		name string
		u    model.StrategyUpdate
		msg  string
	}{
		{"zero tp", model.StrategyUpdate{TakeProfitPercentage: ptr(0.0)}, "Take Profit and Stop Loss must be positive values"},
		{"negative sl", model.StrategyUpdate{StopLossPercentage: ptr(-1.0)}, "Take Profit and Stop Loss must be positive values"},
		{"leverage too high", model.StrategyUpdate{Leverage: ptr(126)}, "Leverage must be between 1 and 125"},
		{"leverage zero", model.StrategyUpdate{Leverage: ptr(0)}, "Leverage must be between 1 and 125"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Update(ctx, tt.u)
			require.ErrorIs(t, err, model.ErrInvalidStrategy)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Equal(t, before, m.Current())
		})
	}
}

func TestUpdate_SaveFailureKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{loadErr: recorder.ErrNotFound}
	m, err := NewManager(ctx, store, nil)
	require.NoError(t, err)

	store.saveErr = errors.New("read-only")
	_, err = m.Update(ctx, model.StrategyUpdate{Symbol: ptr("XRPUSDT")})
	assert.Error(t, err)
	assert.Equal(t, "BTCUSDT", m.Current().Symbol)

	_, err = m.Reset(ctx)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, recorder.NewMemoryRecorder(0), nil)
	require.NoError(t, err)

	_, err = m.Update(ctx, model.StrategyUpdate{Symbol: ptr("ADAUSDT"), Leverage: ptr(2)})
	require.NoError(t, err)

	got, err := m.Reset(ctx)
	require.NoError(t, err)
	want := model.DefaultStrategyConfig()
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, want.Leverage, got.Leverage)
	assert.Equal(t, got, m.Current())
}
