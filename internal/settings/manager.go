package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"TrendSignal/internal/model"
	"TrendSignal/internal/recorder"
)

// Store is the persistence the Manager needs.
type Store interface {
	LoadStrategy(ctx context.Context) (*model.StrategyConfig, error)
	SaveStrategy(ctx context.Context, cfg *model.StrategyConfig) error
}

// Manager owns the single active strategy configuration with concurrency safety.
type Manager struct {
	mu    sync.RWMutex
	cfg   model.StrategyConfig
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewManager loads the stored configuration, seeding the defaults when none exists.
// A store that cannot be read leaves the defaults active.
func NewManager(ctx context.Context, store Store, log *zap.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("settings store is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{store: store, log: log, now: time.Now}

	stored, err := store.LoadStrategy(ctx)
	if err == nil && stored == nil {
		err = recorder.ErrNotFound
	}
	switch {
	case err == nil:
		if verr := stored.Validate(); verr != nil {
			log.Warn("stored strategy invalid, using defaults", zap.Error(verr))
			m.cfg = model.DefaultStrategyConfig()
		} else {
			m.cfg = *stored
		}
	case errors.Is(err, recorder.ErrNotFound):
		m.cfg = model.DefaultStrategyConfig()
		if err := m.save(ctx, m.cfg); err != nil {
			return nil, err
		}
		log.Info("seeded default strategy configuration")
	default:
		log.Warn("could not load strategy, using defaults", zap.Error(err))
		m.cfg = model.DefaultStrategyConfig()
	}
	return m, nil
}

// Current returns a copy of the active configuration.
func (m *Manager) Current() model.StrategyConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update replaces the configuration with the defaults overlaid by u.
// Fields absent from u revert to their default values.
func (m *Manager) Update(ctx context.Context, u model.StrategyUpdate) (model.StrategyConfig, error) {
	next := u.Apply(model.DefaultStrategyConfig())
	if err := next.Validate(); err != nil {
		return model.StrategyConfig{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next.UpdatedAt = m.now().UTC()
	if err := m.save(ctx, next); err != nil {
		return model.StrategyConfig{}, err
	}
	m.cfg = next
	m.log.Info("strategy configuration updated",
		zap.String("symbol", next.Symbol),
		zap.Float64("tp_pct", next.TakeProfitPercentage),
		zap.Float64("sl_pct", next.StopLossPercentage),
		zap.Int("leverage", next.Leverage))
	return next, nil
}

// Reset restores and persists the default configuration.
func (m *Manager) Reset(ctx context.Context) (model.StrategyConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := model.DefaultStrategyConfig()
	next.UpdatedAt = m.now().UTC()
	if err := m.save(ctx, next); err != nil {
		return model.StrategyConfig{}, err
	}
	m.cfg = next
	m.log.Info("strategy configuration reset to defaults")
	return next, nil
}

func (m *Manager) save(ctx context.Context, cfg model.StrategyConfig) error {
	if err := m.store.SaveStrategy(ctx, &cfg); err != nil {
		return fmt.Errorf("save strategy: %w", err)
	}
	return nil
}
