package recorder

import (
	"context"
	"sync"
	"time"

	"TrendSignal/internal/model"
)

// DefaultMaxOrders bounds the in-memory order log when no limit is configured.
const DefaultMaxOrders = 100

// MemoryRecorder keeps everything in process memory. It is the fallback when
// no durable store is reachable; data is lost on restart.
type MemoryRecorder struct {
	mu       sync.Mutex
	strategy *model.StrategyConfig
	orders   []*model.DecisionRecord
	max      int
	now      func() time.Time
}

func NewMemoryRecorder(maxOrders int) *MemoryRecorder {
	if maxOrders <= 0 {
		maxOrders = DefaultMaxOrders
	}
	return &MemoryRecorder{max: maxOrders, now: time.Now}
}

func (m *MemoryRecorder) Name() string { return "memory" }

func (m *MemoryRecorder) LoadStrategy(_ context.Context) (*model.StrategyConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.strategy == nil {
		return nil, ErrNotFound
	}
	c := *m.strategy
	return &c, nil
}

func (m *MemoryRecorder) SaveStrategy(_ context.Context, cfg *model.StrategyConfig) error {
	if cfg == nil {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cfg
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = m.now().UTC()
	}
	m.strategy = &c
	return nil
}

func (m *MemoryRecorder) AppendOrder(_ context.Context, rec *model.DecisionRecord) (*model.DecisionRecord, error) {
	out, err := stamp(rec, m.now())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, out)
	if len(m.orders) > m.max {
		m.orders = append([]*model.DecisionRecord(nil), m.orders[len(m.orders)-m.max:]...)
	}
	return out.Clone(), nil
}

func (m *MemoryRecorder) ListOrders(_ context.Context) ([]*model.DecisionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.DecisionRecord, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o.Clone())
	}
	return out, nil
}

func (m *MemoryRecorder) ClearOrders(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = nil
	return nil
}

func (m *MemoryRecorder) PruneOrders(_ context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.orders) <= keep {
		return 0, nil
	}
	removed := len(m.orders) - keep
	m.orders = append([]*model.DecisionRecord(nil), m.orders[removed:]...)
	return removed, nil
}

func (m *MemoryRecorder) Close() error { return nil }
