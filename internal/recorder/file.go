package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"TrendSignal/internal/model"
	"TrendSignal/internal/observability"
)

const (
	strategyFile = "config.json"
	ordersFile   = "orders.json"
)

// FileRecorder keeps the configuration and the order log as JSON documents
// under a data directory.
type FileRecorder struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func NewFileRecorder(dir string) (*FileRecorder, error) {
	if dir == "" {
		return nil, errors.New("data dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileRecorder{dir: dir, now: time.Now}, nil
}

func (f *FileRecorder) Name() string { return "file" }

func (f *FileRecorder) LoadStrategy(_ context.Context) (cfg *model.StrategyConfig, err error) {
	defer func() { observability.RecordStoreOp(f.Name(), "load_strategy", err) }()

	f.mu.Lock()
	defer f.mu.Unlock()

	var c model.StrategyConfig
	found, err := f.readJSON(strategyFile, &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (f *FileRecorder) SaveStrategy(_ context.Context, cfg *model.StrategyConfig) (err error) {
	defer func() { observability.RecordStoreOp(f.Name(), "save_strategy", err) }()
	if cfg == nil {
		return ErrInvalidInput
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	c := *cfg
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = f.now().UTC()
	}
	return f.writeJSON(strategyFile, &c)
}

func (f *FileRecorder) AppendOrder(_ context.Context, rec *model.DecisionRecord) (out *model.DecisionRecord, err error) {
	defer func() { observability.RecordStoreOp(f.Name(), "append_order", err) }()

	out, err = stamp(rec, f.now())
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	orders, err := f.loadOrders()
	if err != nil {
		return nil, err
	}
	orders = append(orders, out)
	if err := f.writeJSON(ordersFile, orders); err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

func (f *FileRecorder) ListOrders(_ context.Context) (orders []*model.DecisionRecord, err error) {
	defer func() { observability.RecordStoreOp(f.Name(), "list_orders", err) }()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadOrders()
}

func (f *FileRecorder) ClearOrders(_ context.Context) (err error) {
	defer func() { observability.RecordStoreOp(f.Name(), "clear_orders", err) }()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeJSON(ordersFile, []*model.DecisionRecord{})
}

func (f *FileRecorder) PruneOrders(_ context.Context, keep int) (n int, err error) {
	defer func() { observability.RecordStoreOp(f.Name(), "prune_orders", err) }()
	if keep <= 0 {
		return 0, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	orders, err := f.loadOrders()
	if err != nil {
		return 0, err
	}
	if len(orders) <= keep {
		return 0, nil
	}
	removed := len(orders) - keep
	if err := f.writeJSON(ordersFile, orders[removed:]); err != nil {
		return 0, err
	}
	return removed, nil
}

func (f *FileRecorder) Close() error { return nil }

func (f *FileRecorder) loadOrders() ([]*model.DecisionRecord, error) {
	orders := make([]*model.DecisionRecord, 0)
	if _, err := f.readJSON(ordersFile, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// readJSON decodes name into v. A missing file reports found=false.
func (f *FileRecorder) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// writeJSON replaces name atomically through a temp file and rename.
func (f *FileRecorder) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(f.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
