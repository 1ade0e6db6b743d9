package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"TrendSignal/internal/model"
)

var (
	// ErrNotFound is returned when no strategy configuration has been saved yet.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for nil or incomplete records.
	ErrInvalidInput = errors.New("invalid input")
)

// Recorder persists the strategy configuration and the decision log.
type Recorder interface {
	// LoadStrategy returns the saved configuration or ErrNotFound.
	LoadStrategy(ctx context.Context) (*model.StrategyConfig, error)
	SaveStrategy(ctx context.Context, cfg *model.StrategyConfig) error

	// AppendOrder stores a copy of rec with an assigned ID and CreatedAt.
	AppendOrder(ctx context.Context, rec *model.DecisionRecord) (*model.DecisionRecord, error)
	// ListOrders returns all orders, oldest first.
	ListOrders(ctx context.Context) ([]*model.DecisionRecord, error)
	ClearOrders(ctx context.Context) error
	// PruneOrders drops all but the newest keep orders and reports how many were removed.
	PruneOrders(ctx context.Context, keep int) (int, error)

	Name() string
	Close() error
}

// Options selects and configures a Recorder implementation.
type Options struct {
	Driver      string // sqlite, postgres, file, memory
	SQLitePath  string
	PostgresDSN string
	DataDir     string
	MaxOrders   int
	// Fallback switches to the memory recorder when the primary cannot be opened.
	Fallback bool
}

// Open builds the recorder named by opts.Driver.
func Open(ctx context.Context, opts Options, log *zap.Logger) (Recorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rec, err := open(ctx, opts, log)
	if err == nil {
		return rec, nil
	}
	if !opts.Fallback || opts.Driver == "memory" {
		return nil, err
	}
	log.Warn("primary recorder unavailable, falling back to memory",
		zap.String("driver", opts.Driver), zap.Error(err))
	return NewMemoryRecorder(opts.MaxOrders), nil
}

func open(ctx context.Context, opts Options, log *zap.Logger) (Recorder, error) {
	switch opts.Driver {
	case "", "sqlite":
		return NewSQLiteRecorder(opts.SQLitePath, log)
	case "postgres":
		return NewPostgresRecorder(ctx, opts.PostgresDSN, log)
	case "file":
		return NewFileRecorder(opts.DataDir)
	case "memory":
		return NewMemoryRecorder(opts.MaxOrders), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// stamp validates rec and returns a copy carrying a fresh identity.
func stamp(rec *model.DecisionRecord, now time.Time) (*model.DecisionRecord, error) {
	if rec == nil || rec.Symbol == "" || !rec.Action.Valid() {
		return nil, ErrInvalidInput
	}
	out := rec.Clone()
	out.ID = uuid.NewString()
	out.CreatedAt = now.UTC()
	if out.Status == "" {
		out.Status = model.StatusActive
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = out.CreatedAt
	}
	return out, nil
}
