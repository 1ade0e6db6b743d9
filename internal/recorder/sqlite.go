package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"TrendSignal/internal/model"
	"TrendSignal/internal/observability"
)

// SQLiteRecorder persists configuration and orders to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL keeps readers (the dashboard) off the writer's lock.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS strategy_config (
			id                     INTEGER PRIMARY KEY CHECK (id = 1),
			symbol                 TEXT NOT NULL,
			timeframe              TEXT NOT NULL,
			plus_di_threshold      REAL NOT NULL,
			minus_di_threshold     REAL NOT NULL,
			adx_minimum            REAL NOT NULL,
			take_profit_percentage REAL NOT NULL,
			stop_loss_percentage   REAL NOT NULL,
			leverage               INTEGER NOT NULL,
			updated_at             INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS decision_records (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			symbol      TEXT NOT NULL,
			action      TEXT NOT NULL,
			price_entry REAL NOT NULL,
			tp_price    TEXT NOT NULL,
			sl_price    TEXT NOT NULL,
			leverage    TEXT NOT NULL,
			timeframe   TEXT,
			status      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decision_created ON decision_records(created_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Name() string { return "sqlite" }

func (r *SQLiteRecorder) LoadStrategy(ctx context.Context) (cfg *model.StrategyConfig, err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "load_strategy", err) }()

	var c model.StrategyConfig
	var updated int64
	err = r.db.QueryRowContext(ctx, `SELECT symbol, timeframe, plus_di_threshold, minus_di_threshold,
		adx_minimum, take_profit_percentage, stop_loss_percentage, leverage, updated_at
		FROM strategy_config WHERE id = 1`).Scan(
		&c.Symbol, &c.Timeframe, &c.PlusDIThreshold, &c.MinusDIThreshold,
		&c.ADXMinimum, &c.TakeProfitPercentage, &c.StopLossPercentage, &c.Leverage, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	return &c, nil
}

func (r *SQLiteRecorder) SaveStrategy(ctx context.Context, cfg *model.StrategyConfig) (err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "save_strategy", err) }()
	if cfg == nil {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	updated := cfg.UpdatedAt
	if updated.IsZero() {
		updated = r.now()
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO strategy_config
		(id, symbol, timeframe, plus_di_threshold, minus_di_threshold, adx_minimum,
		 take_profit_percentage, stop_loss_percentage, leverage, updated_at)
		VALUES (1,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			symbol = excluded.symbol,
			timeframe = excluded.timeframe,
			plus_di_threshold = excluded.plus_di_threshold,
			minus_di_threshold = excluded.minus_di_threshold,
			adx_minimum = excluded.adx_minimum,
			take_profit_percentage = excluded.take_profit_percentage,
			stop_loss_percentage = excluded.stop_loss_percentage,
			leverage = excluded.leverage,
			updated_at = excluded.updated_at`,
		cfg.Symbol, cfg.Timeframe, cfg.PlusDIThreshold, cfg.MinusDIThreshold, cfg.ADXMinimum,
		cfg.TakeProfitPercentage, cfg.StopLossPercentage, cfg.Leverage, updated.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save strategy: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) AppendOrder(ctx context.Context, rec *model.DecisionRecord) (out *model.DecisionRecord, err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "append_order", err) }()

	out, err = stamp(rec, r.now())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO decision_records
		(id, symbol, action, price_entry, tp_price, sl_price, leverage, timeframe, status, timestamp, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		out.ID, out.Symbol, string(out.Action), out.EntryPrice,
		model.FormatPrice(out.TakeProfitPrice), model.FormatPrice(out.StopLossPrice),
		out.Leverage, out.Timeframe, string(out.Status),
		out.Timestamp.UnixMilli(), out.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("append order: %w", err)
	}
	return out, nil
}

func (r *SQLiteRecorder) ListOrders(ctx context.Context) (orders []*model.DecisionRecord, err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "list_orders", err) }()

	rows, err := r.db.QueryContext(ctx, `SELECT id, symbol, action, price_entry, tp_price, sl_price,
		leverage, timeframe, status, timestamp, created_at
		FROM decision_records ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders = make([]*model.DecisionRecord, 0)
	for rows.Next() {
		var (
			o              model.DecisionRecord
			action, status string
			tp, sl         string
			timeframe      sql.NullString
			ts, created    int64
		)
		if err = rows.Scan(&o.ID, &o.Symbol, &action, &o.EntryPrice, &tp, &sl,
			&o.Leverage, &timeframe, &status, &ts, &created); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if o.TakeProfitPrice, err = decimal.NewFromString(tp); err != nil {
			return nil, fmt.Errorf("parse tp_price %q: %w", tp, err)
		}
		if o.StopLossPrice, err = decimal.NewFromString(sl); err != nil {
			return nil, fmt.Errorf("parse sl_price %q: %w", sl, err)
		}
		o.Action = model.Action(action)
		o.Status = model.OrderStatus(status)
		o.Timeframe = timeframe.String
		o.Timestamp = time.UnixMilli(ts).UTC()
		o.CreatedAt = time.UnixMilli(created).UTC()
		orders = append(orders, &o)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *SQLiteRecorder) ClearOrders(ctx context.Context) (err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "clear_orders", err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err = r.db.ExecContext(ctx, `DELETE FROM decision_records`); err != nil {
		return fmt.Errorf("clear orders: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) PruneOrders(ctx context.Context, keep int) (n int, err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "prune_orders", err) }()
	if keep <= 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `DELETE FROM decision_records WHERE seq NOT IN
		(SELECT seq FROM decision_records ORDER BY seq DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune orders: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
