package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"TrendSignal/internal/model"
	"TrendSignal/internal/observability"
)

const pgErrUniqueViolation = "23505"

// PostgresRecorder persists configuration and orders to PostgreSQL.
type PostgresRecorder struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	now  func() time.Time
}

// NewPostgresRecorder connects, pings and migrates the target database.
func NewPostgresRecorder(ctx context.Context, dsn string, log *zap.Logger) (*PostgresRecorder, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &PostgresRecorder{pool: pool, log: log, now: time.Now}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("postgres recorder opened", zap.String("host", config.ConnConfig.Host))
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS strategy_config (
			id                     SMALLINT PRIMARY KEY CHECK (id = 1),
			symbol                 TEXT NOT NULL,
			timeframe              TEXT NOT NULL,
			plus_di_threshold      DOUBLE PRECISION NOT NULL,
			minus_di_threshold     DOUBLE PRECISION NOT NULL,
			adx_minimum            DOUBLE PRECISION NOT NULL,
			take_profit_percentage DOUBLE PRECISION NOT NULL,
			stop_loss_percentage   DOUBLE PRECISION NOT NULL,
			leverage               INTEGER NOT NULL,
			updated_at             TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS decision_records (
			seq         BIGSERIAL PRIMARY KEY,
			id          UUID NOT NULL UNIQUE,
			symbol      TEXT NOT NULL,
			action      TEXT NOT NULL,
			price_entry DOUBLE PRECISION NOT NULL,
			tp_price    NUMERIC(24, 8) NOT NULL,
			sl_price    NUMERIC(24, 8) NOT NULL,
			leverage    TEXT NOT NULL,
			timeframe   TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			timestamp   TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decision_created ON decision_records(created_at)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *PostgresRecorder) Name() string { return "postgres" }

func (r *PostgresRecorder) LoadStrategy(ctx context.Context) (cfg *model.StrategyConfig, err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "load_strategy", err) }()

	var c model.StrategyConfig
	err = r.pool.QueryRow(ctx, `SELECT symbol, timeframe, plus_di_threshold, minus_di_threshold,
		adx_minimum, take_profit_percentage, stop_loss_percentage, leverage, updated_at
		FROM strategy_config WHERE id = 1`).Scan(
		&c.Symbol, &c.Timeframe, &c.PlusDIThreshold, &c.MinusDIThreshold,
		&c.ADXMinimum, &c.TakeProfitPercentage, &c.StopLossPercentage, &c.Leverage, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (r *PostgresRecorder) SaveStrategy(ctx context.Context, cfg *model.StrategyConfig) (err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "save_strategy", err) }()
	if cfg == nil {
		return ErrInvalidInput
	}

	updated := cfg.UpdatedAt
	if updated.IsZero() {
		updated = r.now()
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO strategy_config
		(id, symbol, timeframe, plus_di_threshold, minus_di_threshold, adx_minimum,
		 take_profit_percentage, stop_loss_percentage, leverage, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			timeframe = EXCLUDED.timeframe,
			plus_di_threshold = EXCLUDED.plus_di_threshold,
			minus_di_threshold = EXCLUDED.minus_di_threshold,
			adx_minimum = EXCLUDED.adx_minimum,
			take_profit_percentage = EXCLUDED.take_profit_percentage,
			stop_loss_percentage = EXCLUDED.stop_loss_percentage,
			leverage = EXCLUDED.leverage,
			updated_at = EXCLUDED.updated_at`,
		cfg.Symbol, cfg.Timeframe, cfg.PlusDIThreshold, cfg.MinusDIThreshold, cfg.ADXMinimum,
		cfg.TakeProfitPercentage, cfg.StopLossPercentage, cfg.Leverage, updated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save strategy: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) AppendOrder(ctx context.Context, rec *model.DecisionRecord) (out *model.DecisionRecord, err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "append_order", err) }()

	out, err = stamp(rec, r.now())
	if err != nil {
		return nil, err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO decision_records
		(id, symbol, action, price_entry, tp_price, sl_price, leverage, timeframe, status, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10, $11)`,
		out.ID, out.Symbol, string(out.Action), out.EntryPrice,
		model.FormatPrice(out.TakeProfitPrice), model.FormatPrice(out.StopLossPrice),
		out.Leverage, out.Timeframe, string(out.Status), out.Timestamp, out.CreatedAt,
	)
	if isDuplicateKeyError(err) {
		return nil, fmt.Errorf("append order %s: duplicate id", out.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("append order: %w", err)
	}
	return out, nil
}

func (r *PostgresRecorder) ListOrders(ctx context.Context) (orders []*model.DecisionRecord, err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "list_orders", err) }()

	rows, err := r.pool.Query(ctx, `SELECT id::text, symbol, action, price_entry,
		tp_price::text, sl_price::text, leverage, timeframe, status, timestamp, created_at
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
		)
		if err = rows.Scan(&o.ID, &o.Symbol, &action, &o.EntryPrice, &tp, &sl,
			&o.Leverage, &o.Timeframe, &status, &o.Timestamp, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if o.TakeProfitPrice, err = decimal.NewFromString(tp); err != nil {
			return nil, fmt.Errorf("parse tp_price %q: %w", tp, err)
		}
		if o.StopLossPrice, err = decimal.NewFromString(sl); err != nil {
			return nil, fmt.Errorf("parse sl_price %q: %w", sl, err)
		}
		// NUMERIC(24,8) pads the scale; exits are stored at 2 places.
		o.TakeProfitPrice = o.TakeProfitPrice.Round(2)
		o.StopLossPrice = o.StopLossPrice.Round(2)
		o.Action = model.Action(action)
		o.Status = model.OrderStatus(status)
		o.Timestamp = o.Timestamp.UTC()
		o.CreatedAt = o.CreatedAt.UTC()
		orders = append(orders, &o)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PostgresRecorder) ClearOrders(ctx context.Context) (err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "clear_orders", err) }()

	if _, err = r.pool.Exec(ctx, `DELETE FROM decision_records`); err != nil {
		return fmt.Errorf("clear orders: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) PruneOrders(ctx context.Context, keep int) (n int, err error) {
	defer func() { observability.RecordStoreOp(r.Name(), "prune_orders", err) }()
	if keep <= 0 {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM decision_records WHERE seq NOT IN
		(SELECT seq FROM decision_records ORDER BY seq DESC LIMIT $1)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune orders: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRecorder) Close() error {
	r.log.Info("closing postgres recorder")
	r.pool.Close()
	return nil
}

// isDuplicateKeyError reports a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}
