package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"TrendSignal/internal/model"
	"TrendSignal/internal/notifier"
	"TrendSignal/internal/observability"
)

const (
	DefaultDigestCron = "0 0 22 * * *"
	DefaultPruneCron  = "0 0 * * * *"

	digestWindow = 24 * time.Hour
	ordersShown  = 10
)

// ConfigSource yields the active strategy configuration.
type ConfigSource interface {
	Current() model.StrategyConfig
}

// OrderStore is the part of the recorder the jobs read and trim.
type OrderStore interface {
	ListOrders(ctx context.Context) ([]*model.DecisionRecord, error)
	PruneOrders(ctx context.Context, keep int) (int, error)
}

type retrier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron jobs and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Config   ConfigSource
	Orders   OrderStore
	Notifier notifier.Notifier
	Keep     int
	Ctx      context.Context

	log *zap.Logger
	now func() time.Time
}

// NewScheduler creates a new Scheduler. keep is the retention limit for PruneOrders.
func NewScheduler(ctx context.Context, cfg ConfigSource, orders OrderStore, n notifier.Notifier, keep int, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if n == nil {
		n = notifier.NoopNotifier{Log: log}
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Config:   cfg,
		Orders:   orders,
		Notifier: n,
		Keep:     keep,
		Ctx:      ctx,
		log:      log,
		now:      time.Now,
	}
}

// RegisterAll registers the digest and retention jobs. An empty spec disables the job.
func (s *Scheduler) RegisterAll(digestCron, pruneCron string) error {
	if digestCron != "" {
		if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
			return fmt.Errorf("register digest task: %w", err)
		}
	}
	if pruneCron != "" {
		if _, err := s.Cron.AddFunc(pruneCron, s.pruneTask); err != nil {
			return fmt.Errorf("register prune task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunDigestNow sends the digest immediately.
func (s *Scheduler) RunDigestNow() {
	s.digestTask()
}

func (s *Scheduler) digestTask() {
	to := s.now()
	d, err := s.BuildDigest(s.Ctx, to.Add(-digestWindow), to)
	observability.RecordJobRun("digest", err)
	if err != nil {
		s.log.Error("build digest", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ Digest failed: %v", err))
		return
	}
	s.log.Info("sending digest", zap.Int("buy", d.Buy), zap.Int("sell", d.Sell))
	s.trySend(notifier.FormatDigest(d))
}

func (s *Scheduler) pruneTask() {
	n, err := s.Orders.PruneOrders(s.Ctx, s.Keep)
	observability.RecordJobRun("prune", err)
	if err != nil {
		s.log.Error("prune orders", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("pruned orders", zap.Int("removed", n), zap.Int("keep", s.Keep))
	}
}

// BuildDigest counts the orders created in [from, to).
func (s *Scheduler) BuildDigest(ctx context.Context, from, to time.Time) (notifier.Digest, error) {
	orders, err := s.Orders.ListOrders(ctx)
	if err != nil {
		return notifier.Digest{}, err
	}
	d := notifier.Digest{From: from, To: to}
	for _, o := range orders {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		switch o.Action {
		case model.ActionBuy:
			d.Buy++
		case model.ActionSell:
			d.Sell++
		}
		d.Last = o
	}
	return d, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/config":
		return notifier.FormatConfig(s.Config.Current())
	case "/orders":
		orders, err := s.Orders.ListOrders(s.Ctx)
		if err != nil {
			s.log.Error("list orders for command", zap.Error(err))
			return "❌ Could not load orders."
		}
		return notifier.FormatOrders(orders, ordersShown)
	case "/digest":
		s.digestTask()
		return ""
	default:
		return notifier.FormatHelp()
	}
}

// Notify sends text in the background with retries.
func (s *Scheduler) Notify(text string) {
	go s.trySend(text)
}

func (s *Scheduler) trySend(text string) {
	var err error
	if r, ok := s.Notifier.(retrier); ok {
		err = r.SendWithRetry(s.Ctx, text, 3)
	} else {
		err = s.Notifier.Send(s.Ctx, text)
	}
	if err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
