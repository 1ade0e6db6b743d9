package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSignal/internal/model"
	"TrendSignal/internal/recorder"
	"TrendSignal/internal/settings"
)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureNotifier) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return nil
}

func (c *captureNotifier) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		return ""
	}
	return c.msgs[len(c.msgs)-1]
}

func newTestScheduler(t *testing.T, keep int) (*Scheduler, *recorder.MemoryRecorder, *captureNotifier) {
	t.Helper()
	ctx := context.Background()
	rec := recorder.NewMemoryRecorder(0)
	mgr, err := settings.NewManager(ctx, rec, nil)
	require.NoError(t, err)
	n := &captureNotifier{}
	return NewScheduler(ctx, mgr, rec, n, keep, nil), rec, n
}

func appendOrders(t *testing.T, rec *recorder.MemoryRecorder, actions ...model.Action) {
	t.Helper()
	for i, a := range actions {
		_, err := rec.AppendOrder(context.Background(), &model.DecisionRecord{
			Symbol:     "BTCUSDT",
			Action:     a,
			EntryPrice: float64(100 + i),
			Leverage:   "10x",
		})
		require.NoError(t, err)
	}
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t, 10)
	require.NoError(t, s.RegisterAll(DefaultDigestCron, DefaultPruneCron))
	assert.Len(t, s.Cron.Entries(), 2)

	s2, _, _ := newTestScheduler(t, 10)
	require.NoError(t, s2.RegisterAll("", DefaultPruneCron))
	assert.Len(t, s2.Cron.Entries(), 1)

	assert.Error(t, s2.RegisterAll("not a cron", ""))
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestScheduler(t, 10)
	require.NoError(t, s.RegisterAll(DefaultDigestCron, DefaultPruneCron))
	s.Start()
	s.Stop()
}

func TestBuildDigest_CountsWindow(t *testing.T) {
	s, rec, _ := newTestScheduler(t, 10)
	appendOrders(t, rec, model.ActionBuy, model.ActionSell, model.ActionBuy)

	now := time.Now()
	d, err := s.BuildDigest(context.Background(), now.Add(-time.Hour), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, d.Buy)
	assert.Equal(t, 1, d.Sell)
	require.NotNil(t, d.Last)
	assert.Equal(t, 102.0, d.Last.EntryPrice)

	d, err = s.BuildDigest(context.Background(), now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, d.Total())
}

func TestRunDigestNow_Sends(t *testing.T) {
	s, rec, n := newTestScheduler(t, 10)
	appendOrders(t, rec, model.ActionSell)

	s.RunDigestNow()
	assert.Contains(t, n.last(), "Orders: 1 (BUY 0 / SELL 1)")
}

func TestPruneTask_KeepsNewest(t *testing.T) {
	s, rec, _ := newTestScheduler(t, 2)
	appendOrders(t, rec, model.ActionBuy, model.ActionBuy, model.ActionSell, model.ActionSell)

	s.pruneTask()
	orders, err := rec.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 102.0, orders[0].EntryPrice)
}

func TestHandleCommand(t *testing.T) {
	s, rec, n := newTestScheduler(t, 10)
	appendOrders(t, rec, model.ActionBuy)

	assert.Contains(t, s.HandleCommand("/config"), "Symbol: BTCUSDT | 5m")
	assert.Contains(t, s.HandleCommand("/config@trendsignal_bot"), "Symbol: BTCUSDT")
	assert.Contains(t, s.HandleCommand(" /ORDERS "), "Last 1 orders")
	assert.Contains(t, s.HandleCommand("/help"), "/orders")
	assert.Contains(t, s.HandleCommand("hello"), "TrendSignal commands")

	assert.Empty(t, s.HandleCommand("/digest"))
	assert.Contains(t, n.last(), "TrendSignal digest")
}
