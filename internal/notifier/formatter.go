package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TrendSignal/internal/model"
)

// Digest summarises the orders recorded in a window.
type Digest struct {
	From, To time.Time
	Buy      int
	Sell     int
	Last     *model.DecisionRecord
}

// Total is the number of orders in the window.
func (d Digest) Total() int { return d.Buy + d.Sell }

func actionIcon(a model.Action) string {
	if a == model.ActionBuy {
		return "🟢"
	}
	return "🔴"
}

// FormatDecision describes a freshly recorded order.
func FormatDecision(order *model.DecisionRecord, explanation string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s %s</b> | %s\n\n", actionIcon(order.Action), order.Action,
		html.EscapeString(order.Symbol), html.EscapeString(order.Timeframe))
	fmt.Fprintf(&b, "Entry: %s\n", formatPrice(order.EntryPrice))
	fmt.Fprintf(&b, "TP: %s | SL: %s\n", model.FormatPrice(order.TakeProfitPrice), model.FormatPrice(order.StopLossPrice))
	fmt.Fprintf(&b, "Leverage: %s\n", html.EscapeString(order.Leverage))
	if explanation != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>\n", html.EscapeString(explanation))
	}
	fmt.Fprintf(&b, "\n%s", order.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	return b.String()
}

// FormatDigest renders the periodic activity summary.
func FormatDigest(d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>TrendSignal digest</b> | %s → %s\n\n",
		d.From.UTC().Format("01-02 15:04"), d.To.UTC().Format("01-02 15:04"))
	if d.Total() == 0 {
		b.WriteString("No orders recorded.")
		return b.String()
	}
	fmt.Fprintf(&b, "Orders: %d (BUY %d / SELL %d)\n", d.Total(), d.Buy, d.Sell)
	if d.Last != nil {
		fmt.Fprintf(&b, "Last: %s %s @ %s\n", d.Last.Action, html.EscapeString(d.Last.Symbol), formatPrice(d.Last.EntryPrice))
	}
	return b.String()
}

// FormatConfig renders the active strategy configuration.
func FormatConfig(cfg model.StrategyConfig) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Strategy</b>\n\n")
	fmt.Fprintf(&b, "Symbol: %s | %s\n", html.EscapeString(cfg.Symbol), html.EscapeString(cfg.Timeframe))
	fmt.Fprintf(&b, "+DI &gt; %g, -DI &lt; %g, ADX &gt; %g\n", cfg.PlusDIThreshold, cfg.MinusDIThreshold, cfg.ADXMinimum)
	fmt.Fprintf(&b, "TP %g%% | SL %g%% | %dx\n", cfg.TakeProfitPercentage, cfg.StopLossPercentage, cfg.Leverage)
	if !cfg.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "Updated: %s\n", cfg.UpdatedAt.UTC().Format("2006-01-02 15:04"))
	}
	return b.String()
}

// FormatOrders lists the newest orders, at most limit of them.
func FormatOrders(orders []*model.DecisionRecord, limit int) string {
	if len(orders) == 0 {
		return "No orders recorded."
	}
	if limit > 0 && len(orders) > limit {
		orders = orders[len(orders)-limit:]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Last %d orders</b>\n\n", len(orders))
	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		fmt.Fprintf(&b, "%s %s %s @ %s TP %s SL %s (%s)\n", actionIcon(o.Action), o.Action,
			html.EscapeString(o.Symbol), formatPrice(o.EntryPrice),
			model.FormatPrice(o.TakeProfitPrice), model.FormatPrice(o.StopLossPrice),
			o.Timestamp.UTC().Format("01-02 15:04"))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "🤖 <b>TrendSignal commands</b>\n\n" +
		"/config - active strategy\n" +
		"/orders - last 10 orders\n" +
		"/help - this message"
}

func formatPrice(p float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", p), "0"), ".")
}
