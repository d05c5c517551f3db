// Package trader runs the live decision loop: market events in, sized and
// risk-gated orders out.
package trader

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"github.com/Xtley001/front-run-vanilla/internal/book"
	"github.com/Xtley001/front-run-vanilla/internal/execution"
	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/internal/obs"
	"github.com/Xtley001/front-run-vanilla/internal/risk"
	"github.com/Xtley001/front-run-vanilla/internal/strategy"
)

// Config tunes the decision loop cadence.
type Config struct {
	Symbol string
	// SignalEvery is the number of depth updates between signal checks.
	// At the 100ms stream cadence, 10 is roughly one check per second.
	SignalEvery int
	// StatsEvery is the number of depth updates between stats logs.
	StatsEvery int
	// MinConfirming is passed to CompositeSignal.IsTradeable.
	MinConfirming int
	// FlowSignalTTL bounds how long a flow signal stays eligible for
	// aggregation with a later imbalance signal.
	FlowSignalTTL time.Duration
}

// DefaultConfig returns the stock loop settings.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:        symbol,
		SignalEvery:   10,
		StatsEvery:    1000,
		MinConfirming: 1,
		FlowSignalTTL: 2 * time.Second,
	}
}

// Trader owns all mutable strategy and risk state. Events must be handed
// to it from a single goroutine, normally the bus consumer.
type Trader struct {
	cfg        Config
	book       *book.OrderBook
	detector   *strategy.ImbalanceDetector
	flow       *strategy.FlowAnalyzer
	aggregator *strategy.SignalAggregator
	exec       *execution.Engine
	riskMgr    *risk.Manager
	positions  *risk.PositionManager

	board   *obs.StatusBoard
	metrics *obs.Metrics

	lastFlow       *model.Signal
	depthCount     int64
	eventsSeen     int64
	signalsEmitted int64
	connected      bool
	now            func() time.Time
}

// Deps bundles the collaborators owned by the caller.
type Deps struct {
	Book       *book.OrderBook
	Detector   *strategy.ImbalanceDetector
	Flow       *strategy.FlowAnalyzer
	Aggregator *strategy.SignalAggregator
	Exec       *execution.Engine
	RiskMgr    *risk.Manager
	Positions  *risk.PositionManager
	Board      *obs.StatusBoard
	Metrics    *obs.Metrics
}

func New(cfg Config, deps Deps) *Trader {
	return &Trader{
		cfg:        cfg,
		book:       deps.Book,
		detector:   deps.Detector,
		flow:       deps.Flow,
		aggregator: deps.Aggregator,
		exec:       deps.Exec,
		riskMgr:    deps.RiskMgr,
		positions:  deps.Positions,
		board:      deps.Board,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// HandleEvent consumes one market event. Designed as the bus handler.
func (t *Trader) HandleEvent(ctx context.Context, ev *model.MarketEvent) {
	t.eventsSeen++
	if t.metrics != nil {
		t.metrics.EventsTotal.WithLabelValues(ev.Kind.String()).Inc()
	}

	switch ev.Kind {
	case model.EventConnected:
		t.connected = true
		logs.Info("market data feed connected")

	case model.EventDisconnected:
		t.connected = false
		logs.Warnf("market data feed disconnected")

	case model.EventDepthUpdate:
		if ev.Depth == nil {
			return
		}
		if err := t.book.ApplyDepth(ev.Depth); err != nil {
			logs.Warnf("apply depth update: %+v", err)
			return
		}
		t.depthCount++
		if t.cfg.SignalEvery > 0 && t.depthCount%int64(t.cfg.SignalEvery) == 0 {
			t.evaluate(ctx)
		}
		if t.cfg.StatsEvery > 0 && t.depthCount%int64(t.cfg.StatsEvery) == 0 {
			t.publishStats()
		}

	case model.EventTrade:
		if ev.Trade == nil {
			return
		}
		if sig := t.flow.ProcessTrade(*ev.Trade); sig != nil {
			t.lastFlow = sig
			t.signalsEmitted++
			if t.metrics != nil {
				t.metrics.SignalsTotal.WithLabelValues("flow").Inc()
			}
		}
	}
}

/// evaluate runs one signal pass: exits first, then entries.
func (t *Trader) evaluate(ctx context.Context) {
	start := t.now()
	defer func() {
		if t.metrics != nil {
			t.metrics.DecisionDuration.Observe(t.now().Sub(start).Seconds())
		}
	}()

	mid, ok := t.book.MidPrice()
	if !ok {
		return
	}
	t.exec.SweepExits(ctx, mid)

	var signals []model.Signal
	if sig := t.detector.CalculateSignal(t.book); sig != nil {
		t.signalsEmitted++
		if t.metrics != nil {
			t.metrics.SignalsTotal.WithLabelValues("imbalance").Inc()
		}
		logs.Infof("imbalance signal: %s strength=%.2f confidence=%.2f",
			sig.Direction, sig.Strength, sig.Confidence)
		signals = append(signals, *sig)
	}
	if flow := t.freshFlowSignal(); flow != nil {
		signals = append(signals, *flow)
	}
	if len(signals) == 0 {
		return
	}

	composite := t.aggregator.Aggregate(signals)
	if composite == nil || !composite.IsTradeable(t.cfg.MinConfirming) {
		return
	}

	logs.Infof("composite signal: %s strength=%.2f confidence=%.2f confirming=%d",
		composite.Direction, composite.OverallStrength, composite.Confidence, len(composite.Confirming))

	if t.riskMgr.IsHalted() {
		logs.Warnf("trading halted, skipping signal: %s", t.riskMgr.HaltReason())
		if t.metrics != nil {
			t.metrics.RiskBlocksTotal.WithLabelValues(risk.SeverityEmergency.String()).Inc()
		}
		return
	}

	orderStart := t.now()
	pos, err := t.exec.HandleSignal(ctx, composite, mid)
	if err != nil {
		logs.Errorf("execute signal: %+v", err)
		return
	}
	if t.metrics == nil {
		return
	}
	if pos == nil {
		// HandleSignal swallows risk rejections, surface them here
		t.metrics.RiskBlocksTotal.WithLabelValues(risk.SeverityBlock.String()).Inc()
		return
	}
	t.metrics.OrdersTotal.WithLabelValues(pos.Side.String()).Inc()
	t.metrics.OrderLatency.Observe(t.now().Sub(orderStart).Seconds())
}

// freshFlowSignal returns the last flow signal while it is inside the TTL.
func (t *Trader) freshFlowSignal() *model.Signal {
	if t.lastFlow == nil {
		return nil
	}
	if t.now().Sub(t.lastFlow.Timestamp) > t.cfg.FlowSignalTTL {
		t.lastFlow = nil
		return nil
	}
	return t.lastFlow
}

func (t *Trader) publishStats() {
	stats := t.exec.Stats()
	riskMetrics := t.riskMgr.Metrics()

	logs.Infof("trading stats: open=%d closed=%d realized=%s win_rate=%.2f fees=%s daily_pnl=%s",
		t.positions.OpenCount(), t.positions.ClosedTrades(), t.positions.RealizedPnL(),
		t.positions.WinRate(), stats.FeesPaid, riskMetrics.DailyPnL)

	if t.board == nil {
		return
	}

	snap := obs.Snapshot{
		Symbol:          t.cfg.Symbol,
		Connected:       t.connected,
		EventsSeen:      t.eventsSeen,
		SignalsEmitted:  t.signalsEmitted,
		OpenPositions:   t.positions.OpenCount(),
		ClosedTrades:    t.positions.ClosedTrades(),
		RealizedPnL:     t.positions.RealizedPnL(),
		WinRate:         t.positions.WinRate(),
		DailyPnL:        riskMetrics.DailyPnL,
		DrawdownPercent: riskMetrics.DrawdownPercent,
		TradingHalted:   riskMetrics.TradingHalted,
		HaltReason:      t.riskMgr.HaltReason(),
	}
	if mid, ok := t.book.MidPrice(); ok {
		snap.MidPrice = mid
	}
	if spread, ok := t.book.SpreadBps(); ok {
		snap.SpreadBps = spread
	}
	snap.BidLevels, snap.AskLevels = t.book.DepthCount()
	t.board.Publish(snap)
}
