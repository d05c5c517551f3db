// Package risk gates every trade decision through a multi-limit circuit
// breaker and tracks open positions. The manager is single-owner state
// mutated by one decision loop; it needs external synchronization before
// being shared.
package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Severity grades a limit violation.
type Severity uint8

const (
	// SeverityWarning is advisory: the caller decides whether to proceed.
	SeverityWarning Severity = iota + 1
	// SeverityBlock prevents the trade but leaves trading active.
	SeverityBlock
	// SeverityEmergency prevents the trade and is accompanied by a halt.
	SeverityEmergency
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityBlock:
		return "BLOCK"
	case SeverityEmergency:
		return "EMERGENCY"
	default:
		return "UNKNOWN"
	}
}

// Violation is a typed limit breach returned to the caller. Never a panic.
type Violation struct {
	Reason   string
	Severity Severity
}

// Limits is the static circuit breaker configuration.
type Limits struct {
	MaxPositionSize      decimal.Decimal
	MaxPortfolioExposure decimal.Decimal
	MaxDailyLoss         decimal.Decimal
	MaxDrawdownPercent   decimal.Decimal
	MaxTradesPerHour     int
	MaxTradesPerDay      int
	MaxLatency           time.Duration
}

// DefaultLimits returns the stock limit set used when configuration leaves
// a section empty.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSize:      decimal.NewFromInt(5000),
		MaxPortfolioExposure: decimal.NewFromInt(10000),
		MaxDailyLoss:         decimal.NewFromInt(500),
		MaxDrawdownPercent:   decimal.NewFromInt(10),
		MaxTradesPerHour:     30,
		MaxTradesPerDay:      200,
		MaxLatency:           500 * time.Millisecond,
	}
}

const latencyRingCap = 100

// Manager enforces all limits and carries the sticky halt state. Only an
// explicit ResumeTrading clears a halt, never a timer.
type Manager struct {
	limits Limits

	dailyPnL    decimal.Decimal
	dailyTrades int
	dayStart    time.Time

	hourlyTrades []time.Time

	peakEquity    decimal.Decimal
	currentEquity decimal.Decimal

	recentLatencies []time.Duration

	tradingHalted bool
	haltReason    string

	now func() time.Time
}

// NewManager creates an active manager with the given limits and starting
// equity.
func NewManager(limits Limits, initialEquity decimal.Decimal) *Manager {
	now := time.Now
	return &Manager{
		limits:          limits,
		dayStart:        now(),
		peakEquity:      initialEquity,
		currentEquity:   initialEquity,
		recentLatencies: make([]time.Duration, 0, latencyRingCap),
		now:             now,
	}
}

// CanOpenPosition evaluates the limits in order and returns the first
// violation, or nil when the trade may proceed. Emergency violations halt
// trading as a side effect of detection.
//
// A Warning-severity result (sustained latency) is advisory: this core
// treats it as non-blocking and leaves the decision to the caller.
func (m *Manager) CanOpenPosition(positionSize, currentExposure decimal.Decimal) *Violation {
	if m.tradingHalted {
		reason := m.haltReason
		if reason == "" {
			reason = "unknown"
		}
		return &Violation{
			Reason:   fmt.Sprintf("trading halted: %s", reason),
			Severity: SeverityEmergency,
		}
	}

	if positionSize.GreaterThan(m.limits.MaxPositionSize) {
		return &Violation{
			Reason:   fmt.Sprintf("position size %s exceeds limit %s", positionSize, m.limits.MaxPositionSize),
			Severity: SeverityBlock,
		}
	}

	if newExposure := currentExposure.Add(positionSize); newExposure.GreaterThan(m.limits.MaxPortfolioExposure) {
		return &Violation{
			Reason:   fmt.Sprintf("portfolio exposure %s exceeds limit %s", newExposure, m.limits.MaxPortfolioExposure),
			Severity: SeverityBlock,
		}
	}

	if m.dailyPnL.LessThan(m.limits.MaxDailyLoss.Neg()) {
		m.HaltTrading("daily loss limit exceeded")
		return &Violation{
			Reason:   fmt.Sprintf("daily loss %s exceeds limit %s", m.dailyPnL, m.limits.MaxDailyLoss),
			Severity: SeverityEmergency,
		}
	}

	if drawdown := m.drawdownPercent(); drawdown.GreaterThan(m.limits.MaxDrawdownPercent) {
		m.HaltTrading("drawdown limit exceeded")
		return &Violation{
			Reason:   fmt.Sprintf("drawdown %s%% exceeds limit %s%%", drawdown, m.limits.MaxDrawdownPercent),
			Severity: SeverityEmergency,
		}
	}

	m.pruneHourlyTrades()
	if len(m.hourlyTrades) >= m.limits.MaxTradesPerHour {
		return &Violation{
			Reason:   fmt.Sprintf("hourly trade limit %d reached", m.limits.MaxTradesPerHour),
			Severity: SeverityBlock,
		}
	}

	if m.dailyTrades >= m.limits.MaxTradesPerDay {
		return &Violation{
			Reason:   fmt.Sprintf("daily trade limit %d reached", m.limits.MaxTradesPerDay),
			Severity: SeverityBlock,
		}
	}

	if avg, ok := m.averageLatency(); ok && avg > m.limits.MaxLatency {
		return &Violation{
			Reason:   fmt.Sprintf("average latency %s exceeds limit %s", avg, m.limits.MaxLatency),
			Severity: SeverityWarning,
		}
	}

	return nil
}

// RecordTrade books a completed trade into the rolling counters and equity.
func (m *Manager) RecordTrade(pnl decimal.Decimal) {
	m.hourlyTrades = append(m.hourlyTrades, m.now())
	m.dailyTrades++
	m.dailyPnL = m.dailyPnL.Add(pnl)
	m.currentEquity = m.currentEquity.Add(pnl)

	if m.currentEquity.GreaterThan(m.peakEquity) {
		m.peakEquity = m.currentEquity
	}

	m.rolloverDay()
}

// RecordLatency pushes an execution latency sample. When at least 8 of the
// most recent 10 samples exceed the limit, trading halts.
func (m *Manager) RecordLatency(latency time.Duration) {
	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > latencyRingCap {
		m.recentLatencies = m.recentLatencies[1:]
	}

	if len(m.recentLatencies) < 10 {
		return
	}

	high := 0
	for _, l := range m.recentLatencies[len(m.recentLatencies)-10:] {
		if l > m.limits.MaxLatency {
			high++
		}
	}
	if high >= 8 {
		m.HaltTrading("consistent high latency detected")
	}
}

// HaltTrading trips the circuit breaker. Sticky until ResumeTrading.
func (m *Manager) HaltTrading(reason string) {
	m.tradingHalted = true
	m.haltReason = reason
}

// ResumeTrading clears a halt. This is the only path out of Halted.
func (m *Manager) ResumeTrading() {
	m.tradingHalted = false
	m.haltReason = ""
}

// IsHalted reports whether the circuit breaker is tripped.
func (m *Manager) IsHalted() bool {
	return m.tradingHalted
}

// HaltReason returns the reason for the current halt, if any.
func (m *Manager) HaltReason() string {
	return m.haltReason
}

func (m *Manager) drawdownPercent() decimal.Decimal {
	if m.peakEquity.IsZero() {
		return decimal.Zero
	}
	return m.peakEquity.Sub(m.currentEquity).Div(m.peakEquity).Mul(decimal.NewFromInt(100))
}

func (m *Manager) averageLatency() (time.Duration, bool) {
	if len(m.recentLatencies) == 0 {
		return 0, false
	}
	var sum time.Duration
	for _, l := range m.recentLatencies {
		sum += l
	}
	return sum / time.Duration(len(m.recentLatencies)), true
}

// pruneHourlyTrades drops instants older than the trailing hour.
func (m *Manager) pruneHourlyTrades() {
	cutoff := m.now().Add(-time.Hour)
	idx := 0
	for idx < len(m.hourlyTrades) && m.hourlyTrades[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		m.hourlyTrades = append(m.hourlyTrades[:0], m.hourlyTrades[idx:]...)
	}
}

// rolloverDay resets the daily counters once 24h have elapsed.
func (m *Manager) rolloverDay() {
	if m.now().Sub(m.dayStart) >= 24*time.Hour {
		m.dailyPnL = decimal.Zero
		m.dailyTrades = 0
		m.dayStart = m.now()
	}
}

// Metrics is a monitoring snapshot of the risk state.
type Metrics struct {
	DailyPnL         decimal.Decimal
	DailyTrades      int
	HourlyTrades     int
	DrawdownPercent  decimal.Decimal
	CurrentEquity    decimal.Decimal
	PeakEquity       decimal.Decimal
	AverageLatencyMs *int64
	TradingHalted    bool
}

// Metrics returns the current risk metrics.
func (m *Manager) Metrics() Metrics {
	metrics := Metrics{
		DailyPnL:        m.dailyPnL,
		DailyTrades:     m.dailyTrades,
		HourlyTrades:    len(m.hourlyTrades),
		DrawdownPercent: m.drawdownPercent(),
		CurrentEquity:   m.currentEquity,
		PeakEquity:      m.peakEquity,
		TradingHalted:   m.tradingHalted,
	}
	if avg, ok := m.averageLatency(); ok {
		ms := avg.Milliseconds()
		metrics.AverageLatencyMs = &ms
	}
	return metrics
}
