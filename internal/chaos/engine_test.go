package chaos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

func depthEvent(ts time.Time) *model.MarketEvent {
	return &model.MarketEvent{
		Kind: model.EventDepthUpdate,
		Recv: ts,
		Depth: &model.DepthUpdate{
			Symbol:    "BTCUSDT",
			EventTime: ts,
		},
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	for name, cfg := range map[string]Config{
		"drop over 1":      {DropRate: 1.5, ReorderWindow: 1},
		"negative drop":    {DropRate: -0.1, ReorderWindow: 1},
		"duplicate over 1": {DuplicateRate: 2, ReorderWindow: 1},
		"negative delay":   {MaxDelay: -time.Second, ReorderWindow: 1},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPassthroughWithoutRules(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1})
	require.NoError(t, err)

	ev := depthEvent(time.Now())
	out := e.Process(ev)
	require.Len(t, out, 1)
	assert.Same(t, ev, out[0])
	assert.Empty(t, e.Flush())
}

func TestConnectionEventsBypassChaos(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1, DropRate: 1})
	require.NoError(t, err)

	ev := &model.MarketEvent{Kind: model.EventDisconnected, Recv: time.Now()}
	out := e.Process(ev)
	require.Len(t, out, 1)
	assert.Same(t, ev, out[0])
}

func TestDropRateOne(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1, DropRate: 1})
	require.NoError(t, err)

	for _iter := 0; _iter < 100; _iter++ {
		assert.Empty(t, e.Process(depthEvent(time.Now())))
	}
}

func TestDuplicateRateOne(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1, DuplicateRate: 1})
	require.NoError(t, err)

	out := e.Process(depthEvent(time.Now()))
	require.Len(t, out, 2)
	// the duplicate is a copy, not the same pointer
	assert.NotSame(t, out[0], out[1])
	assert.Equal(t, out[0].Kind, out[1].Kind)
}

func TestDelayMovesRecvForward(t *testing.T) {
	e, err := NewEngine(Config{Seed: 42, MaxDelay: time.Second})
	require.NoError(t, err)

	base := time.Now()
	delayed := 0
	for _iter := 0; _iter < 50; _iter++ {
		out := e.Process(depthEvent(base))
		require.Len(t, out, 1)
		assert.False(t, out[0].Recv.Before(base))
		if out[0].Recv.After(base) {
			delayed++
		}
	}
	assert.Positive(t, delayed)
}

func TestReorderBuffersUntilWindowFull(t *testing.T) {
	e, err := NewEngine(Config{Seed: 7, ReorderWindow: 4})
	require.NoError(t, err)

	emitted := 0
	for i := 0; i < 10; i++ {
		out := e.Process(depthEvent(time.Now().Add(time.Duration(i) * time.Millisecond)))
		emitted += len(out)
	}
	emitted += len(e.Flush())

	// nothing lost, just reordered
	assert.Equal(t, 10, emitted)
}

func TestDeterministicForSeed(t *testing.T) {
	run := func() int {
		e, err := NewEngine(Config{Seed: 99, DropRate: 0.5})
		require.NoError(t, err)
		kept := 0
		base := time.Now()
		for i := 0; i < 200; i++ {
			kept += len(e.Process(depthEvent(base.Add(time.Duration(i)))))
		}
		return kept
	}
	assert.Equal(t, run(), run())
}
