package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

func depthEvent(ts time.Time, bid, ask float64) *model.MarketEvent {
	return &model.MarketEvent{
		Kind: model.EventDepthUpdate,
		Recv: ts,
		Depth: &model.DepthUpdate{
			Symbol:    "BTCUSDT",
			EventTime: ts,
			Bids:      []model.PriceLevel{{Price: decimal.NewFromFloat(bid), Quantity: decimal.NewFromInt(1)}},
			Asks:      []model.PriceLevel{{Price: decimal.NewFromFloat(ask), Quantity: decimal.NewFromInt(2)}},
		},
	}
}

func tradeEvent(ts time.Time, price float64) *model.MarketEvent {
	return &model.MarketEvent{
		Kind: model.EventTrade,
		Recv: ts,
		Trade: &model.Trade{
			ID:        1,
			Price:     decimal.NewFromFloat(price),
			Quantity:  decimal.NewFromFloat(0.5),
			Side:      model.SideBuy,
			Timestamp: ts,
		},
	}
}

func writeEvents(t *testing.T, dir string, events []*model.MarketEvent) {
	t.Helper()
	w, err := NewWriter(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	for _, ev := range events {
		require.NoError(t, w.TryAppend(ev))
	}
	require.NoError(t, w.Close())
}

func TestWriteThenReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []*model.MarketEvent{
		depthEvent(base, 50000, 50001),
		tradeEvent(base.Add(50*time.Millisecond), 50000.5),
		depthEvent(base.Add(100*time.Millisecond), 50001, 50002),
	}
	writeEvents(t, dir, in)

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)

	var out []*model.MarketEvent
	require.NoError(t, pb.Run(context.Background(), func(ev *model.MarketEvent) error {
		out = append(out, ev)
		return nil
	}))

	require.Len(t, out, 3)
	assert.Equal(t, model.EventDepthUpdate, out[0].Kind)
	assert.Equal(t, model.EventTrade, out[1].Kind)
	require.NotNil(t, out[0].Depth)
	assert.True(t, out[0].Depth.Bids[0].Price.Equal(decimal.NewFromInt(50000)))
	require.NotNil(t, out[1].Trade)
	assert.True(t, out[1].Trade.Price.Equal(decimal.NewFromFloat(50000.5)))
	assert.Equal(t, model.SideBuy, out[1].Trade.Side)
	assert.True(t, out[2].Recv.Equal(base.Add(100*time.Millisecond)))
}

func TestAppendBeforeStart(t *testing.T) {
	w, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	err = w.TryAppend(depthEvent(time.Now(), 1, 2))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestAppendAfterClose(t *testing.T) {
	w, err := NewWriter(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Close())

	err = w.TryAppend(depthEvent(time.Now(), 1, 2))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSegmentRotationBySize(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.SegmentMaxBytes = 256

	w, err := NewWriter(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	base := time.Now().UTC()
	for i := 0; i < 20; i++ {
		require.NoError(t, w.TryAppend(depthEvent(base.Add(time.Duration(i)*time.Millisecond), 50000, 50001)))
	}
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Greater(t, len(entries), 1)

	// all segments replay cleanly
	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	count := 0
	require.NoError(t, pb.Run(context.Background(), func(*model.MarketEvent) error {
		count++
		return nil
	}))
	assert.Equal(t, 20, count)
}

func TestCorruptedRecordFailsChecksum(t *testing.T) {
	dir := t.TempDir()
	writeEvents(t, dir, []*model.MarketEvent{depthEvent(time.Now().UTC(), 50000, 50001)})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	path := filepath.Join(dir, entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[recordHeaderSize+4] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	err = pb.Run(context.Background(), func(*model.MarketEvent) error { return nil })
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	// checksum validation can be switched off for salvage reads
	pb, err = NewPlayback(PlaybackConfig{Dir: dir, DisableChecksum: true})
	require.NoError(t, err)
	count := 0
	require.NoError(t, pb.Run(context.Background(), func(*model.MarketEvent) error {
		count++
		return nil
	}))
	assert.Equal(t, 1, count)
}

type fakeClock struct {
	slept []time.Duration
}

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return nil
}

func TestPlaybackPacing(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeEvents(t, dir, []*model.MarketEvent{
		depthEvent(base, 50000, 50001),
		depthEvent(base.Add(100*time.Millisecond), 50000, 50001),
		depthEvent(base.Add(300*time.Millisecond), 50000, 50001),
	})

	clock := &fakeClock{}
	pb, err := NewPlayback(PlaybackConfig{Dir: dir, Speed: 2})
	require.NoError(t, err)
	pb.WithClock(clock)

	require.NoError(t, pb.Run(context.Background(), func(*model.MarketEvent) error { return nil }))

	// gaps of 100ms and 200ms at double speed
	require.Len(t, clock.slept, 2)
	assert.Equal(t, 50*time.Millisecond, clock.slept[0])
	assert.Equal(t, 100*time.Millisecond, clock.slept[1])
}

func TestInvalidConfigs(t *testing.T) {
	_, err := NewWriter(Config{})
	assert.Error(t, err)

	_, err = NewPlayback(PlaybackConfig{})
	assert.Error(t, err)

	_, err = NewPlayback(PlaybackConfig{Dir: t.TempDir(), Speed: -1})
	assert.Error(t, err)
}
