package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

func tradeEvent(id int64) *model.MarketEvent {
	return &model.MarketEvent{
		Kind:  model.EventTrade,
		Recv:  time.Now(),
		Trade: &model.Trade{ID: id},
	}
}

func TestPublishAndConsume(t *testing.T) {
	q := NewQueue(8)

	require.True(t, q.TryPublish(tradeEvent(1)))
	require.True(t, q.TryPublish(tradeEvent(2)))
	q.Close()

	var got []int64
	q.Run(context.Background(), func(ev *model.MarketEvent) {
		got = append(got, ev.Trade.ID)
	})

	assert.Equal(t, []int64{1, 2}, got)
}

func TestPublishFullQueueDrops(t *testing.T) {
	q := NewQueue(1)

	assert.True(t, q.TryPublish(tradeEvent(1)))
	assert.False(t, q.TryPublish(tradeEvent(2)))
	assert.Equal(t, int64(1), q.Dropped())
}

func TestPublishAfterClose(t *testing.T) {
	q := NewQueue(4)
	q.Close()

	assert.False(t, q.TryPublish(tradeEvent(1)))
}

func TestCloseIsIdempotent(t *testing.T) {
	q := NewQueue(4)
	q.Close()
	q.Close()
}

func TestRunStopsOnContextCancel(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(*model.MarketEvent) {})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}

func TestConcurrentPublishers(t *testing.T) {
	q := NewQueue(1024)

	const publishers = 8
	const perPublisher = 100
	for p := 0; p < publishers; p++ {
		go func() {
			for i := 0; i < perPublisher; i++ {
				q.TryPublish(tradeEvent(int64(i)))
			}
		}()
	}

	count := 0
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Run(ctx, func(*model.MarketEvent) {
		count++
		if count == publishers*perPublisher {
			cancel()
		}
	})

	assert.Equal(t, publishers*perPublisher, count)
}
