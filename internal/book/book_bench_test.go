package book

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

func populate(ob *OrderBook, levels int) {
	for i := 0; i < levels; i++ {
		_ = ob.UpdateLevel(model.SideBuy, decimal.NewFromInt(int64(100-i)), decimal.NewFromInt(1))
		_ = ob.UpdateLevel(model.SideSell, decimal.NewFromInt(int64(101+i)), decimal.NewFromInt(1))
	}
}

func BenchmarkUpdateSingleLevel(b *testing.B) {
	ob := New("BTCUSDT")
	price := decimal.RequireFromString("100.0")
	qty := decimal.RequireFromString("1.5")
	for i := 0; i < b.N; i++ {
		_ = ob.UpdateLevel(model.SideBuy, price, qty)
	}
}

func BenchmarkTopOfBook(b *testing.B) {
	ob := New("BTCUSDT")
	populate(ob, 20)
	for i := 0; i < b.N; i++ {
		ob.TopOfBook()
	}
}

func BenchmarkImbalance(b *testing.B) {
	ob := New("BTCUSDT")
	populate(ob, 50)
	for i := 0; i < b.N; i++ {
		ob.Imbalance(10)
	}
}

// BenchmarkConcurrentUpdates measures update latency with 100 writers
// hammering both sides at once. The <1ms per-call target holds as long as
// the per-side critical section stays a single level change.
func BenchmarkConcurrentUpdates(b *testing.B) {
	ob := New("BTCUSDT")
	populate(ob, 20)

	const writers = 100
	prices := make([]decimal.Decimal, writers)
	for i := range prices {
		prices[i] = decimal.NewFromInt(int64(50 + i))
	}
	qty := decimal.NewFromInt(2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var wg sync.WaitGroup
		wg.Add(writers)
		for w := 0; w < writers; w++ {
			go func(w int) {
				defer wg.Done()
				side := model.SideBuy
				if w%2 == 1 {
					side = model.SideSell
				}
				_ = ob.UpdateLevel(side, prices[w], qty)
			}(w)
		}
		wg.Wait()
	}
}
