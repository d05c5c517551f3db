package book

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

// Ladder is one side of the book: a sorted collection of price levels that
// can be mutated and queried concurrently. Writers only contend with other
// operations on the same side, so a burst of one-sided updates never stalls
// reads of the other side.
type Ladder interface {
	// Upsert inserts or replaces the level at the given price.
	Upsert(price, quantity decimal.Decimal)

	// Remove deletes the level at the given price, reporting whether a
	// level existed.
	Remove(price decimal.Decimal) bool

	// Best returns the level nearest to the mid, if any.
	Best() (model.PriceLevel, bool)

	// Top returns a copy of up to n levels, nearest-to-mid first.
	Top(n int) []model.PriceLevel

	// SumTop returns the aggregate quantity over up to n best levels.
	SumTop(n int) decimal.Decimal

	// Len returns the number of live levels.
	Len() int
}

// lockedLadder keeps levels in a price-sorted slice guarded by a per-side
// RWMutex. Book depth in practice stays well under a hundred levels, so a
// memmove-based insert beats pointer-chasing structures at this size while
// keeping the critical section to a single level change.
type lockedLadder struct {
	mu     sync.RWMutex
	levels []model.PriceLevel
	desc   bool
}

func newLadder(desc bool) *lockedLadder {
	return &lockedLadder{desc: desc}
}

// search returns the insertion index for price, with levels[idx].Price == price
// when the level already exists.
func (l *lockedLadder) search(price decimal.Decimal) int {
	return sort.Search(len(l.levels), func(i int) bool {
		c := l.levels[i].Price.Cmp(price)
		if l.desc {
			return c <= 0
		}
		return c >= 0
	})
}

func (l *lockedLadder) Upsert(price, quantity decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.search(price)
	if idx < len(l.levels) && l.levels[idx].Price.Equal(price) {
		l.levels[idx].Quantity = quantity
		return
	}

	l.levels = append(l.levels, model.PriceLevel{})
	copy(l.levels[idx+1:], l.levels[idx:])
	l.levels[idx] = model.PriceLevel{Price: price, Quantity: quantity}
}

func (l *lockedLadder) Remove(price decimal.Decimal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.search(price)
	if idx >= len(l.levels) || !l.levels[idx].Price.Equal(price) {
		return false
	}

	l.levels = append(l.levels[:idx], l.levels[idx+1:]...)
	return true
}

func (l *lockedLadder) Best() (model.PriceLevel, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.levels) == 0 {
		return model.PriceLevel{}, false
	}
	return l.levels[0], true
}

func (l *lockedLadder) Top(n int) []model.PriceLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.levels) {
		n = len(l.levels)
	}
	if n <= 0 {
		return nil
	}

	out := make([]model.PriceLevel, n)
	copy(out, l.levels[:n])
	return out
}

func (l *lockedLadder) SumTop(n int) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.levels) {
		n = len(l.levels)
	}

	sum := decimal.Zero
	for i := 0; i < n; i++ {
		sum = sum.Add(l.levels[i].Quantity)
	}
	return sum
}

func (l *lockedLadder) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.levels)
}
