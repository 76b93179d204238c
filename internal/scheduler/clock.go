package scheduler

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock time so poll cadence can be driven by a
// virtual clock in tests.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker abstracts time.Ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock implements Clock with the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (rt *realTicker) C() <-chan time.Time { return rt.t.C }
func (rt *realTicker) Stop()               { rt.t.Stop() }

// FakeClock is a manually advanced clock for tests. Ticks are
// delivered synchronously from Advance.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

// NewFakeClock creates a fake clock starting at the given instant.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (fc *FakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.now
}

func (fc *FakeClock) NewTicker(d time.Duration) Ticker {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	ft := &fakeTicker{
		ch:       make(chan time.Time, 1),
		interval: d,
		next:     fc.now.Add(d),
	}
	fc.tickers = append(fc.tickers, ft)
	return ft
}

// Advance moves the clock forward, firing any tickers whose deadline
// passed. Each ticker fires at most once per Advance call, matching
// time.Ticker's coalescing of missed ticks.
func (fc *FakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	fc.now = fc.now.Add(d)
	now := fc.now
	tickers := make([]*fakeTicker, len(fc.tickers))
	copy(tickers, fc.tickers)
	fc.mu.Unlock()

	for _, ft := range tickers {
		ft.maybeFire(now)
	}
}

type fakeTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

func (ft *fakeTicker) C() <-chan time.Time { return ft.ch }

func (ft *fakeTicker) Stop() {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.stopped = true
}

func (ft *fakeTicker) maybeFire(now time.Time) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if ft.stopped || now.Before(ft.next) {
		return
	}
	for !now.Before(ft.next) {
		ft.next = ft.next.Add(ft.interval)
	}
	select {
	case ft.ch <- now:
	default:
	}
}
