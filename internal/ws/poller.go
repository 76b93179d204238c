package ws

import (
	"context"
	"time"

	"swapdeck/internal/scheduler"
)

// PollerConfig sets the hub's poll cadences.
type PollerConfig struct {
	PriceInterval     time.Duration
	GasInterval       time.Duration
	HeartbeatInterval time.Duration
}

// DefaultPollerConfig matches the documented cadences: prices every
// 10s, gas every 15s, heartbeat sweep every 30s.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		PriceInterval:     10 * time.Second,
		GasInterval:       15 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// NewPoller builds a scheduler driving the hub's three periodic
// loops. Each tick gets its own timeout context so one slow upstream
// fetch suspends only its own loop.
func NewPoller(hub *Hub, clock scheduler.Clock, cfg PollerConfig) *scheduler.Scheduler {
	s := scheduler.New(clock)

	s.Every(cfg.PriceInterval, "price_poll", func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.PriceInterval)
		defer cancel()
		hub.PollPrices(ctx)
	})

	s.Every(cfg.GasInterval, "gas_poll", func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.GasInterval)
		defer cancel()
		hub.PollGas(ctx)
	})

	s.Every(cfg.HeartbeatInterval, "heartbeat_sweep", func() {
		hub.SweepStale()
	})

	return s
}
