package maint

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ticker periodically runs the assignment generator so new works and sectors
// pick up their assignments without operator action.
type Ticker struct {
	generator       *Generator
	interval        time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	logger          *zap.SugaredLogger
	mu              sync.Mutex
	lastTickAt      time.Time
	ticksSinceStart int64
	lastCreated     int
}

// TickerConfig contains configuration for the generator ticker
type TickerConfig struct {
	Interval time.Duration // How often to run the generator (default: 1 hour)
}

// DefaultTickerConfig returns sensible defaults
func DefaultTickerConfig() TickerConfig {
	return TickerConfig{
		Interval: 1 * time.Hour,
	}
}

// NewTicker creates a new generator ticker
func NewTicker(generator *Generator, cfg TickerConfig, log *zap.SugaredLogger) *Ticker {
	return NewTickerWithContext(context.Background(), generator, cfg, log)
}

// NewTickerWithContext creates a ticker with a parent context
func NewTickerWithContext(ctx context.Context, generator *Generator, cfg TickerConfig, log *zap.SugaredLogger) *Ticker {
	tickerCtx, cancel := context.WithCancel(ctx)

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultTickerConfig().Interval
	}

	return &Ticker{
		generator: generator,
		interval:  interval,
		ctx:       tickerCtx,
		cancel:    cancel,
		logger:    log,
	}
}

// Start begins the ticker loop. The generator runs once immediately so a
// fresh database is populated before the first interval elapses.
func (t *Ticker) Start() {
	t.wg.Add(1)
	go t.run()
	t.logger.Infow("Generator ticker started", "interval", t.interval)
}

// Stop gracefully stops the ticker
func (t *Ticker) Stop() {
	t.cancel()
	t.wg.Wait()
	t.logger.Infow("Generator ticker stopped")
}

// run is the main ticker loop
func (t *Ticker) run() {
	defer t.wg.Done()

	t.tick(time.Now())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case tickTime := <-ticker.C:
			t.tick(tickTime)
		}
	}
}

func (t *Ticker) tick(now time.Time) {
	t.mu.Lock()
	t.lastTickAt = now
	t.ticksSinceStart++
	t.mu.Unlock()

	created, err := t.generator.GenerateAssignments(t.ctx, now)
	if err != nil {
		if t.ctx.Err() != nil {
			return
		}
		t.logger.Warnw("Generator tick error", "error", err, "tick", t.ticksSinceStart)
		return
	}

	t.mu.Lock()
	t.lastCreated = created
	t.mu.Unlock()
}

// GetStats returns ticker statistics
func (t *Ticker) GetStats() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	return map[string]interface{}{
		"last_tick_at":      t.lastTickAt,
		"ticks_since_start": t.ticksSinceStart,
		"interval":          t.interval,
		"last_created":      t.lastCreated,
	}
}
