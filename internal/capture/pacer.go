package capture

import "time"

// FramePacer drives the per-frame loop cadence. Implementations deliver
// ticks on C; Stop halts delivery and releases the underlying timer.
type FramePacer interface {
	C() <-chan time.Time
	Stop()
}

// TickerPacer paces the loop with a wall-clock ticker
type TickerPacer struct {
	ticker *time.Ticker
}

func NewTickerPacer(interval time.Duration) *TickerPacer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &TickerPacer{ticker: time.NewTicker(interval)}
}

func (p *TickerPacer) C() <-chan time.Time {
	return p.ticker.C
}

func (p *TickerPacer) Stop() {
	p.ticker.Stop()
}
