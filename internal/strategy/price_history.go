package strategy

import (
	"math"
	"sync"
	"time"
)

// PricePoint records a single price observation at a point in time.
type PricePoint struct {
	Price float64
	Time  time.Time
}

// PriceHistory maintains a sliding window of recent prices per token and
// exposes the statistical helpers the strategy families rely on.
type PriceHistory struct {
	mu      sync.RWMutex
	history map[string][]PricePoint
	window  time.Duration
}

// NewPriceHistory creates a PriceHistory with the given sliding window.
// Points older than the window are discarded on every Track call.
func NewPriceHistory(window time.Duration) *PriceHistory {
	return &PriceHistory{
		history: make(map[string][]PricePoint),
		window:  window,
	}
}

// Track records a new price observation for the given token.
func (h *PriceHistory) Track(token string, price float64, ts time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history[token] = append(h.history[token], PricePoint{Price: price, Time: ts})
	h.trim(token, ts)
}

// Average returns the arithmetic mean of all prices in the window, or 0 when
// no points are recorded.
func (h *PriceHistory) Average(token string) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	pts := h.history[token]
	if len(pts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pts {
		sum += p.Price
	}
	return sum / float64(len(pts))
}

// Volatility returns the population standard deviation of the prices in the
// window, or 0 with fewer than two points.
func (h *PriceHistory) Volatility(token string) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	pts := h.history[token]
	if len(pts) < 2 {
		return 0
	}

	var sum float64
	for _, p := range pts {
		sum += p.Price
	}
	mean := sum / float64(len(pts))

	var variance float64
	for _, p := range pts {
		d := p.Price - mean
		variance += d * d
	}
	variance /= float64(len(pts))
	return math.Sqrt(variance)
}

// Count returns the number of points currently in the window for token.
func (h *PriceHistory) Count(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.history[token])
}

// trim removes points older than the window relative to now. Caller holds h.mu.
func (h *PriceHistory) trim(token string, now time.Time) {
	cutoff := now.Add(-h.window)
	pts := h.history[token]

	i := 0
	for i < len(pts) && pts[i].Time.Before(cutoff) {
		i++
	}
	if i > 0 {
		h.history[token] = pts[i:]
	}
}
