// Package hft implements the high-frequency strategy engine: a ring-buffered
// price history per asset, round/market discovery, a set of pure strategy
// evaluators, a position manager with priority-ordered exit rules, and the
// maker/taker/fok execution escalation protocol that fills their signals.
package hft

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/cloddsbot/core/internal/domain"
)

const (
	defaultBufferCap   = 2000
	defaultMaxAgeSec   = 180
)

// tick is one (price, timestamp) sample held by a PriceBuffer.
type tick struct {
	price float64
	at    time.Time
}

// PriceBuffer is a time-pruned ring of recent price samples for one asset,
// held oldest-first internally and exposed oldest-first via window queries.
type PriceBuffer struct {
	mu       sync.Mutex
	cap      int
	maxAge   time.Duration
	samples  []tick // ordered oldest -> newest
}

// NewPriceBuffer constructs a PriceBuffer bounded at 2000 samples and 180s
// of age.
func NewPriceBuffer() *PriceBuffer {
	return &PriceBuffer{cap: defaultBufferCap, maxAge: defaultMaxAgeSec * time.Second}
}

// Push appends a new sample and prunes anything beyond the cap or maxAge.
func (b *PriceBuffer) Push(price float64, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, tick{price: price, at: at})
	b.prune(at)
}

func (b *PriceBuffer) prune(now time.Time) {
	cutoff := now.Add(-b.maxAge)
	i := 0
	for i < len(b.samples) && b.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.samples = b.samples[i:]
	}
	if over := len(b.samples) - b.cap; over > 0 {
		b.samples = b.samples[over:]
	}
}

// window returns samples within the last w seconds of the buffer's newest
// sample, oldest-first. Must be called with b.mu held.
func (b *PriceBuffer) window(w time.Duration) []tick {
	if len(b.samples) == 0 {
		return nil
	}
	newest := b.samples[len(b.samples)-1].at
	cutoff := newest.Add(-w)
	start := 0
	for start < len(b.samples) && b.samples[start].at.Before(cutoff) {
		start++
	}
	return b.samples[start:]
}

// Range returns max-min over the last w seconds.
func (b *PriceBuffer) Range(w time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	win := b.window(w)
	if len(win) == 0 {
		return 0
	}
	min, max := win[0].price, win[0].price
	for _, t := range win {
		if t.price < min {
			min = t.price
		}
		if t.price > max {
			max = t.price
		}
	}
	return max - min
}

// Mean returns the arithmetic mean over the last w seconds.
func (b *PriceBuffer) Mean(w time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	win := b.window(w)
	if len(win) == 0 {
		return 0
	}
	prices := make([]float64, len(win))
	for i, t := range win {
		prices[i] = t.price
	}
	return stat.Mean(prices, nil)
}

// MovePct returns (newest - oldest) / oldest * 100 over the last w seconds.
func (b *PriceBuffer) MovePct(w time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	win := b.window(w)
	if len(win) == 0 || win[0].price == 0 {
		return 0
	}
	oldest := win[0].price
	newest := win[len(win)-1].price
	return (newest - oldest) / oldest * 100
}

// Reversals counts direction changes walking oldest->newest over steps of
// at least minStep within the last w seconds.
func (b *PriceBuffer) Reversals(w time.Duration, minStep float64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	win := b.window(w)
	if len(win) < 3 {
		return 0
	}

	var count int
	var lastDir int // -1, 0, 1
	lastPrice := win[0].price
	for _, t := range win[1:] {
		step := t.price - lastPrice
		if step < minStep && step > -minStep {
			continue
		}
		dir := 1
		if step < 0 {
			dir = -1
		}
		if lastDir != 0 && dir != lastDir {
			count++
		}
		lastDir = dir
		lastPrice = t.price
	}
	return count
}

// Latest returns the newest sample's price and age relative to now, and
// whether any sample exists.
func (b *PriceBuffer) Latest(now time.Time) (price float64, age time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.samples) == 0 {
		return 0, 0, false
	}
	last := b.samples[len(b.samples)-1]
	return last.price, now.Sub(last.at), true
}

// Buffers owns one PriceBuffer per asset, created lazily on first push.
type Buffers struct {
	mu   sync.Mutex
	byAsset map[string]*PriceBuffer
}

// NewBuffers constructs an empty asset-keyed buffer set.
func NewBuffers() *Buffers {
	return &Buffers{byAsset: make(map[string]*PriceBuffer)}
}

// Push routes a price sample to its asset's buffer, creating one if needed.
func (b *Buffers) Push(asset string, price float64, at time.Time) {
	b.mu.Lock()
	buf, ok := b.byAsset[asset]
	if !ok {
		buf = NewPriceBuffer()
		b.byAsset[asset] = buf
	}
	b.mu.Unlock()
	buf.Push(price, at)
}

// Get returns the buffer for asset, creating one if it does not yet exist.
func (b *Buffers) Get(asset string) *PriceBuffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.byAsset[asset]
	if !ok {
		buf = NewPriceBuffer()
		b.byAsset[asset] = buf
	}
	return buf
}

// Snapshot returns every sample currently held across all asset buffers, for
// periodic archival before the in-memory ring prunes them by age or cap.
func (b *Buffers) Snapshot() []domain.PriceSample {
	b.mu.Lock()
	assets := make([]string, 0, len(b.byAsset))
	bufs := make([]*PriceBuffer, 0, len(b.byAsset))
	for asset, buf := range b.byAsset {
		assets = append(assets, asset)
		bufs = append(bufs, buf)
	}
	b.mu.Unlock()

	var out []domain.PriceSample
	for i, buf := range bufs {
		buf.mu.Lock()
		for _, t := range buf.samples {
			out = append(out, domain.PriceSample{Asset: assets[i], Price: t.price, At: t.at})
		}
		buf.mu.Unlock()
	}
	return out
}
