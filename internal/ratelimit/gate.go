// Package ratelimit spaces out API call starts across workers.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between the starts of successive
// remote calls, shared by every worker in a batch. Only call starts
// are spaced; calls themselves may overlap freely.
type Gate struct {
	limiter *rate.Limiter

	mu        sync.Mutex
	lastStart time.Time
	starts    int
}

// New returns a Gate with the given minimum inter-call interval.
// A non-positive interval disables waiting.
func New(interval time.Duration) *Gate {
	lim := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		lim = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &Gate{limiter: lim}
}

// Wait blocks until the interval since the previous call start has
// elapsed, then records the new start. Returns early with the
// context's error if it is canceled while waiting.
func (g *Gate) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	g.lastStart = time.Now()
	g.starts++
	g.mu.Unlock()
	return nil
}

// LastStart returns the time of the most recent recorded call start.
func (g *Gate) LastStart() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastStart
}

// Starts returns how many call starts the gate has admitted.
func (g *Gate) Starts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.starts
}
