package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer inserts a uniformly random pause in [0, max) before each request.
type Pacer struct {
	max time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPacer creates a Pacer. A non-positive max disables pausing.
func NewPacer(max time.Duration) *Pacer {
	return &Pacer{max: max, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Next returns the next pause length without sleeping.
func (p *Pacer) Next() time.Duration {
	if p.max <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.rnd.Int63n(int64(p.max)))
}

// Wait sleeps for the next pause, returning early with ctx.Err() on cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	return Sleep(ctx, p.Next())
}
