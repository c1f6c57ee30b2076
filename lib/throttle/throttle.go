package throttle

import (
	"sync"
	"time"
)

// Gate admits at most one invocation per interval for each key. Calls landing
// inside a closed window are dropped, never queued, so under sustained rapid
// calls only the payload present when a window opens goes through.
//
// State is keyed so that concurrent sessions do not contend for the same
// window.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

func NewGate(interval time.Duration) *Gate {
	return &Gate{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// Do invokes fn if the window for key is open and reports whether it ran.
// A skipped call is not an error; the returned error is fn's own.
func (g *Gate) Do(key string, fn func() error) (bool, error) {
	g.mu.Lock()
	now := g.now()
	if last, ok := g.last[key]; ok && now.Sub(last) < g.interval {
		g.mu.Unlock()
		return false, nil
	}
	g.last[key] = now
	g.mu.Unlock()
	return true, fn()
}
