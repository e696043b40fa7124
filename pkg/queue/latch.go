package queue

import "sync"

// Latch pauses cold-path processing while generation is in flight, keeping
// worker CPU and backend traffic away from the latency-sensitive LLM call.
// Pause and Resume are cheap enough to bracket every turn.
type Latch struct {
	mu     sync.Mutex
	paused bool
}

// Pause marks the latch held. Idempotent.
func (l *Latch) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = true
}

// Resume releases the latch. Idempotent.
func (l *Latch) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = false
}

// IsPaused reports whether workers should hold off processing.
func (l *Latch) IsPaused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}
