package flasher

import "sync"

// Guard is a single-flight gate for hosts that must reject concurrent
// flash calls across their own callers. The core itself never takes it;
// exclusive port ownership is already enforced by the OS open.
type Guard struct {
	mu   sync.Mutex
	busy bool
}

// TryAcquire claims the guard, reporting false if a flash is already
// running.
func (g *Guard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

// Release frees the guard.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy = false
}
