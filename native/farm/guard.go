package farm

import "sync"

// Guard rejects re-entry into a region that hands control to external code.
type Guard struct {
	mu     sync.Mutex
	locked bool
}

// Enter claims the guard or fails with ErrReentrant.
func (g *Guard) Enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		return ErrReentrant
	}
	g.locked = true
	return nil
}

// Exit releases the guard.
func (g *Guard) Exit() {
	g.mu.Lock()
	g.locked = false
	g.mu.Unlock()
}

// Locked reports whether a guarded call is in flight.
func (g *Guard) Locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}
