package quote

import "sync"

// inflight tracks sessions with a running confirmation.
type inflight struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{running: make(map[string]struct{})}
}

// tryAcquire marks the session busy. It returns false if it already was.
func (g *inflight) tryAcquire(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[sessionID]; busy {
		return false
	}
	g.running[sessionID] = struct{}{}
	return true
}

func (g *inflight) release(sessionID string) {
	g.mu.Lock()
	delete(g.running, sessionID)
	g.mu.Unlock()
}
