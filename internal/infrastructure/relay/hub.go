package relay

import (
	"sync"

	"castrelay/internal/infrastructure/metrics"
)

// Hub tracks live authenticated sessions by connection id. It owns Session
// records for lookup purposes only; lifecycle is driven by each connection's
// read pump.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s.ConnectionID()] = s
	h.mu.Unlock()

	metrics.ConnectionsActive.Inc()
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, present := h.sessions[s.ConnectionID()]
	delete(h.sessions, s.ConnectionID())
	h.mu.Unlock()

	if present {
		metrics.ConnectionsActive.Dec()
	}
}

// Deliver pushes a frame to one connection. A recipient that has already
// disconnected is silently skipped; delivery is best-effort by contract.
func (h *Hub) Deliver(connectionID string, frame []byte) bool {
	h.mu.RLock()
	s, ok := h.sessions[connectionID]
	h.mu.RUnlock()

	if !ok {
		return false
	}
	return s.deliver(frame)
}

// SessionCount reports live authenticated sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
