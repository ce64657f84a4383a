package ws

import (
	"context"
	"log"
	"sync"

	"github.com/darkden-lab/portalhost/internal/metrics"
)

// Hub tracks the open sessions. It is safe for concurrent use.
type Hub struct {
	sessions map[string]*Session
	ops      chan hubOp
	done     chan struct{}
	mu       sync.RWMutex
	metrics  *metrics.Collector
}

// hubOp is a registration change. Both directions share one channel so a
// session's unregister is never applied before its register.
type hubOp struct {
	session *Session
	add     bool
}

// NewHub allocates a Hub. Call Run in a goroutine to start the event loop.
func NewHub(m *metrics.Collector) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		ops:      make(chan hubOp, 32),
		done:     make(chan struct{}),
		metrics:  m,
	}
}

// Run is the hub's event loop. On ctx cancellation every session socket is
// closed, which ends the sessions through their normal teardown.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case op := <-h.ops:
			if !op.add {
				h.remove(op.session)
				continue
			}
			s := op.session
			h.mu.Lock()
			h.sessions[s.ID] = s
			h.mu.Unlock()
			h.metrics.SessionOpened()
			log.Printf("ws: session %s registered (user=%s)", s.ID, s.UserEntityRef)

		case <-ctx.Done():
			h.mu.Lock()
			for _, s := range h.sessions {
				s.conn.Close()
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.ID]
	delete(h.sessions, s.ID)
	h.mu.Unlock()
	s.closeSend()
	if ok {
		h.metrics.SessionClosed()
		log.Printf("ws: session %s unregistered", s.ID)
	}
}

// Register enqueues a new session for addition to the hub.
func (h *Hub) Register(s *Session) {
	select {
	case h.ops <- hubOp{session: s, add: true}:
	case <-h.done:
		s.conn.Close()
	}
}

// Unregister removes a session. After Run has returned the session is
// removed directly.
func (h *Hub) Unregister(s *Session) {
	select {
	case h.ops <- hubOp{session: s}:
	case <-h.done:
		h.remove(s)
	}
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// UserSessions returns the open sessions of one user.
func (h *Hub) UserSessions(userRef string) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*Session
	for _, s := range h.sessions {
		if s.UserEntityRef == userRef {
			out = append(out, s)
		}
	}
	return out
}
