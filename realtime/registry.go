package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maintains the user → live session association. It is the single
// authority for "is this user reachable right now".
//
// Registration is last-write-wins: a reconnect overwrites the previous
// association without closing the displaced connection — connection
// lifetimes belong to the transport layer. If the transport never fires a
// disconnect for the displaced connection it lingers as a ghost until its
// read deadline trips; there is no liveness sweep here.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	logger   *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		logger:   logger,
	}
}

// Register associates s.UserID with s, displacing any prior association.
func (r *Registry) Register(s *Session) {
	if s == nil || s.UserID <= 0 {
		r.logger.Warn("register rejected: invalid session")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.UserID]; ok {
		r.logger.Info("session displaced by reconnect",
			zap.Int64("user_id", s.UserID))
	}
	r.sessions[s.UserID] = s
	r.logger.Info("session registered",
		zap.Int64("user_id", s.UserID),
		zap.String("username", s.Username))
}

// Deregister removes the association for userID. Removing an absent entry
// is a no-op; disconnect races are tolerated silently.
func (r *Registry) Deregister(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	r.logger.Info("session deregistered", zap.Int64("user_id", userID))
}

// DeregisterSession removes the association only if s is still the mapped
// session. Reports whether an entry was removed. A displaced connection's
// late disconnect must not evict the newer registration.
func (r *Registry) DeregisterSession(s *Session) bool {
	if s == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.UserID]; ok && cur == s {
		delete(r.sessions, s.UserID)
		r.logger.Info("session deregistered", zap.Int64("user_id", s.UserID))
		return true
	}
	return false
}

// Lookup returns the live session for userID, or nil. Nil is the normal
// offline outcome, never an error.
func (r *Registry) Lookup(userID int64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID]
}

// IsOnline reports whether a user currently has a registered session.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Online returns a snapshot of all registered user ids.
func (r *Registry) Online() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

// BroadcastExcept delivers e to every registered session except selfID.
// Delivery per session is non-blocking; slow clients miss the event rather
// than stall the broadcast.
func (r *Registry) BroadcastExcept(selfID int64, e *Event) {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		if id == selfID {
			continue
		}
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	pkt := e.packet()
	for _, s := range targets {
		s.Send(pkt)
	}
}
