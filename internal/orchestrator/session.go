package orchestrator

import (
	"context"
	"sync"
	"time"
)

// Session is the signed-in user as seen by the client.
type Session struct {
	UserID      string
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the session is past its expiry. A zero expiry
// never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionProvider is the auth collaborator. Subscribe returns the function
// that releases the listener.
type SessionProvider interface {
	Current() (Session, bool)
	Subscribe(fn func(*Session)) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// MemorySessions keeps one session in memory.
type MemorySessions struct {
	mu        sync.Mutex
	session   *Session
	listeners map[int]func(*Session)
	next      int
	now       func() time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{listeners: make(map[int]func(*Session)), now: time.Now}
}

func (m *MemorySessions) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.Expired(m.now()) {
		return Session{}, false
	}
	return *m.session, true
}

// SignIn replaces the current session and notifies listeners.
func (m *MemorySessions) SignIn(s Session) {
	m.mu.Lock()
	m.session = &s
	listeners := m.snapshot()
	m.mu.Unlock()
	for _, fn := range listeners {
		copied := s
		fn(&copied)
	}
}

func (m *MemorySessions) SignOut(context.Context) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil
	}
	m.session = nil
	listeners := m.snapshot()
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(nil)
	}
	return nil
}

func (m *MemorySessions) Subscribe(fn func(*Session)) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *MemorySessions) snapshot() []func(*Session) {
	out := make([]func(*Session), 0, len(m.listeners))
	for _, fn := range m.listeners {
		out = append(out, fn)
	}
	return out
}
