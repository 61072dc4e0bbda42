package store

import "sync"

// Subscriptions releases a group of watches together.
type Subscriptions struct {
	mu     sync.Mutex
	subs   []Unsubscribe
	closed bool
}

// Add registers a watch. Adding to a closed group releases it immediately.
func (s *Subscriptions) Add(u Unsubscribe) {
	if u == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		u()
		return
	}
	s.subs = append(s.subs, u)
	s.mu.Unlock()
}

// Close releases every registered watch exactly once, newest first.
func (s *Subscriptions) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.closed = true
	s.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i]()
	}
}

// Once wraps fn so only its first call has an effect.
func Once(fn func()) Unsubscribe {
	var once sync.Once
	return func() { once.Do(fn) }
}
