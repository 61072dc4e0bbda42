// Package session keeps one model conversation per user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/llm"
)

var (
	// ErrConfigMismatch is returned under PolicyReject when the instruction
	// differs from the session's.
	ErrConfigMismatch = errors.New("session configuration mismatch")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session store closed")
)

// Defaults applied by NewStore to zero options.
const (
	DefaultTTL             = 24 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
	DefaultMaxSessions     = 1000
)

// Options configures a Store.
type Options struct {
	// Model is the model name passed to every conversation.
	Model string
	// TTL is the idle time after which a session expires.
	TTL time.Duration
	// CleanupInterval is how often expired sessions are dropped. Negative
	// disables the janitor goroutine.
	CleanupInterval time.Duration
	// MaxSessions bounds the number of live sessions. Negative means unbounded.
	MaxSessions int
	Policy      Policy
}

// Session is one user's conversation.
type Session struct {
	UserID    string
	CreatedAt time.Time

	mu        sync.Mutex
	conv      llm.Conversation
	config    Config
	refreshes int

	lastUsed atomic.Int64
}

func newSession(userID string, cfg Config, conv llm.Conversation, now time.Time) *Session {
	s := &Session{UserID: userID, CreatedAt: now, conv: conv, config: cfg}
	s.lastUsed.Store(now.UnixNano())
	return s
}

// Config returns the configuration currently in effect.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// History returns the conversation turns so far.
func (s *Session) History() []llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.History()
}

// Refreshes counts how often the conversation was restarted with a new instruction.
func (s *Session) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// LastUsed is the time of the last successful message.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Store maps user ids to sessions. It is safe for concurrent use; Close must
// be called to stop the cleanup goroutine.
type Store struct {
	model llm.Model
	opts  Options
	log   zerolog.Logger

	items    *cache.Cache
	group    singleflight.Group
	commitMu sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewStore creates a store and starts its cleanup goroutine.
func NewStore(model llm.Model, opts Options, log zerolog.Logger) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.MaxSessions == 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.Policy == "" {
		opts.Policy = PolicyRefresh
	}
	if opts.Model == "" {
		opts.Model = llm.DefaultModelName
	}

	s := &Store{
		model: model,
		opts:  opts,
		log:   log,
		// go-cache's own janitor cannot be stopped, so expiry is driven here.
		items: cache.New(opts.TTL, 0),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	s.items.OnEvicted(func(userID string, _ interface{}) {
		s.log.Debug().Str("user_id", userID).Msg("Chat session evicted")
	})

	if opts.CleanupInterval > 0 {
		go s.janitor(opts.CleanupInterval)
	} else {
		close(s.done)
	}
	return s
}

func (s *Store) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.items.DeleteExpired()
		case <-s.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine and drops every session.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		<-s.done
		s.items.Flush()
	})
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return len(s.items.Items())
}

// Evict drops the user's session. The next message starts a new one.
func (s *Store) Evict(userID string) {
	s.items.Delete(userID)
}

// GetOrCreate returns the user's session, creating it with the given system
// instruction if needed. Concurrent first calls for one user share a single
// creation.
func (s *Store) GetOrCreate(ctx context.Context, userID, systemInstruction string) (*Session, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if v, ok := s.items.Get(userID); ok {
		return v.(*Session), nil
	}

	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		if v, ok := s.items.Get(userID); ok {
			return v, nil
		}
		cfg := NewConfig(s.opts.Model, systemInstruction)
		conv, err := s.model.StartConversation(ctx, cfg.conversation(), nil)
		if err != nil {
			return nil, &domain.UpstreamError{Op: "create chat session", Err: err}
		}
		return s.commit(newSession(userID, cfg, conv, time.Now())), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// commit inserts sess unless another session for the user is already stored,
// in which case that one wins.
func (s *Store) commit(sess *Session) *Session {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if v, ok := s.items.Get(sess.UserID); ok {
		return v.(*Session)
	}
	if s.opts.MaxSessions > 0 && s.items.ItemCount() >= s.opts.MaxSessions {
		s.items.DeleteExpired()
		for s.items.ItemCount() >= s.opts.MaxSessions {
			if !s.evictLeastRecent() {
				break
			}
		}
	}
	if err := s.items.Add(sess.UserID, sess, s.opts.TTL); err != nil {
		s.items.Set(sess.UserID, sess, s.opts.TTL)
	}

	s.log.Info().
		Str("user_id", sess.UserID).
		Str("config_version", sess.config.Version).
		Msg("New chat session created")
	return sess
}

func (s *Store) evictLeastRecent() bool {
	var (
		oldestID string
		oldest   int64
	)
	for id, item := range s.items.Items() {
		sess := item.Object.(*Session)
		if used := sess.lastUsed.Load(); oldestID == "" || used < oldest {
			oldestID, oldest = id, used
		}
	}
	if oldestID == "" {
		return false
	}
	s.log.Info().Str("user_id", oldestID).Int("max_sessions", s.opts.MaxSessions).Msg("Session capacity reached, evicting least recently used")
	s.items.Delete(oldestID)
	return true
}

// Process sends one message through the user's session and returns the raw
// model reply. Messages for one user are processed one at a time.
func (s *Store) Process(ctx context.Context, userID, systemInstruction, message string) (string, error) {
	sess, err := s.GetOrCreate(ctx, userID, systemInstruction)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if want := NewConfig(s.opts.Model, systemInstruction); want.Version != sess.config.Version {
		if err := s.reconcile(ctx, sess, want); err != nil {
			return "", err
		}
	}

	reply, err := sess.conv.Send(ctx, message)
	if err != nil {
		return "", &domain.UpstreamError{Op: "send message", Err: err}
	}

	sess.lastUsed.Store(time.Now().UnixNano())
	// Slide the expiry. Fails harmlessly if the session was evicted meanwhile.
	_ = s.items.Replace(userID, sess, s.opts.TTL)
	return reply, nil
}

// reconcile applies the store policy to a configuration mismatch. sess.mu is held.
func (s *Store) reconcile(ctx context.Context, sess *Session, want Config) error {
	switch s.opts.Policy {
	case PolicyReject:
		return fmt.Errorf("%w: session %s has version %s, message has %s",
			ErrConfigMismatch, sess.UserID, sess.config.Version, want.Version)
	case PolicyPin:
		s.log.Warn().
			Str("user_id", sess.UserID).
			Str("session_version", sess.config.Version).
			Str("request_version", want.Version).
			Msg("System instruction changed; keeping the session's original instruction")
		return nil
	}

	conv, err := s.model.StartConversation(ctx, want.conversation(), sess.conv.History())
	if err != nil {
		return &domain.UpstreamError{Op: "refresh chat session", Err: err}
	}
	s.log.Debug().
		Str("user_id", sess.UserID).
		Str("from_version", sess.config.Version).
		Str("to_version", want.Version).
		Msg("Chat session refreshed")
	sess.conv = conv
	sess.config = want
	sess.refreshes++
	return nil
}
