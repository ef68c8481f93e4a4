package session

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"samayan-ad-pro/internal/ad"
)

var ErrEmptyName = errors.New("name is empty")

const MessageNameRequired = "Please enter your name to continue."

type UserState struct {
	Name        string `json:"name"`
	IsOnboarded bool   `json:"isOnboarded"`
}

// Session is one user's workspace: identity, preferences and their orchestrator.
type Session struct {
	ID           string
	Orchestrator *ad.Orchestrator

	mu           sync.Mutex
	user         UserState
	aspectRatio  ad.AspectRatio
	awaitingName bool
}

func (s *Session) User() UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Onboard records the user's name. It only ever moves a session from
// not onboarded to onboarded; later calls keep the first name.
func (s *Session) Onboard(name string) (UserState, error) {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user.IsOnboarded {
		return s.user, nil
	}
	if name == "" {
		return s.user, ErrEmptyName
	}
	s.user = UserState{Name: name, IsOnboarded: true}
	s.awaitingName = false
	return s.user, nil
}

func (s *Session) AspectRatio() ad.AspectRatio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aspectRatio
}

func (s *Session) SetAspectRatio(ratio ad.AspectRatio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aspectRatio = ratio
}

func (s *Session) AwaitingName() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitingName
}

func (s *Session) SetAwaitingName(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awaitingName = v && !s.user.IsOnboarded
}

type Options struct {
	TTL     time.Duration
	Service ad.Service
	Logger  *slog.Logger
}

// Store keeps sessions in memory and drops them after TTL of inactivity.
type Store struct {
	mu      sync.Mutex
	items   *cache.Cache
	service ad.Service
	logger  *slog.Logger
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		items:   cache.New(ttl, ttl/2),
		service: opts.Service,
		logger:  logger,
	}
}

func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*Session)
	s.items.Set(id, sess, cache.DefaultExpiration)
	return sess, true
}

func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.items.Get(id); ok {
		sess := v.(*Session)
		s.items.Set(id, sess, cache.DefaultExpiration)
		return sess
	}

	sess := &Session{
		ID: id,
		Orchestrator: ad.NewOrchestrator(ad.OrchestratorOptions{
			Service: s.service,
			Logger:  s.logger,
		}),
		aspectRatio: ad.AspectSquare,
	}
	s.items.Set(id, sess, cache.DefaultExpiration)
	return sess
}

func (s *Store) Len() int {
	return s.items.ItemCount()
}
