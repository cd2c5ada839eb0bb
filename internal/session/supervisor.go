// Package session runs searches off the caller's goroutine and implements
// the interactive protocol around them: long-running notification,
// cooperative cancellation and recalculation with accumulated exclusions.
package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/stockmatch/internal/engine"
	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// Default search settings.
const (
	DefaultMaxItems         = 10
	DefaultLongRunningAfter = 10 * time.Second
	DefaultMaxCells         = 16_000_000
)

// DefaultTolerance is the default allowed deviation from the target price.
var DefaultTolerance = decimal.RequireFromString("0.40")

// Config holds the search settings shared by every session.
type Config struct {
	Tolerance        decimal.Decimal
	MaxItems         int
	LongRunningAfter time.Duration
	Admissibility    engine.Admissibility
	GreedyFirst      bool
	MaxCells         int64
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Tolerance:        DefaultTolerance,
		MaxItems:         DefaultMaxItems,
		LongRunningAfter: DefaultLongRunningAfter,
		Admissibility:    engine.AdmitByPrice,
		MaxCells:         DefaultMaxCells,
	}
}

// Supervisor creates sessions and keeps track of them for shutdown.
type Supervisor struct {
	cfg    Config
	logger *zap.Logger

	// newRand seeds the greedy pass; nil uses the global source.
	newRand func() *rand.Rand

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(cfg Config, logger *zap.Logger) *Supervisor {
	if cfg.LongRunningAfter <= 0 {
		cfg.LongRunningAfter = DefaultLongRunningAfter
	}
	if cfg.Admissibility == "" {
		cfg.Admissibility = engine.AdmitByPrice
	}
	return &Supervisor{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Config returns the supervisor settings.
func (s *Supervisor) Config() Config {
	return s.cfg
}

// NewSession opens an idle session.
func (s *Supervisor) NewSession() *Session {
	id := uuid.New().String()
	sess := &Session{
		id:     id,
		sup:    s,
		logger: s.logger.With(zap.String("session_id", id)),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		state:  StateIdle,

		superseded: make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	sessionsActive.Inc()
	sess.logger.Debug("search session opened")
	return sess
}

// Session looks up an open session.
func (s *Supervisor) Session(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Len returns the number of open sessions.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown closes every open session.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	open := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	for _, sess := range open {
		sess.Close()
	}
	s.logger.Info("search sessions closed", zap.Int("count", len(open)))
}

func (s *Supervisor) remove(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sessionsActive.Dec()
		s.logger.Debug("search session closed", zap.String("session_id", id))
	}
}

func (s *Supervisor) rng() *rand.Rand {
	if s.newRand == nil {
		return nil
	}
	return s.newRand()
}

// WithDefaults fills the tolerance and cap from the supervisor settings
// when the request leaves them unset.
func (s *Supervisor) WithDefaults(req model.SearchRequest, toleranceSet bool) model.SearchRequest {
	if !toleranceSet {
		req.Tolerance = s.cfg.Tolerance
	}
	if req.MaxItems == 0 {
		req.MaxItems = s.cfg.MaxItems
	}
	return req
}

// Search runs one round in a private session and waits for its outcome.
// When ctx ends first the round is cancelled and the context error is
// returned wrapped in engine.ErrCancelled.
func (s *Supervisor) Search(
	ctx context.Context,
	catalog []model.Item,
	req model.SearchRequest,
) (model.SearchResult, error) {
	sess := s.NewSession()
	defer sess.Close()

	if err := sess.Start(catalog, req); err != nil {
		return model.SearchResult{}, err
	}

	for {
		select {
		case <-ctx.Done():
			sess.Cancel()
			return model.SearchResult{}, fmt.Errorf("%w: %w", engine.ErrCancelled, ctx.Err())
		case ev := <-sess.Events():
			switch ev.Type {
			case EventCompleted:
				return *ev.Result, nil
			case EventCancelled, EventFailed:
				return model.SearchResult{}, ev.Err
			}
		}
	}
}
