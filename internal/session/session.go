package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/stockmatch/internal/engine"
	"github.com/vyrodovalexey/stockmatch/internal/model"
)

// Session errors.
var (
	ErrClosed               = errors.New("session closed")
	ErrBusy                 = errors.New("a search is already running in this session")
	ErrNothingToRecalculate = errors.New("no delivered result to recalculate from")
)

// State is the lifecycle state of a session.
type State int

// Session states.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventType names a session event.
type EventType string

// Session events. Every round emits EventStarted, at most one
// EventLongRunning, then exactly one of the terminal events.
const (
	EventStarted     EventType = "started"
	EventLongRunning EventType = "long_running"
	EventCompleted   EventType = "completed"
	EventCancelled   EventType = "cancelled"
	EventFailed      EventType = "failed"
)

// Event is delivered on Session.Events.
type Event struct {
	Type      EventType
	SessionID string
	Round     int
	Result    *model.SearchResult
	Err       error
}

// Terminal reports whether the event ends a round.
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventCancelled || e.Type == EventFailed
}

const eventBuffer = 16

// run is one in-flight search round.
type run struct {
	gen    uint64
	round  int
	mode   model.Mode
	cancel context.CancelFunc
	once   sync.Once
}

func (r *run) stop() {
	r.once.Do(r.cancel)
}

// Session is one operator's search conversation: a fresh search followed by
// any number of recalculations that never offer the same item twice.
type Session struct {
	id     string
	sup    *Supervisor
	logger *zap.Logger
	events chan Event
	done   chan struct{}

	// emitMu serialises event delivery so rounds never interleave.
	emitMu sync.Mutex

	mu      sync.Mutex
	state   State
	closed  bool
	catalog []model.Item
	req     model.SearchRequest
	last    *model.SearchResult
	round   int
	gen     uint64
	// superseded is closed by abandonLocked, releasing emits that wait on
	// a full buffer for a round nobody wants any more.
	superseded chan struct{}
	inflight   *run
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Events returns the channel on which round events are delivered.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Round returns the number of the latest round, starting at 1.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// LastResult returns the result of the latest completed round.
func (s *Session) LastResult() (model.SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return model.SearchResult{}, false
	}
	return *s.last, true
}

// Exclusions returns the codes the next round will skip.
func (s *Session) Exclusions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req.Exclusions.Codes()
}

// Start begins a fresh search. Any round still in flight is cancelled and
// its result discarded, and the exclusion set restarts from req.Exclusions.
// Events of earlier rounds not yet received are dropped, so the next event
// on Events belongs to the new round. The catalog and request are copied;
// the caller may reuse them.
func (s *Session) Start(catalog []model.Item, req model.SearchRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", engine.ErrInvalidRequest, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.abandonLocked()
	s.last = nil
	s.mu.Unlock()

	// No old-round emit can still be sending once emitMu is held.
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.discardPending()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.abandonLocked()
	s.catalog = model.CloneItems(catalog)
	s.req = req.Snapshot()
	if s.req.Exclusions == nil {
		s.req.Exclusions = model.NewExclusionSet()
	}
	s.last = nil
	s.round = 0

	s.launchLocked()
	return nil
}

// Recalculate excludes every item of the last delivered result and searches
// again with the same target, tolerance and cap.
func (s *Session) Recalculate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.inflight != nil {
		return ErrBusy
	}
	if s.last == nil || !s.last.Found() {
		return ErrNothingToRecalculate
	}

	for _, code := range s.last.Codes() {
		s.req.Exclusions.Add(code)
	}
	s.last = nil

	s.launchLocked()
	return nil
}

// Cancel asks the in-flight round to stop. It reports false when nothing
// is running. The round still ends with exactly one terminal event.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight == nil {
		return false
	}
	s.inflight.stop()
	s.logger.Debug("search cancel requested", zap.Int("round", s.inflight.round))
	return true
}

// Close cancels any in-flight round and stops event delivery.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.abandonLocked()
	s.mu.Unlock()

	close(s.done)
	s.sup.remove(s.id)
}

// abandonLocked cancels the in-flight round and makes its reply stale.
func (s *Session) abandonLocked() {
	if s.inflight != nil {
		s.inflight.stop()
		s.inflight = nil
	}
	s.gen++
	close(s.superseded)
	s.superseded = make(chan struct{})
}

// discardPending empties the event buffer. Callers hold emitMu.
func (s *Session) discardPending() {
	for {
		select {
		case ev := <-s.events:
			s.logger.Debug("dropped event of a superseded round",
				zap.String("event", string(ev.Type)),
				zap.Int("round", ev.Round),
			)
		default:
			return
		}
	}
}

func (s *Session) launchLocked() {
	s.gen++
	s.round++
	s.state = StateRunning

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		gen:    s.gen,
		round:  s.round,
		mode:   s.req.Mode,
		cancel: cancel,
	}
	s.inflight = r

	s.logger.Info("search round started",
		zap.Int("round", r.round),
		zap.String("mode", string(r.mode)),
		zap.String("target", s.req.Target.String()),
		zap.String("tolerance", s.req.Tolerance.String()),
		zap.Int("max_items", s.req.MaxItems),
		zap.Int("excluded", len(s.req.Exclusions)),
	)

	if r.mode == model.ModeSingle {
		result := matchSingle(s.catalog, s.req, s.sup.cfg)
		replies := make(chan reply, 1)
		replies <- reply{result: result}
		go s.supervise(ctx, r, replies)
		return
	}

	requests := make(chan job, 1)
	replies := make(chan reply, 1)
	go work(ctx, requests, replies)
	requests <- job{
		catalog: model.CloneItems(s.catalog),
		req:     s.req.Snapshot(),
		cfg:     s.sup.cfg,
		rng:     s.sup.rng(),
	}
	go s.supervise(ctx, r, replies)
}

// supervise waits for the round's single reply, surfacing the long-running
// signal on the way. The timer only informs; it never aborts the worker.
func (s *Session) supervise(ctx context.Context, r *run, replies <-chan reply) {
	start := time.Now()
	defer r.stop()

	s.emit(r.gen, Event{Type: EventStarted, Round: r.round})

	timer := time.NewTimer(s.sup.cfg.LongRunningAfter)
	defer timer.Stop()

	var rep reply
wait:
	for {
		select {
		case rep = <-replies:
			break wait
		case <-timer.C:
			searchesLongRunning.Inc()
			s.logger.Info("search round is long-running",
				zap.Int("round", r.round),
				zap.Duration("elapsed", time.Since(start)),
			)
			s.emit(r.gen, Event{Type: EventLongRunning, Round: r.round})
		}
	}

	ev, outcome := s.finish(r, rep)
	searchesTotal.WithLabelValues(string(r.mode), outcome).Inc()
	searchDuration.WithLabelValues(string(r.mode)).Observe(time.Since(start).Seconds())

	if ev == nil {
		s.logger.Debug("discarded stale search reply", zap.Int("round", r.round))
		return
	}

	s.logger.Info("search round finished",
		zap.Int("round", r.round),
		zap.String("outcome", outcome),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("context_cancelled", ctx.Err() != nil),
	)
	s.emit(r.gen, *ev)
}

// finish applies a reply to the session state. It returns nil when the
// round was superseded in the meantime.
func (s *Session) finish(r *run, rep reply) (*Event, string) {
	ev := Event{Round: r.round}
	var outcome string

	switch {
	case rep.err == nil:
		ev.Type = EventCompleted
		result := rep.result
		ev.Result = &result
		outcome = outcomeNotFound
		if result.Found() {
			outcome = outcomeFound
		}
	case errors.Is(rep.err, engine.ErrCancelled):
		ev.Type = EventCancelled
		ev.Err = rep.err
		outcome = outcomeCancelled
	default:
		ev.Type = EventFailed
		ev.Err = rep.err
		outcome = outcomeFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != r.gen {
		return nil, outcome
	}

	s.inflight = nil
	switch ev.Type {
	case EventCompleted:
		s.state = StateCompleted
		s.last = ev.Result
	case EventCancelled:
		s.state = StateCancelled
	default:
		s.state = StateFailed
		s.logger.Warn("search round failed", zap.Int("round", r.round), zap.Error(rep.err))
	}

	return &ev, outcome
}

// emit delivers ev unless the round was superseded or the session closed,
// including while it waits for room in the buffer.
func (s *Session) emit(gen uint64, ev Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	current := s.gen == gen
	superseded := s.superseded
	s.mu.Unlock()
	if !current {
		return
	}

	ev.SessionID = s.id
	select {
	case s.events <- ev:
	case <-superseded:
	case <-s.done:
	}
}
