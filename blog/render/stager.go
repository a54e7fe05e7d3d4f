package render

import (
	"context"
	"errors"
	"sync"

	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/dfryer1193/postpage/blog/textmetrics"
	"github.com/dfryer1193/postpage/shared/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotStarted is returned by Wait before any identifier has been loaded.
var ErrNotStarted = errors.New("no load cycle started")

// Loader loads a post for an identifier. The returned error is a domain.PostError.
type Loader interface {
	Load(ctx context.Context, id domain.PostIdentifier, idErr error) (*domain.Post, error)
}

// Cycle identifies one load of one identifier. Only the most recent cycle may change
// the stager's state.
type Cycle struct {
	gen uint64
	ID  domain.PostIdentifier
}

// memoEntry caches the metrics for the post currently shown.
type memoEntry struct {
	id      domain.PostIdentifier
	content string
	metrics textmetrics.Metrics
}

// Stager holds the presentation state of a post page and drives it through
// Loading -> Failed | Ready for every identifier it is given.
type Stager struct {
	loader   Loader
	renderer *Renderer
	compute  func(content string) textmetrics.Metrics
	recorder metrics.Recorder
	logger   zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	current State
	cancel  context.CancelFunc
	settled chan struct{} // closed when the current cycle ends or is superseded
	memo    *memoEntry

	inflight sync.WaitGroup
}

// StagerOption configures a Stager.
type StagerOption func(*Stager)

// WithStagerRecorder sets the metrics recorder.
func WithStagerRecorder(r metrics.Recorder) StagerOption {
	return func(s *Stager) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithStagerLogger sets the logger.
func WithStagerLogger(l zerolog.Logger) StagerOption {
	return func(s *Stager) {
		s.logger = l
	}
}

func NewStager(loader Loader, renderer *Renderer, calc *textmetrics.Calculator, opts ...StagerOption) *Stager {
	if calc == nil {
		calc = textmetrics.NewCalculator(textmetrics.DefaultConfig())
	}
	s := &Stager{
		loader:   loader,
		renderer: renderer,
		compute:  calc.Compute,
		recorder: metrics.NoopRecorder{},
		logger:   log.Logger,
		current:  Loading{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Stager) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Begin starts a new cycle for id and moves to Loading. Whatever the previous cycle
// showed is dropped, and its result will be discarded if it arrives later.
func (s *Stager) Begin(id domain.PostIdentifier) Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(id, nil)
}

func (s *Stager) beginLocked(id domain.PostIdentifier, cancel context.CancelFunc) Cycle {
	if s.cancel != nil {
		s.cancel()
	}
	if s.settled != nil {
		close(s.settled)
	}
	if s.memo != nil && s.memo.id != id {
		s.memo = nil
	}

	s.gen++
	s.current = Loading{ID: id}
	s.cancel = cancel
	s.settled = make(chan struct{})
	return Cycle{gen: s.gen, ID: id}
}

// Resolve ends cycle c with the outcome of its load. It reports false, leaving the
// state untouched, when c has been superseded or has already ended.
func (s *Stager) Resolve(c Cycle, post *domain.Post, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.gen != s.gen || Terminal(s.current) {
		s.recorder.IncLoadOutcome(metrics.OutcomeDiscarded)
		s.logger.Debug().Str("postID", c.ID.String()).Msg("Discarding stale post load")
		return false
	}

	switch {
	case err != nil:
		s.fail(c, domain.Classify(err))
	case post == nil:
		s.fail(c, domain.ErrPostNotFound)
	default:
		s.current = Ready{Post: post, Metrics: s.metricsFor(c.ID, post)}
		s.recorder.IncLoadOutcome(metrics.OutcomeReady)
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	close(s.settled)
	s.settled = nil
	return true
}

func (s *Stager) fail(c Cycle, pe domain.PostError) {
	s.current = Failed{ID: c.ID, Err: pe}
	switch pe {
	case domain.ErrInvalidIdentifier:
		s.recorder.IncLoadOutcome(metrics.OutcomeInvalidIdentifier)
	case domain.ErrPostNotFound:
		s.recorder.IncLoadOutcome(metrics.OutcomeNotFound)
	default:
		s.recorder.IncLoadOutcome(metrics.OutcomeServerError)
	}
}

// metricsFor returns the memoized metrics when the same post is shown again.
func (s *Stager) metricsFor(id domain.PostIdentifier, post *domain.Post) textmetrics.Metrics {
	if s.memo != nil && s.memo.id == id && s.memo.content == post.Content {
		return s.memo.metrics
	}
	m := s.compute(post.Content)
	s.memo = &memoEntry{id: id, content: post.Content, metrics: m}
	return m
}

// Navigate begins a cycle for id and loads it in the background. idErr is the
// outcome of identifier extraction and is handed to the loader untouched.
func (s *Stager) Navigate(ctx context.Context, id domain.PostIdentifier, idErr error) Cycle {
	loadCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	c := s.beginLocked(id, cancel)
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()
		defer cancel()
		post, err := s.loader.Load(loadCtx, id, idErr)
		if loadCtx.Err() != nil {
			s.abandon(c)
			return
		}
		s.Resolve(c, post, err)
	}()
	return c
}

// abandon drops the result of a cycle whose context ended before its load returned.
// The state is left for the next cycle.
func (s *Stager) abandon(c Cycle) {
	s.recorder.IncLoadOutcome(metrics.OutcomeDiscarded)
	s.logger.Debug().Str("postID", c.ID.String()).Msg("Discarding cancelled post load")
}

// Wait blocks until the current cycle ends and returns its final state. If the
// identifier changes while waiting, Wait follows the new cycle.
func (s *Stager) Wait(ctx context.Context) (State, error) {
	for {
		s.mu.Lock()
		if s.gen == 0 {
			s.mu.Unlock()
			return nil, ErrNotStarted
		}
		if Terminal(s.current) {
			st := s.current
			s.mu.Unlock()
			return st, nil
		}
		settled := s.settled
		s.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}
}

// Render renders the current state.
func (s *Stager) Render() (Page, error) {
	return s.renderer.Render(s.State())
}

// Close cancels the current cycle and waits for background loads to return.
func (s *Stager) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.inflight.Wait()
}
