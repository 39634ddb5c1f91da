// Package align holds the alignment session for a file pair: two ordered
// segment sequences edited in parallel, kept at equal length, and persisted
// through a SegmentStore after every structural change.
package align

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// SegmentStore persists segments. Implementations must be safe for use by a
// single session goroutine; the session never calls a store concurrently.
type SegmentStore interface {
	Create(ctx context.Context, filePairID string, lang model.Language, text string) (string, error)
	Update(ctx context.Context, id, text string) error
	UpdateAll(ctx context.Context, updates []model.SegmentUpdate) error
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context, filePairID string, lang model.Language) ([]model.Segment, error)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for operation tracing and store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type request struct {
	name   string
	fn     func(ctx context.Context) error
	result chan error
}

// Session serializes all operations on one file pair through a single
// goroutine. Snapshots are published after each operation completes.
type Session struct {
	filePairID string
	sourceLang model.Language
	targetLang model.Language
	store      SegmentStore
	logger     *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	requests  chan request
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the run goroutine.
	source  []model.Segment
	target  []model.Segment
	sel     Selection
	editing bool
	dirty   bool
	cursor  int

	mu       sync.RWMutex
	snapshot State
	subs     map[int]chan State
	nextSub  int
	closed   bool
}

// Open loads both sequences of a file pair from store and starts the session.
// The session runs until Close; ctx only bounds the initial load.
func Open(ctx context.Context, store SegmentStore, filePairID string, sourceLang, targetLang model.Language, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, errors.NewInvalidRequest("segment store is required")
	}
	if filePairID == "" {
		return nil, errors.NewInvalidRequest("file_pair_id is required")
	}
	if sourceLang == targetLang {
		return nil, errors.NewInvalidRequest("source and target language must differ")
	}

	s := &Session{
		filePairID: filePairID,
		sourceLang: sourceLang,
		targetLang: targetLang,
		store:      store,
		logger:     slog.New(slog.DiscardHandler),
		requests:   make(chan request),
		done:       make(chan struct{}),
		subs:       make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}

	source, err := store.GetAll(ctx, filePairID, sourceLang)
	if err != nil {
		return nil, errors.NewPersistence("load source", err)
	}
	target, err := store.GetAll(ctx, filePairID, targetLang)
	if err != nil {
		return nil, errors.NewPersistence("load target", err)
	}
	s.source = source
	s.target = target
	s.snapshot = s.capture()

	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.run()

	s.logger.Debug("session opened",
		"file_pair", filePairID,
		"source_segments", len(source),
		"target_segments", len(target))
	return s, nil
}

// FilePairID returns the file pair this session edits.
func (s *Session) FilePairID() string {
	return s.filePairID
}

// Languages returns the source and target languages.
func (s *Session) Languages() (model.Language, model.Language) {
	return s.sourceLang, s.targetLang
}

// State returns a copy of the latest published snapshot.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.clone()
}

// Pairs returns the aligned rows of the latest snapshot that have text on
// both sides.
func (s *Session) Pairs() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Pairs()
}

// Subscribe returns a channel that always holds the most recent snapshot.
// Intermediate snapshots are dropped when the reader falls behind. The
// channel is closed by cancel or by Close.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshot

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close stops the session. An operation in flight is abandoned and its
// in-memory changes are discarded; anything already persisted stays.
// Close is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done

		s.mu.Lock()
		s.closed = true
		for id, ch := range s.subs {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()

		s.logger.Debug("session closed", "file_pair", s.filePairID)
	})
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.ctx.Err() != nil
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case req := <-s.requests:
			start := time.Now()
			err := req.fn(s.ctx)
			if s.ctx.Err() != nil {
				req.result <- errors.NewSessionClosed(s.filePairID)
				return
			}
			s.publish()
			if err != nil {
				s.logger.Warn("operation failed",
					"op", req.name,
					"file_pair", s.filePairID,
					"error", err)
			} else {
				s.logger.Debug("operation",
					"op", req.name,
					"file_pair", s.filePairID,
					"duration", time.Since(start))
			}
			req.result <- err
		}
	}
}

// do queues fn behind any pending operations and waits for it to finish.
// ctx bounds only the wait for a queue slot; once accepted, an operation
// runs to completion or until Close.
func (s *Session) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	req := request{name: name, fn: fn, result: make(chan error, 1)}
	select {
	case <-s.ctx.Done():
		return errors.NewSessionClosed(s.filePairID)
	case <-ctx.Done():
		return errors.NewCancelled(name)
	case s.requests <- req:
	}
	return <-req.result
}

func (s *Session) publish() {
	st := s.capture()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = st
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (s *Session) capture() State {
	return State{
		FilePairID:       s.filePairID,
		Source:           cloneSegments(s.source),
		Target:           cloneSegments(s.target),
		Selection:        s.sel,
		Editing:          s.editing,
		Dirty:            s.dirty,
		LastCursorOffset: s.cursor,
	}
}

func cloneSegments(seq []model.Segment) []model.Segment {
	out := make([]model.Segment, len(seq))
	copy(out, seq)
	return out
}
