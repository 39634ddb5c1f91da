package align

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// memStore is an in-memory SegmentStore with failure injection.
type memStore struct {
	mu       sync.Mutex
	segments map[string]model.Segment
	next     int
	calls    []string

	// failOn makes the named method ("create", "update", "update_all",
	// "delete", "get_all") return an error.
	failOn map[string]bool

	// block, when set, makes every call wait until the channel is closed or
	// ctx is done.
	block chan struct{}
}

func newMemStore() *memStore {
	return &memStore{
		segments: make(map[string]model.Segment),
		failOn:   make(map[string]bool),
	}
}

// seed stores texts as one sequence and returns the assigned IDs.
func (m *memStore) seed(filePairID string, lang model.Language, texts ...string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(texts))
	for i, text := range texts {
		id := m.newID(lang)
		m.segments[id] = model.Segment{
			ID:            id,
			FilePairID:    filePairID,
			Language:      lang,
			Text:          text,
			SequenceIndex: i,
		}
		ids[i] = id
	}
	return ids
}

func (m *memStore) newID(lang model.Language) string {
	m.next++
	return fmt.Sprintf("%s-%03d", lang, m.next)
}

func (m *memStore) setFail(method string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[method] = fail
}

func (m *memStore) enter(ctx context.Context, method string) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	m.calls = append(m.calls, method)
	fail := m.failOn[method]
	m.mu.Unlock()
	if fail {
		return fmt.Errorf("%s: injected failure", method)
	}
	return nil
}

func (m *memStore) Create(ctx context.Context, filePairID string, lang model.Language, text string) (string, error) {
	if err := m.enter(ctx, "create"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.newID(lang)
	m.segments[id] = model.Segment{
		ID:            id,
		FilePairID:    filePairID,
		Language:      lang,
		Text:          text,
		SequenceIndex: len(m.segments),
	}
	return id, nil
}

func (m *memStore) Update(ctx context.Context, id, text string) error {
	if err := m.enter(ctx, "update"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seg, ok := m.segments[id]
	if !ok {
		return errors.NewNotFound("segment", id)
	}
	seg.Text = text
	m.segments[id] = seg
	return nil
}

func (m *memStore) UpdateAll(ctx context.Context, batch []model.SegmentUpdate) error {
	if err := m.enter(ctx, "update_all"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range batch {
		if _, ok := m.segments[u.ID]; !ok {
			return errors.NewNotFound("segment", u.ID)
		}
	}
	for _, u := range batch {
		seg := m.segments[u.ID]
		seg.Text = u.Text
		seg.SequenceIndex = u.SequenceIndex
		m.segments[u.ID] = seg
	}
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	if err := m.enter(ctx, "delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.segments[id]; !ok {
		return errors.NewNotFound("segment", id)
	}
	delete(m.segments, id)
	return nil
}

func (m *memStore) GetAll(ctx context.Context, filePairID string, lang model.Language) ([]model.Segment, error) {
	if err := m.enter(ctx, "get_all"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Segment, 0)
	for _, seg := range m.segments {
		if seg.FilePairID == filePairID && seg.Language == lang {
			out = append(out, seg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SequenceIndex != out[j].SequenceIndex {
			return out[i].SequenceIndex < out[j].SequenceIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// texts returns the stored sequence's texts in order.
func (m *memStore) texts(filePairID string, lang model.Language) []string {
	segs, _ := m.GetAll(context.Background(), filePairID, lang)
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}

func (m *memStore) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}
