package align

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

const (
	testPair = "pair-1"
	en       = model.Language("en")
	fr       = model.Language("fr")
)

func openSession(t *testing.T, store *memStore) *Session {
	t.Helper()
	s, err := Open(context.Background(), store, testPair, en, fr)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func texts(seq []model.Segment) []string {
	out := make([]string, len(seq))
	for i, s := range seq {
		out[i] = s.Text
	}
	return out
}

func requireParity(t *testing.T, st State) {
	t.Helper()
	require.Equal(t, len(st.Source), len(st.Target), "source %v target %v", texts(st.Source), texts(st.Target))
}

func TestOpen_LoadsBothSequences(t *testing.T) {
	store := newMemStore()
	store.seed(testPair, en, "Hello.", "World.")
	store.seed(testPair, fr, "Bonjour.", "Monde.")

	s := openSession(t, store)
	st := s.State()

	assert.Equal(t, []string{"Hello.", "World."}, texts(st.Source))
	assert.Equal(t, []string{"Bonjour.", "Monde."}, texts(st.Target))
	assert.True(t, st.Selection.None())
	assert.False(t, st.Editing)
	assert.False(t, st.Dirty)
	assert.Equal(t, Browsing, st.Mode())
}

func TestOpen_Validation(t *testing.T) {
	store := newMemStore()

	_, err := Open(context.Background(), nil, testPair, en, fr)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Open(context.Background(), store, "", en, fr)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Open(context.Background(), store, testPair, en, en)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	store.setFail("get_all", true)
	_, err = Open(context.Background(), store, testPair, en, fr)
	assert.True(t, errors.Is(err, errors.ErrPersistence))
}

func TestMergeWithNext_PadsShorterSide(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "Hello.", "World.")
	store.seed(testPair, fr, "Bonjour.", "Monde.")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.MergeWithNext(ctx))

	st := s.State()
	requireParity(t, st)
	assert.Equal(t, []string{"Hello. World.", ""}, texts(st.Source))
	assert.Equal(t, src[0], st.Source[0].ID)
	assert.Equal(t, []string{"Bonjour.", "Monde."}, texts(st.Target))
	assert.Equal(t, Selection{Side: SideSource, ID: src[0]}, st.Selection)
	assert.False(t, st.Dirty)

	// Absorbed segment is gone from the store, survivor persisted.
	assert.Equal(t, []string{"Hello. World.", ""}, store.texts(testPair, en))
}

func TestMergeWithPrevious(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "  One", "two  ", "three")
	store.seed(testPair, fr, "un", "deux", "trois")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[1]))
	require.NoError(t, s.MergeWithPrevious(ctx))

	st := s.State()
	requireParity(t, st)
	assert.Equal(t, []string{"  One two  ", "three", ""}, texts(st.Source))
	assert.Equal(t, src[0], st.Selection.ID)
}

func TestMerge_JoinsWithOneSpaceUntrimmed(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "", "World.")
	store.seed(testPair, fr, "Monde.", "")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.MergeWithNext(ctx))

	st := s.State()
	requireParity(t, st)
	assert.Equal(t, []string{" World."}, texts(st.Source))
	assert.Equal(t, []string{" World."}, store.texts(testPair, en))
}

func TestMerge_NoOpAtEdges(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b")
	store.seed(testPair, fr, "x", "y")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.MergeWithPrevious(ctx))
	require.NoError(t, s.SelectSource(ctx, src[1]))
	require.NoError(t, s.MergeWithNext(ctx))

	st := s.State()
	assert.Equal(t, []string{"a", "b"}, texts(st.Source))
	assert.Equal(t, 0, store.callCount("delete"))
}

func TestMerge_TrimsTrailingEmptyRows(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b")
	store.seed(testPair, fr, "x", "")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.MergeWithNext(ctx))

	st := s.State()
	requireParity(t, st)
	// The padded source placeholder lines up with the empty target row and
	// both are dropped.
	assert.Equal(t, []string{"a b"}, texts(st.Source))
	assert.Equal(t, []string{"x"}, texts(st.Target))
	assert.Equal(t, []string{"x"}, store.texts(testPair, fr))
}

func TestSplitSegment(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "Hello. World.")
	store.seed(testPair, fr, "Bonjour.", "Monde.")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.ToggleEditing(ctx))
	require.NoError(t, s.EditText(ctx, src[0], "Hello. World.", 6))
	require.NoError(t, s.SplitSegment(ctx))

	st := s.State()
	requireParity(t, st)
	assert.Equal(t, []string{"Hello.", "World."}, texts(st.Source))
	assert.Equal(t, src[0], st.Source[0].ID)
	assert.NotEqual(t, src[0], st.Source[1].ID)
	assert.False(t, st.Editing)
	assert.Equal(t, src[0], st.Selection.ID)
	assert.Equal(t, []string{"Hello.", "World."}, store.texts(testPair, en))
}

func TestSetCursor_KeepsEditedText(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "Hello. World.")
	store.seed(testPair, fr, "Bonjour.", "Monde.")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	err := s.SetCursor(ctx, 3)
	assert.True(t, errors.Is(err, errors.ErrInvalidState), "got %v", err)

	require.NoError(t, s.ToggleEditing(ctx))
	require.NoError(t, s.EditText(ctx, src[0], "Hi. There.", 0))
	require.NoError(t, s.SetCursor(ctx, 3))

	st := s.State()
	assert.Equal(t, "Hi. There.", st.Source[0].Text)
	assert.Equal(t, 3, st.LastCursorOffset)
	assert.True(t, st.Editing)

	require.NoError(t, s.SplitSegment(ctx))
	assert.Equal(t, []string{"Hi.", "There."}, texts(s.State().Source))
}

func TestSplitAt(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "Hello. World.")
	store.seed(testPair, fr, "Bonjour.", "Monde.")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	err := s.SplitAt(ctx, 6)
	assert.True(t, errors.Is(err, errors.ErrInvalidState), "got %v", err)

	require.NoError(t, s.ToggleEditing(ctx))
	require.NoError(t, s.EditText(ctx, src[0], "Hello. World.", 0))
	require.NoError(t, s.SplitAt(ctx, 6))

	st := s.State()
	requireParity(t, st)
	assert.Equal(t, []string{"Hello.", "World."}, texts(st.Source))
	assert.False(t, st.Editing)
	assert.Equal(t, []string{"Hello.", "World."}, store.texts(testPair, en))
}

func TestSplitSegment_CountsCharacters(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "Grüße. Tschüs.")
	store.seed(testPair, fr, "Salut.", "Au revoir.")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.ToggleEditing(ctx))
	require.NoError(t, s.EditText(ctx, src[0], "Grüße. Tschüs.", 6))
	require.NoError(t, s.SplitSegment(ctx))

	assert.Equal(t, []string{"Grüße.", "Tschüs."}, texts(s.State().Source))
}

func TestSplitSegment_OutOfRangeCursorIsNoOp(t *testing.T) {
	for _, cursor := range []int{-1, 5, 99} {
		store := newMemStore()
		src := store.seed(testPair, en, "Hello")
		store.seed(testPair, fr, "Salut")
		s := openSession(t, store)
		ctx := context.Background()

		require.NoError(t, s.SelectSource(ctx, src[0]))
		require.NoError(t, s.ToggleEditing(ctx))
		require.NoError(t, s.EditText(ctx, src[0], "Hello", cursor))
		require.NoError(t, s.SplitSegment(ctx))

		st := s.State()
		assert.Equal(t, []string{"Hello"}, texts(st.Source), "cursor %d", cursor)
		assert.True(t, st.Editing, "cursor %d", cursor)
		assert.Equal(t, 0, store.callCount("create"), "cursor %d", cursor)
	}
}

func TestSplitSegment_RequiresEditing(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "Hello")
	store.seed(testPair, fr, "Salut")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	err := s.SplitSegment(ctx)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestDeleteSegment_ToEmpty(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "Only.")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.DeleteSegment(ctx))

	st := s.State()
	assert.Empty(t, st.Source)
	assert.Empty(t, st.Target)
	assert.True(t, st.Selection.None())
	assert.Empty(t, store.texts(testPair, en))
}

func TestDeleteSegment_PadsAgainstOtherSide(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "Only.")
	store.seed(testPair, fr, "Seul.")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.DeleteSegment(ctx))

	st := s.State()
	requireParity(t, st)
	assert.Equal(t, []string{""}, texts(st.Source))
	assert.True(t, st.Selection.None())
}

func TestDeleteSegment_SelectsPrevious(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b", "c")
	store.seed(testPair, fr, "x", "y", "z")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[2]))
	require.NoError(t, s.DeleteSegment(ctx))
	assert.Equal(t, src[1], s.State().Selection.ID)

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.DeleteSegment(ctx))
	st := s.State()
	assert.Equal(t, src[1], st.Selection.ID, "deleting the first segment selects the new first")
	requireParity(t, st)
	assert.Equal(t, []string{"b", ""}, texts(st.Source)[:2])
}

func TestDeleteSegment_DropsUnsavedEdit(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b")
	store.seed(testPair, fr, "x", "y")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[1]))
	require.NoError(t, s.ToggleEditing(ctx))
	require.NoError(t, s.EditText(ctx, src[1], "edited", 0))
	require.NoError(t, s.DeleteSegment(ctx))

	st := s.State()
	assert.False(t, st.Editing)
	assert.Equal(t, 0, store.callCount("update"))
}

func TestCreateBefore(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b")
	store.seed(testPair, fr, "x", "y")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[1]))
	require.NoError(t, s.CreateBefore(ctx))

	st := s.State()
	requireParity(t, st)
	assert.Equal(t, []string{"a", "", "b"}, texts(st.Source))
	assert.Equal(t, []string{"x", "y", ""}, texts(st.Target))
	assert.Equal(t, st.Source[1].ID, st.Selection.ID)
	assert.True(t, st.Editing)
}

func TestCreateAfter_KeepsTrailingEmptyRow(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a")
	store.seed(testPair, fr, "x")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.CreateAfter(ctx))

	st := s.State()
	requireParity(t, st)
	assert.Equal(t, []string{"a", ""}, texts(st.Source))
	assert.Equal(t, []string{"x", ""}, texts(st.Target))
	assert.Equal(t, st.Source[1].ID, st.Selection.ID)
	assert.True(t, st.Editing)

	require.NoError(t, s.EditText(ctx, st.Source[1].ID, "b", 1))
	require.NoError(t, s.ToggleEditing(ctx))
	assert.Equal(t, []string{"a", "b"}, store.texts(testPair, en))
}

func TestSelection_Exclusive(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a")
	tgt := store.seed(testPair, fr, "x")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	assert.Equal(t, Selection{Side: SideSource, ID: src[0]}, s.State().Selection)

	require.NoError(t, s.SelectTarget(ctx, tgt[0]))
	assert.Equal(t, Selection{Side: SideTarget, ID: tgt[0]}, s.State().Selection)

	// Reselecting the same segment toggles it off.
	require.NoError(t, s.SelectTarget(ctx, tgt[0]))
	assert.True(t, s.State().Selection.None())

	err := s.SelectSource(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	err = s.SelectSource(ctx, tgt[0])
	assert.True(t, errors.Is(err, errors.ErrNotFound), "target id is not on the source side")
}

func TestEditingStateMachine(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b")
	store.seed(testPair, fr, "x", "y")
	s := openSession(t, store)
	ctx := context.Background()

	// No selection: toggle does nothing.
	require.NoError(t, s.ToggleEditing(ctx))
	assert.False(t, s.State().Editing)

	err := s.EditText(ctx, src[0], "nope", 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.ToggleEditing(ctx))
	assert.Equal(t, Editing, s.State().Mode())

	require.NoError(t, s.EditText(ctx, src[0], "alpha", 3))
	st := s.State()
	assert.True(t, st.Dirty)
	assert.Equal(t, 3, st.LastCursorOffset)
	assert.Equal(t, "a", store.texts(testPair, en)[0], "not persisted while editing")

	// Changing selection while editing persists the edit first.
	require.NoError(t, s.SelectSource(ctx, src[1]))
	st = s.State()
	assert.False(t, st.Editing)
	assert.Equal(t, "alpha", store.texts(testPair, en)[0])

	err = s.EditText(ctx, "missing", "x", 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	require.NoError(t, s.ToggleEditing(ctx))
	err = s.EditText(ctx, "missing", "x", 0)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMove(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b", "c")
	store.seed(testPair, fr, "x", "y", "z")
	s := openSession(t, store)
	ctx := context.Background()

	err := s.MoveUp(ctx)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	require.NoError(t, s.SelectSource(ctx, src[2]))
	require.NoError(t, s.MoveUp(ctx))
	st := s.State()
	assert.Equal(t, []string{"a", "c", "b"}, texts(st.Source))
	assert.True(t, st.Dirty)
	assert.Equal(t, src[2], st.Selection.ID)
	assert.Equal(t, []string{"a", "b", "c"}, store.texts(testPair, en), "moves wait for save")

	require.NoError(t, s.MoveDown(ctx))
	require.NoError(t, s.MoveDown(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, texts(s.State().Source))

	require.NoError(t, s.MoveUp(ctx))
	require.NoError(t, s.Save(ctx))
	st = s.State()
	assert.False(t, st.Dirty)
	assert.Equal(t, []string{"a", "c", "b"}, store.texts(testPair, en))
	for i, seg := range st.Source {
		assert.Equal(t, i, seg.SequenceIndex)
	}
}

func TestPersistenceError_KeepsDirty(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b")
	store.seed(testPair, fr, "x", "y")
	s := openSession(t, store)
	ctx := context.Background()

	require.NoError(t, s.SelectSource(ctx, src[0]))
	store.setFail("update_all", true)

	err := s.MergeWithNext(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPersistence))

	st := s.State()
	assert.True(t, st.Dirty)
	assert.Equal(t, "a b", st.Source[0].Text, "in-memory state is not rolled back")

	store.setFail("update_all", false)
	require.NoError(t, s.Save(ctx))
	assert.False(t, s.State().Dirty)
}

func TestPairs_SkipsEmptyRows(t *testing.T) {
	store := newMemStore()
	store.seed(testPair, en, "a", "", "c", "d")
	store.seed(testPair, fr, "x", "y", "  ", "w")
	s := openSession(t, store)

	assert.Equal(t, []Pair{{Source: "a", Target: "x"}, {Source: "d", Target: "w"}}, s.Pairs())
}

func TestClose(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a")
	store.seed(testPair, fr, "x")
	s := openSession(t, store)
	ctx := context.Background()

	ch, _ := s.Subscribe()
	s.Close()
	s.Close()

	assert.True(t, s.Closed())
	err := s.SelectSource(ctx, src[0])
	assert.True(t, errors.Is(err, errors.ErrSessionClosed))

	// Drain the initial snapshot, then the channel must be closed.
	for range ch {
	}
}

func TestClose_AbandonsInFlightOperation(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b")
	store.seed(testPair, fr, "x", "y")
	s := openSession(t, store)
	ctx := context.Background()
	require.NoError(t, s.SelectSource(ctx, src[0]))

	store.block = make(chan struct{})
	errc := make(chan error, 1)
	go func() { errc <- s.MergeWithNext(ctx) }()

	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, errors.ErrSessionClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not return after Close")
	}
	assert.Equal(t, []string{"a", "b"}, texts(s.State().Source), "no snapshot published for the abandoned operation")
}

func TestSubscribe_LatestValue(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b")
	store.seed(testPair, fr, "x", "y")
	s := openSession(t, store)
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()

	first := <-ch
	assert.True(t, first.Selection.None())

	require.NoError(t, s.SelectSource(ctx, src[0]))
	require.NoError(t, s.SelectSource(ctx, src[1]))

	latest := <-ch
	assert.Equal(t, src[1], latest.Selection.ID, "only the latest snapshot is buffered")

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestOperationsAreSerialized(t *testing.T) {
	store := newMemStore()
	src := store.seed(testPair, en, "a", "b", "c", "d")
	store.seed(testPair, fr, "w", "x", "y", "z")
	s := openSession(t, store)
	ctx := context.Background()
	require.NoError(t, s.SelectSource(ctx, src[0]))

	done := make(chan error, 8)
	for range 8 {
		go func() { done <- s.MoveDown(ctx) }()
	}
	for range 8 {
		require.NoError(t, <-done)
	}
	st := s.State()
	assert.Len(t, st.Source, 4)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, texts(st.Source))
	assert.Equal(t, "a", st.Source[3].Text)
}

func TestParity_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store := newMemStore()
	store.seed(testPair, en, "one", "two", "three", "four")
	store.seed(testPair, fr, "un", "deux", "trois", "quatre")
	s := openSession(t, store)
	ctx := context.Background()

	for i := 0; i < 300; i++ {
		st := s.State()
		requireParity(t, st)

		// Keep a selection most of the time.
		if st.Selection.None() || rng.Intn(4) == 0 {
			side, seq := SideSource, st.Source
			if rng.Intn(2) == 0 {
				side, seq = SideTarget, st.Target
			}
			if len(seq) > 0 {
				_ = s.Select(ctx, side, seq[rng.Intn(len(seq))].ID)
			}
			continue
		}

		var err error
		switch rng.Intn(8) {
		case 0:
			err = s.MergeWithPrevious(ctx)
		case 1:
			err = s.MergeWithNext(ctx)
		case 2:
			err = s.CreateBefore(ctx)
		case 3:
			err = s.CreateAfter(ctx)
		case 4:
			err = s.DeleteSegment(ctx)
		case 5:
			if !st.Editing {
				_ = s.ToggleEditing(ctx)
			}
			if seg, _, ok := s.State().Selected(); ok {
				_ = s.EditText(ctx, seg.ID, "lorem ipsum dolor", rng.Intn(20))
			}
			err = s.SplitSegment(ctx)
		case 6:
			err = s.MoveUp(ctx)
		case 7:
			err = s.ToggleEditing(ctx)
		}
		if err != nil && !errors.Is(err, errors.ErrInvalidState) {
			t.Fatalf("step %d: %v", i, err)
		}

		st = s.State()
		if st.Editing {
			require.False(t, st.Selection.None(), "editing requires a selection")
		}
	}

	require.NoError(t, s.Save(ctx))
	st := s.State()
	requireParity(t, st)
	assert.Equal(t, texts(st.Source), store.texts(testPair, en))
	assert.Equal(t, texts(st.Target), store.texts(testPair, fr))
}
