package queue

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func track(id string) Track {
	return Track{ID: id, Title: "Song " + id}
}

func tracks(ids ...string) []Track {
	var tracks = make([]Track, len(ids))
	for i, id := range ids {
		tracks[i] = track(id)
	}
	return tracks
}

func newTestManager(opts ...Option) *Manager {
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	return New(opts...)
}

func fmtTracks(tracks []Track) string {
	var builder strings.Builder
	for _, track := range tracks {
		fmt.Fprintf(&builder, "%q ", track.ID)
	}
	return builder.String()
}

func assertTracks(t *testing.T, tracksGot, tracksExpected []Track) {
	t.Helper()

	if ineqs := deep.Equal(tracksGot, tracksExpected); ineqs != nil {
		t.Errorf("got:      %s", fmtTracks(tracksGot))
		t.Errorf("expected: %s", fmtTracks(tracksExpected))
	}
}

func assertCurrent(t *testing.T, m *Manager, cursor int, id string) {
	t.Helper()

	ix, track := m.Current()
	if ix != cursor {
		t.Errorf("cursor = %d, expected %d", ix, cursor)
	}

	switch {
	case id == "" && track != nil:
		t.Errorf("current track = %q, expected none", track.ID)
	case id != "" && track == nil:
		t.Errorf("current track = none, expected %q", id)
	case id != "" && track.ID != id:
		t.Errorf("current track = %q, expected %q", track.ID, id)
	}
}

// assertCoherent checks the invariants that must hold after every operation.
func assertCoherent(t *testing.T, m *Manager) {
	t.Helper()

	if c := m.Cursor(); c != NoCursor && (c < 0 || c >= m.Len()) {
		t.Fatalf("cursor %d out of bounds for %d tracks", c, m.Len())
	}

	if ineqs := deep.Equal(sortedIDs(m.Tracks()), sortedIDs(m.BaseTracks())); ineqs != nil {
		t.Fatalf("active and base orders hold different tracks: %v", ineqs)
	}
}

func sortedIDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, track := range tracks {
		ids[i] = track.ID
	}
	sort.Strings(ids)
	return ids
}

func TestSetQueue(t *testing.T) {
	type test struct {
		name   string
		tracks []Track
		start  int
		cursor int
	}

	var tests = []test{
		{"empty", nil, 0, NoCursor},
		{"start", tracks("a", "b", "c"), 0, 0},
		{"middle", tracks("a", "b", "c"), 1, 1},
		{"past end", tracks("a", "b", "c"), 5, 2},
		{"negative", tracks("a", "b"), -3, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestManager()

			var events []string
			m.OnQueueChange(func(*Manager) { events = append(events, "queue") })
			m.OnCurrentChange(func(_ *Manager, c int) { events = append(events, fmt.Sprint("current ", c)) })

			m.SetQueue(test.tracks, test.start)
			assertCoherent(t, m)
			assertTracks(t, m.Tracks(), test.tracks)

			if m.Cursor() != test.cursor {
				t.Errorf("cursor = %d, expected %d", m.Cursor(), test.cursor)
			}

			expect := []string{"queue", fmt.Sprint("current ", test.cursor)}
			if ineqs := deep.Equal(events, expect); ineqs != nil {
				t.Errorf("unexpected events: %v", ineqs)
			}
		})
	}
}

func TestSetQueueCopies(t *testing.T) {
	m := newTestManager()

	src := tracks("a", "b")
	m.SetQueue(src, 0)
	src[0].ID = "z"

	assertTracks(t, m.Tracks(), tracks("a", "b"))
}

func TestSetQueueShuffled(t *testing.T) {
	m := newTestManager(WithShuffle(true))
	m.SetQueue(tracks("a", "b", "c", "d", "e"), 3)

	assertCoherent(t, m)
	assertCurrent(t, m, 0, "d")
	assertTracks(t, m.BaseTracks(), tracks("a", "b", "c", "d", "e"))
}

func TestClear(t *testing.T) {
	m := newTestManager()
	m.SetQueue(tracks("a", "b"), 1)

	var changed bool
	m.OnQueueChange(func(*Manager) { changed = true })

	m.Clear()

	if !changed {
		t.Error("clear did not notify")
	}
	if m.Len() != 0 || len(m.BaseTracks()) != 0 {
		t.Error("queue not empty after clear")
	}
	assertCurrent(t, m, NoCursor, "")
}

func TestEnqueue(t *testing.T) {
	type test struct {
		name   string
		apply  func(m *Manager)
		expect []Track
		cursor int
	}

	var tests = []test{
		{
			name:   "append",
			apply:  func(m *Manager) { m.Enqueue(track("d")) },
			expect: tracks("a", "b", "c", "d"),
			cursor: 1,
		},
		{
			name:   "at front",
			apply:  func(m *Manager) { m.EnqueueAt(track("d"), 0) },
			expect: tracks("d", "a", "b", "c"),
			cursor: 1, // now points at a
		},
		{
			name:   "at end",
			apply:  func(m *Manager) { m.EnqueueAt(track("d"), 3) },
			expect: tracks("a", "b", "c", "d"),
			cursor: 1,
		},
		{
			name:   "clamped",
			apply:  func(m *Manager) { m.EnqueueAt(track("d"), 42) },
			expect: tracks("a", "b", "c", "d"),
			cursor: 1,
		},
		{
			name:   "after current",
			apply:  func(m *Manager) { m.EnqueueAfterCurrent(track("d")) },
			expect: tracks("a", "b", "d", "c"),
			cursor: 1,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestManager()
			m.SetQueue(tracks("a", "b", "c"), 1)

			var changed int
			m.OnQueueChange(func(*Manager) { changed++ })

			test.apply(m)
			assertCoherent(t, m)
			assertTracks(t, m.Tracks(), test.expect)
			assertTracks(t, m.BaseTracks(), test.expect)

			if m.Cursor() != test.cursor {
				t.Errorf("cursor = %d, expected %d", m.Cursor(), test.cursor)
			}
			if changed != 1 {
				t.Errorf("queue changed %d times, expected once", changed)
			}
		})
	}
}

func TestEnqueueAfterCurrentEmpty(t *testing.T) {
	m := newTestManager()
	m.Enqueue(track("a"))
	m.EnqueueAfterCurrent(track("b"))

	assertTracks(t, m.Tracks(), tracks("b", "a"))
	assertCurrent(t, m, NoCursor, "")
}

func TestDequeue(t *testing.T) {
	type test struct {
		name   string
		start  []Track
		cursor int
		index  int
		ok     bool
		expect []Track
		after  int
		id     string
	}

	var tests = []test{
		{"current", tracks("a", "b", "c"), 1, 1, true, tracks("a", "c"), 1, "c"},
		{"before current", tracks("a", "b", "c"), 2, 0, true, tracks("b", "c"), 1, "c"},
		{"after current", tracks("a", "b", "c"), 0, 2, true, tracks("a", "b"), 0, "a"},
		{"current last", tracks("a", "b", "c"), 2, 2, true, tracks("a", "b"), 1, "b"},
		{"only track", tracks("a"), 0, 0, true, nil, NoCursor, ""},
		{"out of bounds", tracks("a", "b"), 0, 2, false, tracks("a", "b"), 0, "a"},
		{"negative", tracks("a", "b"), 0, -1, false, tracks("a", "b"), 0, "a"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestManager()
			m.SetQueue(test.start, test.cursor)

			var events int
			m.OnQueueChange(func(*Manager) { events++ })
			m.OnCurrentChange(func(*Manager, int) { events++ })

			if ok := m.Dequeue(test.index); ok != test.ok {
				t.Errorf("Dequeue = %v, expected %v", ok, test.ok)
			}

			assertCoherent(t, m)
			assertTracks(t, m.Tracks(), test.expect)
			assertCurrent(t, m, test.after, test.id)

			if test.ok && events != 2 {
				t.Errorf("got %d events, expected 2", events)
			}
			if !test.ok && events != 0 {
				t.Errorf("got %d events for a no-op", events)
			}
		})
	}
}

func TestDequeueShuffledRemovesFromBase(t *testing.T) {
	m := newTestManager(WithShuffle(true))
	m.SetQueue(tracks("a", "b", "c", "d"), 0)

	removed := m.Tracks()[2]
	m.Dequeue(2)
	assertCoherent(t, m)

	for _, track := range m.BaseTracks() {
		if track.Is(removed) {
			t.Fatalf("%q still in base order", removed.ID)
		}
	}
}

func TestMove(t *testing.T) {
	type test struct {
		name   string
		apply  func(m *Manager) bool
		ok     bool
		expect []Track
		cursor int
	}

	var tests = []test{
		{"down current", func(m *Manager) bool { return m.MoveDown(0) }, true, tracks("b", "a", "c"), 1},
		{"up into current", func(m *Manager) bool { return m.MoveUp(1) }, true, tracks("b", "a", "c"), 1},
		{"down elsewhere", func(m *Manager) bool { return m.MoveDown(1) }, true, tracks("a", "c", "b"), 0},
		{"up first", func(m *Manager) bool { return m.MoveUp(0) }, false, tracks("a", "b", "c"), 0},
		{"down last", func(m *Manager) bool { return m.MoveDown(2) }, false, tracks("a", "b", "c"), 0},
		{"up out of bounds", func(m *Manager) bool { return m.MoveUp(3) }, false, tracks("a", "b", "c"), 0},
		{"down negative", func(m *Manager) bool { return m.MoveDown(-1) }, false, tracks("a", "b", "c"), 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestManager()
			m.SetQueue(tracks("a", "b", "c"), 0)

			if ok := test.apply(m); ok != test.ok {
				t.Errorf("move = %v, expected %v", ok, test.ok)
			}

			assertCoherent(t, m)
			assertTracks(t, m.Tracks(), test.expect)
			assertCurrent(t, m, test.cursor, "a")

			// Moves only reorder the playing order.
			assertTracks(t, m.BaseTracks(), tracks("a", "b", "c"))
		})
	}
}

func TestNext(t *testing.T) {
	type test struct {
		name   string
		mode   RepeatMode
		cursor int
		expect string // "" for nil
		after  int
	}

	var tests = []test{
		{"off middle", RepeatOff, 0, "b", 1},
		{"off end", RepeatOff, 2, "", 0},
		{"all end", RepeatAll, 2, "a", 0},
		{"all middle", RepeatAll, 1, "c", 2},
		{"one", RepeatOne, 1, "b", 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestManager(WithRepeat(test.mode))
			m.SetQueue(tracks("a", "b", "c"), test.cursor)

			next := m.Next()
			switch {
			case test.expect == "" && next != nil:
				t.Errorf("Next = %q, expected nil", next.ID)
			case test.expect != "" && next == nil:
				t.Errorf("Next = nil, expected %q", test.expect)
			case test.expect != "" && next.ID != test.expect:
				t.Errorf("Next = %q, expected %q", next.ID, test.expect)
			}

			if m.Cursor() != test.after {
				t.Errorf("cursor = %d, expected %d", m.Cursor(), test.after)
			}
		})
	}
}

func TestNextRepeatOffStopsAtEnd(t *testing.T) {
	m := newTestManager()
	m.SetQueue(tracks("a", "b", "c"), 2)

	var cursors []int
	m.OnCurrentChange(func(_ *Manager, c int) { cursors = append(cursors, c) })

	if next := m.Next(); next != nil {
		t.Fatalf("Next = %q, expected nil", next.ID)
	}

	// The first track becomes nominally current without playing.
	assertCurrent(t, m, 0, "a")

	if ineqs := deep.Equal(cursors, []int{0}); ineqs != nil {
		t.Errorf("unexpected current changes: %v", ineqs)
	}
}

func TestNextRepeatOneFixedPoint(t *testing.T) {
	m := newTestManager(WithRepeat(RepeatOne))
	m.SetQueue(tracks("a", "b", "c"), 1)

	var notified bool
	m.OnCurrentChange(func(*Manager, int) { notified = true })

	for i := 0; i < 5; i++ {
		if next := m.Next(); next == nil || next.ID != "b" {
			t.Fatalf("Next #%d = %v, expected b", i, next)
		}
	}

	assertCurrent(t, m, 1, "b")

	if notified {
		t.Error("repeat one notified a cursor change")
	}
}

func TestNextFromNoCursor(t *testing.T) {
	m := newTestManager()
	m.Enqueue(track("a"))
	m.Enqueue(track("b"))

	if next := m.Next(); next == nil || next.ID != "a" {
		t.Fatalf("Next = %v, expected a", next)
	}
}

func TestNextEmpty(t *testing.T) {
	for mode := RepeatOff; mode < repeatLen; mode++ {
		m := newTestManager(WithRepeat(mode))

		var notified bool
		m.OnCurrentChange(func(*Manager, int) { notified = true })

		if m.Next() != nil || m.Previous() != nil {
			t.Errorf("%v: empty queue returned a track", mode)
		}
		if notified {
			t.Errorf("%v: empty queue notified", mode)
		}
		assertCurrent(t, m, NoCursor, "")
	}
}

func TestPrevious(t *testing.T) {
	type test struct {
		name   string
		mode   RepeatMode
		cursor int
		expect string
		after  int
	}

	var tests = []test{
		{"wraps", RepeatOff, 0, "c", 2},
		{"middle", RepeatOff, 2, "b", 1},
		{"ignores repeat one", RepeatOne, 1, "a", 0},
		{"ignores repeat all", RepeatAll, 0, "c", 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestManager(WithRepeat(test.mode))
			m.SetQueue(tracks("a", "b", "c"), test.cursor)

			prev := m.Previous()
			if prev == nil || prev.ID != test.expect {
				t.Fatalf("Previous = %v, expected %q", prev, test.expect)
			}

			assertCurrent(t, m, test.after, test.expect)
		})
	}
}

func TestSelect(t *testing.T) {
	m := newTestManager()
	m.SetQueue(tracks("a", "b", "c"), 0)

	if track := m.Select(2); track == nil || track.ID != "c" {
		t.Fatalf("Select(2) = %v, expected c", track)
	}
	assertCurrent(t, m, 2, "c")

	if track := m.Select(3); track != nil {
		t.Fatalf("Select(3) = %q, expected nil", track.ID)
	}
	assertCurrent(t, m, 2, "c")
}

func TestShuffleKeepsCurrent(t *testing.T) {
	for cursor := 0; cursor < 6; cursor++ {
		t.Run(fmt.Sprint("cursor ", cursor), func(t *testing.T) {
			m := newTestManager()
			m.SetQueue(tracks("a", "b", "c", "d", "e", "f"), cursor)

			_, before := m.Current()

			m.ToggleShuffle()
			assertCoherent(t, m)

			if !m.IsShuffling() {
				t.Fatal("shuffle not enabled")
			}
			assertCurrent(t, m, 0, before.ID)
		})
	}
}

func TestShuffleRoundTrip(t *testing.T) {
	m := newTestManager()
	m.SetQueue(tracks("a", "b", "c", "d", "e", "f"), 4)

	m.ToggleShuffle()
	m.Next()
	_, current := m.Current()

	m.ToggleShuffle()
	assertCoherent(t, m)

	assertTracks(t, m.Tracks(), tracks("a", "b", "c", "d", "e", "f"))
	assertCurrent(t, m, indexOf(m.Tracks(), *current), current.ID)
}

func TestShuffleNoCurrent(t *testing.T) {
	m := newTestManager()
	m.Enqueue(track("a"))
	m.Enqueue(track("b"))
	m.Enqueue(track("c"))

	m.ToggleShuffle()
	assertCoherent(t, m)
	assertCurrent(t, m, NoCursor, "")

	m.ToggleShuffle()
	assertTracks(t, m.Tracks(), tracks("a", "b", "c"))
	assertCurrent(t, m, NoCursor, "")
}

func TestShuffleEmpty(t *testing.T) {
	m := newTestManager()

	var events []string
	m.OnQueueChange(func(*Manager) { events = append(events, "queue") })
	m.OnModeChange(func(*Manager) { events = append(events, "mode") })

	m.ToggleShuffle()
	m.ToggleShuffle()

	assertCurrent(t, m, NoCursor, "")

	expect := []string{"queue", "mode", "queue", "mode"}
	if ineqs := deep.Equal(events, expect); ineqs != nil {
		t.Errorf("unexpected events: %v", ineqs)
	}
}

func TestUnshuffleAfterRemovingCurrent(t *testing.T) {
	m := newTestManager()
	m.SetQueue(tracks("a", "b", "c"), 2)
	m.ToggleShuffle()

	// Removing the current, first track moves the cursor onto a new one.
	m.Dequeue(0)
	_, current := m.Current()

	m.ToggleShuffle()
	assertTracks(t, m.Tracks(), tracks("a", "b"))
	assertCurrent(t, m, indexOf(m.Tracks(), *current), current.ID)
}

func TestShuffleDistribution(t *testing.T) {
	// Every arrangement of the non-current tracks should eventually show up.
	seen := map[string]bool{}

	m := newTestManager()
	for i := 0; i < 500; i++ {
		m.SetShuffling(false)
		m.SetQueue(tracks("a", "b", "c", "d"), 0)
		m.SetShuffling(true)

		order := m.Tracks()
		if order[0].ID != "a" {
			t.Fatalf("current track moved to %q", order[0].ID)
		}
		seen[fmtTracks(order[1:])] = true
	}

	if len(seen) != 6 {
		t.Errorf("saw %d of 6 permutations", len(seen))
	}
}

func TestRandomOperations(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	m := newTestManager()

	ops := []func(){
		func() { m.Enqueue(Track{ID: fmt.Sprint(r.Intn(10))}) },
		func() { m.EnqueueAt(Track{ID: fmt.Sprint(r.Intn(10))}, r.Intn(m.Len()+2)-1) },
		func() { m.EnqueueAfterCurrent(Track{ID: fmt.Sprint(r.Intn(10))}) },
		func() { m.Dequeue(r.Intn(m.Len()+2) - 1) },
		func() { m.MoveUp(r.Intn(m.Len()+2) - 1) },
		func() { m.MoveDown(r.Intn(m.Len()+2) - 1) },
		func() { m.Select(r.Intn(m.Len() + 1)) },
		func() { m.Next() },
		func() { m.Previous() },
		func() { m.ToggleShuffle() },
		func() { m.CycleRepeatMode() },
	}

	for i := 0; i < 2000; i++ {
		ops[r.Intn(len(ops))]()
		assertCoherent(t, m)
	}
}

func TestRepeatCycle(t *testing.T) {
	m := newTestManager()

	var changes int
	m.OnModeChange(func(*Manager) { changes++ })

	expect := []RepeatMode{RepeatOne, RepeatAll, RepeatOff, RepeatOne}
	for _, mode := range expect {
		if got := m.CycleRepeatMode(); got != mode {
			t.Fatalf("cycled to %v, expected %v", got, mode)
		}
	}

	if changes != len(expect) {
		t.Errorf("got %d mode changes, expected %d", changes, len(expect))
	}

	m.SetRepeatMode(RepeatOne)
	if changes != len(expect) {
		t.Error("setting the same mode notified")
	}
}

func TestRepeatModeText(t *testing.T) {
	for mode := RepeatOff; mode < repeatLen; mode++ {
		b, err := mode.MarshalText()
		if err != nil {
			t.Fatalf("failed to marshal %d: %v", mode, err)
		}

		var got RepeatMode
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("failed to unmarshal %q: %v", b, err)
		}
		if got != mode {
			t.Errorf("%q round-tripped into %v", b, got)
		}
	}

	var mode RepeatMode
	if err := mode.UnmarshalText([]byte("sometimes")); err == nil {
		t.Error("unknown mode unmarshaled without error")
	}
}
