// Package queue implements the play queue: an ordered list of tracks, a cursor
// into it, and the shuffle and repeat modifiers that decide what plays next.
//
// A Manager is not safe for concurrent use. All calls, including the ones made
// in response to playback engine events, must be serialized by the caller onto
// a single goroutine. Change callbacks run synchronously on that goroutine
// before the mutating call returns, and must not mutate the queue themselves.
package queue

import "math/rand"

// NoCursor is the cursor value when there is no current track.
const NoCursor = -1

type Manager struct {
	onQueue   func(m *Manager)
	onCurrent func(m *Manager, cursor int)
	onMode    func(m *Manager)

	// active is the traversal order, which is shuffled if shuffling is on.
	active []Track
	// base is the order the tracks were added in. It always holds the same
	// tracks as active.
	base   []Track
	cursor int // relative to active

	shuffling bool
	repeating RepeatMode

	rand *rand.Rand
}

// Option configures a Manager.
type Option func(m *Manager)

// WithRand makes the Manager shuffle using the given source.
func WithRand(r *rand.Rand) Option {
	return func(m *Manager) { m.rand = r }
}

// WithShuffle sets the initial shuffling mode.
func WithShuffle(shuffling bool) Option {
	return func(m *Manager) { m.shuffling = shuffling }
}

// WithRepeat sets the initial repeat mode.
func WithRepeat(mode RepeatMode) Option {
	return func(m *Manager) { m.repeating = mode }
}

func New(opts ...Option) *Manager {
	m := &Manager{
		onQueue:   func(*Manager) {},
		onCurrent: func(*Manager, int) {},
		onMode:    func(*Manager) {},
		cursor:    NoCursor,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.rand == nil {
		m.rand = newRand()
	}

	return m
}

// OnQueueChange adds into the call stack a callback that is triggered when the
// tracks or their order change.
func (m *Manager) OnQueueChange(fn func(*Manager)) {
	old := m.onQueue
	m.onQueue = func(m *Manager) {
		old(m)
		fn(m)
	}
}

// OnCurrentChange adds into the call stack a callback that is triggered when
// the cursor is moved or reassigned.
func (m *Manager) OnCurrentChange(fn func(m *Manager, cursor int)) {
	old := m.onCurrent
	m.onCurrent = func(m *Manager, cursor int) {
		old(m, cursor)
		fn(m, cursor)
	}
}

// OnModeChange adds into the call stack a callback that is triggered when the
// shuffle or repeat mode changes.
func (m *Manager) OnModeChange(fn func(*Manager)) {
	old := m.onMode
	m.onMode = func(m *Manager) {
		old(m)
		fn(m)
	}
}

// Len returns the number of tracks in the queue.
func (m *Manager) Len() int {
	return len(m.active)
}

// Cursor returns the index of the current track in Tracks, or NoCursor.
func (m *Manager) Cursor() int {
	return m.cursor
}

// Tracks returns a copy of the tracks in playing order.
func (m *Manager) Tracks() []Track {
	return copyTracks(m.active)
}

// BaseTracks returns a copy of the tracks in their unshuffled order.
func (m *Manager) BaseTracks() []Track {
	return copyTracks(m.base)
}

// Current returns the current track and its index. If there is none, then
// (NoCursor, nil) is returned.
func (m *Manager) Current() (int, *Track) {
	if m.cursor < 0 || m.cursor >= len(m.active) {
		return NoCursor, nil
	}
	return m.cursor, m.trackAt(m.cursor)
}

func (m *Manager) trackAt(ix int) *Track {
	track := m.active[ix]
	return &track
}

// Clear empties the queue.
func (m *Manager) Clear() {
	m.active = nil
	m.base = nil
	m.cursor = NoCursor

	m.onQueue(m)
}

// SetQueue replaces the whole queue with the given tracks and makes the track
// at start current. If shuffling is on, the queue is reshuffled around that
// track. An empty list of tracks leaves no current track.
func (m *Manager) SetQueue(tracks []Track, start int) {
	m.active = copyTracks(tracks)
	m.base = copyTracks(tracks)

	switch {
	case len(tracks) == 0:
		m.cursor = NoCursor
	case start < 0:
		m.cursor = 0
	case start >= len(tracks):
		m.cursor = len(tracks) - 1
	default:
		m.cursor = start
	}

	if m.shuffling {
		m.applyShuffle()
	}

	m.onQueue(m)
	m.onCurrent(m, m.cursor)
}

// Enqueue appends the track to the end of the queue.
func (m *Manager) Enqueue(track Track) {
	m.active = append(m.active, track)
	m.base = append(m.base, track)

	m.onQueue(m)
}

// EnqueueAt inserts the track at the given position in both orders. The
// position is clamped to the queue. The cursor is not moved, so inserting at
// or before the cursor changes which track is current; use
// EnqueueAfterCurrent to avoid that.
func (m *Manager) EnqueueAt(track Track, pos int) {
	m.active = insertAt(m.active, pos, track)
	m.base = insertAt(m.base, pos, track)

	m.onQueue(m)
}

// EnqueueAfterCurrent inserts the track right after the current one, or at the
// front if nothing is current.
func (m *Manager) EnqueueAfterCurrent(track Track) {
	if m.cursor >= 0 {
		m.EnqueueAt(track, m.cursor+1)
	} else {
		m.EnqueueAt(track, 0)
	}
}

// Dequeue removes the track at the given index. It returns false and does
// nothing if the index is out of bounds.
func (m *Manager) Dequeue(ix int) bool {
	if ix < 0 || ix >= len(m.active) {
		return false
	}

	removed := m.active[ix]
	m.active = removeAt(m.active, ix)

	if i := indexOf(m.base, removed); i > -1 {
		m.base = removeAt(m.base, i)
	}

	switch {
	case ix < m.cursor:
		m.cursor--
	case ix == m.cursor && m.cursor >= len(m.active):
		// The last track was current. This also yields NoCursor once the
		// queue is empty.
		m.cursor = len(m.active) - 1
	}

	m.onQueue(m)
	m.onCurrent(m, m.cursor)

	return true
}

// MoveUp swaps the track at the given index with the one before it. The cursor
// stays on its track. It returns false and does nothing for the first index or
// an out of bounds one.
func (m *Manager) MoveUp(ix int) bool {
	if ix < 1 || ix >= len(m.active) {
		return false
	}

	m.swap(ix, ix-1)
	return true
}

// MoveDown swaps the track at the given index with the one after it. The
// cursor stays on its track. It returns false and does nothing for the last
// index or an out of bounds one.
func (m *Manager) MoveDown(ix int) bool {
	if ix < 0 || ix >= len(m.active)-1 {
		return false
	}

	m.swap(ix, ix+1)
	return true
}

func (m *Manager) swap(i, j int) {
	m.active[i], m.active[j] = m.active[j], m.active[i]

	switch m.cursor {
	case i:
		m.cursor = j
	case j:
		m.cursor = i
	}

	m.onQueue(m)
	m.onCurrent(m, m.cursor)
}

// Select makes the track at the given index current and returns it. Nil is
// returned and nothing is changed if the index is out of bounds.
func (m *Manager) Select(ix int) *Track {
	if ix < 0 || ix >= len(m.active) {
		return nil
	}

	m.cursor = ix
	m.onCurrent(m, m.cursor)

	return m.trackAt(ix)
}

// Next returns the track that should play after the current one finishes. In
// RepeatOne mode, it returns the current track without moving. When the end of
// the queue is reached, the cursor wraps back to the first track; in RepeatAll
// mode that track is returned, otherwise nil is returned and the caller should
// stop playing.
func (m *Manager) Next() *Track {
	if len(m.active) == 0 {
		return nil
	}

	if m.repeating == RepeatOne {
		_, track := m.Current()
		return track
	}

	next, oob := spinIndex(true, m.cursor, len(m.active))
	m.cursor = next
	m.onCurrent(m, m.cursor)

	if oob && m.repeating == RepeatOff {
		return nil
	}

	return m.trackAt(m.cursor)
}

// Previous moves back by one track, wrapping around to the last track, and
// returns it. The repeat mode does not apply. Nil is returned if the queue is
// empty.
func (m *Manager) Previous() *Track {
	if len(m.active) == 0 {
		return nil
	}

	m.cursor, _ = spinIndex(false, m.cursor, len(m.active))
	m.onCurrent(m, m.cursor)

	return m.trackAt(m.cursor)
}

// spinIndex spins the index. It returns the newly spun index and whether it was
// spun back.
func spinIndex(fwd bool, i, max int) (int, bool) {
	if fwd {
		i++

		if i >= max {
			return 0, true
		}
	} else {
		i--

		if i < 0 {
			return max - 1, true
		}
	}

	return i, false
}

// IsShuffling returns true if the queue is being shuffled.
func (m *Manager) IsShuffling() bool {
	return m.shuffling
}

// ToggleShuffle flips the shuffling mode. Turning it on keeps the current track
// current by moving it to the front; turning it off restores the original
// order.
func (m *Manager) ToggleShuffle() {
	m.shuffling = !m.shuffling

	if m.shuffling {
		m.applyShuffle()
	} else {
		m.removeShuffle()
	}

	m.onQueue(m)
	m.onMode(m)
}

// SetShuffling sets the shuffling mode. It does nothing if the mode is already
// set.
func (m *Manager) SetShuffling(shuffling bool) {
	if m.shuffling != shuffling {
		m.ToggleShuffle()
	}
}

// RepeatMode returns the current repeat mode.
func (m *Manager) RepeatMode() RepeatMode {
	return m.repeating
}

// CycleRepeatMode advances the repeat mode from off to one to all and back.
func (m *Manager) CycleRepeatMode() RepeatMode {
	m.SetRepeatMode(m.repeating.Cycle())
	return m.repeating
}

// SetRepeatMode sets the current repeat mode.
func (m *Manager) SetRepeatMode(mode RepeatMode) {
	if m.repeating == mode {
		return
	}

	m.repeating = mode
	m.onMode(m)
}
