package queue

// Snapshot is a copy of the whole queue state, used to persist the queue
// across restarts.
type Snapshot struct {
	Active    []Track
	Base      []Track
	Cursor    int
	Shuffling bool
	Repeat    RepeatMode
}

// Snapshot returns a copy of the queue state.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		Active:    copyTracks(m.active),
		Base:      copyTracks(m.base),
		Cursor:    m.cursor,
		Shuffling: m.shuffling,
		Repeat:    m.repeating,
	}
}

// Restore replaces the queue state with the snapshot. If the two orders do
// not hold the same tracks, the active order is used for both. An invalid
// cursor leaves no current track. All three change callbacks are called.
func (m *Manager) Restore(s Snapshot) {
	m.active = copyTracks(s.Active)
	m.base = copyTracks(s.Base)

	if !sameTracks(m.active, m.base) {
		m.base = copyTracks(m.active)
	}

	m.cursor = s.Cursor
	if m.cursor < 0 || m.cursor >= len(m.active) {
		m.cursor = NoCursor
	}

	m.shuffling = s.Shuffling
	m.repeating = s.Repeat
	if m.repeating >= repeatLen {
		m.repeating = RepeatOff
	}

	m.onQueue(m)
	m.onCurrent(m, m.cursor)
	m.onMode(m)
}

// sameTracks returns true if both lists hold the same tracks by ID, in any
// order.
func sameTracks(a, b []Track) bool {
	if len(a) != len(b) {
		return false
	}

	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t.ID]++
	}
	for _, t := range b {
		counts[t.ID]--
		if counts[t.ID] < 0 {
			return false
		}
	}

	return true
}
