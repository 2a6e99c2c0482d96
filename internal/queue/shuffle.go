package queue

import (
	"encoding/binary"
	"math/rand"
	"time"

	cryptorand "crypto/rand"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(trueRandSeed()))
}

// Meme.
func trueRandSeed() (seed int64) {
	err := binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if err == nil {
		return
	}
	return time.Now().UnixNano()
}

// applyShuffle moves the current track to the front and shuffles everything
// after it. If there is no current track, the whole queue is shuffled and the
// cursor is left alone.
func (m *Manager) applyShuffle() {
	if len(m.active) == 0 {
		return
	}

	if m.cursor == NoCursor {
		m.rand.Shuffle(len(m.active), func(i, j int) {
			m.active[i], m.active[j] = m.active[j], m.active[i]
		})
		return
	}

	// Swap the current track into the first slot, then shuffle the rest. Every
	// permutation of the remaining tracks is equally likely.
	m.active[0], m.active[m.cursor] = m.active[m.cursor], m.active[0]
	m.cursor = 0

	rest := m.active[1:]
	m.rand.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
}

// removeShuffle restores the base order and relocates the cursor to wherever
// the current track lives in it.
func (m *Manager) removeShuffle() {
	_, current := m.Current()

	m.active = copyTracks(m.base)

	switch {
	case len(m.active) == 0:
		m.cursor = NoCursor
	case current == nil:
		// Nothing was playing; keep it that way.
		m.cursor = NoCursor
	default:
		m.cursor = indexOf(m.active, *current)
		if m.cursor == -1 {
			m.cursor = 0
		}
	}
}
