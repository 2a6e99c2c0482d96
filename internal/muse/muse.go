// Package muse drives the external playback engines. Sessions play one
// file at a time; the queue decides what comes next.
package muse

import (
	"math"
	"strings"
	"sync/atomic"
)

// EventHandler receives playback events. Its methods are called from
// background goroutines, so implementations must marshal the calls onto
// their own loop.
type EventHandler interface {
	// OnSongFinish is called when the current file stops on its own. A
	// non-nil error means playback failed rather than reaching the end.
	OnSongFinish(err error)
	OnPauseUpdate(pause bool)
	OnPositionChange(pos, total float64)
}

// PlayState wraps the current playback state.
type PlayState struct {
	pos uint64
	tot uint64
}

func (ps *PlayState) updatePos(pos float64) {
	atomic.StoreUint64(&ps.pos, math.Float64bits(pos))
}

func (ps *PlayState) updateTotal(tot float64) {
	atomic.StoreUint64(&ps.tot, math.Float64bits(tot))
}

func (ps *PlayState) reset() {
	ps.updatePos(0)
	ps.updateTotal(0)
}

// PlayTime reads the playback position and the track duration atomically,
// in seconds.
func (ps *PlayState) PlayTime() (pos, total float64) {
	pos = math.Float64frombits(atomic.LoadUint64(&ps.pos))
	total = math.Float64frombits(atomic.LoadUint64(&ps.tot))
	return
}

func clampVolume(vol int) int {
	switch {
	case vol < 0:
		return 0
	case vol > 100:
		return 100
	default:
		return vol
	}
}

type batchErrors []error

func makeBatchErrors(errs ...error) error {
	var nonNils = errs[:0]
	for _, err := range errs {
		if err != nil {
			nonNils = append(nonNils, err)
		}
	}

	if len(nonNils) == 0 {
		return nil
	}

	return batchErrors(nonNils)
}

func (b batchErrors) Error() string {
	var errors = make([]string, len(b))
	for i, err := range b {
		errors[i] = err.Error()
	}

	// English moment.
	return strings.Join(errors, ", and ")
}
