package mpris

import (
	"fmt"
	"math"
	"time"

	"github.com/diamondburned/chika/internal/queue"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/rs/zerolog/log"
)

type microsecond = int64

func secondsToMicroseconds(secs float64) microsecond {
	const us = float64(time.Second / time.Microsecond)
	return microsecond(math.Round(secs * us))
}

func microsecondsToSeconds(usec microsecond) float64 {
	const us = float64(time.Second / time.Microsecond)
	return float64(usec) / us
}

func trackID(trackIx int) dbus.ObjectPath {
	if trackIx < 0 {
		return dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
	}
	const trackIDfmt = tracksPath + "/%d"
	return dbus.ObjectPath(fmt.Sprintf(trackIDfmt, trackIx))
}

type player struct {
	ctrl     Controller
	dispatch Dispatcher

	propQ chan propChange
	stop  chan struct{}

	// trackID is only touched on the dispatcher.
	trackID dbus.ObjectPath
}

type propChange struct {
	n string
	v interface{}
}

func newPlayer(ctrl Controller, dispatch Dispatcher) *player {
	return &player{
		ctrl:     ctrl,
		dispatch: dispatch,
		propQ:    make(chan propChange, 10),
		stop:     make(chan struct{}),
		trackID:  trackID(-1),
	}
}

// start starts the worker that publishes queued property changes.
func (p *player) start(props *prop.Properties) {
	go func() {
		for {
			select {
			case <-p.stop:
				return
			case send := <-p.propQ:
				// SetMust skips the change callbacks, so our own updates do
				// not echo back into the controller.
				props.SetMust(playerID, send.n, send.v)
			}
		}
	}()
}

// Destroy stops background workers.
func (p *player) Destroy() {
	close(p.stop)
}

// sendProp queues the prop to be sent through DBus. It pops off the first item
// of the queue if it's full.
func (p *player) sendProp(n string, v interface{}) {
	prop := propChange{n, v}

	for {
		select {
		case <-p.stop:
			return
		case p.propQ <- prop:
			return
		default:
			log.Warn().Str("prop", n).Msg("MPRIS prop send buffer overflow")

			// Try and pop the earliest prop out.
			select {
			case <-p.propQ:
			default:
			}
		}
	}
}

var noTrackMetadata = map[string]interface{}{
	"mpris:trackid": trackID(-1),
}

func trackMetadata(id dbus.ObjectPath, track *queue.Track) map[string]interface{} {
	return map[string]interface{}{
		"mpris:trackid": id,
		"mpris:length":  track.Length.Microseconds(),
		"xesam:title":   track.Title,
		"xesam:album":   track.Album,
		"xesam:artist":  []string{track.Artist},
	}
}

func (p *player) sendPlaying(index int, track *queue.Track) {
	if track == nil {
		index = -1
	}

	p.trackID = trackID(index)

	if track == nil {
		p.sendProp("Metadata", noTrackMetadata)
		p.sendProp("PlaybackStatus", "Stopped")
		return
	}

	p.sendProp("Metadata", trackMetadata(p.trackID, track))
}

// DBus methods.

type root struct{ p *player }

func (r root) Raise() *dbus.Error {
	return errUnimplemented
}

func (r root) Quit() *dbus.Error {
	r.p.dispatch(r.p.ctrl.Quit)
	return nil
}

func (p *player) Next() *dbus.Error {
	p.dispatch(p.ctrl.Next)
	return nil
}

func (p *player) Previous() *dbus.Error {
	p.dispatch(p.ctrl.Previous)
	return nil
}

func (p *player) Pause() *dbus.Error {
	p.dispatch(func() { p.ctrl.SetPlaying(false) })
	return nil
}

func (p *player) Play() *dbus.Error {
	p.dispatch(func() { p.ctrl.SetPlaying(true) })
	return nil
}

// Stop pauses; the queue position is kept.
func (p *player) Stop() *dbus.Error {
	return p.Pause()
}

func (p *player) PlayPause() *dbus.Error {
	p.dispatch(p.ctrl.TogglePlaying)
	return nil
}

func (p *player) OpenUri(uri string) *dbus.Error {
	return errUnimplemented
}

// Seek seeks relative to the current position.
func (p *player) Seek(us microsecond) *dbus.Error {
	p.dispatch(func() {
		pos, _ := p.ctrl.PlayTime()
		pos += microsecondsToSeconds(us)
		if pos < 0 {
			pos = 0
		}
		p.ctrl.Seek(pos)
	})
	return nil
}

func (p *player) SetPosition(id dbus.ObjectPath, us microsecond) *dbus.Error {
	p.dispatch(func() {
		// Seek if our trackID is not stale.
		if p.trackID == id {
			p.ctrl.Seek(microsecondsToSeconds(us))
		}
	})

	return nil
}
