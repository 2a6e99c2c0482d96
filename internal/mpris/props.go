package mpris

import (
	"github.com/diamondburned/chika/internal/queue"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/pkg/errors"
)

func (p *player) rootProps() map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"CanQuit":             newReadOnlyProp(true),
		"CanRaise":            newReadOnlyProp(false),
		"HasTrackList":        newReadOnlyProp(false),
		"Identity":            newReadOnlyProp("chika"),
		"SupportedUriSchemes": newReadOnlyProp([]string{"file"}),
		"SupportedMimeTypes":  newReadOnlyProp([]string{}),
	}
}

func (p *player) playerProps() map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"PlaybackStatus": newWritableProp("Stopped", nil),
		"LoopStatus":     newWritableProp("None", p.onLoopStatus),
		"Rate":           newWritableProp(1.0, unimplementedChangeFn),
		"Shuffle":        newWritableProp(false, p.onShuffle),
		"Metadata":       newWritableProp(noTrackMetadata, nil),
		"Volume":         newWritableProp(1.0, unimplementedChangeFn),
		"Position":       newWritableUnemittedProp(int64(0), nil),
		"MinimumRate":    newWritableProp(1.0, nil),
		"MaximumRate":    newWritableProp(1.0, nil),
		"CanGoNext":      newWritableProp(true, nil),
		"CanGoPrevious":  newWritableProp(true, nil),
		"CanPlay":        newWritableProp(true, nil),
		"CanPause":       newWritableProp(true, nil),
		"CanSeek":        newWritableProp(true, nil),
		"CanControl":     newWritableProp(true, nil),
	}
}

func (p *player) onShuffle(c *prop.Change) *dbus.Error {
	shuffle, ok := c.Value.(bool)
	if !ok {
		return errInvalidValue
	}

	p.dispatch(func() { p.ctrl.SetShuffle(shuffle) })
	return nil
}

func (p *player) onLoopStatus(c *prop.Change) *dbus.Error {
	status, ok := c.Value.(string)
	if !ok {
		return errInvalidValue
	}

	mode, ok := repeatMode(status)
	if !ok {
		return errInvalidValue
	}

	p.dispatch(func() { p.ctrl.SetRepeat(mode) })
	return nil
}

// loopStatus maps the repeat mode to its MPRIS name.
func loopStatus(mode queue.RepeatMode) string {
	switch mode {
	case queue.RepeatOne:
		return "Track"
	case queue.RepeatAll:
		return "Playlist"
	default:
		return "None"
	}
}

func repeatMode(status string) (queue.RepeatMode, bool) {
	switch status {
	case "None":
		return queue.RepeatOff, true
	case "Track":
		return queue.RepeatOne, true
	case "Playlist":
		return queue.RepeatAll, true
	default:
		return queue.RepeatOff, false
	}
}

func playbackStatus(pause bool) string {
	if pause {
		return "Paused"
	}
	return "Playing"
}

var (
	errUnimplemented = dbus.MakeFailedError(errors.New("unimplemented"))
	errInvalidValue  = dbus.MakeFailedError(errors.New("invalid value"))
)

func unimplementedChangeFn(*prop.Change) *dbus.Error {
	return errUnimplemented
}

func newReadOnlyProp(v interface{}) *prop.Prop {
	return &prop.Prop{
		Value:    v,
		Writable: false,
		Emit:     prop.EmitTrue,
	}
}

func newWritableProp(v interface{}, fn func(*prop.Change) *dbus.Error) *prop.Prop {
	return &prop.Prop{
		Value:    v,
		Writable: true,
		Emit:     prop.EmitTrue,
		Callback: fn,
	}
}

func newWritableUnemittedProp(v interface{}, fn func(*prop.Change) *dbus.Error) *prop.Prop {
	return &prop.Prop{
		Value:    v,
		Writable: true,
		Emit:     prop.EmitFalse,
		Callback: fn,
	}
}
