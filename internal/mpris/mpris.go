// Package mpris exposes the player over the MPRIS2 DBus interface.
package mpris

import (
	"github.com/diamondburned/chika/internal/queue"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/pkg/errors"
)

const (
	chikaPath  = "/com/github/diamondburned/chika"
	tracksPath = chikaPath + "/Tracks"

	mprisPath = "/org/mpris/MediaPlayer2"

	introspectID = "org.freedesktop.DBus.Introspectable"
	mprisID      = "org.mpris.MediaPlayer2"
	playerID     = mprisID + ".Player"
	chikaID      = mprisID + ".chika"
)

// Controller is what MPRIS clients control. Its methods are only ever called
// through the Dispatcher given to New.
type Controller interface {
	Next()
	Previous()
	SetPlaying(playing bool)
	TogglePlaying()
	// Seek seeks to the absolute position in seconds.
	Seek(pos float64)
	PlayTime() (pos, total float64)
	SetShuffle(shuffle bool)
	SetRepeat(mode queue.RepeatMode)
	Quit()
}

// Dispatcher runs f on the controller's event loop.
type Dispatcher func(f func())

// Conn is a single MPRIS DBus connection.
type Conn struct {
	conn   *dbus.Conn
	player *player
}

// New creates a new MPRIS connection over the session bus.
func New(ctrl Controller, dispatch Dispatcher) (*Conn, error) {
	c, err := newConn(ctrl, dispatch)
	if err == nil {
		return c, nil
	}

	c.Close()
	return nil, err
}

func newConn(ctrl Controller, dispatch Dispatcher) (*Conn, error) {
	s, err := dbus.SessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}

	player := newPlayer(ctrl, dispatch)
	conn := Conn{conn: s, player: player}

	props := map[string]map[string]*prop.Prop{
		mprisID:  player.rootProps(),
		playerID: player.playerProps(),
	}

	p, err := prop.Export(s, mprisPath, props)
	if err != nil {
		return &conn, errors.Wrap(err, "failed to create DBus properties")
	}

	player.start(p)

	if err := s.Export(root{player}, mprisPath, mprisID); err != nil {
		return &conn, errors.Wrap(err, "failed to export the MPRIS root")
	}

	if err := s.Export(player, mprisPath, playerID); err != nil {
		return &conn, errors.Wrap(err, "failed to export the MPRIS Player")
	}

	if err := s.Export(introspectionXML, mprisPath, introspectID); err != nil {
		return &conn, errors.Wrap(err, "failed to export introspection.xml")
	}

	reply, err := s.RequestName(chikaID, dbus.NameFlagDoNotQueue)
	if err != nil {
		return &conn, errors.Wrap(err, "failed to request name")
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return &conn, errors.New("requested name is not primary, name already taken")
	}

	return &conn, nil
}

// Close closes the current DBus connection and destroys background workers. If
// c is nil, then Close returns nil.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}

	c.player.Destroy()
	return c.conn.Close()
}

// UpdateTrack publishes the current track. A nil track or a negative index
// means nothing is playing.
func (c *Conn) UpdateTrack(index int, track *queue.Track) {
	c.player.sendPlaying(index, track)
}

// UpdatePause publishes the playback status.
func (c *Conn) UpdatePause(pause bool) {
	c.player.sendProp("PlaybackStatus", playbackStatus(pause))
}

// UpdatePosition publishes the position in seconds. Clients read it on
// demand, so no signal is emitted.
func (c *Conn) UpdatePosition(pos float64) {
	c.player.sendProp("Position", int64(secondsToMicroseconds(pos)))
}

// UpdateModes publishes the shuffle and repeat state.
func (c *Conn) UpdateModes(shuffle bool, mode queue.RepeatMode) {
	c.player.sendProp("Shuffle", shuffle)
	c.player.sendProp("LoopStatus", loopStatus(mode))
}

const introspectionXML introspect.Introspectable = `
<node>
	<interface name="org.mpris.MediaPlayer2">
		<method name="Raise">
		</method>
		<method name="Quit">
		</method>
		<property name="CanQuit" type="b" access="read"/>
		<property name="CanRaise" type="b" access="read"/>
		<property name="HasTrackList" type="b" access="read"/>
		<property name="Identity" type="s" access="read"/>
		<property name="SupportedUriSchemes" type="as" access="read"/>
		<property name="SupportedMimeTypes" type="as" access="read"/>
	</interface>
	<interface name="org.mpris.MediaPlayer2.Player">
		<method name="Next">
		</method>
		<method name="Previous">
		</method>
		<method name="Pause">
		</method>
		<method name="PlayPause">
		</method>
		<method name="Stop">
		</method>
		<method name="Play">
		</method>
		<method name="Seek">
			<arg type="x" name="Offset" direction="in"/>
		</method>
		<method name="SetPosition">
			<arg type="o" name="TrackId" direction="in"/>
			<arg type="x" name="Offset" direction="in"/>
		</method>
		<method name="OpenUri">
			<arg type="s" name="Uri" direction="in"/>
		</method>
		<signal name="Seeked">
			<arg type="x" name="Position" direction="out"/>
		</signal>
		<property name="PlaybackStatus" type="s" access="read"/>
		<property name="LoopStatus" type="s" access="readwrite"/>
		<property name="Rate" type="d" access="readwrite"/>
		<property name="Shuffle" type="b" access="readwrite"/>
		<property name="Metadata" type="a{sv}" access="read"/>
		<property name="Volume" type="d" access="readwrite"/>
		<property name="Position" type="x" access="read"/>
		<property name="MinimumRate" type="d" access="read"/>
		<property name="MaximumRate" type="d" access="read"/>
		<property name="CanGoNext" type="b" access="read"/>
		<property name="CanGoPrevious" type="b" access="read"/>
		<property name="CanPlay" type="b" access="read"/>
		<property name="CanPause" type="b" access="read"/>
		<property name="CanSeek" type="b" access="read"/>
		<property name="CanControl" type="b" access="read"/>
	</interface>
</node>
`
