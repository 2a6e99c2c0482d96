// Package ui implements the interactive console host. It owns the event loop,
// wires the play queue to the playback engine and runs user commands.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/diamondburned/chika/internal/auth"
	"github.com/diamondburned/chika/internal/catalog"
	"github.com/diamondburned/chika/internal/library"
	"github.com/diamondburned/chika/internal/mpris"
	"github.com/diamondburned/chika/internal/muse"
	"github.com/diamondburned/chika/internal/queue"
	"github.com/diamondburned/chika/internal/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// maxErrorThreshold is the error threshold before the player stops seeking.
// Refer to errCounter.
const maxErrorThreshold = 3

// Player is a playback engine.
type Player interface {
	SetHandler(h muse.EventHandler)
	Start()
	Stop()
	PlayTrack(path string) error
	StopTrack() error
	SetPlay(playing bool) error
	Seek(pos float64) error
	SetVolume(vol int) error
	PlayTime() (pos, total float64)
}

var (
	_ Player = (*muse.Session)(nil)
	_ Player = (*muse.MPDSession)(nil)
)

// Publisher is told about player changes, such as an MPRIS connection.
type Publisher interface {
	UpdateTrack(index int, track *queue.Track)
	UpdatePause(pause bool)
	UpdatePosition(pos float64)
	UpdateModes(shuffle bool, mode queue.RepeatMode)
}

var _ Publisher = (*mpris.Conn)(nil)

type Options struct {
	// Out is where command output goes.
	Out io.Writer
	// Saver persists the session. It is optional.
	Saver *state.Saver
	// Restore restores the saved queue when the same user logs in again.
	Restore bool
	Volume  int
}

type Console struct {
	loop   *Loop
	out    io.Writer
	db     *catalog.Database
	auth   *auth.Service
	lib    *library.Service
	lists  *library.Playlists
	queue  *queue.Manager
	player Player
	pubs   []Publisher

	saver   *state.Saver
	restore bool

	commands map[string]*command
	names    []string

	user    *catalog.User
	library *catalog.Library

	// listed and listedPlaylists are the last printed lists; numbers given to
	// commands refer to them.
	listed          []*catalog.Song
	listedAlbums    []*catalog.Album
	listedPlaylists []*catalog.Playlist

	loaded bool
	paused bool
	volume int

	// errCounter is the counter to print errors before pausing.
	errCounter int
}

func NewConsole(loop *Loop, db *catalog.Database, q *queue.Manager, player Player, opts Options) *Console {
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	c := &Console{
		loop:    loop,
		out:     opts.Out,
		db:      db,
		auth:    auth.NewService(db),
		lib:     library.NewService(db),
		lists:   library.NewPlaylists(db),
		queue:   q,
		player:  player,
		saver:   opts.Saver,
		restore: opts.Restore,
		paused:  true,
		volume:  opts.Volume,
	}

	c.commands, c.names = makeCommands()

	q.OnQueueChange(func(*queue.Manager) { c.saveState() })

	q.OnCurrentChange(func(m *queue.Manager, cursor int) {
		_, track := m.Current()
		for _, pub := range c.pubs {
			pub.UpdateTrack(cursor, track)
		}
		c.saveState()
	})

	q.OnModeChange(func(m *queue.Manager) {
		for _, pub := range c.pubs {
			pub.UpdateModes(m.IsShuffling(), m.RepeatMode())
		}
		c.saveState()
	})

	player.SetHandler(engineEvents{c})

	return c
}

// AddPublisher adds a publisher and sends it the current state.
func (c *Console) AddPublisher(pub Publisher) {
	c.pubs = append(c.pubs, pub)

	pub.UpdateTrack(c.queue.Current())
	pub.UpdatePause(c.paused)
	pub.UpdateModes(c.queue.IsShuffling(), c.queue.RepeatMode())
}

// Run starts the player, reads commands from in and runs the loop until the
// user quits, the input ends or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) {
	c.player.Start()

	if err := c.player.SetVolume(c.volume); err != nil {
		log.Warn().Err(err).Msg("failed to set initial volume")
	}

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := scanner.Text()
			c.loop.IdleAdd(func() { c.Exec(line) })
		}

		if err := scanner.Err(); err != nil {
			log.Error().Err(err).Msg("failed to read input")
		}

		c.loop.IdleAdd(c.Quit)
	}()

	fmt.Fprintln(c.out, `chika: type "help" for a list of commands.`)

	c.loop.Run(ctx)
	c.shutdown()
}

func (c *Console) shutdown() {
	if c.saver == nil || c.user == nil {
		return
	}

	if err := c.saver.Flush(c.snapshotState()); err != nil {
		log.Error().Err(err).Msg("failed to save state")
	}
}

// Exec runs a single command line.
func (c *Console) Exec(line string) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}

	cmd, ok := c.commands[strings.ToLower(args[0])]
	if !ok {
		c.printf("unknown command %q, try \"help\"\n", args[0])
		return
	}

	args = args[1:]

	if len(args) < cmd.args {
		c.printf("usage: %s %s\n", cmd.name, cmd.usage)
		return
	}

	if cmd.login && c.user == nil {
		c.printf("%s: you need to log in first\n", cmd.name)
		return
	}

	if err := cmd.run(c, args); err != nil {
		log.Debug().Err(err).Str("command", cmd.name).Msg("command failed")
		c.printf("%s: %v\n", cmd.name, err)
	}
}

func (c *Console) printf(f string, v ...interface{}) {
	fmt.Fprintf(c.out, f, v...)
}

func (c *Console) saveState() {
	if c.saver == nil || c.user == nil {
		return
	}

	c.saver.SaveAsync(c.snapshotState())
}

func (c *Console) snapshotState() state.State {
	var email string
	if c.user != nil {
		email = c.user.Email
	}
	return state.FromSnapshot(email, c.volume, c.queue.Snapshot())
}

// restoreState restores the queue saved by the same user.
func (c *Console) restoreState() {
	if c.saver == nil || !c.restore {
		return
	}

	st, err := state.ReadFile(c.saver.Path())
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable state file")
		return
	}

	if st.Email != c.user.Email {
		return
	}

	c.queue.Restore(st.Snapshot(c.resolveTrack))

	if st.Volume > 0 {
		c.volume = st.Volume
		if err := c.player.SetVolume(c.volume); err != nil {
			log.Warn().Err(err).Msg("failed to restore volume")
		}
	}

	if c.queue.Len() > 0 {
		c.printf("Restored %d tracks into the queue.\n", c.queue.Len())
	}
}

func (c *Console) resolveTrack(id string) (queue.Track, bool) {
	song, ok := c.db.Song(id)
	if !ok {
		return queue.Track{}, false
	}
	return c.track(song), true
}

// track converts the song into a queue track with the album title resolved.
func (c *Console) track(song *catalog.Song) queue.Track {
	track := song.Track()
	track.Album = c.albumTitle(song.Album)
	return track
}

func (c *Console) tracks(songs []*catalog.Song) []queue.Track {
	tracks := make([]queue.Track, len(songs))
	for i, song := range songs {
		tracks[i] = c.track(song)
	}
	return tracks
}

func (c *Console) albumTitle(id string) string {
	if album, ok := c.db.Album(id); ok {
		return album.Title
	}
	return id
}

// Playback. These methods also implement mpris.Controller.

var _ mpris.Controller = (*Console)(nil)

func (c *Console) playTrack(track *queue.Track) {
	song, ok := c.db.Song(track.ID)
	if !ok {
		c.printf("%q is no longer in the catalog\n", track.Title)
		return
	}

	if err := c.player.PlayTrack(c.db.SongPath(song)); err != nil {
		log.Error().Err(err).Str("song", song.ID).Msg("PlayTrack failed")
		c.printf("failed to play %s: %v\n", song, err)
		return
	}

	c.loaded = true
	c.setPaused(false)
	c.printf("Now playing: %s\n", song)
}

func (c *Console) stopPlayback() {
	if err := c.player.StopTrack(); err != nil {
		log.Error().Err(err).Msg("StopTrack failed")
	}

	c.loaded = false
	c.setPaused(true)
}

func (c *Console) setPaused(pause bool) {
	if c.paused == pause {
		return
	}

	c.paused = pause
	for _, pub := range c.pubs {
		pub.UpdatePause(pause)
	}
}

// OnSongFinish plays the next track, or stops once the queue says so or too
// many tracks failed in a row.
func (c *Console) OnSongFinish(err error) {
	c.loaded = false

	if err != nil {
		c.errCounter++

		log.Error().Err(err).Int("errors", c.errCounter).Msg("error playing track")

		if c.errCounter > maxErrorThreshold {
			c.printf("Stopping after %d playback errors.\n", c.errCounter)
			c.errCounter = 0
			c.stopPlayback()
			return
		}
	} else {
		c.errCounter = 0
	}

	// Play the next song.
	if track := c.queue.Next(); track != nil {
		c.playTrack(track)
		return
	}

	c.stopPlayback()
	c.printf("End of queue.\n")
}

func (c *Console) OnPauseUpdate(pause bool) {
	c.setPaused(pause)
}

func (c *Console) OnPositionChange(pos, total float64) {
	for _, pub := range c.pubs {
		pub.UpdatePosition(pos)
	}
}

// Next skips to the next track. Unlike a finished song, skipping also moves
// on in RepeatOne mode.
func (c *Console) Next() {
	if c.queue.Len() == 0 {
		return
	}

	var track *queue.Track
	if c.queue.RepeatMode() == queue.RepeatOne {
		next := c.queue.Cursor() + 1
		if next >= c.queue.Len() {
			next = 0
		}
		track = c.queue.Select(next)
	} else {
		track = c.queue.Next()
	}

	if track == nil {
		c.stopPlayback()
		c.printf("End of queue.\n")
		return
	}

	c.playTrack(track)
}

func (c *Console) Previous() {
	if track := c.queue.Previous(); track != nil {
		c.playTrack(track)
	}
}

// SetPlaying unpauses or pauses. Unpausing with nothing loaded starts the
// current track, or the first one.
func (c *Console) SetPlaying(playing bool) {
	if playing && !c.loaded {
		_, track := c.queue.Current()
		if track == nil {
			track = c.queue.Select(0)
		}
		if track != nil {
			c.playTrack(track)
		}
		return
	}

	if err := c.player.SetPlay(playing); err != nil {
		log.Error().Err(err).Msg("SetPlay failed")
		return
	}

	c.setPaused(!playing)
}

func (c *Console) TogglePlaying() {
	c.SetPlaying(c.paused)
}

func (c *Console) Seek(pos float64) {
	if err := c.player.Seek(pos); err != nil {
		log.Error().Err(err).Msg("Seek failed")
	}
}

func (c *Console) PlayTime() (pos, total float64) {
	return c.player.PlayTime()
}

func (c *Console) SetShuffle(shuffle bool) {
	c.queue.SetShuffling(shuffle)
}

func (c *Console) SetRepeat(mode queue.RepeatMode) {
	c.queue.SetRepeatMode(mode)
}

func (c *Console) SetVolume(vol int) error {
	if vol < 0 || vol > 100 {
		return errors.Errorf("volume %d is not within 0-100", vol)
	}

	if err := c.player.SetVolume(vol); err != nil {
		return errors.Wrap(err, "failed to set volume")
	}

	c.volume = vol
	c.saveState()
	return nil
}

// Quit stops the loop.
func (c *Console) Quit() {
	c.loop.Quit()
}

// Account.

func (c *Console) login(user *catalog.User) {
	lib, ok := c.db.Library(user.LibraryID)
	if !ok {
		// The library file lost it; start over with an empty one.
		lib = &catalog.Library{
			ID:        user.LibraryID,
			Songs:     []string{},
			Albums:    []string{},
			Playlists: []string{},
		}
		if err := c.db.AddLibrary(lib); err != nil {
			log.Error().Err(err).Msg("failed to recreate library")
		}
	}

	c.user = user
	c.library = lib

	log.Info().Str("user", user.Email).Msg("logged in")
	c.printf("Welcome, %s.\n", user.Username)

	c.restoreState()
}

func (c *Console) logout(save bool) {
	if c.user == nil {
		return
	}

	if save && c.saver != nil {
		if err := c.saver.Flush(c.snapshotState()); err != nil {
			log.Error().Err(err).Msg("failed to save state")
		}
	}

	log.Info().Str("user", c.user.Email).Msg("logged out")

	c.user = nil
	c.library = nil
	c.listedPlaylists = nil

	c.stopPlayback()
	c.queue.Clear()
}

// engineEvents marshals engine events onto the loop.
type engineEvents struct{ c *Console }

func (e engineEvents) OnSongFinish(err error) {
	e.c.loop.IdleAdd(func() { e.c.OnSongFinish(err) })
}

func (e engineEvents) OnPauseUpdate(pause bool) {
	e.c.loop.IdleAdd(func() { e.c.OnPauseUpdate(pause) })
}

func (e engineEvents) OnPositionChange(pos, total float64) {
	e.c.loop.IdleAdd(func() { e.c.OnPositionChange(pos, total) })
}
