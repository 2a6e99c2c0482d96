package ui

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/diamondburned/chika/internal/catalog"
	"github.com/diamondburned/chika/internal/muse"
	"github.com/diamondburned/chika/internal/queue"
	"github.com/diamondburned/chika/internal/state"
	"github.com/go-test/deep"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakePlayer struct {
	handler muse.EventHandler
	started bool
	played  []string
	stopped int
	playing bool
	seeked  []float64
	volume  int
	pos     float64
	total   float64
}

func (p *fakePlayer) SetHandler(h muse.EventHandler) { p.handler = h }
func (p *fakePlayer) Start() { p.started = true }
func (p *fakePlayer) Stop() {}

func (p *fakePlayer) PlayTrack(path string) error {
	p.played = append(p.played, path)
	p.playing = true
	return nil
}

func (p *fakePlayer) StopTrack() error {
	p.stopped++
	p.playing = false
	return nil
}

func (p *fakePlayer) SetPlay(playing bool) error {
	p.playing = playing
	return nil
}

func (p *fakePlayer) Seek(pos float64) error {
	p.seeked = append(p.seeked, pos)
	return nil
}

func (p *fakePlayer) SetVolume(vol int) error {
	p.volume = vol
	return nil
}

func (p *fakePlayer) PlayTime() (pos, total float64) { return p.pos, p.total }

type fakePublisher struct {
	index   int
	track   *queue.Track
	paused  bool
	shuffle bool
	mode    queue.RepeatMode
	pos     float64
}

func (p *fakePublisher) UpdateTrack(index int, track *queue.Track) {
	p.index = index
	p.track = track
}

func (p *fakePublisher) UpdatePause(pause bool) { p.paused = pause }
func (p *fakePublisher) UpdatePosition(pos float64) { p.pos = pos }

func (p *fakePublisher) UpdateModes(shuffle bool, mode queue.RepeatMode) {
	p.shuffle = shuffle
	p.mode = mode
}

const (
	testEmail    = "user@example.com"
	testPassword = "hunter2"
)

func newTestDatabase(t *testing.T) *catalog.Database {
	t.Helper()

	db := catalog.New(t.TempDir())

	db.AddGenre(&catalog.Genre{ID: "rock", Name: "Rock"})
	db.AddAlbum(&catalog.Album{ID: "al1", Title: "First", Artist: "Band", Songs: []string{"s1", "s2"}})
	db.AddAlbum(&catalog.Album{ID: "al2", Title: "Alone", Artist: "Solo", Songs: []string{"s3"}})

	songs := []*catalog.Song{
		{ID: "s1", Title: "Hello World", Artist: "Band", Album: "al1", Genre: "rock", Duration: 100, Filename: "band/hello.mp3"},
		{ID: "s2", Title: "Goodbye", Artist: "Band", Album: "al1", Genre: "rock", Duration: 200, Filename: "band/goodbye.mp3"},
		{ID: "s3", Title: "Blue Notes", Artist: "Solo", Album: "al2", Genre: "rock", Duration: 300, Filename: "solo/blue.mp3"},
	}
	for _, song := range songs {
		db.AddSong(song)
	}
	require.NoError(t, db.SaveCatalog())

	addTestUser(t, db, testEmail, "tester")
	return db
}

func addTestUser(t *testing.T, db *catalog.Database, email, name string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, db.AddUser(&catalog.User{
		Email:        email,
		Username:     name,
		PasswordHash: string(hash),
		LibraryID:    "lib-" + name,
	}))
}

type testConsole struct {
	*Console
	db     *catalog.Database
	player *fakePlayer
	pub    *fakePublisher
	out    *bytes.Buffer
}

func newTestConsole(t *testing.T, opts Options) *testConsole {
	t.Helper()

	db := newTestDatabase(t)
	player := &fakePlayer{}
	out := &bytes.Buffer{}
	opts.Out = out

	c := NewConsole(NewLoop(), db, queue.New(), player, opts)

	pub := &fakePublisher{}
	c.AddPublisher(pub)

	if opts.Saver != nil {
		t.Cleanup(func() { c.saver.Flush(c.snapshotState()) })
	}

	return &testConsole{c, db, player, pub, out}
}

// path returns the file path the player is given for the song.
func (c *testConsole) path(id string) string {
	song, _ := c.db.Song(id)
	return c.db.SongPath(song)
}

func (c *testConsole) paths(ids ...string) []string {
	paths := make([]string, len(ids))
	for i, id := range ids {
		paths[i] = c.path(id)
	}
	return paths
}

func TestLoop(t *testing.T) {
	loop := NewLoop()

	var ran []int
	done := make(chan struct{})

	go func() {
		defer close(done)
		loop.Run(context.Background())
	}()

	for i := 0; i < 3; i++ {
		i := i
		loop.IdleAdd(func() { ran = append(ran, i) })
	}
	loop.IdleAdd(loop.Quit)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not quit")
	}

	if diff := deep.Equal(ran, []int{0, 1, 2}); diff != nil {
		t.Fatal("unexpected callbacks:", diff)
	}

	// IdleAdd must not block once the loop is gone.
	for i := 0; i < 100; i++ {
		loop.IdleAdd(func() {})
	}
}

func TestLoopContext(t *testing.T) {
	loop := NewLoop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loop.Run(ctx)

	select {
	case <-loop.Done():
	default:
		t.Fatal("loop not marked done after the context ended")
	}
}

func TestExecErrors(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("")
	assert.Empty(t, c.out.String())

	c.Exec("dance")
	assert.Contains(t, c.out.String(), `unknown command "dance"`)

	c.out.Reset()
	c.Exec("login " + testEmail)
	assert.Contains(t, c.out.String(), "usage: login <email> <password>")

	c.out.Reset()
	c.Exec("library")
	assert.Contains(t, c.out.String(), "library: you need to log in first")

	c.out.Reset()
	c.Exec("login " + testEmail + " wrong")
	assert.Contains(t, c.out.String(), "login: wrong password")
	assert.Nil(t, c.user)
}

func TestLoginAndLibrary(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("LOGIN " + testEmail + " " + testPassword)
	require.NotNil(t, c.user)
	assert.Contains(t, c.out.String(), "Welcome, tester.")

	// The test user has no library yet, so logging in creates one.
	lib, ok := c.db.Library("lib-tester")
	require.True(t, ok)

	c.Exec("songs")
	c.Exec("add 1")
	c.Exec("add s3")
	c.Exec("add s3")

	if diff := deep.Equal(lib.Songs, []string{"s2", "s3"}); diff != nil {
		t.Fatal("unexpected library:", diff)
	}

	c.Exec("remove s2")
	assert.Equal(t, []string{"s3"}, lib.Songs)

	c.Exec("logout")
	assert.Nil(t, c.user)
	assert.Nil(t, c.library)
}

func TestRegister(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("register new@example.com secret secret New User")
	require.NotNil(t, c.user)
	assert.Equal(t, "New User", c.user.Username)

	_, ok := c.db.User("new@example.com")
	assert.True(t, ok)

	c.out.Reset()
	c.Exec("register bad@example.com secret other Someone")
	assert.Contains(t, c.out.String(), "passwords do not match")
	assert.Equal(t, "new@example.com", c.user.Email)
}

func TestPlayQueuesListed(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("songs")
	c.Exec("play 2")

	assert.Equal(t, 3, c.queue.Len())
	assert.Equal(t, 1, c.queue.Cursor())

	if diff := deep.Equal(c.player.played, c.paths("s1")); diff != nil {
		t.Fatal("unexpected played tracks:", diff)
	}

	assert.True(t, c.loaded)
	assert.False(t, c.paused)
	assert.False(t, c.pub.paused)
	assert.Equal(t, 1, c.pub.index)
	require.NotNil(t, c.pub.track)
	assert.Equal(t, "s1", c.pub.track.ID)
	assert.Equal(t, "First", c.pub.track.Album)
}

func TestPlayUnlisted(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("play s3")
	assert.Equal(t, 1, c.queue.Len())
	assert.Equal(t, c.paths("s3"), c.player.played)

	c.out.Reset()
	c.Exec("play 7")
	assert.Contains(t, c.out.String(), "no song #7 in the last list")
}

func TestSongFinishAdvances(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("songs")
	c.Exec("play 1")

	c.OnSongFinish(nil)
	c.OnSongFinish(nil)

	if diff := deep.Equal(c.player.played, c.paths("s2", "s1", "s3")); diff != nil {
		t.Fatal("unexpected played tracks:", diff)
	}

	// Repeat is off, so the last song ends the queue.
	c.OnSongFinish(nil)

	assert.Contains(t, c.out.String(), "End of queue.")
	assert.False(t, c.loaded)
	assert.True(t, c.paused)
	assert.Equal(t, 1, c.player.stopped)
	assert.Len(t, c.player.played, 3)
}

func TestSongFinishRepeatOne(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("songs")
	c.Exec("repeat one")
	c.Exec("play 1")

	c.OnSongFinish(nil)
	assert.Equal(t, c.paths("s2", "s2"), c.player.played)

	// Skipping by hand still moves on.
	c.Exec("next")
	assert.Equal(t, 1, c.queue.Cursor())
	assert.Equal(t, c.paths("s2", "s2", "s1"), c.player.played)
}

func TestErrorThreshold(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("songs")
	c.Exec("repeat all")
	c.Exec("play 1")

	errPlayback := errors.New("cannot open file")

	for i := 0; i < maxErrorThreshold; i++ {
		c.OnSongFinish(errPlayback)
		assert.True(t, c.loaded, "stopped after %d errors", i+1)
	}

	c.OnSongFinish(errPlayback)

	assert.False(t, c.loaded)
	assert.Equal(t, 1, c.player.stopped)
	assert.Len(t, c.player.played, 1+maxErrorThreshold)
	assert.Equal(t, 0, c.errCounter)
}

func TestErrorCounterResetsOnSuccess(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("songs")
	c.Exec("repeat all")
	c.Exec("play 1")

	errPlayback := errors.New("cannot open file")

	c.OnSongFinish(errPlayback)
	c.OnSongFinish(errPlayback)
	assert.Equal(t, 2, c.errCounter)

	c.OnSongFinish(nil)
	assert.Equal(t, 0, c.errCounter)

	for i := 0; i < maxErrorThreshold; i++ {
		c.OnSongFinish(errPlayback)
	}
	assert.True(t, c.loaded)
}

func TestModeCommands(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("shuffle on")
	assert.True(t, c.queue.IsShuffling())
	assert.True(t, c.pub.shuffle)

	c.Exec("shuffle")
	assert.False(t, c.queue.IsShuffling())

	c.Exec("repeat one")
	assert.Equal(t, queue.RepeatOne, c.queue.RepeatMode())

	c.Exec("repeat")
	assert.Equal(t, queue.RepeatAll, c.queue.RepeatMode())
	assert.Equal(t, queue.RepeatAll, c.pub.mode)

	c.out.Reset()
	c.Exec("repeat sometimes")
	assert.Contains(t, c.out.String(), "repeat:")
	assert.Equal(t, queue.RepeatAll, c.queue.RepeatMode())
}

func TestQueueCommands(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("enqueue s1")
	c.Exec("enqueue s2")
	c.Exec("playnext s3")

	ids := func() []string {
		var ids []string
		for _, track := range c.queue.Tracks() {
			ids = append(ids, track.ID)
		}
		return ids
	}

	// Nothing is current, so playnext goes to the front.
	assert.Equal(t, []string{"s3", "s1", "s2"}, ids())

	c.Exec("down 1")
	assert.Equal(t, []string{"s1", "s3", "s2"}, ids())

	c.Exec("up 3")
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids())

	c.Exec("select 2")
	assert.Equal(t, c.paths("s2"), c.player.played)

	// Removing the current track plays the one that took its place.
	c.Exec("dequeue 2")
	assert.Equal(t, []string{"s1", "s3"}, ids())
	assert.Equal(t, c.paths("s2", "s3"), c.player.played)

	c.out.Reset()
	c.Exec("dequeue 9")
	assert.Contains(t, c.out.String(), "nothing at #9")

	c.Exec("clear")
	assert.Equal(t, 0, c.queue.Len())
	assert.False(t, c.loaded)
}

func TestTransportCommands(t *testing.T) {
	c := newTestConsole(t, Options{Volume: 80})

	// Resuming with nothing loaded starts the queue.
	c.Exec("enqueue s1")
	c.Exec("resume")
	assert.Equal(t, c.paths("s1"), c.player.played)

	c.Exec("pause")
	assert.True(t, c.paused)
	assert.False(t, c.player.playing)

	c.Exec("toggle")
	assert.False(t, c.paused)
	assert.True(t, c.player.playing)

	c.Exec("seek 1:30")
	assert.Equal(t, []float64{90}, c.player.seeked)

	c.Exec("volume 40")
	assert.Equal(t, 40, c.player.volume)

	c.out.Reset()
	c.Exec("volume 150")
	assert.Contains(t, c.out.String(), "volume 150 is not within 0-100")
	assert.Equal(t, 40, c.volume)

	c.player.pos, c.player.total = 65, 100
	c.out.Reset()
	c.Exec("now")
	assert.Contains(t, c.out.String(), "Playing #1: Band - Hello World [1:05 / 1:40]")
}

func TestParseSeek(t *testing.T) {
	tests := []struct {
		in   string
		secs float64
		err  bool
	}{
		{in: "90", secs: 90},
		{in: "1:30", secs: 90},
		{in: "1:00:05", secs: 3605},
		{in: "2.5", secs: 2.5},
		{in: "x", err: true},
		{in: "-1", err: true},
		{in: "1:2:3:4", err: true},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			secs, err := parseSeek(test.in)
			if test.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.secs, secs)
		})
	}
}

func TestPlaylistCommands(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("login " + testEmail + " " + testPassword)
	c.Exec("mkplaylist Road Trip")
	c.Exec("playlists")
	require.Len(t, c.listedPlaylists, 1)

	pl := c.listedPlaylists[0]
	assert.Equal(t, "Road Trip", pl.Title)
	assert.Equal(t, testEmail, pl.Author)

	c.Exec("pladd 1 s3")
	c.Exec("pladd 1 s1")
	assert.Equal(t, []string{"s3", "s1"}, pl.Songs)

	path := filepath.Join(t.TempDir(), "trip.m3u")
	c.Exec("export 1 " + path)
	assert.FileExists(t, path)

	c.Exec("playlist-play 1")
	assert.Equal(t, c.paths("s3"), c.player.played)

	c.Exec("rmplaylist 1")
	_, ok := c.db.Playlist(pl.ID)
	assert.False(t, ok)

	c.Exec("import " + path)
	c.Exec("playlists")
	require.Len(t, c.listedPlaylists, 1)
	assert.Equal(t, []string{"s3", "s1"}, c.listedPlaylists[0].Songs)
}

func TestStateRestore(t *testing.T) {
	saver := state.NewSaver(filepath.Join(t.TempDir(), "state.json"))
	c := newTestConsole(t, Options{Saver: saver, Restore: true, Volume: 100})

	c.Exec("login " + testEmail + " " + testPassword)
	c.Exec("songs")
	c.Exec("play 2")
	c.Exec("volume 55")
	c.Exec("logout")

	assert.Equal(t, 0, c.queue.Len())

	st, err := state.ReadFile(saver.Path())
	require.NoError(t, err)
	assert.Equal(t, testEmail, st.Email)
	assert.Equal(t, []string{"s2", "s1", "s3"}, st.Queue)
	assert.Equal(t, 1, st.Cursor)

	// Someone else does not get the queue.
	addTestUser(t, c.db, "other@example.com", "other")
	c.Exec("login other@example.com " + testPassword)
	assert.Equal(t, 0, c.queue.Len())
	c.Exec("logout")

	// The state file now belongs to the other user, so save ours again.
	require.NoError(t, state.WriteFile(saver.Path(), st))

	c.Exec("login " + testEmail + " " + testPassword)
	assert.Equal(t, 3, c.queue.Len())
	assert.Equal(t, 1, c.queue.Cursor())
	assert.Equal(t, 55, c.volume)
	assert.Equal(t, 55, c.player.volume)

	// Restoring does not start playback.
	assert.False(t, c.loaded)
}

func TestHelp(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("help")
	for _, name := range c.names {
		assert.Contains(t, c.out.String(), name)
	}

	c.out.Reset()
	c.Exec("help play")
	assert.Contains(t, c.out.String(), "playlist-play")
	assert.NotContains(t, c.out.String(), "logout")
}

func TestQuit(t *testing.T) {
	c := newTestConsole(t, Options{})

	c.Exec("quit")

	select {
	case <-c.loop.Done():
	default:
		t.Fatal("quit did not stop the loop")
	}
}
