package ui

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diamondburned/chika/internal/catalog"
	"github.com/diamondburned/chika/internal/durafmt"
	"github.com/diamondburned/chika/internal/library"
	"github.com/diamondburned/chika/internal/queue"
	"github.com/pkg/errors"
)

type command struct {
	name  string
	usage string
	help  string
	// args is the minimum number of arguments.
	args  int
	login bool
	run   func(c *Console, args []string) error
}

func makeCommands() (map[string]*command, []string) {
	list := []*command{
		// Account.
		{name: "login", usage: "<email> <password>", help: "log in", args: 2, run: (*Console).cmdLogin},
		{name: "register", usage: "<email> <password> <password> <username>", help: "create an account and log in", args: 4, run: (*Console).cmdRegister},
		{name: "logout", help: "log out and clear the queue", login: true, run: (*Console).cmdLogout},
		{name: "delete-account", usage: "<password>", help: "delete your account", args: 1, login: true, run: (*Console).cmdDeleteAccount},

		// Catalog.
		{name: "songs", help: "list every song", run: (*Console).cmdSongs},
		{name: "albums", help: "list every album", run: (*Console).cmdAlbums},
		{name: "album", usage: "<album>", help: "list the songs of an album", args: 1, run: (*Console).cmdAlbum},
		{name: "artists", help: "list every artist", run: (*Console).cmdArtists},
		{name: "genres", help: "list every genre", run: (*Console).cmdGenres},
		{name: "search", usage: "<query>", help: "search songs by title and artist", args: 1, run: (*Console).cmdSearch},
		{name: "info", usage: "<song>", help: "show a song's details", args: 1, run: (*Console).cmdInfo},

		// Library.
		{name: "library", help: "list the songs in your library", login: true, run: (*Console).cmdLibrary},
		{name: "add", usage: "<song>", help: "add a song to your library", args: 1, login: true, run: (*Console).cmdAdd},
		{name: "remove", usage: "<song>", help: "remove a song from your library", args: 1, login: true, run: (*Console).cmdRemove},

		// Playlists.
		{name: "playlists", help: "list your playlists", login: true, run: (*Console).cmdPlaylists},
		{name: "playlist", usage: "<playlist>", help: "list the songs of a playlist", args: 1, login: true, run: (*Console).cmdPlaylist},
		{name: "mkplaylist", usage: "<title>", help: "create a playlist", args: 1, login: true, run: (*Console).cmdMakePlaylist},
		{name: "pladd", usage: "<playlist> <song>", help: "add a song to a playlist", args: 2, login: true, run: (*Console).cmdPlaylistAdd},
		{name: "plrm", usage: "<playlist> <song>", help: "remove a song from a playlist", args: 2, login: true, run: (*Console).cmdPlaylistRemove},
		{name: "rmplaylist", usage: "<playlist>", help: "delete a playlist", args: 1, login: true, run: (*Console).cmdDeletePlaylist},
		{name: "export", usage: "<playlist> <file>", help: "export a playlist to .m3u or .audpl", args: 2, login: true, run: (*Console).cmdExport},
		{name: "import", usage: "<file>", help: "import a playlist file", args: 1, login: true, run: (*Console).cmdImport},
		{name: "playlist-play", usage: "<playlist>", help: "play a playlist", args: 1, login: true, run: (*Console).cmdPlaylistPlay},

		// Queue.
		{name: "play", usage: "<song>", help: "play a song, queueing the list it was picked from", args: 1, run: (*Console).cmdPlay},
		{name: "playall", help: "play your whole library", login: true, run: (*Console).cmdPlayAll},
		{name: "select", usage: "<n>", help: "play the nth track in the queue", args: 1, run: (*Console).cmdSelect},
		{name: "queue", help: "show the queue", run: (*Console).cmdQueue},
		{name: "enqueue", usage: "<song>", help: "add a song to the end of the queue", args: 1, run: (*Console).cmdEnqueue},
		{name: "playnext", usage: "<song>", help: "add a song after the current one", args: 1, run: (*Console).cmdPlayNext},
		{name: "dequeue", usage: "<n>", help: "remove the nth track from the queue", args: 1, run: (*Console).cmdDequeue},
		{name: "up", usage: "<n>", help: "move the nth track up", args: 1, run: (*Console).cmdUp},
		{name: "down", usage: "<n>", help: "move the nth track down", args: 1, run: (*Console).cmdDown},
		{name: "clear", help: "clear the queue", run: (*Console).cmdClear},

		// Playback.
		{name: "next", help: "skip to the next track", run: (*Console).cmdNext},
		{name: "prev", help: "go back to the previous track", run: (*Console).cmdPrev},
		{name: "pause", help: "pause playback", run: (*Console).cmdPause},
		{name: "resume", help: "resume playback", run: (*Console).cmdResume},
		{name: "toggle", help: "toggle pause", run: (*Console).cmdToggle},
		{name: "seek", usage: "<seconds|m:ss>", help: "seek in the current track", args: 1, run: (*Console).cmdSeek},
		{name: "volume", usage: "[0-100]", help: "show or set the volume", run: (*Console).cmdVolume},
		{name: "shuffle", usage: "[on|off]", help: "toggle or set shuffling", run: (*Console).cmdShuffle},
		{name: "repeat", usage: "[off|one|all]", help: "cycle or set the repeat mode", run: (*Console).cmdRepeat},
		{name: "now", help: "show what is playing", run: (*Console).cmdNow},

		{name: "help", help: "show this help", run: (*Console).cmdHelp},
		{name: "quit", help: "save and quit", run: (*Console).cmdQuit},
	}

	commands := make(map[string]*command, len(list))
	names := make([]string, len(list))

	for i, cmd := range list {
		commands[cmd.name] = cmd
		names[i] = cmd.name
	}

	return commands, names
}

// References.

// songRef resolves a song from its number in the last printed list or its ID.
func (c *Console) songRef(arg string) (*catalog.Song, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(c.listed) {
			return nil, errors.Errorf("no song #%d in the last list", n)
		}
		return c.listed[n-1], nil
	}

	song, ok := c.db.Song(arg)
	if !ok {
		return nil, errors.Errorf("unknown song %q", arg)
	}
	return song, nil
}

func (c *Console) albumRef(arg string) (*catalog.Album, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(c.listedAlbums) {
			return nil, errors.Errorf("no album #%d in the last list", n)
		}
		return c.listedAlbums[n-1], nil
	}

	album, ok := c.db.Album(arg)
	if !ok {
		return nil, errors.Errorf("unknown album %q", arg)
	}
	return album, nil
}

func (c *Console) playlistRef(arg string) (*catalog.Playlist, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(c.listedPlaylists) {
			return nil, errors.Errorf("no playlist #%d in the last list", n)
		}
		return c.listedPlaylists[n-1], nil
	}

	pl, ok := c.db.Playlist(arg)
	if !ok {
		return nil, errors.Errorf("unknown playlist %q", arg)
	}
	return pl, nil
}

// queueIndex parses a 1-based queue position into an index.
func queueIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.Errorf("%q is not a queue position", arg)
	}
	return n - 1, nil
}

// parseSeek parses seconds, m:ss or h:mm:ss into seconds.
func parseSeek(arg string) (float64, error) {
	parts := strings.Split(arg, ":")
	if len(parts) > 3 {
		return 0, errors.Errorf("invalid position %q", arg)
	}

	var secs float64
	for _, part := range parts {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil || n < 0 {
			return 0, errors.Errorf("invalid position %q", arg)
		}
		secs = secs*60 + n
	}

	return secs, nil
}

func (c *Console) listSongs(songs []*catalog.Song) {
	c.listed = songs
	renderSongs(c.out, songs, c.albumTitle)
}

// Account.

func (c *Console) cmdLogin(args []string) error {
	if c.user != nil {
		c.logout(true)
	}

	user, err := c.auth.Login(args[0], args[1])
	if err != nil {
		return err
	}

	c.login(user)
	return nil
}

func (c *Console) cmdRegister(args []string) error {
	username := strings.Join(args[3:], " ")

	user, err := c.auth.Register(args[0], username, args[1], args[2])
	if err != nil {
		return err
	}

	if c.user != nil {
		c.logout(true)
	}

	c.login(user)
	return nil
}

func (c *Console) cmdLogout(args []string) error {
	c.logout(true)
	c.printf("Logged out.\n")
	return nil
}

func (c *Console) cmdDeleteAccount(args []string) error {
	if _, err := c.auth.Login(c.user.Email, args[0]); err != nil {
		return err
	}

	email := c.user.Email
	c.logout(false)

	if err := c.auth.DeleteAccount(email); err != nil {
		return err
	}

	c.printf("Account %s deleted.\n", email)
	return nil
}

// Catalog.

func (c *Console) cmdSongs(args []string) error {
	c.listSongs(c.db.Songs())
	return nil
}

func (c *Console) cmdAlbums(args []string) error {
	c.listedAlbums = c.db.Albums()
	renderAlbums(c.out, c.listedAlbums)
	return nil
}

func (c *Console) cmdAlbum(args []string) error {
	album, err := c.albumRef(args[0])
	if err != nil {
		return err
	}

	songs := make([]*catalog.Song, 0, len(album.Songs))
	for _, id := range album.Songs {
		if song, ok := c.db.Song(id); ok {
			songs = append(songs, song)
		}
	}

	c.printf("%s (%s)\n", album, album.ReleaseDate)
	c.listSongs(songs)
	return nil
}

func (c *Console) cmdArtists(args []string) error {
	artists := c.db.Artists()

	names := make([]string, len(artists))
	for i, artist := range artists {
		names[i] = artist.Name
	}

	renderNames(c.out, "Artist", names)
	return nil
}

func (c *Console) cmdGenres(args []string) error {
	renderGenres(c.out, c.db.Genres())
	return nil
}

func (c *Console) cmdSearch(args []string) error {
	songs := library.Search(c.db, strings.Join(args, " "))
	if len(songs) == 0 {
		c.printf("No songs found.\n")
		return nil
	}

	c.listSongs(songs)
	return nil
}

func (c *Console) cmdInfo(args []string) error {
	song, err := c.songRef(args[0])
	if err != nil {
		return err
	}

	var genre = song.Genre
	if g, ok := c.db.Genre(song.Genre); ok {
		genre = g.Name
	}

	inLibrary := c.library != nil && c.lib.HasSong(c.library, song.ID)

	renderInfo(c.out, [][2]string{
		{"ID", song.ID},
		{"Title", song.Title},
		{"Artist", song.Artist},
		{"Album", c.albumTitle(song.Album)},
		{"Genre", genre},
		{"Length", song.FormattedDuration()},
		{"File", c.db.SongPath(song)},
		{"Cover", c.coverSource(song)},
		{"In library", strconv.FormatBool(inLibrary)},
	})

	return nil
}

func (c *Console) coverSource(song *catalog.Song) string {
	cover := c.db.CoverArt(song)
	if !cover.IsValid() {
		return "none"
	}
	cover.Close()
	return cover.Source
}

// Library.

func (c *Console) cmdLibrary(args []string) error {
	songs := c.lib.Songs(c.library)
	if len(songs) == 0 {
		c.printf("Your library is empty.\n")
		return nil
	}

	c.listSongs(songs)

	c.printf("%d songs by %d artists in %d genres.\n",
		len(songs), len(c.lib.Artists(c.library)), len(c.lib.Genres(c.library)))
	return nil
}

func (c *Console) cmdAdd(args []string) error {
	song, err := c.songRef(args[0])
	if err != nil {
		return err
	}

	if c.lib.HasSong(c.library, song.ID) {
		c.printf("%s is already in your library.\n", song)
		return nil
	}

	if err := c.lib.AddSong(c.library, song.ID); err != nil {
		return err
	}

	c.printf("Added %s to your library.\n", song)
	return nil
}

func (c *Console) cmdRemove(args []string) error {
	song, err := c.songRef(args[0])
	if err != nil {
		return err
	}

	if !c.lib.HasSong(c.library, song.ID) {
		c.printf("%s is not in your library.\n", song)
		return nil
	}

	if err := c.lib.RemoveSong(c.library, song.ID); err != nil {
		return err
	}

	c.printf("Removed %s from your library.\n", song)
	return nil
}

// Playlists.

func (c *Console) cmdPlaylists(args []string) error {
	c.listedPlaylists = c.lists.UserPlaylists(c.library)
	if len(c.listedPlaylists) == 0 {
		c.printf("You have no playlists.\n")
		return nil
	}

	renderPlaylists(c.out, c.listedPlaylists)
	return nil
}

func (c *Console) cmdPlaylist(args []string) error {
	pl, err := c.playlistRef(args[0])
	if err != nil {
		return err
	}

	c.printf("%s by %s\n", pl.Title, pl.Author)
	if pl.Description != "" {
		c.printf("%s\n", pl.Description)
	}

	c.listSongs(c.lists.Songs(pl))
	return nil
}

func (c *Console) cmdMakePlaylist(args []string) error {
	pl, err := c.lists.Create(strings.Join(args, " "), "", c.user.Email, nil)
	if err != nil {
		return err
	}

	if err := c.lists.AddToLibrary(c.library, pl.ID); err != nil {
		return err
	}

	c.printf("Created playlist %q.\n", pl.Title)
	return nil
}

func (c *Console) cmdPlaylistAdd(args []string) error {
	pl, err := c.playlistRef(args[0])
	if err != nil {
		return err
	}

	song, err := c.songRef(args[1])
	if err != nil {
		return err
	}

	if err := c.lists.AddSong(pl, song.ID); err != nil {
		return err
	}

	c.printf("Added %s to %q.\n", song, pl.Title)
	return nil
}

func (c *Console) cmdPlaylistRemove(args []string) error {
	pl, err := c.playlistRef(args[0])
	if err != nil {
		return err
	}

	song, err := c.songRef(args[1])
	if err != nil {
		return err
	}

	if err := c.lists.RemoveSong(pl, song.ID); err != nil {
		return err
	}

	c.printf("Removed %s from %q.\n", song, pl.Title)
	return nil
}

func (c *Console) cmdDeletePlaylist(args []string) error {
	pl, err := c.playlistRef(args[0])
	if err != nil {
		return err
	}

	if err := c.lists.Delete(pl.ID, c.library); err != nil {
		return err
	}

	c.listedPlaylists = nil
	c.printf("Deleted playlist %q.\n", pl.Title)
	return nil
}

func (c *Console) cmdExport(args []string) error {
	pl, err := c.playlistRef(args[0])
	if err != nil {
		return err
	}

	path := strings.Join(args[1:], " ")
	if err := c.lists.Export(pl, path); err != nil {
		return err
	}

	c.printf("Exported %q to %s.\n", pl.Title, path)
	return nil
}

func (c *Console) cmdImport(args []string) error {
	path := strings.Join(args, " ")

	pl, err := c.lists.Import(path, c.user.Email)
	if err != nil {
		return err
	}

	if err := c.lists.AddToLibrary(c.library, pl.ID); err != nil {
		return err
	}

	c.printf("Imported %q from %s with %d songs.\n", pl.Title, filepath.Base(path), len(pl.Songs))
	return nil
}

func (c *Console) cmdPlaylistPlay(args []string) error {
	pl, err := c.playlistRef(args[0])
	if err != nil {
		return err
	}

	return c.playSongs(c.lists.Songs(pl), 0)
}

// Queue.

// playSongs replaces the queue with the songs and plays the one at start.
func (c *Console) playSongs(songs []*catalog.Song, start int) error {
	if len(songs) == 0 {
		return errors.New("nothing to play")
	}

	c.queue.SetQueue(c.tracks(songs), start)

	_, track := c.queue.Current()
	c.playTrack(track)
	return nil
}

func (c *Console) cmdPlay(args []string) error {
	song, err := c.songRef(args[0])
	if err != nil {
		return err
	}

	for i, listed := range c.listed {
		if listed.ID == song.ID {
			return c.playSongs(c.listed, i)
		}
	}

	return c.playSongs([]*catalog.Song{song}, 0)
}

func (c *Console) cmdPlayAll(args []string) error {
	return c.playSongs(c.lib.Songs(c.library), 0)
}

func (c *Console) cmdSelect(args []string) error {
	ix, err := queueIndex(args[0])
	if err != nil {
		return err
	}

	track := c.queue.Select(ix)
	if track == nil {
		return errors.Errorf("nothing at #%s", args[0])
	}

	c.playTrack(track)
	return nil
}

func (c *Console) cmdQueue(args []string) error {
	if c.queue.Len() == 0 {
		c.printf("The queue is empty.\n")
		return nil
	}

	renderQueue(c.out, c.queue.Tracks(), c.queue.Cursor())
	c.printf("Shuffle: %s, repeat: %s\n", onOff(c.queue.IsShuffling()), c.queue.RepeatMode())
	return nil
}

func (c *Console) cmdEnqueue(args []string) error {
	song, err := c.songRef(args[0])
	if err != nil {
		return err
	}

	c.queue.Enqueue(c.track(song))
	c.printf("Queued %s.\n", song)
	return nil
}

func (c *Console) cmdPlayNext(args []string) error {
	song, err := c.songRef(args[0])
	if err != nil {
		return err
	}

	c.queue.EnqueueAfterCurrent(c.track(song))
	c.printf("%s plays next.\n", song)
	return nil
}

func (c *Console) cmdDequeue(args []string) error {
	ix, err := queueIndex(args[0])
	if err != nil {
		return err
	}

	wasCurrent := ix == c.queue.Cursor()

	if !c.queue.Dequeue(ix) {
		return errors.Errorf("nothing at #%s", args[0])
	}

	// The current track was removed; play whatever took its place.
	if wasCurrent && c.loaded {
		if _, track := c.queue.Current(); track != nil {
			c.playTrack(track)
		} else {
			c.stopPlayback()
		}
	}

	return nil
}

func (c *Console) cmdUp(args []string) error {
	ix, err := queueIndex(args[0])
	if err != nil {
		return err
	}

	if !c.queue.MoveUp(ix) {
		return errors.Errorf("cannot move #%s up", args[0])
	}
	return nil
}

func (c *Console) cmdDown(args []string) error {
	ix, err := queueIndex(args[0])
	if err != nil {
		return err
	}

	if !c.queue.MoveDown(ix) {
		return errors.Errorf("cannot move #%s down", args[0])
	}
	return nil
}

func (c *Console) cmdClear(args []string) error {
	c.stopPlayback()
	c.queue.Clear()
	return nil
}

// Playback.

func (c *Console) cmdNext(args []string) error {
	c.Next()
	return nil
}

func (c *Console) cmdPrev(args []string) error {
	c.Previous()
	return nil
}

func (c *Console) cmdPause(args []string) error {
	c.SetPlaying(false)
	return nil
}

func (c *Console) cmdResume(args []string) error {
	c.SetPlaying(true)
	return nil
}

func (c *Console) cmdToggle(args []string) error {
	c.TogglePlaying()
	return nil
}

func (c *Console) cmdSeek(args []string) error {
	pos, err := parseSeek(args[0])
	if err != nil {
		return err
	}

	if !c.loaded {
		return errors.New("nothing is playing")
	}

	c.Seek(pos)
	return nil
}

func (c *Console) cmdVolume(args []string) error {
	if len(args) == 0 {
		c.printf("Volume: %d\n", c.volume)
		return nil
	}

	vol, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Errorf("%q is not a volume", args[0])
	}

	return c.SetVolume(vol)
}

func (c *Console) cmdShuffle(args []string) error {
	if len(args) == 0 {
		c.queue.ToggleShuffle()
	} else {
		switch strings.ToLower(args[0]) {
		case "on":
			c.SetShuffle(true)
		case "off":
			c.SetShuffle(false)
		default:
			return errors.Errorf("expected on or off, got %q", args[0])
		}
	}

	c.printf("Shuffle: %s\n", onOff(c.queue.IsShuffling()))
	return nil
}

func (c *Console) cmdRepeat(args []string) error {
	if len(args) == 0 {
		c.queue.CycleRepeatMode()
	} else {
		var mode queue.RepeatMode
		if err := mode.UnmarshalText([]byte(strings.ToLower(args[0]))); err != nil {
			return err
		}
		c.SetRepeat(mode)
	}

	c.printf("Repeat: %s\n", c.queue.RepeatMode())
	return nil
}

func (c *Console) cmdNow(args []string) error {
	ix, track := c.queue.Current()
	if track == nil || !c.loaded {
		c.printf("Nothing is playing.\n")
		return nil
	}

	pos, total := c.PlayTime()

	var status = "Playing"
	if c.paused {
		status = "Paused"
	}

	c.printf("%s #%d: %s - %s [%s / %s]\n", status, ix+1, track.Artist, track.Title,
		durafmt.Format(secondsDuration(pos)), durafmt.Format(secondsDuration(total)))
	return nil
}

func secondsDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

func (c *Console) cmdHelp(args []string) error {
	names := append([]string(nil), c.names...)
	if len(args) > 0 {
		names = names[:0]
		for _, name := range c.names {
			if strings.HasPrefix(name, strings.ToLower(args[0])) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
	}

	cmds := make([]*command, len(names))
	for i, name := range names {
		cmds[i] = c.commands[name]
	}

	renderHelp(c.out, cmds)
	return nil
}

func (c *Console) cmdQuit(args []string) error {
	c.Quit()
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
