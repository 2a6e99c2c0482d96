// Package catalog holds the songs, albums, genres, playlists, libraries and
// users known to the player. Everything is kept in memory and loaded wholesale
// from flat files in the data directory; every mutation rewrites the affected
// file in full.
package catalog

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	genresFile    = "genres.xml"
	usersFile     = "users.json"
	albumsFile    = "albums.json"
	songsFile     = "songs.json"
	playlistsFile = "playlists.json"
	librariesFile = "libraries.json"
)

// Database is the in-memory catalog. It is not thread-safe.
type Database struct {
	dataDir   string
	songsDir  string
	coversDir string

	users     map[string]*User // keyed by email
	songs     map[string]*Song
	albums    map[string]*Album
	artists   map[string]*Artist
	genres    map[string]*Genre
	playlists map[string]*Playlist
	libraries map[string]*Library
}

// Option configures a Database.
type Option func(db *Database)

// WithSongsDir overrides the directory that song filenames are relative to.
// It defaults to "songs" inside the data directory.
func WithSongsDir(dir string) Option {
	return func(db *Database) { db.songsDir = dir }
}

// WithCoversDir overrides the directory that album covers are relative to. It
// defaults to "covers" inside the data directory.
func WithCoversDir(dir string) Option {
	return func(db *Database) { db.coversDir = dir }
}

// New creates an empty database that saves into dataDir. Nothing is read or
// written until Load or a mutating method is called.
func New(dataDir string, opts ...Option) *Database {
	db := &Database{
		dataDir:   dataDir,
		songsDir:  filepath.Join(dataDir, "songs"),
		coversDir: filepath.Join(dataDir, "covers"),
		users:     make(map[string]*User),
		songs:     make(map[string]*Song),
		albums:    make(map[string]*Album),
		artists:   make(map[string]*Artist),
		genres:    make(map[string]*Genre),
		playlists: make(map[string]*Playlist),
		libraries: make(map[string]*Library),
	}

	for _, opt := range opts {
		opt(db)
	}

	return db
}

// Open creates a database and loads everything from dataDir.
func Open(dataDir string, opts ...Option) (*Database, error) {
	db := New(dataDir, opts...)

	if err := db.Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load database")
	}

	return db, nil
}

// Load reads every catalog file. The genre, album and song files must exist;
// missing user, playlist and library files are created empty.
func (db *Database) Load() error {
	if err := db.loadGenres(); err != nil {
		return err
	}

	if err := loadJSON(db.path(usersFile), &db.users, db.saveUsers); err != nil {
		return err
	}
	for email, user := range db.users {
		user.Email = email
	}

	if err := loadJSON(db.path(albumsFile), &db.albums, nil); err != nil {
		return err
	}
	for id, album := range db.albums {
		album.ID = id
	}

	if err := loadJSON(db.path(songsFile), &db.songs, nil); err != nil {
		return err
	}
	for id, song := range db.songs {
		song.ID = id
	}

	if err := loadJSON(db.path(playlistsFile), &db.playlists, db.savePlaylists); err != nil {
		return err
	}
	for id, playlist := range db.playlists {
		playlist.ID = id
	}

	if err := loadJSON(db.path(librariesFile), &db.libraries, db.saveLibraries); err != nil {
		return err
	}
	for id, library := range db.libraries {
		library.ID = id
	}

	db.extractArtists()

	log.Debug().
		Str("dir", db.dataDir).
		Int("songs", len(db.songs)).
		Int("albums", len(db.albums)).
		Int("users", len(db.users)).
		Msg("catalog loaded")

	return nil
}

func (db *Database) path(name string) string {
	return filepath.Join(db.dataDir, name)
}

// loadJSON decodes the file into v. If the file does not exist and create is
// not nil, create is called to make it; otherwise the error is returned.
func loadJSON(path string, v interface{}, create func() error) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && create != nil {
			return create()
		}
		return errors.Wrapf(err, "failed to read %s", filepath.Base(path))
	}

	if err := json.Unmarshal(b, v); err != nil {
		return errors.Wrapf(err, "failed to parse %s", filepath.Base(path))
	}

	return nil
}

func saveJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", filepath.Base(path))
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to make data directory")
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return errors.Wrapf(err, "failed to save %s", filepath.Base(path))
	}

	return nil
}

type xmlGenres struct {
	XMLName xml.Name `xml:"genres"`
	Genres  []Genre  `xml:"genre"`
}

func (db *Database) loadGenres() error {
	f, err := os.Open(db.path(genresFile))
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", genresFile)
	}
	defer f.Close()

	var genres xmlGenres
	if err := xml.NewDecoder(f).Decode(&genres); err != nil {
		return errors.Wrapf(err, "failed to parse %s", genresFile)
	}

	for i := range genres.Genres {
		genre := genres.Genres[i]
		db.genres[genre.ID] = &genre
	}

	return nil
}

func (db *Database) saveGenres() error {
	genres := xmlGenres{Genres: make([]Genre, 0, len(db.genres))}
	for _, genre := range db.Genres() {
		genres.Genres = append(genres.Genres, *genre)
	}

	b, err := xml.MarshalIndent(genres, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal genres")
	}

	b = append([]byte(xml.Header), b...)
	b = append(b, '\n')

	if err := os.WriteFile(db.path(genresFile), b, 0644); err != nil {
		return errors.Wrapf(err, "failed to save %s", genresFile)
	}

	return nil
}

func (db *Database) saveUsers() error     { return saveJSON(db.path(usersFile), db.users) }
func (db *Database) saveSongs() error     { return saveJSON(db.path(songsFile), db.songs) }
func (db *Database) saveAlbums() error    { return saveJSON(db.path(albumsFile), db.albums) }
func (db *Database) savePlaylists() error { return saveJSON(db.path(playlistsFile), db.playlists) }
func (db *Database) saveLibraries() error { return saveJSON(db.path(librariesFile), db.libraries) }

// extractArtists rebuilds the artist set from songs and albums.
func (db *Database) extractArtists() {
	db.artists = make(map[string]*Artist)

	for _, song := range db.songs {
		db.artists[song.Artist] = &Artist{Name: song.Artist}
	}
	for _, album := range db.albums {
		db.artists[album.Artist] = &Artist{Name: album.Artist}
	}
}

// DataDir returns the directory holding the catalog files.
func (db *Database) DataDir() string { return db.dataDir }

// SongsDir returns the directory that song filenames are relative to.
func (db *Database) SongsDir() string { return db.songsDir }

// SongPath returns the path to the song's audio file.
func (db *Database) SongPath(song *Song) string {
	return filepath.Join(db.songsDir, filepath.FromSlash(song.Filename))
}

func (db *Database) User(email string) (*User, bool) {
	u, ok := db.users[email]
	return u, ok
}

func (db *Database) Song(id string) (*Song, bool) {
	s, ok := db.songs[id]
	return s, ok
}

func (db *Database) Album(id string) (*Album, bool) {
	a, ok := db.albums[id]
	return a, ok
}

func (db *Database) Genre(id string) (*Genre, bool) {
	g, ok := db.genres[id]
	return g, ok
}

func (db *Database) Playlist(id string) (*Playlist, bool) {
	p, ok := db.playlists[id]
	return p, ok
}

func (db *Database) Library(id string) (*Library, bool) {
	l, ok := db.libraries[id]
	return l, ok
}

// AddUser adds or replaces the user and saves.
func (db *Database) AddUser(user *User) error {
	db.users[user.Email] = user
	return db.saveUsers()
}

// DeleteUser deletes the user with the given email. It does nothing if there
// is no such user.
func (db *Database) DeleteUser(email string) error {
	if _, ok := db.users[email]; !ok {
		return nil
	}

	delete(db.users, email)
	return db.saveUsers()
}

// AddPlaylist adds or replaces the playlist and saves.
func (db *Database) AddPlaylist(playlist *Playlist) error {
	db.playlists[playlist.ID] = playlist
	return db.savePlaylists()
}

// UpdatePlaylist saves the changed playlist.
func (db *Database) UpdatePlaylist(playlist *Playlist) error {
	return db.AddPlaylist(playlist)
}

// DeletePlaylist deletes the playlist with the given ID. It does nothing if
// there is no such playlist.
func (db *Database) DeletePlaylist(id string) error {
	if _, ok := db.playlists[id]; !ok {
		return nil
	}

	delete(db.playlists, id)
	return db.savePlaylists()
}

// AddLibrary adds or replaces the library and saves.
func (db *Database) AddLibrary(library *Library) error {
	db.libraries[library.ID] = library
	return db.saveLibraries()
}

// UpdateLibrary saves the changed library.
func (db *Database) UpdateLibrary(library *Library) error {
	return db.AddLibrary(library)
}

// AddSong adds or replaces a song without saving. Call SaveCatalog afterwards.
func (db *Database) AddSong(song *Song) {
	db.songs[song.ID] = song
	db.artists[song.Artist] = &Artist{Name: song.Artist}
}

// AddAlbum adds or replaces an album without saving. Call SaveCatalog
// afterwards.
func (db *Database) AddAlbum(album *Album) {
	db.albums[album.ID] = album
	db.artists[album.Artist] = &Artist{Name: album.Artist}
}

// AddGenre adds or replaces a genre without saving. Call SaveCatalog
// afterwards.
func (db *Database) AddGenre(genre *Genre) {
	db.genres[genre.ID] = genre
}

// SaveCatalog saves the genre, album and song files.
func (db *Database) SaveCatalog() error {
	if err := os.MkdirAll(db.dataDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to make data directory")
	}
	if err := db.saveGenres(); err != nil {
		return err
	}
	if err := db.saveAlbums(); err != nil {
		return err
	}
	return db.saveSongs()
}

// Songs returns all songs sorted by artist, album and title.
func (db *Database) Songs() []*Song {
	songs := make([]*Song, 0, len(db.songs))
	for _, song := range db.songs {
		songs = append(songs, song)
	}

	SortSongs(songs)
	return songs
}

// SortSongs sorts the songs by artist, album and title, in that order.
func SortSongs(songs []*Song) {
	sort.Slice(songs, func(i, j int) bool {
		a, b := songs[i], songs[j]
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		if a.Album != b.Album {
			return a.Album < b.Album
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

// Albums returns all albums sorted by artist and title.
func (db *Database) Albums() []*Album {
	albums := make([]*Album, 0, len(db.albums))
	for _, album := range db.albums {
		albums = append(albums, album)
	}

	sort.Slice(albums, func(i, j int) bool {
		if albums[i].Artist != albums[j].Artist {
			return albums[i].Artist < albums[j].Artist
		}
		return albums[i].Title < albums[j].Title
	})

	return albums
}

// Artists returns all artists sorted by name.
func (db *Database) Artists() []*Artist {
	artists := make([]*Artist, 0, len(db.artists))
	for _, artist := range db.artists {
		artists = append(artists, artist)
	}

	sort.Slice(artists, func(i, j int) bool {
		return artists[i].Name < artists[j].Name
	})

	return artists
}

// Genres returns all genres sorted by ID.
func (db *Database) Genres() []*Genre {
	genres := make([]*Genre, 0, len(db.genres))
	for _, genre := range db.genres {
		genres = append(genres, genre)
	}

	sort.Slice(genres, func(i, j int) bool {
		return genres[i].ID < genres[j].ID
	})

	return genres
}

// Playlists returns all playlists sorted by title.
func (db *Database) Playlists() []*Playlist {
	playlists := make([]*Playlist, 0, len(db.playlists))
	for _, playlist := range db.playlists {
		playlists = append(playlists, playlist)
	}

	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].Title != playlists[j].Title {
			return playlists[i].Title < playlists[j].Title
		}
		return playlists[i].ID < playlists[j].ID
	})

	return playlists
}
