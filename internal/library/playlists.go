package library

import (
	"path/filepath"

	"github.com/diamondburned/chika/internal/catalog"
	"github.com/diamondburned/chika/internal/muse/playlist"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	_ "github.com/diamondburned/chika/internal/muse/playlist/audpl"
	_ "github.com/diamondburned/chika/internal/muse/playlist/m3u"
)

// Playlists manages catalog playlists. Mutations save the playlist and
// library files immediately.
type Playlists struct {
	db *catalog.Database
}

func NewPlaylists(db *catalog.Database) *Playlists {
	return &Playlists{db: db}
}

// Create creates and saves a new playlist with a random ID.
func (p *Playlists) Create(title, description, author string, songIDs []string) (*catalog.Playlist, error) {
	if songIDs == nil {
		songIDs = []string{}
	}

	pl := &catalog.Playlist{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Author:      author,
		Songs:       songIDs,
	}

	if err := p.db.AddPlaylist(pl); err != nil {
		return nil, errors.Wrap(err, "failed to save playlist")
	}

	return pl, nil
}

func (p *Playlists) AddSong(pl *catalog.Playlist, songID string) error {
	if lo.Contains(pl.Songs, songID) {
		return nil
	}

	pl.Songs = append(pl.Songs, songID)
	return p.db.UpdatePlaylist(pl)
}

func (p *Playlists) RemoveSong(pl *catalog.Playlist, songID string) error {
	if !lo.Contains(pl.Songs, songID) {
		return nil
	}

	pl.Songs = lo.Without(pl.Songs, songID)
	return p.db.UpdatePlaylist(pl)
}

// Delete removes the playlist from the library, then deletes it from the
// catalog.
func (p *Playlists) Delete(id string, lib *catalog.Library) error {
	if lo.Contains(lib.Playlists, id) {
		lib.Playlists = lo.Without(lib.Playlists, id)
		if err := p.db.UpdateLibrary(lib); err != nil {
			return err
		}
	}

	return p.db.DeletePlaylist(id)
}

// Songs returns the playlist songs in order. Dangling IDs are skipped.
func (p *Playlists) Songs(pl *catalog.Playlist) []*catalog.Song {
	return resolveSongs(p.db, pl.Songs)
}

// UserPlaylists returns the playlists in the library, in library order.
func (p *Playlists) UserPlaylists(lib *catalog.Library) []*catalog.Playlist {
	return lo.FilterMap(lib.Playlists, func(id string, _ int) (*catalog.Playlist, bool) {
		return p.db.Playlist(id)
	})
}

func (p *Playlists) AddToLibrary(lib *catalog.Library, playlistID string) error {
	if lo.Contains(lib.Playlists, playlistID) {
		return nil
	}

	lib.Playlists = append(lib.Playlists, playlistID)
	return p.db.UpdateLibrary(lib)
}

// Export writes the playlist to path. The format is chosen by the file
// extension.
func (p *Playlists) Export(pl *catalog.Playlist, path string) error {
	file := playlist.Playlist{
		Name: pl.Title,
		Path: path,
	}

	for _, song := range p.Songs(pl) {
		var album string
		if a, ok := p.db.Album(song.Album); ok {
			album = a.Title
		}

		file.Tracks = append(file.Tracks, playlist.Track{
			Title:    song.Title,
			Artist:   song.Artist,
			Album:    album,
			Length:   song.Length(),
			Filepath: p.db.SongPath(song),
		})
	}

	if err := file.Save(); err != nil {
		return errors.Wrapf(err, "failed to export playlist %q", pl.Title)
	}

	return nil
}

// Import reads the playlist file at path and creates a catalog playlist
// from the tracks that resolve to catalog songs. Tracks are matched by file
// path first, then by artist and title.
func (p *Playlists) Import(path, author string) (*catalog.Playlist, error) {
	file, err := playlist.ParseFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse playlist")
	}

	songs := p.db.Songs()

	byPath := make(map[string]*catalog.Song, len(songs))
	byName := make(map[string]*catalog.Song, len(songs))
	for _, song := range songs {
		byPath[filepath.Clean(p.db.SongPath(song))] = song
		byName[song.String()] = song
	}

	var ids []string
	for _, track := range file.Tracks {
		song, ok := byPath[filepath.Clean(track.Filepath)]
		if !ok {
			song, ok = byName[track.Artist+" - "+track.Title]
		}
		if !ok {
			// m3u titles are "Artist - Title" in the first place.
			song, ok = byName[track.Title]
		}
		if !ok {
			log.Debug().
				Str("path", track.Filepath).
				Str("title", track.Title).
				Msg("playlist track not in catalog")
			continue
		}

		ids = append(ids, song.ID)
	}

	name := file.Name
	if name == "" {
		name = playlist.TitleFromPath(path)
	}

	return p.Create(name, "", author, lo.Uniq(ids))
}
