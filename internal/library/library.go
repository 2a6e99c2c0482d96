// Package library implements the per-user views over the catalog: the
// personal library, playlists and song search.
package library

import (
	"sort"

	"github.com/diamondburned/chika/internal/catalog"
	"github.com/samber/lo"
)

// Service manages a user's personal library. Mutations save the library
// file immediately.
type Service struct {
	db *catalog.Database
}

func NewService(db *catalog.Database) *Service {
	return &Service{db: db}
}

// AddSong adds the song to the library. It does nothing if the song is
// already there.
func (s *Service) AddSong(lib *catalog.Library, songID string) error {
	if lo.Contains(lib.Songs, songID) {
		return nil
	}

	lib.Songs = append(lib.Songs, songID)
	return s.db.UpdateLibrary(lib)
}

// RemoveSong removes the song from the library. It does nothing if the song
// is not there.
func (s *Service) RemoveSong(lib *catalog.Library, songID string) error {
	if !lo.Contains(lib.Songs, songID) {
		return nil
	}

	lib.Songs = lo.Without(lib.Songs, songID)
	return s.db.UpdateLibrary(lib)
}

func (s *Service) HasSong(lib *catalog.Library, songID string) bool {
	return lo.Contains(lib.Songs, songID)
}

// Songs returns the library's songs in the order they were added. Dangling
// IDs are skipped.
func (s *Service) Songs(lib *catalog.Library) []*catalog.Song {
	return resolveSongs(s.db, lib.Songs)
}

// Albums returns the albums of the library's songs, in the order each album
// was first seen.
func (s *Service) Albums(lib *catalog.Library) []*catalog.Album {
	albumIDs := lo.Uniq(lo.Map(s.Songs(lib), func(song *catalog.Song, _ int) string {
		return song.Album
	}))

	return lo.FilterMap(albumIDs, func(id string, _ int) (*catalog.Album, bool) {
		return s.db.Album(id)
	})
}

// Artists returns the sorted names of the library's artists.
func (s *Service) Artists(lib *catalog.Library) []string {
	return sortedUniq(s.Songs(lib), func(song *catalog.Song) string { return song.Artist })
}

// Genres returns the sorted genre IDs of the library's songs.
func (s *Service) Genres(lib *catalog.Library) []string {
	return sortedUniq(s.Songs(lib), func(song *catalog.Song) string { return song.Genre })
}

func sortedUniq(songs []*catalog.Song, key func(*catalog.Song) string) []string {
	keys := lo.Uniq(lo.Map(songs, func(song *catalog.Song, _ int) string {
		return key(song)
	}))
	sort.Strings(keys)
	return keys
}

func resolveSongs(db *catalog.Database, ids []string) []*catalog.Song {
	return lo.FilterMap(ids, func(id string, _ int) (*catalog.Song, bool) {
		return db.Song(id)
	})
}
