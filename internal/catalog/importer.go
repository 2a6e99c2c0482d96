package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// audioExtensions are the file types that tag can read.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".mp4":  true,
	".flac": true,
	".ogg":  true,
	".dsf":  true,
}

// ImportResult counts what an import added.
type ImportResult struct {
	Songs   int
	Albums  int
	Genres  int
	Skipped int
}

// Import walks the songs directory and adds every audio file into the catalog
// using its embedded tags, then saves the catalog. IDs are derived from the
// file path and tag names, so importing the same directory twice does not
// create duplicates.
func (db *Database) Import() (ImportResult, error) {
	var result ImportResult

	err := filepath.WalkDir(db.songsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(db.songsDir, path)
		if err != nil {
			return err
		}

		song, album, genre, err := readSong(path, filepath.ToSlash(rel))
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
			result.Skipped++
			return nil
		}

		if _, ok := db.songs[song.ID]; !ok {
			result.Songs++
		}
		db.AddSong(song)

		if genre != nil {
			if _, ok := db.genres[genre.ID]; !ok {
				db.AddGenre(genre)
				result.Genres++
			}
		}

		existing, ok := db.albums[album.ID]
		if !ok {
			db.AddAlbum(album)
			existing = album
			result.Albums++
		}
		if !containsString(existing.Songs, song.ID) {
			existing.Songs = append(existing.Songs, song.ID)
		}

		return nil
	})
	if err != nil {
		return result, errors.Wrap(err, "failed to walk songs directory")
	}

	if err := db.SaveCatalog(); err != nil {
		return result, err
	}

	return result, nil
}

func readSong(path, filename string) (*Song, *Album, *Genre, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	// Use a 1 minute timeout.
	f.SetDeadline(time.Now().Add(time.Minute))

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to read tag")
	}

	song := &Song{
		ID:       nameID("song", filename),
		Title:    stringOr(m.Title(), titleFromPath(filename)),
		Artist:   stringOr(m.Artist(), "Unknown Artist"),
		Filename: filename,
	}

	albumArtist := stringOr(m.AlbumArtist(), song.Artist)
	albumTitle := stringOr(m.Album(), "Unknown Album")

	album := &Album{
		ID:     nameID("album", albumArtist, albumTitle),
		Title:  albumTitle,
		Artist: albumArtist,
	}
	if year := m.Year(); year > 0 {
		album.ReleaseDate = strconv.Itoa(year)
	}
	song.Album = album.ID

	var genre *Genre
	if name := strings.TrimSpace(m.Genre()); name != "" {
		genre = &Genre{ID: genreID(name), Name: name}
		song.Genre = genre.ID
	}

	return song, album, genre, nil
}

// nameID returns a stable UUID for the given names.
func nameID(kind string, names ...string) string {
	key := kind + ":" + strings.Join(names, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func genreID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func stringOr(str, or string) string {
	if str = strings.TrimSpace(str); str != "" {
		return str
	}
	return or
}

func containsString(strs []string, str string) bool {
	for _, s := range strs {
		if s == str {
			return true
		}
	}
	return false
}
