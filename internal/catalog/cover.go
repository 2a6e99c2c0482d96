package catalog

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

// Stolen from: mpv/blob/master/player/external_files.c#L45, which was
// stolen from: vlc/blob/master/modules/meta_engine/folder.c#L40.
// Sorted by priority.
var coverFiles = []string{
	"AlbumArt.jpg",
	"Album.jpg",
	"cover.jpg",
	"cover.png",
	"front.jpg",
	"front.png",
	"Cover.jpg",

	"AlbumArtSmall.jpg",
	"Folder.jpg",
	"Folder.png",
	".folder.png",
	"thumb.jpg",

	"front.bmp",
	"front.gif",
	"cover.gif",
}

// Cover is an opened cover image.
type Cover struct {
	io.ReadCloser
	Extension string // jpeg, ...
	Source    string // file path, or "embedded"
}

func (c Cover) IsValid() bool {
	return c.ReadCloser != nil
}

// CoverArt looks for the song's cover image. The album's own cover file is
// preferred, then well-known cover files next to the song, then the picture
// embedded in the song's tags. An invalid Cover is returned if none is found.
// Embedded pictures are read into memory.
func (db *Database) CoverArt(song *Song) Cover {
	if album, ok := db.albums[song.Album]; ok && album.Cover != "" {
		path := filepath.Join(db.coversDir, filepath.FromSlash(album.Cover))
		if f, err := os.Open(path); err == nil {
			return Cover{f, normalizeExt(filepath.Ext(path)), path}
		}
	}

	songPath := db.SongPath(song)
	dir := filepath.Dir(songPath)

	for _, coverFile := range coverFiles {
		path := filepath.Join(dir, coverFile)

		f, err := os.Open(path)
		if err != nil {
			continue
		}

		return Cover{f, normalizeExt(filepath.Ext(coverFile)), path}
	}

	f, err := os.Open(songPath)
	if err != nil {
		return Cover{}
	}
	defer f.Close()

	// Use a 1 minute timeout.
	f.SetDeadline(time.Now().Add(time.Minute))

	m, err := tag.ReadFrom(f)
	if err == nil {
		if pic := m.Picture(); pic != nil {
			return Cover{
				ReadCloser: io.NopCloser(bytes.NewReader(pic.Data)),
				Extension:  normalizeExt(pic.Ext),
				Source:     "embedded",
			}
		}
	}

	return Cover{}
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	ext = strings.ToLower(ext)

	if ext == "jpg" {
		ext = "jpeg"
	}

	return ext
}
