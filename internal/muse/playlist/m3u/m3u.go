package m3u

import (
	"bufio"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/diamondburned/chika/internal/muse/playlist"
	"github.com/pkg/errors"
	"github.com/ushis/m3u"
)

func init() {
	playlist.Register(".m3u", Parse, Write)
	playlist.Register(".m3u8", Parse, Write)
}

func Parse(path string) (*playlist.Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	f.SetDeadline(time.Now().Add(15 * time.Second))

	p, err := m3u.Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse m3u")
	}

	var pl = playlist.Playlist{
		Name:   basename(path),
		Path:   path,
		Tracks: make([]playlist.Track, 0, len(p)),
	}

	dir := filepath.Dir(path)

	for _, track := range p {
		if track.Path == "" {
			continue
		}

		trackPath := track.Path
		if !filepath.IsAbs(trackPath) {
			trackPath = filepath.Join(dir, trackPath)
		}

		var title = track.Title
		if title == "" {
			title = playlist.TitleFromPath(track.Path)
		}

		pl.Tracks = append(pl.Tracks, playlist.Track{
			Title:    title,
			Length:   time.Duration(track.Time) * time.Second,
			Filepath: trackPath,
		})
	}

	return &pl, nil
}

func basename(path string) string {
	name := playlist.TitleFromPath(path)

	u, err := url.PathUnescape(name)
	if err != nil {
		return name
	}
	return u
}

func Write(p *playlist.Playlist) error {
	var plist = make(m3u.Playlist, len(p.Tracks))

	for i, track := range p.Tracks {
		title := track.Title
		if track.Artist != "" {
			title = track.Artist + " - " + track.Title
		}

		plist[i] = m3u.Track{
			Title: title,
			Path:  track.Filepath,
			Time:  int64(track.Length.Seconds()),
		}
	}

	f, err := os.Create(p.Path)
	if err != nil {
		return errors.Wrap(err, "failed to create playlist file")
	}
	defer f.Close()

	buf := bufio.NewWriter(f)

	if _, err := plist.WriteTo(buf); err != nil {
		return errors.Wrap(err, "failed to write playlist")
	}

	if err := buf.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush")
	}

	return nil
}
