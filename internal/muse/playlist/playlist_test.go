package playlist_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/diamondburned/chika/internal/muse/playlist"
	"github.com/go-test/deep"
	"github.com/pkg/errors"

	_ "github.com/diamondburned/chika/internal/muse/playlist/audpl"
	_ "github.com/diamondburned/chika/internal/muse/playlist/m3u"
)

func TestSupportedExtensions(t *testing.T) {
	exts := playlist.SupportedExtensions()
	if diff := deep.Equal(exts, []string{".audpl", ".m3u", ".m3u8"}); diff != nil {
		t.Fatal("unexpected extensions:", diff)
	}
}

func TestUnknownFormat(t *testing.T) {
	_, err := playlist.ParseFile("/tmp/whatever.pls")
	if errors.Cause(err) != playlist.ErrUnknownFormat {
		t.Fatal("unexpected error:", err)
	}

	p := playlist.Playlist{Path: "/tmp/whatever.pls"}
	if err := p.Save(); errors.Cause(err) != playlist.ErrUnknownFormat {
		t.Fatal("unexpected save error:", err)
	}
}

func TestAudplRoundTrip(t *testing.T) {
	p := playlist.Playlist{
		Name: "Night Drive",
		Path: filepath.Join(t.TempDir(), "night.audpl"),
		Tracks: []playlist.Track{
			{
				Title:    "Intro",
				Artist:   "Band",
				Album:    "First",
				Number:   1,
				Length:   3 * time.Minute,
				Bitrate:  320000,
				Filepath: "/music/intro.flac",
			},
			{
				Title:    "Outro",
				Artist:   "Band",
				Album:    "First",
				Number:   2,
				Length:   90 * time.Second,
				Bitrate:  256000,
				Filepath: "/music/outro.flac",
			},
		},
	}

	if err := p.Save(); err != nil {
		t.Fatal("failed to save:", err)
	}

	read, err := playlist.ParseFile(p.Path)
	if err != nil {
		t.Fatal("failed to parse:", err)
	}

	if diff := deep.Equal(*read, p); diff != nil {
		t.Fatal("round trip mismatch:", diff)
	}
}

func TestM3URoundTrip(t *testing.T) {
	dir := t.TempDir()

	p := playlist.Playlist{
		Name: "mix",
		Path: filepath.Join(dir, "mix.m3u"),
		Tracks: []playlist.Track{
			{Title: "One", Artist: "Band", Length: 185 * time.Second, Filepath: "/music/one.mp3"},
			{Title: "Two", Length: time.Minute, Filepath: "/music/two.mp3"},
		},
	}

	if err := p.Save(); err != nil {
		t.Fatal("failed to save:", err)
	}

	read, err := playlist.ParseFile(p.Path)
	if err != nil {
		t.Fatal("failed to parse:", err)
	}

	// m3u folds the artist into the title.
	expect := playlist.Playlist{
		Name: "mix",
		Path: p.Path,
		Tracks: []playlist.Track{
			{Title: "Band - One", Length: 185 * time.Second, Filepath: "/music/one.mp3"},
			{Title: "Two", Length: time.Minute, Filepath: "/music/two.mp3"},
		},
	}

	if diff := deep.Equal(*read, expect); diff != nil {
		t.Fatal("round trip mismatch:", diff)
	}
}

func TestTitleFromPath(t *testing.T) {
	if title := playlist.TitleFromPath("/a/b/Some Song.flac"); title != "Some Song" {
		t.Fatalf("unexpected title %q", title)
	}
}
