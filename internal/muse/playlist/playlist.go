// Package playlist reads and writes playlist files. Formats register
// themselves by file extension; import the format packages for their side
// effects.
package playlist

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrUnknownFormat is returned for files with an unregistered extension.
var ErrUnknownFormat = errors.New("unknown format")

type PlaylistReader func(path string) (*Playlist, error)
type PlaylistWriter func(p *Playlist) error

type format struct {
	read  PlaylistReader
	write PlaylistWriter
}

var formats = map[string]format{}

func SupportedExtensions() []string {
	var exts = make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Register registers the reader and writer for the given file extension,
// which includes the leading dot.
func Register(fileExt string, r PlaylistReader, w PlaylistWriter) {
	formats[fileExt] = format{r, w}
}

func lookup(path string) (format, error) {
	f, ok := formats[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return format{}, errors.Wrapf(ErrUnknownFormat, "unsupported playlist %q", filepath.Base(path))
	}
	return f, nil
}

func ParseFile(path string) (*Playlist, error) {
	f, err := lookup(path)
	if err != nil {
		return nil, err
	}

	return f.read(path)
}

// Save writes the playlist to its Path, in the format matching its extension.
func (p *Playlist) Save() error {
	f, err := lookup(p.Path)
	if err != nil {
		return err
	}

	return f.write(p)
}

type Playlist struct {
	Name   string
	Path   string
	Tracks []Track
}

type Track struct {
	Title   string
	Artist  string
	Album   string
	Number  int
	Length  time.Duration
	Bitrate int

	Filepath string
}

// TitleFromPath returns the file name without its extension.
func TitleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
