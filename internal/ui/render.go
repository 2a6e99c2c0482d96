package ui

import (
	"io"
	"strconv"

	"github.com/diamondburned/chika/internal/catalog"
	"github.com/diamondburned/chika/internal/durafmt"
	"github.com/diamondburned/chika/internal/queue"
	"github.com/jedib0t/go-pretty/v6/table"
)

const maxColumnWidth = 40

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func limitColumns(t table.Writer, names ...string) {
	configs := make([]table.ColumnConfig, len(names))
	for i, name := range names {
		configs[i] = table.ColumnConfig{Name: name, WidthMax: maxColumnWidth}
	}
	t.SetColumnConfigs(configs)
}

func renderSongs(w io.Writer, songs []*catalog.Song, albumTitle func(id string) string) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Title", "Artist", "Album", "Length", "ID"})
	limitColumns(t, "Title", "Artist", "Album")

	for i, song := range songs {
		t.AppendRow(table.Row{
			i + 1, song.Title, song.Artist, albumTitle(song.Album), song.FormattedDuration(), song.ID,
		})
	}

	t.Render()
}

func renderQueue(w io.Writer, tracks []queue.Track, cursor int) {
	t := newTable(w)
	t.AppendHeader(table.Row{"", "#", "Title", "Artist", "Album", "Length"})
	limitColumns(t, "Title", "Artist", "Album")

	for i, track := range tracks {
		var marker string
		if i == cursor {
			marker = "▶"
		}

		t.AppendRow(table.Row{
			marker, i + 1, track.Title, track.Artist, track.Album, durafmt.Format(track.Length),
		})
	}

	t.Render()
}

func renderAlbums(w io.Writer, albums []*catalog.Album) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Title", "Artist", "Released", "Songs", "ID"})
	limitColumns(t, "Title", "Artist")

	for i, album := range albums {
		t.AppendRow(table.Row{
			i + 1, album.Title, album.Artist, album.ReleaseDate, len(album.Songs), album.ID,
		})
	}

	t.Render()
}

func renderGenres(w io.Writer, genres []*catalog.Genre) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Genre", "Description"})
	limitColumns(t, "Description")

	for _, genre := range genres {
		t.AppendRow(table.Row{genre.Name, genre.Description})
	}

	t.Render()
}

func renderNames(w io.Writer, header string, names []string) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", header})

	for i, name := range names {
		t.AppendRow(table.Row{i + 1, name})
	}

	t.Render()
}

func renderPlaylists(w io.Writer, playlists []*catalog.Playlist) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Title", "Songs", "Description"})
	limitColumns(t, "Title", "Description")

	for i, pl := range playlists {
		t.AppendRow(table.Row{i + 1, pl.Title, strconv.Itoa(len(pl.Songs)), pl.Description})
	}

	t.Render()
}

func renderInfo(w io.Writer, fields [][2]string) {
	t := newTable(w)
	for _, field := range fields {
		t.AppendRow(table.Row{field[0], field[1]})
	}
	t.Render()
}

func renderHelp(w io.Writer, cmds []*command) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Command", "Arguments", "Description"})

	for _, cmd := range cmds {
		var help = cmd.help
		if cmd.login {
			help += " (login)"
		}
		t.AppendRow(table.Row{cmd.name, cmd.usage, help})
	}

	t.Render()
}
