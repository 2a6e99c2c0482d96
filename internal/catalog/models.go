package catalog

import (
	"fmt"
	"time"

	"github.com/diamondburned/chika/internal/durafmt"
	"github.com/diamondburned/chika/internal/queue"
)

type User struct {
	Email        string `json:"-"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	LibraryID    string `json:"library_id"`
}

func (u User) String() string {
	return fmt.Sprintf("User(%s, %s)", u.Email, u.Username)
}

type Song struct {
	ID       string `json:"-"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`    // album ID
	Genre    string `json:"genre"`    // genre ID
	Duration int    `json:"duration"` // seconds
	Filename string `json:"filename"` // relative to the songs directory
}

func (s Song) String() string {
	return s.Artist + " - " + s.Title
}

// Length returns the song duration.
func (s Song) Length() time.Duration {
	return time.Duration(s.Duration) * time.Second
}

// FormattedDuration returns the duration in M:SS form.
func (s Song) FormattedDuration() string {
	return durafmt.Seconds(s.Duration)
}

// Track returns the queue reference to the song. The album field is left as
// the album ID; callers wanting the title should resolve it first.
func (s Song) Track() queue.Track {
	return queue.Track{
		ID:     s.ID,
		Title:  s.Title,
		Artist: s.Artist,
		Album:  s.Album,
		Length: s.Length(),
	}
}

type Album struct {
	ID          string   `json:"-"`
	Title       string   `json:"title"`
	Artist      string   `json:"artist"`
	Cover       string   `json:"cover"`
	Songs       []string `json:"songs"`
	ReleaseDate string   `json:"release_date"`
}

func (a Album) String() string {
	return a.Artist + " - " + a.Title
}

type Artist struct {
	Name string
}

func (a Artist) String() string { return a.Name }

type Genre struct {
	ID          string `xml:"id,attr"`
	Name        string `xml:"name"`
	Description string `xml:"description"`
}

func (g Genre) String() string { return g.Name }

type Playlist struct {
	ID          string   `json:"-"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Songs       []string `json:"songs"`
}

func (p Playlist) String() string { return p.Title }

// Library is a user's personal collection. It only holds IDs.
type Library struct {
	ID        string   `json:"-"`
	Songs     []string `json:"songs"`
	Albums    []string `json:"albums"`
	Playlists []string `json:"playlists"`
}

func (l Library) String() string {
	return fmt.Sprintf("Library(%s)", l.ID)
}
