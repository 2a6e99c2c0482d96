package queue

import "time"

// Track is a reference to a playable catalog item. The queue only ever
// compares tracks by ID; the other fields are for display.
type Track struct {
	ID     string
	Title  string
	Artist string
	Album  string
	Length time.Duration
}

// Is returns true if both tracks refer to the same catalog item.
func (t Track) Is(other Track) bool {
	return t.ID == other.ID
}

func indexOf(tracks []Track, track Track) int {
	for i, t := range tracks {
		if t.Is(track) {
			return i
		}
	}
	return -1
}

func insertAt(tracks []Track, ix int, track Track) []Track {
	if ix < 0 {
		ix = 0
	}
	if ix > len(tracks) {
		ix = len(tracks)
	}

	// https://github.com/golang/go/wiki/SliceTricks
	tracks = append(tracks, Track{})
	copy(tracks[ix+1:], tracks[ix:])
	tracks[ix] = track

	return tracks
}

func removeAt(tracks []Track, ix int) []Track {
	copy(tracks[ix:], tracks[ix+1:]) // shift backwards
	tracks[len(tracks)-1] = Track{}  // zero last
	return tracks[:len(tracks)-1]    // omit last
}

func copyTracks(tracks []Track) []Track {
	if len(tracks) == 0 {
		return nil
	}
	cpy := make([]Track, len(tracks))
	copy(cpy, tracks)
	return cpy
}
