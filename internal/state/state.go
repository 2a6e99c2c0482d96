// Package state persists the session between runs: who was logged in, the
// play queue and the player settings.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/diamondburned/chika/internal/queue"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// State is the persisted session. The queue is stored as song IDs.
type State struct {
	Email string `json:"email,omitempty"`

	Queue     []string         `json:"queue"`
	BaseQueue []string         `json:"base_queue"`
	Cursor    int              `json:"cursor"`
	Shuffling bool             `json:"shuffling"`
	Repeating queue.RepeatMode `json:"repeating"`
	Volume    int              `json:"volume"`
}

// FromSnapshot makes a state from a queue snapshot.
func FromSnapshot(email string, volume int, s queue.Snapshot) State {
	return State{
		Email:     email,
		Queue:     trackIDs(s.Active),
		BaseQueue: trackIDs(s.Base),
		Cursor:    s.Cursor,
		Shuffling: s.Shuffling,
		Repeating: s.Repeat,
		Volume:    volume,
	}
}

func trackIDs(tracks []queue.Track) []string {
	ids := make([]string, len(tracks))
	for i, track := range tracks {
		ids[i] = track.ID
	}
	return ids
}

// Snapshot resolves the stored IDs back into a queue snapshot. IDs that no
// longer resolve are dropped, and the cursor follows its track; if the
// current track is gone, there is no current track.
func (s State) Snapshot(resolve func(id string) (queue.Track, bool)) queue.Snapshot {
	cursor := queue.NoCursor
	active := make([]queue.Track, 0, len(s.Queue))

	for i, id := range s.Queue {
		track, ok := resolve(id)
		if !ok {
			log.Debug().Str("id", id).Msg("dropping unknown track from saved queue")
			continue
		}

		if i == s.Cursor {
			cursor = len(active)
		}
		active = append(active, track)
	}

	base := make([]queue.Track, 0, len(s.BaseQueue))
	for _, id := range s.BaseQueue {
		if track, ok := resolve(id); ok {
			base = append(base, track)
		}
	}

	return queue.Snapshot{
		Active:    active,
		Base:      base,
		Cursor:    cursor,
		Shuffling: s.Shuffling,
		Repeat:    s.Repeating,
	}
}

// ReadFile reads the state file. A missing file is not an error and yields
// the zero state.
func ReadFile(path string) (State, error) {
	var s = State{Cursor: queue.NoCursor}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, errors.Wrap(err, "failed to read state file")
	}

	if err := json.Unmarshal(b, &s); err != nil {
		return s, errors.Wrap(err, "failed to parse state file")
	}

	return s, nil
}

// WriteFile writes the state file, replacing it atomically.
func WriteFile(path string, s State) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to JSON marshal state")
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to make state directory")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return errors.Wrap(err, "failed to write state file")
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "failed to replace state file")
	}

	return nil
}

// Saver saves the state in the background. It drops saves that come in while
// one is already running; call Flush at exit to save the latest state.
type Saver struct {
	path   string
	saving chan struct{}
	wg     sync.WaitGroup
}

func NewSaver(path string) *Saver {
	return &Saver{
		path:   path,
		saving: make(chan struct{}, 1),
	}
}

// Path returns the state file path.
func (s *Saver) Path() string { return s.path }

// SaveAsync saves the state in a background goroutine, unless a save is
// already in progress.
func (s *Saver) SaveAsync(st State) {
	select {
	case s.saving <- struct{}{}:
		// success
	default:
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := WriteFile(s.path, st); err != nil {
			log.Error().Err(err).Msg("failed to save state")
		}

		<-s.saving
	}()
}

// Flush waits for background saves, then saves the state synchronously.
func (s *Saver) Flush(st State) error {
	s.wg.Wait()
	return WriteFile(s.path, st)
}
