package muse

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MPDOptions configures the connection to an MPD server.
type MPDOptions struct {
	Network  string // "tcp" or "unix"
	Addr     string
	Password string
	// MusicDir is MPD's music directory. Files under it are sent as relative
	// URIs; anything else is sent as a file:// URI, which MPD only accepts
	// over a local socket.
	MusicDir string
	Volume   int
	// PollInterval is how often the playback position is polled.
	PollInterval time.Duration
}

// MPDSession is a playback engine backed by an MPD server. It owns MPD's
// queue and keeps a single file in it.
type MPDSession struct {
	PlayState *PlayState

	opts    MPDOptions
	handler EventHandler

	mu      sync.Mutex
	client  *mpd.Client
	watcher *mpd.Watcher

	// forced is set while we replace the current file ourselves, so the
	// stop that MPD reports in between is not a finished song.
	forced  atomic.Bool
	playing atomic.Bool

	stop chan struct{}
	done sync.WaitGroup
}

// NewMPDSession connects to MPD and opens a watcher on the player
// subsystem.
func NewMPDSession(opts MPDOptions) (*MPDSession, error) {
	if opts.Network == "" {
		opts.Network = "tcp"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	client, err := mpd.DialAuthenticated(opts.Network, opts.Addr, opts.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MPD")
	}

	watcher, err := mpd.NewWatcher(opts.Network, opts.Addr, opts.Password, "player")
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to watch MPD")
	}

	s := &MPDSession{
		PlayState: &PlayState{},
		opts:      opts,
		client:    client,
		watcher:   watcher,
		stop:      make(chan struct{}),
	}

	if err := s.init(); err != nil {
		s.Stop()
		return nil, err
	}

	log.Info().Str("addr", opts.Addr).Msg("connected to MPD")
	return s, nil
}

func (s *MPDSession) init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return makeBatchErrors(
		s.client.Consume(false),
		s.client.Random(false),
		s.client.Repeat(false),
		s.client.Single(false),
		s.client.SetVolume(clampVolume(s.opts.Volume)),
	)
}

func (s *MPDSession) SetHandler(h EventHandler) {
	s.handler = h
}

// Start starts the watcher and the position poller in background goroutines.
func (s *MPDSession) Start() {
	s.done.Add(2)
	go s.watch()
	go s.poll()
}

func (s *MPDSession) watch() {
	defer s.done.Done()

	for {
		select {
		case <-s.stop:
			return
		case err, ok := <-s.watcher.Error:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("MPD watcher error")
		case _, ok := <-s.watcher.Event:
			if !ok {
				return
			}
			s.onPlayerChange()
		}
	}
}

func (s *MPDSession) onPlayerChange() {
	status, err := s.status()
	if err != nil {
		log.Warn().Err(err).Msg("failed to get MPD status")
		return
	}

	state := status["state"]

	switch state {
	case "play":
		s.forced.Store(false)
		s.handler.OnPauseUpdate(false)
	case "pause":
		s.handler.OnPauseUpdate(true)
	}

	wasPlaying := s.playing.Swap(state == "play")

	if state != "stop" || !wasPlaying || s.forced.Load() {
		return
	}

	s.PlayState.reset()

	if msg := status["error"]; msg != "" {
		s.handler.OnSongFinish(errors.New(msg))
		return
	}

	s.handler.OnSongFinish(nil)
}

func (s *MPDSession) poll() {
	defer s.done.Done()

	tick := time.NewTicker(s.opts.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-tick.C:
		}

		if !s.playing.Load() {
			continue
		}

		status, err := s.status()
		if err != nil {
			log.Debug().Err(err).Msg("failed to poll MPD")
			continue
		}

		pos, _ := strconv.ParseFloat(status["elapsed"], 64)
		tot, _ := strconv.ParseFloat(status["duration"], 64)

		s.PlayState.updatePos(pos)
		s.PlayState.updateTotal(tot)
		s.handler.OnPositionChange(pos, tot)
	}
}

func (s *MPDSession) status() (mpd.Attrs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client.Status()
}

// PlayTrack replaces MPD's queue with the file at path and plays it.
func (s *MPDSession) PlayTrack(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forced.Store(true)

	if err := s.client.Clear(); err != nil {
		s.forced.Store(false)
		return errors.Wrap(err, "failed to clear MPD queue")
	}

	if err := s.client.Add(s.uri(path)); err != nil {
		s.forced.Store(false)
		return errors.Wrapf(err, "failed to add %q", filepath.Base(path))
	}

	if err := s.client.Play(0); err != nil {
		s.forced.Store(false)
		return errors.Wrap(err, "failed to play")
	}

	return nil
}

// StopTrack stops playback without reporting a finished song.
func (s *MPDSession) StopTrack() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing.Store(false)
	return s.client.Stop()
}

// uri converts a local path into something MPD can load.
func (s *MPDSession) uri(path string) string {
	if s.opts.MusicDir != "" {
		rel, err := filepath.Rel(s.opts.MusicDir, path)
		if err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return "file://" + filepath.ToSlash(abs)
}

func (s *MPDSession) SetPlay(playing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client.Pause(!playing)
}

// Seek seeks to the absolute position in seconds.
func (s *MPDSession) Seek(pos float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client.SeekCur(time.Duration(pos*float64(time.Second)), false)
}

func (s *MPDSession) SetVolume(vol int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client.SetVolume(clampVolume(vol))
}

func (s *MPDSession) PlayTime() (pos, total float64) {
	return s.PlayState.PlayTime()
}

// Stop closes the connections and waits for the background goroutines. A
// stopped session cannot be reused.
func (s *MPDSession) Stop() {
	close(s.stop)

	s.mu.Lock()
	err := makeBatchErrors(s.watcher.Close(), s.client.Close())
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("failed to close MPD connections")
	}

	s.done.Wait()
}
