package muse

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/DexterLB/mpvipc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	allEvent = iota
	pauseEvent
	timePositionEvent
	durationEvent
	audioDeviceEvent
)

var events = []string{
	"end-file",
}

var propertyMap = map[int]string{
	pauseEvent:        "pause",
	timePositionEvent: "time-pos",
	durationEvent:     "duration",
	audioDeviceEvent:  "audio-device",
}

// MpvOptions configures the mpv process.
type MpvOptions struct {
	// Path is the mpv executable. It defaults to "mpv" in $PATH.
	Path string
	// Socket is the IPC socket path. It defaults to a path in the temporary
	// directory.
	Socket string
	Volume int
}

// Session is a playback engine backed by an mpv child process.
type Session struct {
	Playback  *mpvipc.Connection
	PlayState *PlayState
	Command   *exec.Cmd

	handler    EventHandler
	socketPath string

	// loaded is true while mpv has a file open. forced is set when we replace
	// or stop that file ourselves, so the following end-file is not reported.
	loaded atomic.Bool
	forced atomic.Bool
}

var tmpdir = filepath.Join(os.TempDir(), "chika")

// NewSession starts mpv and connects to it.
func NewSession(opts MpvOptions) (*Session, error) {
	if opts.Path == "" {
		opts.Path = "mpv"
	}

	sockPath := opts.Socket
	if sockPath == "" {
		sockPath = filepath.Join(tmpdir, "mpv", "mpv.sock")
	}

	if err := os.MkdirAll(filepath.Dir(sockPath), os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "failed to make socket directory")
	}

	if err := os.RemoveAll(sockPath); err != nil {
		return nil, errors.Wrap(err, "failed to clean up socket")
	}

	args := []string{
		"--idle",
		"--quiet",
		"--pause",
		"--no-input-terminal",
		"--gapless-audio=weak",
		"--replaygain=track",
		"--replaygain-clip=no",
		"--input-ipc-server=" + sockPath,
		"--volume=" + strconv.Itoa(clampVolume(opts.Volume)),
		"--volume-max=100",
		"--no-video",
	}

	// Try and support MPV_MPRIS.
	if scripts := os.Getenv("MPV_SCRIPTS"); scripts != "" {
		for _, script := range strings.Split(scripts, ":") {
			args = append(args, "--script="+script)
		}
	}

	cmd := exec.Command(opts.Path, args...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start mpv")
	}

	conn := mpvipc.NewConnection(sockPath)

	if err := openRetry(conn, 5*time.Second); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, errors.Wrap(err, "failed to open connection")
	}

	for _, event := range events {
		if _, err := conn.Call("enable_event", event); err != nil {
			return nil, errors.Wrapf(err, "failed to enable event %q", event)
		}
	}

	for id, property := range propertyMap {
		if _, err := conn.Call("observe_property", id, property); err != nil {
			return nil, errors.Wrapf(err, "failed to observe property %q", property)
		}
	}

	return &Session{
		Playback:   conn,
		PlayState:  &PlayState{},
		Command:    cmd,
		socketPath: sockPath,
	}, nil
}

// openRetry spins until mpv creates its socket or the timeout runs out.
func openRetry(conn *mpvipc.Connection, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		err := conn.Open()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return err
		default:
			runtime.Gosched()
		}
	}
}

func (s *Session) SetHandler(h EventHandler) {
	s.handler = h
}

// Start starts all the event listeners in background goroutines. As such, it
// is non-blocking.
func (s *Session) Start() {
	s.Playback.ListenForEvents(s.handleEvent)
}

func (s *Session) handleEvent(event *mpvipc.Event) {
	if event.Error != "" {
		log.Warn().Str("event", event.Name).Str("error", event.Error).Msg("mpv event error")
	}

	if event.Data == nil || int(event.ID) == allEvent {
		s.handleNamedEvent(event)
		return
	}

	switch int(event.ID) {
	case pauseEvent:
		if b, ok := event.Data.(bool); ok {
			s.handler.OnPauseUpdate(b)
		}

	case timePositionEvent:
		if pos, ok := event.Data.(float64); ok {
			s.PlayState.updatePos(pos)
			s.handler.OnPositionChange(s.PlayState.PlayTime())
		}

	case durationEvent:
		if tot, ok := event.Data.(float64); ok {
			s.PlayState.updateTotal(tot)
		}

	case audioDeviceEvent:
		log.Info().Interface("device", event.Data).Msg("audio device changed")
	}
}

func (s *Session) handleNamedEvent(event *mpvipc.Event) {
	if event.Name != "end-file" {
		return
	}

	s.PlayState.reset()

	// Edge-case when we force playing or stopping; because we invoked this
	// action, we don't trigger the callback.
	if s.forced.Swap(false) {
		return
	}

	s.loaded.Store(false)

	var err error
	if event.Error != "" {
		err = errors.New(event.Error)
	}

	s.handler.OnSongFinish(err)
}

// PlayTrack replaces whatever is playing with the file at path and unpauses.
func (s *Session) PlayTrack(path string) error {
	if s.loaded.Swap(true) {
		s.forced.Store(true)
	}

	if _, err := s.Playback.Call("loadfile", path, "replace"); err != nil {
		s.forced.Store(false)
		s.loaded.Store(false)
		return errors.Wrapf(err, "failed to load %q", filepath.Base(path))
	}

	return s.SetPlay(true)
}

// StopTrack unloads the current file without reporting a finished song.
func (s *Session) StopTrack() error {
	if !s.loaded.Swap(false) {
		return nil
	}

	s.forced.Store(true)

	_, err := s.Playback.Call("stop")
	return err
}

func (s *Session) SetPlay(playing bool) error {
	return s.Playback.Set("pause", !playing)
}

// Seek seeks to the absolute position in seconds.
func (s *Session) Seek(pos float64) error {
	return s.Playback.Set("time-pos", pos)
}

func (s *Session) SetVolume(vol int) error {
	return s.Playback.Set("volume", clampVolume(vol))
}

func (s *Session) PlayTime() (pos, total float64) {
	return s.PlayState.PlayTime()
}

// Stop stops the mpv session. A stopped session cannot be reused.
func (s *Session) Stop() {
	s.Playback.Close()

	if err := s.Command.Process.Signal(os.Interrupt); err != nil {
		log.Warn().Err(err).Msg("failed to interrupt mpv, killing anyway")

		if err = s.Command.Process.Kill(); err != nil {
			log.Error().Err(err).Msg("failed to kill mpv")
		}
	} else {
		// Wait for mpv to finish up.
		s.Command.Wait()
	}

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to clean up socket")
	}
}
