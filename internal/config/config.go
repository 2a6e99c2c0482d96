// Package config loads the player configuration. Values come from the
// defaults, then the YAML file, then CHIKA_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/diamondburned/chika/internal/logger"
	"github.com/diamondburned/chika/internal/queue"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir   string `yaml:"data_dir" default:"data" validate:"required"`
	SongsDir  string `yaml:"songs_dir"`  // defaults to data_dir/songs
	CoversDir string `yaml:"covers_dir"` // defaults to data_dir/covers
	StateFile string `yaml:"state_file"` // defaults to data_dir/state.json

	Log    LogConfig    `yaml:"log"`
	Player PlayerConfig `yaml:"player"`
	Queue  QueueConfig  `yaml:"queue"`
	MPRIS  MPRISConfig  `yaml:"mpris"`
}

type LogConfig struct {
	Output string `yaml:"output" default:"stderr" validate:"oneof=stdout stderr file"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File   string `yaml:"file" validate:"required_if=Output file"`
}

// Logger converts the config for logger.Init.
func (c LogConfig) Logger() logger.Config {
	return logger.Config{Output: c.Output, Level: c.Level, File: c.File}
}

type PlayerConfig struct {
	Backend string    `yaml:"backend" default:"mpv" validate:"oneof=mpv mpd"`
	Volume  int       `yaml:"volume" default:"100" validate:"gte=0,lte=100"`
	Mpv     MpvConfig `yaml:"mpv"`
	MPD     MPDConfig `yaml:"mpd"`
}

type MpvConfig struct {
	Path   string `yaml:"path" default:"mpv" validate:"required"`
	Socket string `yaml:"socket"`
}

type MPDConfig struct {
	Network  string `yaml:"network" default:"tcp" validate:"oneof=tcp unix"`
	Addr     string `yaml:"addr" default:"localhost:6600" validate:"required"`
	Password string `yaml:"password"`
	MusicDir string `yaml:"music_dir"`
}

type QueueConfig struct {
	Shuffle bool             `yaml:"shuffle"`
	Repeat  queue.RepeatMode `yaml:"repeat" validate:"lte=2"`
	// Restore reloads the last session's queue on login.
	Restore bool `yaml:"restore" default:"true"`
}

type MPRISConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// Default returns the configuration with only the defaults applied.
func Default() *Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic("BUG: invalid defaults: " + err.Error())
	}
	return &cfg
}

// Load loads the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	var strs = map[string]*string{
		"CHIKA_DATA_DIR":       &c.DataDir,
		"CHIKA_SONGS_DIR":      &c.SongsDir,
		"CHIKA_COVERS_DIR":     &c.CoversDir,
		"CHIKA_STATE_FILE":     &c.StateFile,
		"CHIKA_LOG_OUTPUT":     &c.Log.Output,
		"CHIKA_LOG_LEVEL":      &c.Log.Level,
		"CHIKA_LOG_FILE":       &c.Log.File,
		"CHIKA_PLAYER_BACKEND": &c.Player.Backend,
		"CHIKA_MPV_PATH":       &c.Player.Mpv.Path,
		"CHIKA_MPD_ADDR":       &c.Player.MPD.Addr,
		"CHIKA_MPD_PASSWORD":   &c.Player.MPD.Password,
		"CHIKA_MPD_MUSIC_DIR":  &c.Player.MPD.MusicDir,
	}

	for env, ptr := range strs {
		if v := os.Getenv(env); v != "" {
			*ptr = v
		}
	}

	if v := os.Getenv("CHIKA_VOLUME"); v != "" {
		vol, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "invalid CHIKA_VOLUME")
		}
		c.Player.Volume = vol
	}

	if v := os.Getenv("CHIKA_MPRIS"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "invalid CHIKA_MPRIS")
		}
		c.MPRIS.Enabled = enabled
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

func (c *Config) orDataDir(dir, name string) string {
	if dir != "" {
		return dir
	}
	return filepath.Join(c.DataDir, name)
}

// SongsPath returns the songs directory.
func (c *Config) SongsPath() string { return c.orDataDir(c.SongsDir, "songs") }

// CoversPath returns the album covers directory.
func (c *Config) CoversPath() string { return c.orDataDir(c.CoversDir, "covers") }

// StatePath returns the session state file.
func (c *Config) StatePath() string { return c.orDataDir(c.StateFile, "state.json") }
