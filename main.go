package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/diamondburned/chika/internal/catalog"
	"github.com/diamondburned/chika/internal/config"
	"github.com/diamondburned/chika/internal/logger"
	"github.com/diamondburned/chika/internal/mpris"
	"github.com/diamondburned/chika/internal/muse"
	"github.com/diamondburned/chika/internal/queue"
	"github.com/diamondburned/chika/internal/state"
	"github.com/diamondburned/chika/internal/ui"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "chika",
	Short:         "chika is a console music player with a personal library.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer()

		return run(cmd.Context(), cfg)
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Add the tagged audio files in the songs directory to the catalog.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer()

		db, err := openCatalog(cfg)
		if err != nil {
			return err
		}

		r, err := db.Import()
		if err != nil {
			return errors.Wrap(err, "failed to import")
		}

		fmt.Printf("Imported %d songs, %d albums and %d genres; skipped %d files.\n",
			r.Songs, r.Albums, r.Genres, r.Skipped)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.AddCommand(importCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "chika:", err)
		os.Exit(1)
	}
}

// setup loads the config and initializes the logger.
func setup() (*config.Config, func(), error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if verbose {
		cfg.Log.Level = "debug"
	}

	closer, err := logger.Init(cfg.Log.Logger())
	if err != nil {
		return nil, nil, err
	}

	return cfg, func() { closer.Close() }, nil
}

func openCatalog(cfg *config.Config) (*catalog.Database, error) {
	db, err := catalog.Open(cfg.DataDir,
		catalog.WithSongsDir(cfg.SongsPath()),
		catalog.WithCoversDir(cfg.CoversPath()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open catalog")
	}
	return db, nil
}

func newPlayer(cfg *config.Config) (ui.Player, error) {
	switch cfg.Player.Backend {
	case "mpd":
		s, err := muse.NewMPDSession(muse.MPDOptions{
			Network:  cfg.Player.MPD.Network,
			Addr:     cfg.Player.MPD.Addr,
			Password: cfg.Player.MPD.Password,
			MusicDir: cfg.Player.MPD.MusicDir,
			Volume:   cfg.Player.Volume,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to MPD")
		}
		return s, nil

	default:
		s, err := muse.NewSession(muse.MpvOptions{
			Path:   cfg.Player.Mpv.Path,
			Socket: cfg.Player.Mpv.Socket,
			Volume: cfg.Player.Volume,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create mpv session")
		}
		return s, nil
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := openCatalog(cfg)
	if err != nil {
		return err
	}

	player, err := newPlayer(cfg)
	if err != nil {
		return err
	}
	defer player.Stop()

	q := queue.New(
		queue.WithShuffle(cfg.Queue.Shuffle),
		queue.WithRepeat(cfg.Queue.Repeat),
	)

	loop := ui.NewLoop()

	console := ui.NewConsole(loop, db, q, player, ui.Options{
		Out:     os.Stdout,
		Saver:   state.NewSaver(cfg.StatePath()),
		Restore: cfg.Queue.Restore,
		Volume:  cfg.Player.Volume,
	})

	if cfg.MPRIS.Enabled {
		conn, err := mpris.New(console, loop.IdleAdd)
		if err != nil {
			log.Warn().Err(err).Msg("MPRIS is unavailable")
		} else {
			defer conn.Close()
			console.AddPublisher(conn)
		}
	}

	log.Info().
		Str("backend", cfg.Player.Backend).
		Str("data_dir", cfg.DataDir).
		Msg("starting")

	console.Run(ctx, os.Stdin)
	return nil
}
