// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hydra/internal/config"
	"hydra/internal/engine"
	"hydra/internal/history"
	"hydra/internal/logging"
	"hydra/internal/playback"
	"hydra/internal/playlistfile"
	"hydra/internal/subtitle"
	"hydra/internal/tui"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagPlaylist string
	flagRepeat   bool
	flagEngine   string
	flagVolume   int
	flagWID      uint64
	flagContinue bool
	flagDebug    bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

// logFile is closed after the command finishes.
var logFile io.Closer

var log = logging.WithComponent("cmd")

var rootCmd = &cobra.Command{
	Use:   "hydra [file...]",
	Short: "Play local media files from the terminal",
	Long: `Hydra is a terminal media player driving mpv or vlc.
Open a file, a directory or several files to play them as a playlist.`,
	Args:               cobra.ArbitraryArgs,
	PersistentPreRunE:  loadConfig,
	PersistentPostRunE: closeLog,
	RunE:               playRun,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagPlaylist, "playlist", "p", "", "Play a playlist file (.m3u, .m3u8, .pls) or a directory")
	rootCmd.Flags().BoolVarP(&flagContinue, "continue", "c", false, "Resume a single file from history")
	rootCmd.PersistentFlags().BoolVarP(&flagRepeat, "repeat", "r", false, "Start with repeat on")
	rootCmd.PersistentFlags().StringVar(&flagEngine, "engine", "", "Media engine: mpv | vlc")
	rootCmd.PersistentFlags().IntVar(&flagVolume, "volume", 0, "Initial volume")
	rootCmd.PersistentFlags().Uint64Var(&flagWID, "wid", 0, "Native window id to render video into")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to the log file")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagEngine != "" {
		cfg.Engine = flagEngine
	}
	if cmd.Flags().Changed("volume") {
		cfg.Volume = flagVolume
	}
	if flagWID != 0 {
		cfg.WindowID = flagWID
	}
	if flagRepeat {
		cfg.Repeat = true
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	path, err := cfg.ExpandLogFile()
	if err != nil {
		return fmt.Errorf("resolving log file: %w", err)
	}
	logFile, err = logging.Setup(path, cfg.Debug)
	if err != nil {
		return err
	}
	log.WithField("engine", cfg.Engine).Debug("config loaded")
	return nil
}

func closeLog(cmd *cobra.Command, args []string) error {
	if logFile == nil {
		return nil
	}
	return logFile.Close()
}

// playRun is the default command: hydra [file...]
func playRun(cmd *cobra.Command, args []string) error {
	reader := playlistfile.NewOS(cfg.MediaExtensions)
	opts := tui.Options{}

	if flagPlaylist != "" {
		paths, err := reader.Load(flagPlaylist)
		if err != nil {
			return fmt.Errorf("loading playlist: %w", err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("playlist %s has no media files", flagPlaylist)
		}
		opts.Playlist = paths
	}

	files, err := reader.Expand(args)
	if err != nil {
		return err
	}
	opts.Files = files

	if flagContinue && len(files) == 1 {
		opts.ResumeAt = savedPosition(files[0])
	}

	return launch(reader, opts)
}

// savedPosition looks up where path was left last time.
func savedPosition(path string) time.Duration {
	if !cfg.History {
		return 0
	}
	store, err := history.OpenDefault(cfg.HistoryLimit)
	if err != nil {
		log.WithError(err).Debug("opening history")
		return 0
	}
	defer store.Close()

	entry, err := store.Get(path)
	if err != nil {
		log.WithError(err).Debug("no saved position")
		return 0
	}
	return entry.Position
}

// launch starts the engine and runs the TUI until the user quits.
func launch(reader *playlistfile.Reader, opts tui.Options) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("hydra needs an interactive terminal")
	}

	eng := engine.New(cfg.Engine, engine.Options{
		Path:      cfg.EnginePath,
		Timeout:   cfg.EngineTimeout(),
		Volume:    cfg.Volume,
		VolumeMax: cfg.VolumeMax,
	})
	if !eng.Available() {
		return fmt.Errorf("engine %q not found in PATH", eng.Name())
	}
	if err := eng.Attach(engine.NewSurface(cfg.WindowID)); err != nil {
		return fmt.Errorf("attaching output: %w", err)
	}
	if err := eng.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", eng.Name(), err)
	}

	if cfg.History {
		store, err := history.OpenDefault(cfg.HistoryLimit)
		if err != nil {
			log.WithError(err).Warn("history disabled")
		} else {
			defer store.Close()
			opts.Recorder = store
		}
	}

	opts.Playback = playback.OptionsFromConfig(cfg)
	opts.Subtitles = subtitle.NewFinder(afero.NewOsFs(), cfg.SubsLanguage)
	opts.PollInterval = cfg.PollInterval()
	opts.Extensions = cfg.MediaExtensions
	opts.Reader = reader
	if wd, err := os.Getwd(); err == nil {
		opts.StartDir = wd
	}

	return tui.Run(eng, opts)
}
