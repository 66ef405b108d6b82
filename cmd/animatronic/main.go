// Command animatronic turns a servo in time with the loudness of a playing
// track. The servo controller is found on any serial port, at any time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/sync/errgroup"

	"github.com/chase3718/animatronic/internal/audio"
	"github.com/chase3718/animatronic/internal/config"
	"github.com/chase3718/animatronic/internal/control"
	"github.com/chase3718/animatronic/internal/link"
	"github.com/chase3718/animatronic/internal/playback"
	"github.com/chase3718/animatronic/internal/profile"
	"github.com/chase3718/animatronic/internal/session"
	"github.com/chase3718/animatronic/internal/spectrogram"
	"github.com/chase3718/animatronic/internal/tui"
	"github.com/chase3718/animatronic/internal/worker"
)

// -------------------- Logger --------------------

// logger is the package-wide structured logger. Safe to use before initLogger
// is called; defaults to slog.Default().
var logger = slog.Default()

// initLogger configures the shared slog logger and calls slog.SetDefault so
// the stdlib log package also routes through the same handler.
func initLogger(debug bool, w io.Writer) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug, // include file:line in debug mode
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

// LogFile is written under the cache root while the TUI owns the terminal.
const LogFile = "animatronic.log"

const statusInterval = 5 * time.Second

// -------------------- Main --------------------

func main() {
	cfg := config.Load()

	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging (adds source location)")
	flag.StringVar(&cfg.CacheRoot, "cache", cfg.CacheRoot, "cache directory for spectrograms and profiles")
	flag.IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "serial baud rate")
	flag.StringVar(&cfg.Player, "player", cfg.Player, `audio output command ("" for a silent clock)`)
	flag.BoolVar(&cfg.MIDI, "midi", cfg.MIDI, "watch for a MIDI control surface")
	headless := flag.Bool("headless", false, "run without the terminal UI")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [audio file]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(cfg, *headless, flag.Arg(0)); err != nil {
		logger.Error("animatronic: exiting", "err", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, headless bool, path string) error {
	if err := os.MkdirAll(cfg.CacheRoot, 0o755); err != nil {
		return fmt.Errorf("cache root: %w", err)
	}

	logOut := io.Writer(os.Stderr)
	if !headless {
		f, err := os.OpenFile(filepath.Join(cfg.CacheRoot, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	initLogger(cfg.Debug, logOut)
	logger.Info("animatronic starting",
		"cache", cfg.CacheRoot,
		"baud", cfg.BaudRate,
		"tick_hz", cfg.TickRate,
		"workers", cfg.Workers,
		"bands", len(cfg.Bands()),
		"player", cfg.Player,
		"midi", cfg.MIDI,
		"headless", headless,
	)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	pool := worker.New(cfg.Workers, logger)
	cache := spectrogram.NewCache(cfg.CacheRoot, audio.NewFFmpegDecoder(audio.AnalysisSampleRate), pool, logger)
	store := profile.NewStore(logger)
	lnk := link.NewManager(link.SerialDriver{}, pool, link.Options{
		BaudRate:     cfg.BaudRate,
		PollInterval: cfg.PollInterval,
		SettleDelay:  cfg.SettleDelay,
	}, logger)
	player := playback.NewPlayer(cfg.Player, logger)
	sess := session.New(ctx, cache, store, player, lnk, pool, session.Options{Bands: cfg.Bands()}, logger)

	if path != "" {
		sess.OpenAndPlay(path)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx, cfg.TickInterval()) })

	if cfg.MIDI {
		if w := startMIDI(sess); w != nil {
			defer w.Close()
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	if headless {
		g.Go(func() error { return reportStatus(gctx, sess) })
	} else {
		g.Go(func() error {
			defer cancel()
			return tui.Run(gctx, sess)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	logger.Info("animatronic: shutting down")
	if serr := sess.Shutdown(); serr != nil && err == nil {
		err = serr
	}
	lnk.Close()
	pool.Wait()
	logger.Info("animatronic: stopped")
	return err
}

// startMIDI opens the MIDI driver. A missing MIDI stack only disables the
// control surface.
func startMIDI(sess *session.Session) *control.Watcher {
	drv, err := rtmididrv.New()
	if err != nil {
		logger.Warn("midi: driver unavailable, control surface disabled", "err", err)
		return nil
	}
	return control.NewWatcher(drv, func(cmd profile.Command) { sess.Submit(cmd) }, logger)
}

// reportStatus logs the session state periodically when there is no UI.
func reportStatus(ctx context.Context, sess *session.Session) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s := sess.Snapshot()
			logger.Info("status",
				"link", s.Link.String(),
				"port", s.Port,
				"track", s.Title,
				"loading", s.LoadingTitle,
				"playing", s.Started && !s.Paused,
				"elapsed", fmt.Sprintf("%.1f", s.Elapsed),
				"angle", s.Angle,
				"db", s.DB,
			)
		}
	}
}
