package playback

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// Player plays one file at a time through an external command (ffplay by
// default). Without a command, or when the command cannot start, it keeps
// time silently so the animatronic still moves.
type Player struct {
	Binary string

	clock  *Clock
	logger *slog.Logger

	mu     sync.Mutex
	path   string
	cancel context.CancelFunc
}

// NewPlayer returns a player using binary for audio output, "" for none.
func NewPlayer(binary string, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		Binary: binary,
		clock:  NewClock(),
		logger: logger.With("component", "playback"),
	}
}

// Play starts path from the beginning.
func (p *Player) Play(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
	p.path = path
	p.spawnLocked(0)
	p.clock.Start(0)
	p.logger.Info("playback: started", "path", path)
}

// Pause stops the output and freezes the clock.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
	p.clock.Pause()
}

// Resume restarts the output where it was paused.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "" {
		return
	}
	at := p.clock.Elapsed()
	p.spawnLocked(at.Seconds())
	p.clock.Resume()
}

// Stop ends playback and rewinds.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
	p.path = ""
	p.clock.Reset()
}

// Elapsed returns the playback position in seconds.
func (p *Player) Elapsed() float64 {
	return p.clock.Elapsed().Seconds()
}

// Args returns the output command line for path starting at seconds.
func (p *Player) Args(path string, seconds float64) []string {
	args := []string{"-nodisp", "-autoexit", "-loglevel", "error"}
	if seconds > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seconds, 'f', 3, 64))
	}
	return append(args, path)
}

func (p *Player) spawnLocked(seconds float64) {
	if p.Binary == "" {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, p.Binary, p.Args(p.path, seconds)...)
	if err := cmd.Start(); err != nil {
		cancel()
		p.logger.Warn("playback: output unavailable, continuing silently", "binary", p.Binary, "err", fmt.Errorf("start: %w", err))
		return
	}
	p.cancel = cancel
	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			p.logger.Warn("playback: output exited", "binary", p.Binary, "err", err)
		}
	}()
}

func (p *Player) killLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
