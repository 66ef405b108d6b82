// Package session runs the control loop: it owns the loaded track and the
// active calibration profile, samples the track every tick and hands the
// resulting angle to the hardware link.
package session

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/chase3718/animatronic/internal/audio"
	"github.com/chase3718/animatronic/internal/link"
	"github.com/chase3718/animatronic/internal/profile"
	"github.com/chase3718/animatronic/internal/rotation"
	"github.com/chase3718/animatronic/internal/spectrogram"
	"github.com/chase3718/animatronic/internal/worker"
)

// Player is the playback collaborator.
type Player interface {
	Play(path string)
	Pause()
	Resume()
	Stop()
	Elapsed() float64 // seconds
}

// Link receives one angle per tick while a track plays.
type Link interface {
	Send(angle int) bool
	State() link.State
	Port() string
}

// Runner starts background tasks. *worker.Pool satisfies it.
type Runner interface {
	Go(name string, fn func()) *worker.Task
	Background(name string, fn func()) *worker.Task
}

// Options tunes the loop.
type Options struct {
	Bands         []float64     // frequencies averaged each tick, Hz
	QueueSize     int           // pending UI requests before new ones are dropped
	FrameInterval time.Duration // loading animation step
}

// DefaultFrameInterval advances the loading animation.
const DefaultFrameInterval = 30 * time.Millisecond

// -------------------- requests --------------------

type requestKind int

const (
	reqOpen requestKind = iota
	reqToggle
	reqStop
	reqCommand
)

type request struct {
	kind requestKind
	path string
	play bool
	cmd  profile.Command
}

// handoff carries the outcome of a background load or stop back to the loop.
type handoff struct {
	gen   uint64
	track *spectrogram.Track
	dir   string
	prof  profile.Profile
	err   error
}

// -------------------- Session --------------------

// Session is the control loop state. Tick and Shutdown must be called from
// one goroutine; the request methods and Snapshot are safe from any.
type Session struct {
	ctx    context.Context
	cache  *spectrogram.Cache
	store  *profile.Store
	player Player
	link   Link
	run    Runner
	opts   Options
	logger *slog.Logger

	requests chan request
	handoffs chan handoff
	frame    atomic.Int64
	snap     atomic.Pointer[Snapshot]

	// Loop-owned. track is the adopted, ready track; next is the one
	// loading. A load only replaces track once it succeeds.
	gen      uint64
	pending  bool
	track    *spectrogram.Track
	next     *spectrogram.Track
	dir      string
	prof     profile.Profile
	angle    int
	db       int
	cached   bool
	autoplay bool
	lastErr  error

	// left holds the last profile of every directory switched away from.
	// Its save may still be queued, so it wins over what a worker read.
	left map[string]profile.Profile
}

// New returns a session on the default profile with no track.
func New(ctx context.Context, cache *spectrogram.Cache, store *profile.Store, player Player, lnk Link, run Runner, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	s := &Session{
		ctx:      ctx,
		cache:    cache,
		store:    store,
		player:   player,
		link:     lnk,
		run:      run,
		opts:     opts,
		logger:   logger.With("component", "session"),
		requests: make(chan request, opts.QueueSize),
		handoffs: make(chan handoff, 4),
		dir:      cache.Dir(spectrogram.DefaultDir),
		left:     make(map[string]profile.Profile),
	}
	s.prof = store.Load(s.dir)
	s.publish()
	return s
}

// Open asks the loop to load and analyse path.
func (s *Session) Open(path string) bool { return s.enqueue(request{kind: reqOpen, path: path}) }

// OpenAndPlay is Open followed by playback as soon as the track is ready.
func (s *Session) OpenAndPlay(path string) bool {
	return s.enqueue(request{kind: reqOpen, path: path, play: true})
}

// TogglePlay starts, pauses or resumes playback.
func (s *Session) TogglePlay() bool { return s.enqueue(request{kind: reqToggle}) }

// Stop drops the track and returns to the default profile.
func (s *Session) Stop() bool { return s.enqueue(request{kind: reqStop}) }

// Submit queues a calibration command.
func (s *Session) Submit(cmd profile.Command) bool {
	return s.enqueue(request{kind: reqCommand, cmd: cmd})
}

func (s *Session) enqueue(r request) bool {
	select {
	case s.requests <- r:
		return true
	default:
		s.logger.Warn("session: request queue full, dropping request", "kind", r.kind)
		return false
	}
}

// Run ticks the loop at interval until ctx is done.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one control-loop iteration. It never blocks.
func (s *Session) Tick() {
	s.drainRequests()
	s.drainHandoffs()

	if t := s.track; t != nil && t.Started && !t.Paused {
		s.sample(t)
	}
	s.publish()
}

// Shutdown persists the active profile. Call it after the loop has stopped.
func (s *Session) Shutdown() error {
	s.player.Stop()
	if err := s.store.Save(s.dir, s.prof); err != nil {
		s.logger.Error("session: profile save failed", "dir", s.dir, "err", err)
		return err
	}
	s.logger.Info("session: profile saved", "dir", s.dir)
	return nil
}

// -------------------- internal --------------------

func (s *Session) drainRequests() {
	for {
		select {
		case r := <-s.requests:
			s.handle(r)
		default:
			return
		}
	}
}

func (s *Session) drainHandoffs() {
	for {
		select {
		case h := <-s.handoffs:
			s.adopt(h)
		default:
			return
		}
	}
}

func (s *Session) handle(r request) {
	switch r.kind {
	case reqOpen:
		s.open(r.path, r.play)
	case reqToggle:
		s.toggle()
	case reqStop:
		s.stop()
	case reqCommand:
		if err := r.cmd.Apply(&s.prof); err != nil {
			s.logger.Debug("session: calibration command rejected", "cmd", r.cmd.String(), "err", err)
			return
		}
		s.logger.Info("session: calibration changed", "cmd", r.cmd.String())
	}
}

func (s *Session) open(path string, play bool) {
	if err := audio.CheckFormat(path); err != nil {
		s.lastErr = err
		s.logger.Warn("session: rejected file", "path", path, "err", err)
		return
	}
	if s.next != nil && s.next.Path == path {
		s.logger.Debug("session: load already in flight", "path", path)
		return
	}

	s.gen++
	gen := s.gen
	t := spectrogram.NewTrack(path)
	s.next = t
	s.pending = true
	s.lastErr = nil
	s.autoplay = play
	s.frame.Store(0)
	s.logger.Info("session: loading track", "path", path)

	s.run.Background("loading-animation", func() { s.animate(t) })
	s.run.Go("load "+filepath.Base(path), func() {
		h := handoff{gen: gen, track: t}
		if err := s.cache.Load(s.ctx, t); err != nil {
			h.err = err
		} else {
			h.dir = s.cache.Dir(t.ContentID())
			h.prof = s.store.Load(h.dir)
		}
		s.deliver(h)
	})
}

func (s *Session) stop() {
	if s.track == nil && !s.pending {
		return
	}
	s.player.Stop()
	s.gen++
	gen := s.gen
	s.track = nil
	s.next = nil
	s.pending = true
	s.autoplay = false
	s.cached = false

	s.logger.Info("session: stopped, returning to default profile")
	s.run.Go("stop", func() {
		dir := s.cache.Dir(spectrogram.DefaultDir)
		s.deliver(handoff{gen: gen, dir: dir, prof: s.store.Load(dir)})
	})
}

func (s *Session) deliver(h handoff) {
	select {
	case s.handoffs <- h:
	case <-s.ctx.Done():
	}
}

func (s *Session) adopt(h handoff) {
	if h.gen != s.gen {
		return
	}
	s.pending = false
	s.next = nil
	if h.err != nil {
		s.lastErr = h.err
		s.autoplay = false
		s.logger.Error("session: track load failed, keeping current state", "path", h.track.Path, "err", h.err)
		return
	}
	s.switchProfile(h.dir, h.prof)
	if h.track == nil {
		return
	}
	if s.track != nil {
		s.player.Stop()
	}
	s.track = h.track
	s.cached = h.track.ConsumeCached()
	s.logger.Info("session: track ready", "title", h.track.Title(), "cached", s.cached, "dir", s.dir)
	if s.autoplay {
		s.autoplay = false
		s.toggle()
	}
}

func (s *Session) toggle() {
	t := s.track
	switch {
	case t == nil:
		return
	case s.pending:
		s.logger.Debug("session: still loading, play ignored")
	case !t.Started:
		t.Started, t.Paused = true, false
		s.player.Play(t.Path)
	case t.Paused:
		t.Paused = false
		s.player.Resume()
	default:
		t.Paused = true
		s.player.Pause()
	}
}

func (s *Session) sample(t *spectrogram.Track) {
	elapsed := s.player.Elapsed()
	if elapsed >= t.Spectrogram().Duration() {
		t.Started, t.Paused = false, false
		s.player.Stop()
		s.logger.Info("session: track finished", "title", t.Title())
		return
	}

	avg := Average(t, elapsed, s.opts.Bands)
	s.db = int(avg)
	s.angle = rotation.Map(avg, s.prof)
	s.link.Send(s.angle)
}

// Average is the mean decibel value of bands at elapsed seconds.
func Average(t *spectrogram.Track, elapsed float64, bands []float64) float64 {
	if len(bands) == 0 {
		return spectrogram.FloorDB
	}
	sum := 0
	for _, f := range bands {
		sum += t.Decibel(elapsed, f)
	}
	return float64(sum) / float64(len(bands))
}

// switchProfile makes dir the active profile directory. The outgoing
// profile is saved in the background.
func (s *Session) switchProfile(dir string, loaded profile.Profile) {
	if dir == s.dir {
		return
	}
	oldDir, oldProf := s.dir, s.prof.Clone()
	s.left[oldDir] = oldProf
	s.run.Go("save profile", func() { s.saveProfile(oldDir, oldProf) })

	if p, ok := s.left[dir]; ok {
		loaded = p.Clone()
	}
	s.dir, s.prof = dir, loaded
}

func (s *Session) saveProfile(dir string, p profile.Profile) {
	if err := s.store.Save(dir, p); err != nil {
		s.logger.Error("session: profile save failed", "dir", dir, "err", err)
	}
}

func (s *Session) animate(t *spectrogram.Track) {
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.Ready():
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.frame.Add(1)
		}
	}
}
