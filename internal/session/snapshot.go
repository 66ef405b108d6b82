package session

import (
	"path/filepath"

	"github.com/chase3718/animatronic/internal/link"
	"github.com/chase3718/animatronic/internal/profile"
)

// Snapshot is the read-only view published after every tick.
type Snapshot struct {
	Angle   int
	DB      int
	Profile profile.Profile

	Link link.State
	Port string

	HasTrack     bool
	Title        string
	Loading      bool
	LoadingTitle string // file being analysed, "" while switching profile
	Frame        int64
	Cached   bool
	Started  bool
	Paused   bool
	Elapsed  float64
	Duration float64

	Err error // last rejected or failed load
}

// Snapshot returns the state as of the last tick.
func (s *Session) Snapshot() Snapshot {
	return *s.snap.Load()
}

func (s *Session) publish() {
	snap := &Snapshot{
		Angle:   s.angle,
		DB:      s.db,
		Profile: s.prof.Clone(),
		Link:    s.link.State(),
		Port:    s.link.Port(),
		Loading: s.pending,
		Frame:   s.frame.Load(),
		Err:     s.lastErr,
	}
	if s.next != nil {
		snap.LoadingTitle = filepath.Base(s.next.Path)
	}
	if t := s.track; t != nil {
		snap.HasTrack = true
		snap.Title = t.Title()
		snap.Started = t.Started
		snap.Paused = t.Paused
		snap.Cached = s.cached
		snap.Duration = t.Spectrogram().Duration()
		if t.Started {
			snap.Elapsed = s.player.Elapsed()
		}
	}
	s.snap.Store(snap)
}
