package spectrogram

import (
	"path/filepath"
	"sync/atomic"
)

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Track is a loaded (or loading) audio file. The background load writes the
// analysis before Loading turns false; after that the track is read-only
// apart from the playback flags, which belong to the control loop.
type Track struct {
	Path string

	// Playback flags, owned by the control loop.
	Started bool
	Paused  bool

	loading atomic.Bool
	cached  atomic.Bool
	ready   chan struct{}

	// Written once before loading clears.
	title     string
	contentID string
	spec      *Spectrogram
	persisted <-chan struct{}
	err       error
}

// NewTrack returns a track in the loading state.
func NewTrack(path string) *Track {
	t := &Track{
		Path:      path,
		ready:     make(chan struct{}),
		persisted: closedChan,
	}
	t.loading.Store(true)
	return t
}

// Loading reports whether analysis is still running.
func (t *Track) Loading() bool { return t.loading.Load() }

// Ready is closed once loading has finished, successfully or not.
func (t *Track) Ready() <-chan struct{} { return t.ready }

// Err is the load failure, valid once Loading is false.
func (t *Track) Err() error {
	if t.Loading() {
		return nil
	}
	return t.err
}

// Title is the display name: tag based once loaded, else the file name.
func (t *Track) Title() string {
	if t.Loading() || t.title == "" {
		return filepath.Base(t.Path)
	}
	return t.title
}

// Cached reports whether the analysis came from the persisted cache.
func (t *Track) Cached() bool { return t.cached.Load() }

// ConsumeCached reports and clears the cache-hit notification.
func (t *Track) ConsumeCached() bool { return t.cached.Swap(false) }

// ContentID is the hex digest naming the track's cache directory.
func (t *Track) ContentID() string {
	if t.Loading() {
		return ""
	}
	return t.contentID
}

// Spectrogram returns the analysis, nil while loading or after a failure.
func (t *Track) Spectrogram() *Spectrogram {
	if t.Loading() {
		return nil
	}
	return t.spec
}

// Persisted is closed when the background cache write for this analysis
// has finished. It is already closed for cache hits.
func (t *Track) Persisted() <-chan struct{} {
	if t.Loading() {
		return nil
	}
	return t.persisted
}

// Decibel samples the track; FloorDB while loading.
func (t *Track) Decibel(elapsed, freq float64) int {
	return t.Spectrogram().Decibel(elapsed, freq)
}

func (t *Track) finish(err error) {
	t.err = err
	t.loading.Store(false)
	close(t.ready)
}
