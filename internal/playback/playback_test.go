package playback

import (
	"reflect"
	"testing"
	"time"
)

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time          { return f.t }
func (f *fakeTime) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeClock() (*Clock, *fakeTime) {
	ft := &fakeTime{t: time.Unix(1000, 0)}
	return &Clock{now: ft.now}, ft
}

func TestClockPauseResume(t *testing.T) {
	c, ft := newFakeClock()
	if c.Elapsed() != 0 {
		t.Fatalf("new clock Elapsed() = %v, want 0", c.Elapsed())
	}

	c.Start(0)
	ft.advance(2 * time.Second)
	if got := c.Elapsed(); got != 2*time.Second {
		t.Errorf("Elapsed() = %v, want 2s", got)
	}

	c.Pause()
	ft.advance(5 * time.Second)
	if got := c.Elapsed(); got != 2*time.Second {
		t.Errorf("Elapsed() while paused = %v, want 2s", got)
	}
	c.Pause()

	c.Resume()
	ft.advance(time.Second)
	if got := c.Elapsed(); got != 3*time.Second {
		t.Errorf("Elapsed() after resume = %v, want 3s", got)
	}
	c.Resume()
	if got := c.Elapsed(); got != 3*time.Second {
		t.Errorf("second Resume moved the clock: %v", got)
	}

	c.Reset()
	ft.advance(time.Second)
	if got := c.Elapsed(); got != 0 {
		t.Errorf("Elapsed() after Reset = %v, want 0", got)
	}
}

func TestClockStartAt(t *testing.T) {
	c, ft := newFakeClock()
	c.Start(10 * time.Second)
	ft.advance(500 * time.Millisecond)
	if got := c.Elapsed(); got != 10500*time.Millisecond {
		t.Errorf("Elapsed() = %v, want 10.5s", got)
	}
}

func TestSilentPlayer(t *testing.T) {
	p := NewPlayer("", nil)
	ft := &fakeTime{t: time.Unix(0, 0)}
	p.clock.now = ft.now

	p.Play("/music/song.mp3")
	ft.advance(1500 * time.Millisecond)
	if got := p.Elapsed(); got != 1.5 {
		t.Errorf("Elapsed() = %v, want 1.5", got)
	}
	p.Pause()
	ft.advance(time.Second)
	p.Resume()
	ft.advance(500 * time.Millisecond)
	if got := p.Elapsed(); got != 2 {
		t.Errorf("Elapsed() = %v, want 2", got)
	}
	p.Stop()
	if got := p.Elapsed(); got != 0 {
		t.Errorf("Elapsed() after Stop = %v, want 0", got)
	}
}

func TestMissingBinaryFallsBackToClock(t *testing.T) {
	p := NewPlayer("/nonexistent/ffplay-missing", nil)
	p.Play("/music/song.mp3")
	defer p.Stop()
	if p.cancel != nil {
		t.Error("a process handle was kept for a binary that cannot start")
	}
	time.Sleep(10 * time.Millisecond)
	if p.Elapsed() <= 0 {
		t.Error("clock did not run without audio output")
	}
}

func TestArgs(t *testing.T) {
	p := NewPlayer("ffplay", nil)
	tests := []struct {
		seconds float64
		want    []string
	}{
		{0, []string{"-nodisp", "-autoexit", "-loglevel", "error", "a.ogg"}},
		{12.25, []string{"-nodisp", "-autoexit", "-loglevel", "error", "-ss", "12.250", "a.ogg"}},
	}
	for _, tt := range tests {
		if got := p.Args("a.ogg", tt.seconds); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Args(%v) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}
