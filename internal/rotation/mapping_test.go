package rotation

import (
	"math"
	"testing"

	"github.com/chase3718/animatronic/internal/profile"
)

func makeProfile(r0, r1, dMin, dMax int, snaps ...int) profile.Profile {
	return profile.Profile{
		Rotations: profile.Rotations{Min: r0, Max: r1, Allowed: snaps},
		DBFS:      profile.DBFS{Min: dMin, Max: dMax},
	}
}

func TestMapSnapScenario(t *testing.T) {
	p := makeProfile(0, 180, -80, -45, 90)
	tests := []struct {
		db   float64
		want int
	}{
		{-45, 180},
		{-80, 0},
		{-62, 90},
	}
	for _, tt := range tests {
		if got := Map(tt.db, p); got != tt.want {
			t.Errorf("Map(%v) = %d, want %d", tt.db, got, tt.want)
		}
	}
}

func TestMapLinearWithoutSnaps(t *testing.T) {
	p := makeProfile(0, 180, -80, -45)
	tests := []struct {
		db   float64
		want int
	}{
		{-45, 180},
		{-80, 0},
		{-62, 90},  // raw 92.57 floored to a multiple of 5
		{-70, 50},  // raw 51.43
		{-46, 175}, // raw 174.86
		{-10, 180}, // louder than the window
		{-100, 0},  // quieter than the window
	}
	for _, tt := range tests {
		if got := Map(tt.db, p); got != tt.want {
			t.Errorf("Map(%v) = %d, want %d", tt.db, got, tt.want)
		}
	}
}

func TestMapEndpointsIgnoreSnaps(t *testing.T) {
	p := makeProfile(20, 160, -70, -30, 45, 100)
	if got := Map(-30, p); got != 160 {
		t.Errorf("Map(dMax) = %d, want r1 160", got)
	}
	if got := Map(-70, p); got != 20 {
		t.Errorf("Map(dMin) = %d, want r0 20", got)
	}
}

func TestMapSnapOutsideRangeIgnored(t *testing.T) {
	p := makeProfile(40, 140, -80, -40, 10)
	// raw 90, the only snap angle is outside the range.
	if got := Map(-60, p); got != 90 {
		t.Errorf("Map(-60) = %d, want 90", got)
	}
}

func TestMapTiesPickFirst(t *testing.T) {
	p := makeProfile(0, 180, -80, -44, 80, 100)
	// raw exactly 90, equidistant from both snaps.
	if got := Map(-62, p); got != 80 {
		t.Errorf("Map(-62) = %d, want first tied snap 80", got)
	}
	p.Rotations.Allowed = []int{100, 80}
	if got := Map(-62, p); got != 100 {
		t.Errorf("Map(-62) = %d, want first tied snap 100", got)
	}
}

func TestMapFloorStaysInRange(t *testing.T) {
	p := makeProfile(3, 50, -80, -40)
	for db := -80.0; db <= -40; db += 0.5 {
		if got := Map(db, p); got < 3 || got > 50 {
			t.Fatalf("Map(%v) = %d outside [3, 50]", db, got)
		}
	}
}

func TestMapDegenerateDBFS(t *testing.T) {
	p := makeProfile(10, 170, -50, -50)
	if got := Map(-50, p); got != 170 {
		t.Errorf("Map(-50) at threshold = %d, want 170", got)
	}
	if got := Map(-51, p); got != 10 {
		t.Errorf("Map(-51) below threshold = %d, want 10", got)
	}
	inverted := makeProfile(10, 170, -40, -60)
	if got := Map(-50, inverted); got < 10 || got > 170 {
		t.Errorf("Map with inverted dBFS = %d, outside range", got)
	}
}

func TestMapTotal(t *testing.T) {
	profiles := []profile.Profile{
		makeProfile(0, 180, -80, -45, 90),
		makeProfile(45, 45, -80, -45),
		makeProfile(0, 0, -80, 0, 0),
		makeProfile(180, 0, -80, -45),
		makeProfile(30, 150, -45, -45, 60),
	}
	inputs := []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1e308, 1e308, -80, -45, 0, -62.5}
	for i, p := range profiles {
		lo, hi := p.Rotations.Min, p.Rotations.Max
		if lo > hi {
			lo, hi = hi, lo
		}
		for _, db := range inputs {
			got := Map(db, p)
			if got < lo || got > hi {
				t.Errorf("[%d] Map(%v) = %d outside [%d, %d]", i, db, got, lo, hi)
			}
		}
	}
}
