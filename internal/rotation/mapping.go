// Package rotation maps a decibel level onto an actuator angle using a
// calibration profile.
package rotation

import (
	"math"

	"github.com/chase3718/animatronic/internal/profile"
)

// Multiple is the resolution of un-snapped angles.
const Multiple = 5

// Map converts an averaged decibel level into a target angle:
//
//   - dbfs.max maps to rotations.max and dbfs.min to rotations.min, linearly;
//   - a value strictly inside the range snaps to the nearest snap angle that
//     also lies inside the range (first one wins on ties);
//   - values outside the range clamp to its bounds;
//   - otherwise the angle is floored to a multiple of 5.
//
// The result always lies in the profile's rotation range. Profiles with a
// degenerate dBFS window (min >= max) act as a threshold at dbfs.max.
func Map(db float64, p profile.Profile) int {
	r0, r1 := p.Rotations.Min, p.Rotations.Max
	if r0 > r1 {
		r0, r1 = r1, r0
	}
	dMin, dMax := float64(p.DBFS.Min), float64(p.DBFS.Max)

	if math.IsNaN(db) {
		return r0
	}
	if dMin >= dMax {
		if db >= dMax {
			return r1
		}
		return r0
	}

	// (dMax-db)*span is exact for integral input, so the bounds map exactly.
	span := float64(r1 - r0)
	raw := float64(r1) - (dMax-db)*span/(dMax-dMin)

	if raw > float64(r0) && raw < float64(r1) {
		if snap, ok := closest(p.Rotations.Allowed, raw); ok && snap >= r0 && snap <= r1 {
			return snap
		}
	}

	if !(raw > float64(r0)) {
		return r0
	}
	if raw >= float64(r1) {
		return r1
	}

	angle := int(math.Floor(raw/Multiple)) * Multiple
	return max(angle, r0)
}

// closest returns the first allowed angle at minimum distance from x.
func closest(allowed []int, x float64) (int, bool) {
	best, bestDist := 0, math.Inf(1)
	for _, a := range allowed {
		if d := math.Abs(float64(a) - x); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, len(allowed) > 0
}
