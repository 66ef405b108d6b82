// Package profile holds calibration profiles: the rotation bounds, snap
// angles and decibel thresholds that parameterise the rotation mapping for
// one track (or the default), and their persistence.
package profile

import (
	"errors"
	"fmt"
	"slices"
)

// Angle and threshold limits.
const (
	MinAngle = 0
	MaxAngle = 180
	MinDBFS  = -80
	MaxDBFS  = 0
)

// ErrInvalid marks a profile violating its invariants.
var ErrInvalid = errors.New("invalid calibration profile")

// Rotations is the actuator range and the snap angles inside it.
type Rotations struct {
	Min     int   `json:"min"`
	Max     int   `json:"max"`
	Allowed []int `json:"allowed"`
}

// DBFS is the decibel window mapped onto the rotation range.
type DBFS struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Profile is the persisted calibration record.
type Profile struct {
	Rotations Rotations `json:"rotations"`
	DBFS      DBFS      `json:"dbfs"`
}

// Default returns the profile created for directories without one.
func Default() Profile {
	return Profile{
		Rotations: Rotations{Min: MinAngle, Max: MaxAngle, Allowed: []int{}},
		DBFS:      DBFS{Min: -80, Max: -45},
	}
}

// Validate checks 0 <= min <= max <= 180, distinct snap angles inside
// [0, 180] and min_db < max_db.
func (p Profile) Validate() error {
	r := p.Rotations
	if r.Min < MinAngle || r.Max > MaxAngle || r.Min > r.Max {
		return fmt.Errorf("%w: rotation range %d..%d", ErrInvalid, r.Min, r.Max)
	}
	seen := make(map[int]bool, len(r.Allowed))
	for _, a := range r.Allowed {
		if a < MinAngle || a > MaxAngle {
			return fmt.Errorf("%w: snap angle %d out of range", ErrInvalid, a)
		}
		if seen[a] {
			return fmt.Errorf("%w: duplicate snap angle %d", ErrInvalid, a)
		}
		seen[a] = true
	}
	if p.DBFS.Min >= p.DBFS.Max {
		return fmt.Errorf("%w: dBFS range %d..%d", ErrInvalid, p.DBFS.Min, p.DBFS.Max)
	}
	return nil
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	c := p
	c.Rotations.Allowed = slices.Clone(p.Rotations.Allowed)
	if c.Rotations.Allowed == nil {
		c.Rotations.Allowed = []int{}
	}
	return c
}

// Equal compares two profiles; a nil and an empty snap set are equal.
func (p Profile) Equal(o Profile) bool {
	return p.Rotations.Min == o.Rotations.Min &&
		p.Rotations.Max == o.Rotations.Max &&
		slices.Equal(p.Rotations.Allowed, o.Rotations.Allowed) &&
		p.DBFS == o.DBFS
}

// HasSnap reports whether angle is a snap target.
func (p Profile) HasSnap(angle int) bool {
	return slices.Contains(p.Rotations.Allowed, angle)
}
