package profile

import (
	"errors"
	"fmt"
	"slices"
)

// Calibration editing rules.
const (
	RangeGap      = 30 // minimum distance between the rotation bounds
	SnapRadius    = 5  // a dragged bound within this of a snap angle lands on it
	AngleMultiple = 5  // snap angles are multiples of this
	edgeSnap      = 4  // bounds this close to 0 or 180 land on them
)

// ErrRejected is returned by commands that would break the profile.
var ErrRejected = errors.New("calibration command rejected")

// Command is an explicit calibration edit, applied by the profile owner.
// Apply leaves p untouched when it returns an error.
type Command interface {
	Apply(p *Profile) error
	String() string
}

// SetRotationMax moves the upper rotation bound.
type SetRotationMax struct{ Angle int }

func (c SetRotationMax) Apply(p *Profile) error {
	a := c.Angle
	if a <= p.Rotations.Min+RangeGap || a > MaxAngle {
		return fmt.Errorf("%w: max %d with min %d", ErrRejected, a, p.Rotations.Min)
	}
	if a > MaxAngle-edgeSnap {
		a = MaxAngle
	} else if s := snapTo(p.Rotations.Allowed, a); s > p.Rotations.Min+RangeGap {
		a = s
	}
	return commit(p, func(n *Profile) { n.Rotations.Max = a })
}

func (c SetRotationMax) String() string { return fmt.Sprintf("set rotation max %d", c.Angle) }

// SetRotationMin moves the lower rotation bound.
type SetRotationMin struct{ Angle int }

func (c SetRotationMin) Apply(p *Profile) error {
	a := c.Angle
	if a < MinAngle || a >= p.Rotations.Max-RangeGap {
		return fmt.Errorf("%w: min %d with max %d", ErrRejected, a, p.Rotations.Max)
	}
	if a < MinAngle+edgeSnap {
		a = MinAngle
	} else if s := snapTo(p.Rotations.Allowed, a); s < p.Rotations.Max-RangeGap {
		a = s
	}
	return commit(p, func(n *Profile) { n.Rotations.Min = a })
}

func (c SetRotationMin) String() string { return fmt.Sprintf("set rotation min %d", c.Angle) }

// ToggleSnap adds or removes a snap angle. The angle is floored to a
// multiple of AngleMultiple and must lie inside the rotation range.
type ToggleSnap struct{ Angle int }

func (c ToggleSnap) Apply(p *Profile) error {
	a := floorMultiple(c.Angle, AngleMultiple)
	if a < p.Rotations.Min || a > p.Rotations.Max {
		return fmt.Errorf("%w: snap %d outside %d..%d", ErrRejected, a, p.Rotations.Min, p.Rotations.Max)
	}
	return commit(p, func(n *Profile) {
		if i := slices.Index(n.Rotations.Allowed, a); i >= 0 {
			n.Rotations.Allowed = slices.Delete(n.Rotations.Allowed, i, i+1)
		} else {
			n.Rotations.Allowed = append(n.Rotations.Allowed, a)
		}
	})
}

func (c ToggleSnap) String() string { return fmt.Sprintf("toggle snap %d", c.Angle) }

// SetDBFSMax moves the loud threshold (mapped to the rotation max).
type SetDBFSMax struct{ DB int }

func (c SetDBFSMax) Apply(p *Profile) error {
	if c.DB > MaxDBFS || c.DB <= p.DBFS.Min {
		return fmt.Errorf("%w: dBFS max %d with min %d", ErrRejected, c.DB, p.DBFS.Min)
	}
	return commit(p, func(n *Profile) { n.DBFS.Max = c.DB })
}

func (c SetDBFSMax) String() string { return fmt.Sprintf("set dBFS max %d", c.DB) }

// SetDBFSMin moves the quiet threshold (mapped to the rotation min).
type SetDBFSMin struct{ DB int }

func (c SetDBFSMin) Apply(p *Profile) error {
	if c.DB < MinDBFS || c.DB >= p.DBFS.Max {
		return fmt.Errorf("%w: dBFS min %d with max %d", ErrRejected, c.DB, p.DBFS.Max)
	}
	return commit(p, func(n *Profile) { n.DBFS.Min = c.DB })
}

func (c SetDBFSMin) String() string { return fmt.Sprintf("set dBFS min %d", c.DB) }

// commit applies edit to a copy and keeps it only if it is still valid.
func commit(p *Profile, edit func(*Profile)) error {
	n := p.Clone()
	edit(&n)
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	*p = n
	return nil
}

// snapTo returns the first allowed angle within SnapRadius of a, else a.
func snapTo(allowed []int, a int) int {
	for _, s := range allowed {
		if abs(a-s) <= SnapRadius {
			return s
		}
	}
	return a
}

func floorMultiple(a, m int) int {
	q := a / m
	if a%m != 0 && a < 0 {
		q--
	}
	return q * m
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
