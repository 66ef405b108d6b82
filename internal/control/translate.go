package control

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/chase3718/animatronic/internal/profile"
)

// Control change numbers of the calibration surface.
const (
	CCRotationMax = 1
	CCRotationMin = 2
	CCDBFSMax     = 3
	CCDBFSMin     = 4
)

// Keys LowKey..HighKey toggle snap angles 0..180 in steps of 5.
const (
	LowKey  = 48
	HighKey = LowKey + profile.MaxAngle/profile.AngleMultiple
)

// Translate maps a MIDI message to a calibration command.
func Translate(msg midi.Message) (profile.Command, bool) {
	var ch, cc, val, key, vel uint8
	switch {
	case msg.GetControlChange(&ch, &cc, &val):
		switch cc {
		case CCRotationMax:
			return profile.SetRotationMax{Angle: scaleAngle(val)}, true
		case CCRotationMin:
			return profile.SetRotationMin{Angle: scaleAngle(val)}, true
		case CCDBFSMax:
			return profile.SetDBFSMax{DB: scaleDB(val)}, true
		case CCDBFSMin:
			return profile.SetDBFSMin{DB: scaleDB(val)}, true
		}
	case msg.GetNoteStart(&ch, &key, &vel):
		if key >= LowKey && key <= HighKey {
			return profile.ToggleSnap{Angle: int(key-LowKey) * profile.AngleMultiple}, true
		}
	}
	return nil, false
}

func scaleAngle(v uint8) int {
	return int(v) * profile.MaxAngle / 127
}

func scaleDB(v uint8) int {
	return profile.MinDBFS + int(v)*(profile.MaxDBFS-profile.MinDBFS)/127
}
