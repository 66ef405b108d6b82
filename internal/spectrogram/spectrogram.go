// Package spectrogram turns audio files into decibel matrices, persists them
// in a content-addressed cache and answers playback-time decibel queries.
package spectrogram

import "math"

// FloorDB is returned for any query outside the analysed matrix.
const FloorDB = -80

// Spectrogram is a decibel matrix indexed [frequency bin][time bin], plus the
// ratios converting seconds and hertz into indices. Values lie in
// [FloorDB, 0], 0 being the loudest instant of the track.
type Spectrogram struct {
	Decibels            [][]float32
	TimeIndexRatio      float64
	FrequencyIndexRatio float64
}

// Decibel returns the level of freq (Hz) at elapsed seconds of playback.
// Out-of-range lookups return FloorDB. Safe for concurrent readers.
func (s *Spectrogram) Decibel(elapsed, freq float64) int {
	if s == nil {
		return FloorDB
	}
	fi, ok := index(freq*s.FrequencyIndexRatio, len(s.Decibels))
	if !ok {
		return FloorDB
	}
	row := s.Decibels[fi]
	ti, ok := index(elapsed*s.TimeIndexRatio, len(row))
	if !ok {
		return FloorDB
	}
	return int(row[ti])
}

// Bins returns the matrix shape.
func (s *Spectrogram) Bins() (freqBins, timeBins int) {
	if s == nil || len(s.Decibels) == 0 {
		return 0, 0
	}
	return len(s.Decibels), len(s.Decibels[0])
}

// Duration estimates the analysed length of the track in seconds.
func (s *Spectrogram) Duration() float64 {
	_, frames := s.Bins()
	if frames == 0 || s.TimeIndexRatio <= 0 {
		return 0
	}
	return float64(frames) / s.TimeIndexRatio
}

func index(x float64, n int) (int, bool) {
	if math.IsNaN(x) || x < 0 || x >= float64(n) {
		return 0, false
	}
	return int(math.Floor(x)), true
}
