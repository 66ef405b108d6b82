package spectrogram

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Analysis defaults.
const (
	DefaultFFTSize = 8192
	DefaultHop     = 512
	DefaultTopDB   = 80.0
	amin           = 1e-5
)

var errNoSamples = errors.New("spectrogram: no samples to analyse")

// Analyzer computes a log-decibel magnitude spectrogram with centred,
// Hann-windowed frames.
type Analyzer struct {
	FFTSize int
	Hop     int
	TopDB   float64
}

// NewAnalyzer returns an analyzer with the default transform settings.
func NewAnalyzer() *Analyzer {
	return &Analyzer{FFTSize: DefaultFFTSize, Hop: DefaultHop, TopDB: DefaultTopDB}
}

// Analyze transforms mono samples at sampleRate into a Spectrogram whose
// peak magnitude maps to 0 dB.
func (a *Analyzer) Analyze(samples []float64, sampleRate int) (*Spectrogram, error) {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil, errNoSamples
	}
	n, hop := a.FFTSize, a.Hop
	half := n / 2

	// Centre the frames: zero padding of n/2 on both sides.
	padded := make([]float64, len(samples)+2*half)
	copy(padded[half:], samples)
	frames := 1 + (len(padded)-n)/hop
	bins := half + 1

	// Periodic Hann: symmetric window of n+1 points minus the last.
	win := make([]float64, n+1)
	for i := range win {
		win[i] = 1
	}
	win = window.Hann(win)[:n]

	mags := make([][]float32, bins)
	for b := range mags {
		mags[b] = make([]float32, frames)
	}

	frame := make([]float64, n)
	col := make([]float64, bins)
	peak := 0.0
	for t := 0; t < frames; t++ {
		copy(frame, padded[t*hop:t*hop+n])
		floats.Mul(frame, win)
		spectrum := fft.FFTReal(frame)
		for b := 0; b < bins; b++ {
			col[b] = cmplx.Abs(spectrum[b])
			mags[b][t] = float32(col[b])
		}
		peak = math.Max(peak, floats.Max(col))
	}

	ref := 20 * math.Log10(math.Max(amin, peak))
	floor := -a.TopDB
	for b := range mags {
		row := mags[b]
		for t, m := range row {
			db := 20*math.Log10(math.Max(amin, float64(m))) - ref
			if db < floor {
				db = floor
			}
			row[t] = float32(db)
		}
	}

	lastTime := (float64((frames-1)*hop) + float64(half)) / float64(sampleRate)
	maxFreq := float64(sampleRate) / 2

	return &Spectrogram{
		Decibels:            mags,
		TimeIndexRatio:      float64(frames) / lastTime,
		FrequencyIndexRatio: float64(bins) / maxFreq,
	}, nil
}
