package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
)

// AnalysisSampleRate is the rate tracks are resampled to before analysis.
const AnalysisSampleRate = 22050

// FFmpegDecoder decodes audio files by piping them through ffmpeg.
type FFmpegDecoder struct {
	Binary     string // defaults to "ffmpeg"
	SampleRate int
}

// NewFFmpegDecoder returns a decoder resampling to rate Hz mono.
func NewFFmpegDecoder(rate int) *FFmpegDecoder {
	return &FFmpegDecoder{Binary: "ffmpeg", SampleRate: rate}
}

// Decode runs ffmpeg to decode path into mono float samples in [-1, 1].
// A missing or unreadable file is reported before ffmpeg is started so the
// caller gets an *os.PathError it can inspect.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string) ([]float64, int, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, 0, err
	}

	bin := d.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	rate := d.SampleRate
	if rate <= 0 {
		rate = AnalysisSampleRate
	}

	cmd := exec.CommandContext(ctx, bin,
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(rate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, 0, fmt.Errorf("ffmpeg decode %s: %w: %s", path, err, exitErr.Stderr)
		}
		return nil, 0, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	return BytesToSamples(out), rate, nil
}

// BytesToSamples converts little-endian float32 PCM to float64 samples.
// A trailing partial sample is dropped.
func BytesToSamples(buf []byte) []float64 {
	samples := make([]float64, len(buf)/4)
	for i := range samples {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
	}
	return samples
}
