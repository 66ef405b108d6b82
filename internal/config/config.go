package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// AppName names the per-user cache directory.
const AppName = "AnimatronicControl"

// Config holds all runtime configuration, loaded from environment variables.
// Command-line flags in cmd/animatronic override individual fields.
type Config struct {
	// Cache root: one directory per content hash plus "default" and "recent".
	CacheRoot string

	// Serial link
	BaudRate     int
	PollInterval time.Duration // port discovery cadence
	SettleDelay  time.Duration // wait after open for the board's reset

	// Control loop
	TickRate int // Hz
	Workers  int // worker pool size

	// Frequency bands averaged every tick, in Hz: [BandLow, BandHigh) by BandStep.
	BandLow  int
	BandHigh int
	BandStep int

	// Front-ends and collaborators
	Player string // audio output command, "" for a silent clock
	MIDI   bool   // watch for a MIDI control surface
	Debug  bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		CacheRoot: envStr("ANIMATRONIC_CACHE_DIR", defaultCacheRoot()),

		BaudRate:     envInt("ANIMATRONIC_BAUD", 9600),
		PollInterval: envMillis("ANIMATRONIC_POLL_MS", 3000, 1),
		SettleDelay:  envMillis("ANIMATRONIC_SETTLE_MS", 1000, 0),

		TickRate: envInt("ANIMATRONIC_TICK_HZ", 60),
		Workers:  envInt("ANIMATRONIC_WORKERS", 8),

		BandLow:  envInt("ANIMATRONIC_BAND_LOW", 100),
		BandHigh: envInt("ANIMATRONIC_BAND_HIGH", 8100),
		BandStep: envInt("ANIMATRONIC_BAND_STEP", 100),

		Player: envStrOrEmpty("ANIMATRONIC_PLAYER", "ffplay"),
		MIDI:   envBool("ANIMATRONIC_MIDI", true),
		Debug:  envBool("ANIMATRONIC_DEBUG", false),
	}
}

// Bands returns the analysed frequencies.
func (c Config) Bands() []float64 {
	if c.BandStep <= 0 {
		return nil
	}
	var out []float64
	for f := c.BandLow; f < c.BandHigh; f += c.BandStep {
		out = append(out, float64(f))
	}
	return out
}

// TickInterval is the control loop period.
func (c Config) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
}

func defaultCacheRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envStrOrEmpty is envStr except that a variable set to "" is honoured.
func envStrOrEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// envMillis reads a duration in milliseconds. Values below floor fall back.
func envMillis(key string, fallback, floor int) time.Duration {
	ms := envInt(key, fallback)
	if ms < floor {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
