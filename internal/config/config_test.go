package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	envVars := []string{
		"ANIMATRONIC_CACHE_DIR", "ANIMATRONIC_BAUD", "ANIMATRONIC_POLL_MS",
		"ANIMATRONIC_SETTLE_MS", "ANIMATRONIC_TICK_HZ", "ANIMATRONIC_WORKERS",
		"ANIMATRONIC_BAND_LOW", "ANIMATRONIC_BAND_HIGH", "ANIMATRONIC_BAND_STEP",
		"ANIMATRONIC_PLAYER", "ANIMATRONIC_MIDI", "ANIMATRONIC_DEBUG",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if filepath.Base(cfg.CacheRoot) != AppName {
		t.Errorf("CacheRoot = %q, want a %q directory", cfg.CacheRoot, AppName)
	}
	if cfg.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", cfg.BaudRate)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v, want 3s", cfg.PollInterval)
	}
	if cfg.SettleDelay != time.Second {
		t.Errorf("SettleDelay = %v, want 1s", cfg.SettleDelay)
	}
	if cfg.TickRate != 60 {
		t.Errorf("TickRate = %d, want 60", cfg.TickRate)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.BandLow != 100 || cfg.BandHigh != 8100 || cfg.BandStep != 100 {
		t.Errorf("bands = %d..%d/%d, want 100..8100/100", cfg.BandLow, cfg.BandHigh, cfg.BandStep)
	}
	if cfg.Player != "ffplay" {
		t.Errorf("Player = %q, want 'ffplay'", cfg.Player)
	}
	if !cfg.MIDI {
		t.Error("MIDI = false, want true")
	}
	if cfg.Debug {
		t.Error("Debug = true, want false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ANIMATRONIC_CACHE_DIR", "/tmp/anim")
	t.Setenv("ANIMATRONIC_BAUD", "115200")
	t.Setenv("ANIMATRONIC_POLL_MS", "500")
	t.Setenv("ANIMATRONIC_SETTLE_MS", "250")
	t.Setenv("ANIMATRONIC_TICK_HZ", "30")
	t.Setenv("ANIMATRONIC_WORKERS", "4")
	t.Setenv("ANIMATRONIC_PLAYER", "")
	t.Setenv("ANIMATRONIC_MIDI", "false")
	t.Setenv("ANIMATRONIC_DEBUG", "1")

	cfg := Load()

	if cfg.CacheRoot != "/tmp/anim" {
		t.Errorf("CacheRoot = %q, want env override", cfg.CacheRoot)
	}
	if cfg.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", cfg.BaudRate)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if cfg.SettleDelay != 250*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 250ms", cfg.SettleDelay)
	}
	if cfg.TickRate != 30 {
		t.Errorf("TickRate = %d, want 30", cfg.TickRate)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Player != "" {
		t.Errorf("Player = %q, want empty (silent clock)", cfg.Player)
	}
	if cfg.MIDI {
		t.Error("MIDI = true, want env override false")
	}
	if !cfg.Debug {
		t.Error("Debug = false, want env override true")
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("ANIMATRONIC_BAUD", "fast")
	cfg := Load()
	if cfg.BaudRate != 9600 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 9600", cfg.BaudRate)
	}
}

func TestNonPositivePollFallsBack(t *testing.T) {
	for _, v := range []string{"0", "-5"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("ANIMATRONIC_POLL_MS", v)
			t.Setenv("ANIMATRONIC_SETTLE_MS", v)
			cfg := Load()
			if cfg.PollInterval != 3*time.Second {
				t.Errorf("PollInterval = %v, want 3s fallback", cfg.PollInterval)
			}
			want := time.Duration(0)
			if v != "0" {
				want = time.Second
			}
			if cfg.SettleDelay != want {
				t.Errorf("SettleDelay = %v, want %v", cfg.SettleDelay, want)
			}
		})
	}
}

func TestBands(t *testing.T) {
	cfg := Config{BandLow: 100, BandHigh: 8100, BandStep: 100}
	bands := cfg.Bands()
	if len(bands) != 80 {
		t.Fatalf("len(Bands()) = %d, want 80", len(bands))
	}
	if bands[0] != 100 || bands[len(bands)-1] != 8000 {
		t.Errorf("Bands() spans %v..%v, want 100..8000", bands[0], bands[len(bands)-1])
	}

	if got := (Config{BandStep: 0}).Bands(); got != nil {
		t.Errorf("Bands() with zero step = %v, want nil", got)
	}
}

func TestTickInterval(t *testing.T) {
	if got := (Config{TickRate: 60}).TickInterval(); got != time.Second/60 {
		t.Errorf("TickInterval() = %v, want %v", got, time.Second/60)
	}
	if got := (Config{}).TickInterval(); got != time.Second/60 {
		t.Errorf("TickInterval() with zero rate = %v, want 60 Hz fallback", got)
	}
}
