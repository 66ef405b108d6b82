// Package control connects a MIDI control surface and turns its knobs and
// keys into calibration commands. Devices may come and go at any time.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/chase3718/animatronic/internal/profile"
)

// -------------------- Hot-swap config --------------------

// PreferredPatterns: devices matching any of these are picked first.
var PreferredPatterns = []string{"Launchkey", "Launch Control", "nanoKONTROL", "Novation"}

// ExcludedPatterns: virtual/system ports that are never auto-connected.
var ExcludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

// RescanInterval is the minimum time between device scans.
const RescanInterval = time.Second

// -------------------- Watcher --------------------

// Watcher keeps a connection to the preferred MIDI input and forwards the
// calibration commands it produces to onCommand, which is called from the
// driver's listener goroutine.
type Watcher struct {
	mu           sync.Mutex
	drv          drivers.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time

	onCommand func(profile.Command)
	logger    *slog.Logger
}

// NewWatcher wraps an opened MIDI driver. The watcher owns drv and closes
// it in Close.
func NewWatcher(drv drivers.Driver, onCommand func(profile.Command), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		drv:       drv,
		onCommand: onCommand,
		logger:    logger.With("component", "midi"),
	}
}

// Close shuts down the active connection and the driver.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeConn()
	if err := w.drv.Close(); err != nil {
		w.logger.Warn("midi: driver close failed", "err", err)
	}
}

// Device returns the connected input name, if any.
func (w *Watcher) Device() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedName, w.connected
}

// Run ticks the watcher until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(RescanInterval)
	defer ticker.Stop()
	w.Tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Tick()
		}
	}
}

// Tick scans for devices, connects to a preferred one and notices when the
// connected one disappears. Scans closer than RescanInterval are skipped.
func (w *Watcher) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if !w.lastRescanAt.IsZero() && now.Sub(w.lastRescanAt) < RescanInterval {
		return
	}
	w.lastRescanAt = now

	inputs, err := w.listInputs()
	if err != nil {
		w.logger.Error("midi: list inputs failed", "err", err)
		return
	}

	if w.connected {
		for _, n := range inputs {
			if n == w.selectedName {
				return
			}
		}
		w.logger.Warn("midi: device disappeared", "device", w.selectedName)
		w.closeConn()
		w.lastRescanAt = time.Time{}
		return
	}

	cand, ok := pickPreferred(inputs, PreferredPatterns)
	if !ok {
		return
	}
	if err := w.openByName(cand); err != nil {
		w.logger.Error("midi: connect failed", "device", cand, "err", err)
	}
}

// -------------------- internal --------------------

func (w *Watcher) listInputs() ([]string, error) {
	ins, err := w.drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	kept := filterInputs(names, ExcludedPatterns)
	w.logger.Debug("midi: inputs found", "count", len(kept), "devices", strings.Join(kept, ", "))
	return kept, nil
}

func (w *Watcher) closeConn() {
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
	}
	if w.inPort != nil {
		_ = w.inPort.Close()
		w.inPort = nil
	}
	w.connected = false
	w.selectedName = ""
}

func (w *Watcher) openByName(name string) error {
	ins, err := w.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, w.handle, midi.HandleError(func(listenErr error) {
		w.logger.Warn("midi: listener error", "device", name, "err", listenErr)
		// closeConn stops the listener, so it cannot run on the listener goroutine.
		go func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.connected && w.selectedName == name {
				w.closeConn()
				w.lastRescanAt = time.Time{}
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	w.inPort = found
	w.stopFn = stop
	w.connected = true
	w.selectedName = name
	w.logger.Info("midi: connected", "device", name)
	return nil
}

func (w *Watcher) handle(msg midi.Message, _ int32) {
	cmd, ok := Translate(msg)
	if !ok {
		w.logger.Debug("midi: unhandled message", "msg", msg.String())
		return
	}
	w.logger.Debug("midi: command", "cmd", cmd.String())
	if w.onCommand != nil {
		w.onCommand(cmd)
	}
}

// -------------------- utility --------------------

func filterInputs(names, excluded []string) []string {
	var out []string
	for _, name := range names {
		skip := false
		for _, pat := range excluded {
			if containsCI(name, pat) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, name)
		}
	}
	return out
}

// pickPreferred returns the first input matching a preferred pattern, in
// pattern order, or the only input when there is exactly one.
func pickPreferred(inputs, preferred []string) (string, bool) {
	for _, pat := range preferred {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
