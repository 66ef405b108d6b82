// Package link owns the connection to the serial-attached servo controller:
// it discovers a port in the background, binds it, writes angle commands
// and recovers from failed writes by unbinding and searching again.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chase3718/animatronic/internal/worker"
)

// State is the link's connection state.
type State int32

const (
	Unbound State = iota
	Searching
	Bound
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Searching:
		return "searching"
	case Bound:
		return "bound"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

var (
	ErrPortNotFound = errors.New("no serial port found")
	ErrWriteFailure = errors.New("serial write failed")
)

// Driver enumerates and opens serial ports.
type Driver interface {
	List() ([]string, error)
	Open(name string, baud int) (io.WriteCloser, error)
}

// Runner starts long-lived background tasks. *worker.Pool satisfies it.
type Runner interface {
	Background(name string, fn func()) *worker.Task
}

// Options tunes the link timing.
type Options struct {
	BaudRate     int
	PollInterval time.Duration // between port scans while searching
	SettleDelay  time.Duration // after open, while the board resets
}

// -------------------- Manager --------------------

// Manager is the hardware link state machine. Send is safe to call from the
// control loop every tick: it never blocks and never queues.
type Manager struct {
	drv    Driver
	run    Runner
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	searching atomic.Bool
	portName  atomic.Value // string

	// mu is the ownership token of the device handle: open, write and
	// close all happen under it.
	mu   sync.Mutex
	port io.WriteCloser
}

// NewManager returns an unbound link. No discovery starts until the first
// Send.
func NewManager(drv Driver, run Runner, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		drv:    drv,
		run:    run,
		opts:   opts,
		logger: logger.With("component", "link"),
		ctx:    ctx,
		cancel: cancel,
	}
	m.portName.Store("")
	return m
}

// State returns the current connection state.
func (m *Manager) State() State { return State(m.state.Load()) }

// Port returns the bound device name, "" when not bound.
func (m *Manager) Port() string { return m.portName.Load().(string) }

// Send writes the angle command if the link is bound. Otherwise the
// command is dropped and a discovery task is started if none is running.
// It reports whether the command was written.
func (m *Manager) Send(angle int) bool {
	if m.State() != Bound {
		m.ensureDiscovery()
		return false
	}
	if !m.mu.TryLock() {
		return false
	}
	if m.port == nil {
		m.mu.Unlock()
		return false
	}
	if _, err := m.port.Write(Encode(angle)); err != nil {
		name := m.Port()
		m.dropLocked()
		m.mu.Unlock()
		m.logger.Error("link: write failed, unbinding", "port", name, "err", fmt.Errorf("%w: %w", ErrWriteFailure, err))
		m.ensureDiscovery()
		return false
	}
	m.mu.Unlock()
	m.logger.Debug("link: sent", "angle", angle)
	return true
}

// Close stops discovery and releases the device.
func (m *Manager) Close() {
	m.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port != nil {
		m.logger.Info("link: closing port", "port", m.Port())
	}
	m.dropLocked()
}

// -------------------- internal --------------------

func (m *Manager) dropLocked() {
	if m.port != nil {
		_ = m.port.Close()
		m.port = nil
	}
	m.portName.Store("")
	m.state.Store(int32(Unbound))
}

// ensureDiscovery spawns the discovery task unless one is already active.
func (m *Manager) ensureDiscovery() {
	if m.ctx.Err() != nil {
		return
	}
	if !m.searching.CompareAndSwap(false, true) {
		return
	}
	m.state.Store(int32(Searching))
	m.logger.Info("link: searching for serial port")
	m.run.Background("link-discovery", m.discover)
}

func (m *Manager) discover() {
	for {
		name, err := m.find()
		if err == nil {
			if err = m.bind(name); err == nil {
				return
			}
			m.logger.Warn("link: bind failed", "port", name, "err", err)
		} else if !errors.Is(err, ErrPortNotFound) {
			m.logger.Warn("link: port scan failed", "err", err)
		}

		select {
		case <-m.ctx.Done():
			m.searching.Store(false)
			m.state.CompareAndSwap(int32(Searching), int32(Unbound))
			return
		case <-time.After(m.opts.PollInterval):
		}
	}
}

func (m *Manager) find() (string, error) {
	ports, err := m.drv.List()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		m.logger.Debug("link: no ports yet")
		return "", ErrPortNotFound
	}
	if len(ports) > 1 {
		m.logger.Warn("link: several serial ports found, using the first", "ports", ports, "selected", ports[0])
	}
	return ports[0], nil
}

func (m *Manager) bind(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.drv.Open(name, m.opts.BaudRate)
	if err != nil {
		return err
	}
	select {
	case <-m.ctx.Done():
		_ = p.Close()
		m.searching.Store(false)
		m.state.Store(int32(Unbound))
		return nil
	case <-time.After(m.opts.SettleDelay):
	}

	m.port = p
	m.portName.Store(name)
	m.state.Store(int32(Bound))
	m.searching.Store(false)
	m.logger.Info("link: port bound", "port", name, "baud", m.opts.BaudRate)
	return nil
}
