// Package tui provides a Bubble Tea terminal front-end for the animatronic:
// it renders the session snapshot and turns key presses into session
// requests and calibration commands.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chase3718/animatronic/internal/link"
	"github.com/chase3718/animatronic/internal/profile"
	"github.com/chase3718/animatronic/internal/session"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	trackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 2)
)

// Key steps for calibration edits.
const (
	angleStep = 10
	dbStep    = 5
)

const refreshInterval = 50 * time.Millisecond

// Controller is the part of the session the UI drives.
type Controller interface {
	Snapshot() session.Snapshot
	Open(path string) bool
	TogglePlay() bool
	Stop() bool
	Submit(cmd profile.Command) bool
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	ctrl Controller
	snap session.Snapshot

	input     textinput.Model
	inputMode bool
	angleBar  progress.Model
	dbBar     progress.Model
	frames    []string

	width int
}

// NewModel creates a model bound to ctrl.
func NewModel(ctrl Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "/path/to/song.mp3"
	ti.CharLimit = 1024
	ti.Width = 60

	angleBar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	angleBar.Width = 50
	dbBar := progress.New(progress.WithGradient("#4ECDC4", "#FF6B6B"), progress.WithoutPercentage())
	dbBar.Width = 50

	return Model{
		ctrl:     ctrl,
		snap:     ctrl.Snapshot(),
		input:    ti,
		angleBar: angleBar,
		dbBar:    dbBar,
		frames:   spinner.Dot.Frames,
	}
}

// TickMsg refreshes the snapshot.
type TickMsg struct{}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return TickMsg{} })
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return refresh()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := min(max(msg.Width-30, 20), 80)
		m.angleBar.Width, m.dbBar.Width = w, w
		return m, nil

	case TickMsg:
		m.snap = m.ctrl.Snapshot()
		return m, refresh()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.inputMode {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputMode = false
		m.input.Blur()
		return m, nil
	case "enter":
		if path := strings.TrimSpace(m.input.Value()); path != "" {
			m.ctrl.Open(path)
		}
		m.inputMode = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.snap.Profile
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "o":
		m.inputMode = true
		return m, m.input.Focus()
	case "enter", " ":
		m.ctrl.TogglePlay()
	case "s":
		m.ctrl.Stop()
	case "up":
		m.ctrl.Submit(profile.SetRotationMax{Angle: p.Rotations.Max + angleStep})
	case "down":
		m.ctrl.Submit(profile.SetRotationMax{Angle: p.Rotations.Max - angleStep})
	case "right":
		m.ctrl.Submit(profile.SetRotationMin{Angle: p.Rotations.Min + angleStep})
	case "left":
		m.ctrl.Submit(profile.SetRotationMin{Angle: p.Rotations.Min - angleStep})
	case "]":
		m.ctrl.Submit(profile.SetDBFSMax{DB: p.DBFS.Max + dbStep})
	case "[":
		m.ctrl.Submit(profile.SetDBFSMax{DB: p.DBFS.Max - dbStep})
	case "}":
		m.ctrl.Submit(profile.SetDBFSMin{DB: p.DBFS.Min + dbStep})
	case "{":
		m.ctrl.Submit(profile.SetDBFSMin{DB: p.DBFS.Min - dbStep})
	case "t":
		m.ctrl.Submit(profile.ToggleSnap{Angle: m.snap.Angle})
	}
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Animatronic Control"))
	b.WriteString("\n")
	b.WriteString(m.viewLink())
	b.WriteString("\n\n")
	b.WriteString(m.viewTrack())
	b.WriteString("\n")
	b.WriteString(m.viewMeters())
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.viewProfile()))
	b.WriteString("\n")

	if m.inputMode {
		b.WriteString(subtitleStyle.Render("Open file:"))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if err := m.snap.Err; err != nil {
		b.WriteString(errorStyle.Render("✗ " + err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))
	return b.String()
}

func (m Model) viewLink() string {
	switch m.snap.Link {
	case link.Bound:
		return successStyle.Render("● connected " + m.snap.Port)
	case link.Searching:
		return warningStyle.Render("○ searching for controller…")
	default:
		return dimStyle.Render("○ not connected")
	}
}

func (m Model) viewTrack() string {
	s := m.snap
	var lines []string
	switch {
	case s.Loading && s.LoadingTitle != "":
		frame := m.frames[int(s.Frame%int64(len(m.frames)))]
		lines = append(lines, frame+" "+subtitleStyle.Render("Analysing "+s.LoadingTitle+"…"))
	case s.Loading:
		lines = append(lines, dimStyle.Render("Switching profile…"))
	}
	switch {
	case s.HasTrack:
		lines = append(lines, m.viewNowPlaying())
	case !s.Loading:
		lines = append(lines, dimStyle.Render("No track. Press o to open a file."))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewNowPlaying() string {
	s := m.snap
	state := "ready"
	switch {
	case s.Started && s.Paused:
		state = "paused"
	case s.Started:
		state = "playing"
	}
	line := fmt.Sprintf("♪ %s  [%s]  %s / %s", s.Title, state, clock(s.Elapsed), clock(s.Duration))
	if s.Cached {
		line += dimStyle.Render("  (cached)")
	}
	return trackStyle.Render(line)
}

func (m Model) viewMeters() string {
	s := m.snap
	var b strings.Builder
	b.WriteString(infoStyle.Render(fmt.Sprintf("angle %3d°  ", s.Angle)))
	b.WriteString(m.angleBar.ViewAs(float64(s.Angle) / profile.MaxAngle))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("level %3d dB ", s.DB)))
	b.WriteString(m.dbBar.ViewAs(float64(s.DB-profile.MinDBFS) / float64(profile.MaxDBFS-profile.MinDBFS)))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewProfile() string {
	p := m.snap.Profile
	snaps := "none"
	if len(p.Rotations.Allowed) > 0 {
		parts := make([]string, len(p.Rotations.Allowed))
		for i, a := range p.Rotations.Allowed {
			parts[i] = fmt.Sprint(a)
		}
		snaps = strings.Join(parts, " ")
	}
	return fmt.Sprintf("rotation %d°–%d°\nsnaps    %s\ndBFS     %d … %d",
		p.Rotations.Min, p.Rotations.Max, snaps, p.DBFS.Min, p.DBFS.Max)
}

func (m Model) helpText() string {
	if m.inputMode {
		return "enter: open • esc: cancel"
	}
	return "enter: play/pause • o: open • s: stop • ↑/↓: max • ←/→: min • [/]: dB max • {/}: dB min • t: snap • q: quit"
}

func clock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, ctrl Controller) error {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
