package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotdump/internal/tasks"
	"github.com/mattn/go-isatty"
)

const (
	defaultBarWidth = 40
	maxBarWidth     = 60
)

// Renderer displays progress updates until the channel is closed.
type Renderer interface {
	Render(ctx context.Context, updates <-chan tasks.ProgressUpdate) error
}

// NewRenderer returns a [ProgramRenderer] when w is a terminal and a [LineRenderer] otherwise.
func NewRenderer(w io.Writer, palette *Palette) Renderer {
	if palette == nil {
		palette = DefaultPalette()
	}
	if IsTerminal(w) {
		return &ProgramRenderer{out: w, palette: palette}
	}
	return &LineRenderer{out: w, palette: palette}
}

// IsTerminal reports whether w is a terminal (including cygwin/msys ptys).
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// stepKey identifies the step an update belongs to; a new key means the previous step finished.
type stepKey struct {
	phase tasks.Phase
	index int
}

func keyOf(u tasks.ProgressUpdate) stepKey {
	k := stepKey{phase: u.Phase}
	if pp, ok := u.Data.(tasks.PlaylistProgress); ok {
		k.index = pp.Index
	}
	return k
}

// LineRenderer prints the last message of every finished step.
type LineRenderer struct {
	out     io.Writer
	palette *Palette
}

func (r *LineRenderer) Render(ctx context.Context, updates <-chan tasks.ProgressUpdate) error {
	var (
		last    tasks.ProgressUpdate
		started bool
	)
	flush := func() {
		if started {
			fmt.Fprintln(r.out, r.palette.Done(last.Message))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				flush()
				return nil
			}
			if started && keyOf(u) != keyOf(last) {
				flush()
			}
			last, started = u, true
		}
	}
}

// ProgramRenderer runs a bubbletea program showing the current step.
type ProgramRenderer struct {
	out     io.Writer
	palette *Palette
}

func (r *ProgramRenderer) Render(ctx context.Context, updates <-chan tasks.ProgressUpdate) error {
	p := tea.NewProgram(
		NewModel(updates, r.palette),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(r.out),
		tea.WithoutSignalHandler(),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("error running progress display: %w", err)
	}
	return nil
}

type progressUpdateMsg tasks.ProgressUpdate

type progressClosedMsg struct{}

// Model is the bubbletea model of the progress display.
type Model struct {
	updates <-chan tasks.ProgressUpdate
	palette *Palette
	spinner spinner.Model
	bar     progress.Model
	current tasks.ProgressUpdate
	started bool
	done    bool
}

// NewModel creates a progress model reading from updates.
func NewModel(updates <-chan tasks.ProgressUpdate, palette *Palette) *Model {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Model{
		updates: updates,
		palette: palette,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(palette.ok)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultBarWidth), progress.WithoutPercentage()),
	}
}

// Init starts the spinner and waits for the first update.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-50, 10), maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		update := tasks.ProgressUpdate(msg)
		var cmds []tea.Cmd
		if m.started && keyOf(update) != keyOf(m.current) {
			cmds = append(cmds, tea.Println(m.palette.Done(m.current.Message)))
		}
		m.current, m.started = update, true
		cmds = append(cmds, m.waitForProgress())
		return m, tea.Sequence(cmds...)

	case progressClosedMsg:
		m.done = true
		if m.started {
			return m, tea.Sequence(tea.Println(m.palette.Done(m.current.Message)), tea.Quit)
		}
		return m, tea.Quit
	}

	return m, nil
}

// View renders the current step.
func (m *Model) View() string {
	if m.done || !m.started {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.current.Message)

	if m.current.Total > 0 {
		ratio := float64(m.current.Step) / float64(m.current.Total)
		fmt.Fprintf(&b, "  %s %s", m.bar.ViewAs(min(ratio, 1)), m.palette.Muted(fmt.Sprintf("%d/%d", m.current.Step, m.current.Total)))
	}
	return b.String()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.updates
		if !ok {
			return progressClosedMsg{}
		}
		return progressUpdateMsg(update)
	}
}
