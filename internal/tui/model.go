// Package tui renders a small interactive now-playing panel on top of
// the published snapshot file and the control socket.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mprisbridge/internal/ipc"
	"mprisbridge/internal/state"
)

const refreshEvery = 500 * time.Millisecond

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 3)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	artistStyle = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the Bubble Tea state for the now-playing panel.
type Model struct {
	snapshotPath string
	socketPath   string

	st  state.UiState
	err error

	width  int
	height int
}

// New constructs the panel model.
func New(snapshotPath, socketPath string) *Model {
	return &Model{snapshotPath: snapshotPath, socketPath: socketPath}
}

// Run spins up the Bubble Tea program.
func Run(snapshotPath, socketPath string) error {
	prog := tea.NewProgram(New(snapshotPath, socketPath), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

type tickMsg time.Time

type snapshotMsg struct {
	st  state.UiState
	err error
}

type commandDoneMsg struct{ err error }

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) loadSnapshot() tea.Msg {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		return snapshotMsg{err: err}
	}
	var st state.UiState
	if err := json.Unmarshal(data, &st); err != nil {
		return snapshotMsg{err: err}
	}
	return snapshotMsg{st: st}
}

func (m *Model) sendCommand(cmd string) tea.Cmd {
	socket := m.socketPath
	player := m.st.Name
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		resp, err := ipc.Send(ctx, socket, ipc.Request{Cmd: cmd, Player: player})
		if err == nil && !resp.OK {
			err = fmt.Errorf("daemon rejected %s", cmd)
		}
		return commandDoneMsg{err: err}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadSnapshot, tick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.loadSnapshot, tick())

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.st = msg.st
		}

	case commandDoneMsg:
		m.err = msg.err
		return m, m.loadSnapshot

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			return m, m.sendCommand(ipc.CmdPlayPause)
		case "n":
			return m, m.sendCommand(ipc.CmdNext)
		case "p":
			return m, m.sendCommand(ipc.CmdPrevious)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	if m.st.Name == "" {
		b.WriteString(artistStyle.Render("nothing playing"))
	} else {
		title := m.st.Title
		if title == "" {
			title = "(untitled)"
		}
		b.WriteString(titleStyle.Render(title))
		b.WriteString("\n")
		if m.st.Artist != "" {
			b.WriteString(artistStyle.Render(m.st.Artist))
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s  %s / %s  %s  %s\n",
			statusSymbol(m.st.Status), m.st.PositionStr, m.st.LengthStr,
			capsIndicator(m.st), artistStyle.Render(m.st.Name)))
		b.WriteString(progressBar(m.st.Position, m.st.Length, barWidth(m.width)))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("space play/pause · n next · p previous · q quit"))
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.err.Error()))
	}

	return panelStyle.Render(b.String())
}

func statusSymbol(status string) string {
	switch status {
	case "Playing":
		return statusStyle.Render("▶")
	case "Paused":
		return "⏸"
	default:
		return "⏹"
	}
}

// capsIndicator dims the skip symbols the player cannot serve.
func capsIndicator(st state.UiState) string {
	prev, next := "⏮", "⏭"
	if st.CanPrev == 0 {
		prev = helpStyle.Render(prev)
	}
	if st.CanNext == 0 {
		next = helpStyle.Render(next)
	}
	return prev + " " + next
}

func barWidth(termWidth int) int {
	w := termWidth - 12
	if w < 10 {
		w = 10
	}
	if w > 60 {
		w = 60
	}
	return w
}

func progressBar(position, length float64, width int) string {
	if length <= 0 {
		return strings.Repeat("░", width)
	}
	frac := position / length
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
