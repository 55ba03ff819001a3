// Package monitor renders a live terminal view of a running simulation:
// day progress plus per-condition state counts, fed one snapshot per
// simulated day.
package monitor

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StateCount is one state row of a condition table.
type StateCount struct {
	Name    string
	New     int
	Current int
	Total   int
}

// ConditionCounts is one condition's counts for a day.
type ConditionCounts struct {
	Name   string
	States []StateCount
}

// DaySnapshot is everything the monitor shows for one simulated day.
type DaySnapshot struct {
	Day        int
	Date       string
	Popsize    int
	Conditions []ConditionCounts
}

type snapshotMsg DaySnapshot

type runDoneMsg struct{}

// Theme holds the monitor styles.
type Theme struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Header   lipgloss.Style
	Bar      lipgloss.Style
	BarEmpty lipgloss.Style
	Done     lipgloss.Style
}

func defaultTheme() Theme {
	primary := lipgloss.Color("#00AAFF")
	muted := lipgloss.Color("#666666")
	return Theme{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(primary),
		Label:    lipgloss.NewStyle().Foreground(muted),
		Value:    lipgloss.NewStyle().Bold(true),
		Header:   lipgloss.NewStyle().Underline(true),
		Bar:      lipgloss.NewStyle().Foreground(primary),
		BarEmpty: lipgloss.NewStyle().Foreground(muted),
		Done:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00CC66")),
	}
}

// Model is the Bubble Tea model. The simulation feeds it through the
// channel returned by Feed; closing the channel marks the run finished.
type Model struct {
	title string
	days  int
	feed  chan DaySnapshot

	latest   DaySnapshot
	haveData bool
	done     bool
	width    int
	theme    Theme
}

// New creates a monitor for a run of the given length.
func New(title string, days int) *Model {
	return &Model{
		title: title,
		days:  days,
		feed:  make(chan DaySnapshot, 16),
		theme: defaultTheme(),
		width: 80,
	}
}

// Feed returns the channel the simulation writes day snapshots to. Close
// it when the run finishes.
func (m *Model) Feed() chan<- DaySnapshot { return m.feed }

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.feed
		if !ok {
			return runDoneMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case snapshotMsg:
		m.latest = DaySnapshot(msg)
		m.haveData = true
		return m, m.waitForSnapshot()
	case runDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(m.title))
	b.WriteString("\n\n")

	if !m.haveData {
		b.WriteString(m.theme.Label.Render("waiting for day 0..."))
		b.WriteString("\n")
		return b.String()
	}

	snap := m.latest
	b.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		m.theme.Label.Render("day"),
		m.theme.Value.Render(fmt.Sprintf("%d/%d", snap.Day+1, m.days)),
		m.theme.Label.Render("date"),
		m.theme.Value.Render(snap.Date),
		m.theme.Label.Render("popsize"),
		m.theme.Value.Render(fmt.Sprintf("%d", snap.Popsize))))
	b.WriteString(m.progressBar(snap.Day + 1))
	b.WriteString("\n\n")

	for _, cond := range snap.Conditions {
		b.WriteString(m.theme.Title.Render(cond.Name))
		b.WriteString("\n")
		b.WriteString(m.theme.Header.Render(fmt.Sprintf("%-12s %8s %8s %8s", "state", "new", "current", "total")))
		b.WriteString("\n")
		for _, st := range cond.States {
			b.WriteString(fmt.Sprintf("%-12s %8d %8d %8d\n", st.Name, st.New, st.Current, st.Total))
		}
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(m.theme.Done.Render("run complete"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.theme.Label.Render("q to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) progressBar(day int) string {
	width := m.width - 4
	if width > 60 {
		width = 60
	}
	if width < 10 {
		width = 10
	}
	filled := 0
	if m.days > 0 {
		filled = day * width / m.days
	}
	if filled > width {
		filled = width
	}
	return m.theme.Bar.Render(strings.Repeat("█", filled)) +
		m.theme.BarEmpty.Render(strings.Repeat("░", width-filled))
}
