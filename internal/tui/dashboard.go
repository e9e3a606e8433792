package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"labload/internal/runner"
	"labload/internal/tui/components"
	"labload/internal/tui/styles"
)

type StatsMsg runner.StatsSnapshot

type doneMsg struct{}

// Model is the live dashboard for one run.
type Model struct {
	Runner *runner.Runner
	Cancel context.CancelFunc
	Logs   *LogBuffer

	Stats    runner.StatsSnapshot
	Progress progress.Model
	LogView  viewport.Model
	RpsLine  components.Sparkline

	lastReqs   uint64
	lastUpdate time.Time

	Stopping bool
	Finished bool

	Width  int
	Height int
}

func NewModel(r *runner.Runner, cancel context.CancelFunc, logs *LogBuffer) Model {
	return Model{
		Runner: r,
		Cancel: cancel,
		Logs:   logs,
		Progress: progress.New(
			progress.WithGradient("#7D56F4", "#04B575"),
			progress.WithWidth(60),
		),
		LogView:    viewport.New(80, 8),
		RpsLine:    components.NewSparkline(40, 1, "RPS", styles.Active),
		lastUpdate: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForUpdate(m.Runner.Updates, m.Runner.Done()),
		waitForDone(m.Runner.Done()),
	)
}

// waitForUpdate yields the next snapshot, or nil once the run is done so
// the command does not outlive it.
func waitForUpdate(sub runner.StatsUpdateChan, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-sub:
			return StatsMsg(s)
		case <-done:
			return nil
		}
	}
}

func waitForDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.Finished {
				return m, tea.Quit
			}
			if !m.Stopping && m.Cancel != nil {
				m.Cancel()
			}
			m.Stopping = true
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 8
		m.LogView.Width = msg.Width - 6
		m.LogView.Height = max(msg.Height-22, 3)
		m.RpsLine.Width = max(msg.Width/2-4, 10)
		return m, nil

	case StatsMsg:
		cmd := m.applyStats(runner.StatsSnapshot(msg))
		return m, tea.Batch(cmd, waitForUpdate(m.Runner.Updates, m.Runner.Done()))

	case doneMsg:
		m.Finished = true
		cmd := m.applyStats(m.Runner.Snapshot())
		return m, cmd

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		if p, ok := prog.(progress.Model); ok {
			m.Progress = p
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.LogView, cmd = m.LogView.Update(msg)
	return m, cmd
}

func (m *Model) applyStats(s runner.StatsSnapshot) tea.Cmd {
	now := time.Now()
	dt := now.Sub(m.lastUpdate).Seconds()
	if dt < 0.01 {
		dt = 0.01
	}
	if s.Requests >= m.lastReqs {
		m.RpsLine.Add(uint64(float64(s.Requests-m.lastReqs) / dt))
	}
	m.lastReqs = s.Requests
	m.lastUpdate = now
	m.Stats = s

	if m.Logs != nil {
		m.LogView.SetContent(strings.Join(m.Logs.Lines(), "\n"))
		m.LogView.GotoBottom()
	}

	total := m.Runner.Cfg.RunTime
	if total <= 0 {
		return nil
	}
	pct := float64(s.Elapsed) / float64(total)
	if pct > 1.0 || m.Finished {
		pct = 1.0
	}
	return m.Progress.SetPercent(pct)
}

func (m Model) View() string {
	if m.Width == 0 {
		return "Loading..."
	}

	s := strings.Builder{}
	cfg := m.Runner.Cfg

	// --- Header ---
	state := "RUNNING"
	stateStyle := styles.Active
	switch {
	case m.Finished:
		state, stateStyle = "FINISHED", styles.Success
	case m.Stopping:
		state, stateStyle = "STOPPING", styles.Warn
	}
	timer := m.Stats.Elapsed.Round(time.Second).String()
	if cfg.RunTime > 0 {
		timer += " / " + cfg.RunTime.String()
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		styles.Title.Render("⚡ "+cfg.Host),
		lipgloss.NewStyle().MarginLeft(2).Foreground(styles.ColorSubtle).Render(timer),
		lipgloss.NewStyle().MarginLeft(4).Render(stateStyle.Render("["+state+"]")),
	))
	s.WriteString("\n\n")

	if cfg.RunTime > 0 {
		s.WriteString(m.Progress.View())
		s.WriteString("\n\n")
	}

	// --- Metrics ---
	rps := 0.0
	if m.Stats.Elapsed.Seconds() > 0 {
		rps = float64(m.Stats.Requests) / m.Stats.Elapsed.Seconds()
	}
	failStyle := styles.Text
	if m.Stats.Fail > 0 {
		failStyle = styles.Error
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Card("Users", styles.Active.Render(fmt.Sprintf("%d / %d", m.Stats.Users, cfg.NumUsers))),
		styles.Card("Requests", styles.Value.Render(fmt.Sprintf("%d", m.Stats.Requests))),
		styles.Card("Avg RPS", styles.Value.Render(fmt.Sprintf("%.1f", rps))),
		styles.Card("Failures", failStyle.Render(fmt.Sprintf("%d", m.Stats.Fail))),
	))
	s.WriteString("\n")
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Card("P50", styles.Text.Render(fmt.Sprintf("%.1f ms", m.Stats.P50Ms))),
		styles.Card("P95", styles.Warn.Render(fmt.Sprintf("%.1f ms", m.Stats.P95Ms))),
		styles.Card("P99", styles.Error.Render(fmt.Sprintf("%.1f ms", m.Stats.P99Ms))),
		styles.Card("Max", styles.Text.Render(fmt.Sprintf("%d ms", m.Stats.MaxMs))),
	))
	s.WriteString("\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RpsLine.View()),
		styles.Box.Render(m.statusView()),
	))
	s.WriteString("\n")

	// --- Scenario output ---
	s.WriteString(styles.Subtle.Render("Scenario output"))
	s.WriteString("\n")
	s.WriteString(styles.Panel.Render(m.LogView.View()))
	s.WriteString("\n")

	quit := styles.RenderKey("q", "Stop")
	if m.Finished {
		quit = styles.RenderKey("q", "Quit")
	}
	s.WriteString(quit)

	return s.String()
}

func (m Model) statusView() string {
	if len(m.Stats.StatusCodes) == 0 {
		return styles.Subtle.Render("No responses yet")
	}

	codes := make([]int, 0, len(m.Stats.StatusCodes))
	for c := range m.Stats.StatusCodes {
		codes = append(codes, c)
	}
	sort.Ints(codes)

	lines := make([]string, 0, len(codes))
	for _, c := range codes {
		label := fmt.Sprintf("%d", c)
		if c == 0 {
			label = "ERR"
		}
		lines = append(lines, fmt.Sprintf("%s %d", styles.StatusStyle(c).Render(fmt.Sprintf("%3s", label)), m.Stats.StatusCodes[c]))
	}
	return strings.Join(lines, "\n")
}
