package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"thunder-mod-manager/db"
	"thunder-mod-manager/logger"
)

// syncProgressMsg is one progress update from the sync worker pool.
type syncProgressMsg struct {
	Type    string // "status", "package", "error", "summary", "done"
	Message string
	Package string
	Current int
	Total   int
}

// syncModel controls the UI for the sync command
type syncModel struct {
	spinner      spinner.Model
	progressChan chan syncProgressMsg
	app          *app
	game         *db.Game

	status  string
	current int
	total   int
	errors  []string
	summary string
	done    bool
}

func initialSyncModel(a *app, game *db.Game) syncModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return syncModel{
		spinner:      s,
		progressChan: make(chan syncProgressMsg, 100), // Buffer slightly to avoid blocking
		app:          a,
		game:         game,
		status:       "Initializing...",
	}
}

func (m syncModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startSync(),
		m.waitForActivity(),
	)
}

func (m syncModel) startSync() tea.Cmd {
	return func() tea.Msg {
		go func() {
			defer close(m.progressChan)
			runSync(m.app, m.game, m.progressChan)
		}()
		return nil
	}
}

func (m syncModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.progressChan
		if !ok {
			return syncProgressMsg{Type: "done"}
		}
		return msg
	}
}

func (m syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case syncProgressMsg:
		switch msg.Type {
		case "done":
			m.done = true
			if m.status == "" || m.summary != "" {
				m.status = "Finished"
			}
			return m, tea.Quit

		case "status":
			m.status = msg.Message
			if msg.Total > 0 {
				m.total = msg.Total
			}

		case "package":
			m.current = msg.Current
			m.total = msg.Total
			m.status = fmt.Sprintf("Upserted %s", msg.Package)

		case "error":
			if msg.Current > 0 {
				m.current = msg.Current
			}
			m.errors = append(m.errors, fmt.Sprintf("%s: %s", msg.Package, msg.Message))

		case "summary":
			m.summary = msg.Message
		}

		return m, m.waitForActivity()
	}

	return m, nil
}

func (m syncModel) View() string {
	var symbol string
	if m.done {
		symbol = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
	} else {
		symbol = m.spinner.View()
	}

	var progress string
	if m.total > 0 {
		progress = fmt.Sprintf(" [%d/%d]", m.current, m.total)
	}

	s := fmt.Sprintf("\n %s %s%s\n\n", symbol, m.status, progress)

	if len(m.errors) > 0 {
		s += lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Errors:") + "\n"
		start := 0
		if len(m.errors) > 5 && !m.done {
			start = len(m.errors) - 5
		}
		for i := start; i < len(m.errors); i++ {
			s += fmt.Sprintf("  • %s\n", m.errors[i])
		}
		s += "\n"
	}

	if m.done && m.summary != "" {
		s += lipgloss.NewStyle().Bold(true).Render(m.summary) + "\n"
	}

	return s
}

func runSyncTUI(a *app, game *db.Game) {
	p := tea.NewProgram(initialSyncModel(a, game))
	if _, err := p.Run(); err != nil {
		logger.Log.Fatalw("Failed to run sync view", zap.Error(err))
	}
}
