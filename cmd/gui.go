package cmd

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thunder-mod-manager/bridge"
	"thunder-mod-manager/logger"
	"thunder-mod-manager/profile"
	"thunder-mod-manager/ui"
)

// guiCmd represents the gui command
var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Launch the interactive profile browser",
	Long:  `Launch an interactive TUI to view and manage the active profile's mod list.`,
	Run: func(_ *cobra.Command, _ []string) {
		runGUI()
	},
}

func init() {
	rootCmd.AddCommand(guiCmd)
}

// guiModel represents the state of the TUI
type guiModel struct {
	app         *app
	profileID   uint
	profileName string
	sub         *bridge.Subscription

	mods          []profile.ModInfo
	selectedIndex int
	loading       bool
	error         string
	message       string
	width         int
	height        int
	spinnerFrame  int
}

func (m guiModel) Init() tea.Cmd {
	return tea.Batch(
		m.loadProfile(),
		m.waitForEvent(),
		tickSpinner(),
	)
}

func tickSpinner() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// Message types
type profileLoadedMsg struct {
	info *profile.Info
}

type busEventMsg bridge.Event

type errorMsg string

type spinnerTickMsg struct{}

type statusMsg string

type clearMessageMsg struct{}

func (m guiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case profileLoadedMsg:
		m.handleProfileLoaded(msg)
	case busEventMsg:
		return m.handleBusEvent(msg)
	case spinnerTickMsg:
		return m.handleSpinnerTick()
	case errorMsg:
		m.error = string(msg)
		m.loading = false
	case statusMsg:
		m.message = string(msg)
		return m, tea.Batch(
			tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearMessageMsg{} }),
		)
	case clearMessageMsg:
		m.message = ""
	}
	return m, nil
}

func (m *guiModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case "down", "j":
		if m.selectedIndex < len(m.mods)-1 {
			m.selectedIndex++
		}
	case " ":
		if len(m.mods) > 0 {
			return m, m.toggleSelected()
		}
	case "d":
		if len(m.mods) > 0 {
			return m, m.removeSelected(false)
		}
	case "D":
		if len(m.mods) > 0 {
			return m, m.removeSelected(true)
		}
	case "K":
		return m, m.moveSelected(-1)
	case "J":
		return m, m.moveSelected(1)
	}
	return m, nil
}

func (m *guiModel) handleProfileLoaded(msg profileLoadedMsg) {
	m.mods = msg.info.Mods
	m.profileName = msg.info.Profile.Name
	m.loading = false
	if m.selectedIndex >= len(m.mods) && len(m.mods) > 0 {
		m.selectedIndex = len(m.mods) - 1
	}
}

// handleBusEvent refreshes the view whenever the store commits a change
// to this profile, whatever process-internal path caused it.
func (m *guiModel) handleBusEvent(msg busEventMsg) (tea.Model, tea.Cmd) {
	event := bridge.Event(msg)
	switch event.Kind {
	case bridge.EventProfileDeleted:
		return m, tea.Quit
	case bridge.EventProfileUpdated:
		if event.Profile != nil {
			m.profileName = event.Profile.Name
			mods := make([]profile.ModInfo, len(event.Profile.Mods))
			for i, mod := range event.Profile.Mods {
				mods[i] = profile.ModInfo{
					ID:         mod.ID,
					Kind:       mod.Kind,
					Owner:      mod.Owner,
					Name:       mod.Name,
					Version:    mod.Version,
					Enabled:    mod.Enabled,
					OrderIndex: mod.OrderIndex,
				}
			}
			m.mods = mods
			if m.selectedIndex >= len(m.mods) && len(m.mods) > 0 {
				m.selectedIndex = len(m.mods) - 1
			}
		}
	}
	return m, m.waitForEvent()
}

func (m *guiModel) handleSpinnerTick() (tea.Model, tea.Cmd) {
	m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
	if m.loading {
		return m, tickSpinner()
	}
	return m, nil
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m guiModel) loadProfile() tea.Cmd {
	return func() tea.Msg {
		info, err := m.app.profiles.Get(m.profileID)
		if err != nil {
			logger.Log.Errorw("Failed to load profile", zap.Error(err))
			return errorMsg(fmt.Sprintf("Failed to load profile: %v", err))
		}
		return profileLoadedMsg{info: info}
	}
}

func (m guiModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.sub.C
		if !ok {
			return nil
		}
		return busEventMsg(event)
	}
}

func (m guiModel) toggleSelected() tea.Cmd {
	mod := m.mods[m.selectedIndex]
	return func() tea.Msg {
		if err := m.app.profiles.SetEnabled(mod.ID, !mod.Enabled); err != nil {
			return errorMsg(fmt.Sprintf("Failed to toggle %s: %v", mod.Name, err))
		}
		return nil
	}
}

func (m guiModel) removeSelected(force bool) tea.Cmd {
	mod := m.mods[m.selectedIndex]
	return func() tea.Msg {
		err := m.app.profiles.RemoveMod(m.profileID, mod.ID, force)
		if err != nil {
			var deps *profile.DependentsError
			if errors.As(err, &deps) {
				return statusMsg(fmt.Sprintf("%d mods depend on %s, press D to force", len(deps.Dependents), mod.Name))
			}
			return errorMsg(fmt.Sprintf("Failed to remove %s: %v", mod.Name, err))
		}
		return statusMsg(fmt.Sprintf("Removed %s", mod.Name))
	}
}

// moveSelected swaps the selected mod one position up or down by
// submitting a full reorder.
func (m guiModel) moveSelected(delta int) tea.Cmd {
	target := m.selectedIndex + delta
	if target < 0 || target >= len(m.mods) {
		return nil
	}

	ordered := make([]uint, len(m.mods))
	for i, mod := range m.mods {
		ordered[i] = mod.ID
	}
	ordered[m.selectedIndex], ordered[target] = ordered[target], ordered[m.selectedIndex]
	m.selectedIndex = target

	return func() tea.Msg {
		if err := m.app.profiles.Reorder(m.profileID, ordered); err != nil {
			return errorMsg(fmt.Sprintf("Failed to reorder: %v", err))
		}
		return nil
	}
}

// View renders the UI
func (m guiModel) View() string {
	if m.loading {
		return m.renderLoadingScreen()
	}

	if m.error != "" {
		return fmt.Sprintf("Error: %s\n", m.error)
	}

	if len(m.mods) == 0 {
		return fmt.Sprintf("Profile %q is empty. Add mods with 'profile add' or 'import'.\n", m.profileName)
	}

	var output string
	output += ui.Header(fmt.Sprintf("Profile: %s", m.profileName))
	output += "\n"
	output += ui.Header(fmt.Sprintf("%-4s %-45s %-12s %-8s %-10s", "#", "Mod", "Version", "Source", "State"))
	output += "\n"

	for i, mod := range m.mods {
		output += m.renderModRow(i, mod)
		output += "\n"
	}

	output += "\n" + renderFooter()

	if m.message != "" {
		output += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.message)
	}

	return output
}

func (m guiModel) renderLoadingScreen() string {
	spinner := spinnerFrames[m.spinnerFrame]
	loadingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)
	return loadingStyle.Render(fmt.Sprintf("%s Loading profile...", spinner)) + "\n"
}

func renderFooter() string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	return footerStyle.Render("↑/k: up  ↓/j: down  space: toggle  J/K: move  d: remove  q: quit")
}

func (m guiModel) renderModRow(index int, mod profile.ModInfo) string {
	state := "enabled"
	stateColor := "10" // Green
	if !mod.Enabled {
		state = "disabled"
		stateColor = "9" // Red
	}

	rowStyle := lipgloss.NewStyle().Padding(0, 1)
	if index == m.selectedIndex {
		rowStyle = rowStyle.
			Background(lipgloss.Color("8")).
			Bold(true)
	}

	display := mod.Name
	if mod.Owner != "" {
		display = mod.Owner + "-" + mod.Name
	}

	// Pad state before applying color to maintain column alignment
	paddedState := fmt.Sprintf("%-10s", state)
	coloredState := lipgloss.NewStyle().Foreground(lipgloss.Color(stateColor)).Render(paddedState)

	row := fmt.Sprintf("%-4d %-45s %-12s %-8s %s",
		mod.OrderIndex,
		ui.Truncate(display, 43),
		ui.Truncate(mod.Version, 10),
		mod.Kind,
		coloredState,
	)

	return rowStyle.Render(row)
}

func runGUI() {
	a := bootstrap(".")
	a.activeGame()
	info := a.activeProfile()

	sub := a.bus.SubscribeProfile(info.Profile.ID)
	defer sub.Cancel()

	m := guiModel{
		app:       a,
		profileID: info.Profile.ID,
		sub:       sub,
		loading:   true,
		width:     80,
		height:    24,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Log.Fatalw("Failed to run GUI", zap.Error(err))
	}
}
