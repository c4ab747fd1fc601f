package ui

import (
	"fmt"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/ui/activity"
	"github.com/quillhq/skypress/ui/common"
	"github.com/quillhq/skypress/ui/connect"
	"github.com/quillhq/skypress/ui/header"
	"github.com/quillhq/skypress/ui/status"
)

var (
	modelStyle = lipgloss.NewStyle().
			Align(lipgloss.Top, lipgloss.Top).
			BorderStyle(lipgloss.HiddenBorder()).MarginLeft(1)
	focusedModelStyle = lipgloss.NewStyle().
				Align(lipgloss.Top, lipgloss.Top).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).MarginLeft(1)
)

type MainModel struct {
	width         int
	height        int
	headerModel   header.Model
	account       domain.Account
	state         common.SessionState
	connectModel  connect.Model
	statusModel   status.Model
	activityModel activity.Model
}

func NewModel(acc domain.Account, width int, height int) MainModel {

	width = common.DefaultWindowWidth(width)
	height = common.DefaultWindowHeight(height)

	m := MainModel{state: common.StatusView}
	m.connectModel = connect.InitialModel(acc.Id)
	m.statusModel = status.InitialModel(acc.Id)
	m.activityModel = activity.InitialModel(acc.Id, width, height)
	m.headerModel = header.Model{Width: width, Acc: &acc}
	m.account = acc
	m.width = width
	m.height = height
	return m
}

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		m.statusModel.Init(),
		m.activityModel.Init(),
		m.connectModel.Init(),
	)
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.headerModel.Width = msg.Width
		return m, nil

	case common.SessionState:
		switch msg {
		case common.ConnectView:
			m.state = common.ConnectView
		case common.StatusView:
			m.state = common.StatusView
		case common.ActivityView:
			m.state = common.ActivityView
		case common.ReloadActivity:
			return m, m.activityModel.Init()
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			oldState := m.state
			switch m.state {
			case common.StatusView:
				m.state = common.ConnectView
			case common.ConnectView:
				m.state = common.ActivityView
			case common.ActivityView:
				m.state = common.StatusView
			}
			if oldState != m.state {
				cmds = append(cmds, m.viewInitCmd(m.state))
			}
		case "shift+tab":
			oldState := m.state
			switch m.state {
			case common.StatusView:
				m.state = common.ActivityView
			case common.ConnectView:
				m.state = common.StatusView
			case common.ActivityView:
				m.state = common.ConnectView
			}
			if oldState != m.state {
				cmds = append(cmds, m.viewInitCmd(m.state))
			}
		}
	}

	// Data messages go to all sub-models, keyboard input only to the
	// active one
	if _, isKeyMsg := msg.(tea.KeyMsg); !isKeyMsg {
		m.headerModel, _ = m.headerModel.Update(msg)
		m.connectModel, cmd = m.connectModel.Update(msg)
		cmds = append(cmds, cmd)
		m.statusModel, cmd = m.statusModel.Update(msg)
		cmds = append(cmds, cmd)
		m.activityModel, cmd = m.activityModel.Update(msg)
		cmds = append(cmds, cmd)
	}

	if _, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case common.ConnectView:
			m.connectModel, cmd = m.connectModel.Update(msg)
		case common.StatusView:
			m.statusModel, cmd = m.statusModel.Update(msg)
		case common.ActivityView:
			m.activityModel, cmd = m.activityModel.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m MainModel) View() string {

	var s string

	availableHeight := m.height - 10
	panelWidth := m.width - 6

	renderPanel := func(view string, focused bool) string {
		inner := lipgloss.NewStyle().
			MaxHeight(availableHeight).
			Height(availableHeight).
			Width(panelWidth).
			MaxWidth(panelWidth).
			Margin(1).
			Render(view)
		if focused {
			return focusedModelStyle.Render(inner)
		}
		return modelStyle.Render(inner)
	}

	navContainer := lipgloss.NewStyle().Render(m.headerModel.View())
	s += navContainer + "\n"

	switch m.state {
	case common.ConnectView:
		s += renderPanel(m.connectModel.View(), true)
	case common.StatusView:
		s += renderPanel(m.statusModel.View(), true)
	case common.ActivityView:
		s += renderPanel(m.activityModel.View(), true)
	}

	var viewCommands string
	switch m.state {
	case common.ConnectView:
		viewCommands = "enter: connect • esc: clear"
	case common.StatusView:
		viewCommands = "d: disconnect • r: refresh"
	case common.ActivityView:
		viewCommands = "↑/↓: scroll • r: reload"
	}

	s += common.HelpStyle.Render(fmt.Sprintf(
		"focused > %s\t\tkeys > tab: next • shift+tab: prev • %s • ctrl-c: exit",
		m.currentFocusedModel(), viewCommands))
	return lipgloss.NewStyle().Render(s)
}

func (m MainModel) currentFocusedModel() string {
	switch m.state {
	case common.ConnectView:
		return "connect"
	case common.ActivityView:
		return "activity log"
	default:
		return "link status"
	}
}

func (m *MainModel) viewInitCmd(state common.SessionState) tea.Cmd {
	switch state {
	case common.ActivityView:
		return m.activityModel.Init()
	case common.StatusView:
		return m.statusModel.Init()
	default:
		return nil
	}
}
