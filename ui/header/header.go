package header

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/ui/common"
	"github.com/quillhq/skypress/util"
)

type Model struct {
	Width int
	Acc   *domain.Account
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) View() string {
	return GetHeaderStyle(m.Acc, m.Width)
}

func GetHeaderStyle(acc *domain.Account, width int) string {
	// Four boxes, each with padding(1) and top/bottom border, 4 chars
	// overhead apiece
	overhead := 16
	availableWidth := width - overhead

	if availableWidth < 40 {
		availableWidth = 40
	}

	usernameWidth := availableWidth / 6
	atWidth := 1
	versionWidth := availableWidth / 2
	linkWidth := availableWidth - usernameWidth - atWidth - versionWidth

	linkState := "not linked"
	linkColor := common.COLOR_GREY
	if acc.Connected() {
		linkState = "bsky: " + acc.BskyHandle
		linkColor = common.COLOR_MAGENTA
	}

	username := lipgloss.
		NewStyle().
		SetString(acc.Username).
		Align(lipgloss.Left).
		Background(lipgloss.Color(common.COLOR_PURPLE)).
		Padding(1).
		Height(2).
		Width(usernameWidth).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	at := lipgloss.
		NewStyle().
		SetString("@").
		Background(lipgloss.NoColor{}).
		Foreground(lipgloss.Color(common.COLOR_MAGENTA)).
		Padding(1).
		Height(2).
		Width(atWidth).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	version := lipgloss.
		NewStyle().
		SetString(util.GetNameAndVersion()).
		Width(versionWidth).
		Height(2).
		Background(lipgloss.Color(common.COLOR_GREY)).
		Padding(1).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	link := lipgloss.
		NewStyle().
		SetString(linkState).
		Background(lipgloss.Color(linkColor)).
		Padding(1).
		Align(lipgloss.Left).
		Height(2).
		Width(linkWidth).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		username,
		at,
		version,
		link,
	)
}
