package activity

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/quillhq/skypress/db"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/ui/common"
	"github.com/quillhq/skypress/util"
	"log"
)

var (
	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(0)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(common.COLOR_GREY))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

type Model struct {
	AccountId uuid.UUID
	Entries   []domain.LogEntry
	Offset    int
	Width     int
	Height    int
}

func InitialModel(accountId uuid.UUID, width, height int) Model {
	return Model{
		AccountId: accountId,
		Entries:   []domain.LogEntry{},
		Offset:    0,
		Width:     width,
		Height:    height,
	}
}

func (m Model) Init() tea.Cmd {
	return loadActivity(m.AccountId)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activityLoadedMsg:
		m.Entries = msg.entries
		m.Offset = 0
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.Offset > 0 {
				m.Offset--
			}
		case "down", "j":
			if len(m.Entries) > 0 && m.Offset < len(m.Entries)-1 {
				m.Offset++
			}
		case "r":
			return m, loadActivity(m.AccountId)
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render(fmt.Sprintf("activity log (%d)", len(m.Entries))))
	s.WriteString("\n\n")

	if len(m.Entries) == 0 {
		s.WriteString(emptyStyle.Render("No posting activity yet."))
		return s.String()
	}

	// Newest first on screen
	itemsPerPage := 10
	start := m.Offset
	end := start + itemsPerPage
	if end > len(m.Entries) {
		end = len(m.Entries)
	}

	for i := start; i < end; i++ {
		entry := m.Entries[len(m.Entries)-1-i]
		s.WriteString(itemStyle.Render(fmt.Sprintf(
			"• %s  %s",
			timeStyle.Render(entry.CreatedAt.Format(util.DateTimeFormat())),
			entry.Message,
		)))
		s.WriteString("\n")
	}

	return s.String()
}

// activityLoadedMsg is sent when the log entries are loaded
type activityLoadedMsg struct {
	entries []domain.LogEntry
}

func loadActivity(accountId uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		err, entries := db.GetDB().ReadActivityByAccountId(accountId)
		if err != nil {
			log.Printf("Failed to load activity log: %v", err)
			return activityLoadedMsg{entries: []domain.LogEntry{}}
		}
		return activityLoadedMsg{entries: *entries}
	}
}
