package connect

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/quillhq/skypress/bsky"
	"github.com/quillhq/skypress/db"
	"github.com/quillhq/skypress/ui/common"
	"github.com/quillhq/skypress/util"
)

var (
	Style = lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63"))
)

const (
	handleField = iota
	passwordField
)

type Model struct {
	HandleInput   textinput.Model
	PasswordInput textinput.Model
	AccountId     uuid.UUID
	Focused       int
	Status        string
	Error         string
}

// connectResultMsg is sent when the login attempt finishes
type connectResultMsg struct {
	handle string
	err    error
}

func InitialModel(accountId uuid.UUID) Model {
	handle := textinput.New()
	handle.Placeholder = "you.bsky.social"
	handle.Focus()
	handle.CharLimit = 100
	handle.Width = 40

	password := textinput.New()
	password.Placeholder = "app password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 100
	password.Width = 40

	return Model{
		HandleInput:   handle,
		PasswordInput: password,
		AccountId:     accountId,
		Focused:       handleField,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case connectResultMsg:
		if msg.err != nil {
			m.Error = fmt.Sprintf("Failed: %v", msg.err)
			m.Status = ""
		} else {
			m.Status = fmt.Sprintf("Linked to %s", msg.handle)
			m.Error = ""
			m.PasswordInput.SetValue("")
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "down":
			m.Focused = (m.Focused + 1) % 2
			if m.Focused == handleField {
				m.HandleInput.Focus()
				m.PasswordInput.Blur()
			} else {
				m.PasswordInput.Focus()
				m.HandleInput.Blur()
			}
			return m, nil
		case "enter":
			if m.Focused == handleField {
				m.Focused = passwordField
				m.PasswordInput.Focus()
				m.HandleInput.Blur()
				return m, nil
			}

			handle := util.TrimHandle(m.HandleInput.Value())
			password := m.PasswordInput.Value()
			if handle == "" || password == "" {
				m.Error = "Please enter handle and app password"
				return m, nil
			}

			m.Status = fmt.Sprintf("Connecting %s...", handle)
			m.Error = ""
			return m, connectCmd(m.AccountId, handle, password)
		case "esc":
			m.HandleInput.SetValue("")
			m.PasswordInput.SetValue("")
			m.Status = ""
			m.Error = ""
			return m, nil
		}
	}

	if m.Focused == handleField {
		m.HandleInput, cmd = m.HandleInput.Update(msg)
	} else {
		m.PasswordInput, cmd = m.PasswordInput.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("connect to bluesky"))
	s.WriteString("\n\n")
	s.WriteString("Handle:\n")
	s.WriteString(m.HandleInput.View())
	s.WriteString("\n\nApp password:\n")
	s.WriteString(m.PasswordInput.View())
	s.WriteString("\n\n")

	if m.Status != "" {
		s.WriteString(common.OkStyle.Render(m.Status))
		s.WriteString("\n")
	}

	if m.Error != "" {
		s.WriteString(common.ErrStyle.Render(m.Error))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(common.HelpStyle.Render("enter: connect • esc: clear • tab: switch view"))

	return s.String()
}

func connectCmd(accountId uuid.UUID, handle, password string) tea.Cmd {
	return func() tea.Msg {
		conf, err := util.ReadConf()
		if err != nil {
			return connectResultMsg{err: err}
		}
		vault, err := util.NewVault(conf.EncryptionKey)
		if err != nil {
			return connectResultMsg{err: err}
		}

		sessions := bsky.NewSessionManager(db.GetDB(), conf, vault)
		if err := sessions.Connect(accountId, handle, password); err != nil {
			return connectResultMsg{err: err}
		}
		return connectResultMsg{handle: handle}
	}
}
