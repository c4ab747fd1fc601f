package status

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/quillhq/skypress/bsky"
	"github.com/quillhq/skypress/db"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/ui/common"
	"github.com/quillhq/skypress/util"
	"log"
)

type Model struct {
	AccountId uuid.UUID
	Account   *domain.Account
	Status    string
	Error     string
}

// accountLoadedMsg carries the refreshed link state
type accountLoadedMsg struct {
	account *domain.Account
}

type disconnectResultMsg struct {
	err error
}

func InitialModel(accountId uuid.UUID) Model {
	return Model{AccountId: accountId}
}

func (m Model) Init() tea.Cmd {
	return loadAccount(m.AccountId)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case accountLoadedMsg:
		m.Account = msg.account
		return m, nil

	case disconnectResultMsg:
		if msg.err != nil {
			m.Error = fmt.Sprintf("Failed: %v", msg.err)
			return m, nil
		}
		m.Status = "Bluesky disconnected."
		m.Error = ""
		return m, loadAccount(m.AccountId)

	case tea.KeyMsg:
		switch msg.String() {
		case "d":
			if m.Account != nil && m.Account.Connected() {
				m.Status = "Disconnecting..."
				return m, disconnectCmd(m.AccountId)
			}
		case "r":
			return m, loadAccount(m.AccountId)
		}
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("bluesky link"))
	s.WriteString("\n\n")

	if m.Account == nil {
		s.WriteString("Loading...\n")
		return s.String()
	}

	if m.Account.Connected() {
		s.WriteString(fmt.Sprintf("Handle:  %s\n", m.Account.BskyHandle))
		if !m.Account.BskyLastComm.IsZero() {
			s.WriteString(fmt.Sprintf("Last contact:  %s\n", m.Account.BskyLastComm.Format(util.DateTimeFormat())))
		}
	} else {
		s.WriteString("Not connected to Bluesky.\n")
	}

	s.WriteString("\n")
	if m.Status != "" {
		s.WriteString(common.OkStyle.Render(m.Status))
		s.WriteString("\n")
	}
	if m.Error != "" {
		s.WriteString(common.ErrStyle.Render(m.Error))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(common.HelpStyle.Render("d: disconnect • r: refresh • tab: switch view"))

	return s.String()
}

func loadAccount(accountId uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		err, acc := db.GetDB().ReadAccById(accountId)
		if err != nil {
			log.Printf("Failed to load account %s: %v", accountId, err)
			return accountLoadedMsg{}
		}
		return accountLoadedMsg{account: acc}
	}
}

func disconnectCmd(accountId uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		conf, err := util.ReadConf()
		if err != nil {
			return disconnectResultMsg{err: err}
		}
		vault, err := util.NewVault(conf.EncryptionKey)
		if err != nil {
			return disconnectResultMsg{err: err}
		}

		sessions := bsky.NewSessionManager(db.GetDB(), conf, vault)
		return disconnectResultMsg{err: sessions.Disconnect(accountId)}
	}
}
