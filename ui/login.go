package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// Credentials is what the login form collects.
type Credentials struct {
	Username string
	Password string
	Room     string
	// Register creates the account before logging in.
	Register bool
}

var ErrCancelled = errors.New("login cancelled")

const (
	fieldUsername = iota
	fieldPassword
	fieldRoom
	fieldCount
)

type loginModel struct {
	inputs    []textinput.Model
	focus     int
	done      bool
	cancelled bool
	hint      string
}

func newLoginModel(defaultRoom string) *loginModel {
	m := &loginModel{inputs: make([]textinput.Model, fieldCount)}

	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 32
	username.Focus()
	m.inputs[fieldUsername] = username

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	m.inputs[fieldPassword] = password

	room := textinput.New()
	room.Placeholder = defaultRoom
	room.SetValue(defaultRoom)
	room.CharLimit = 64
	m.inputs[fieldRoom] = room

	for i := range m.inputs {
		m.inputs[i].Prompt = "> "
		m.inputs[i].PromptStyle = promptStyle
	}
	return m
}

func (m *loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *loginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "tab", "down":
			return m, m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			return m, m.setFocus(m.focus - 1)
		case "enter":
			if m.focus < fieldCount-1 {
				return m, m.setFocus(m.focus + 1)
			}
			if m.value(fieldUsername) == "" || m.inputs[fieldPassword].Value() == "" {
				m.hint = "username and password are required"
				return m, m.setFocus(fieldUsername)
			}
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *loginModel) setFocus(i int) tea.Cmd {
	m.focus = (i + fieldCount) % fieldCount
	var cmds []tea.Cmd
	for j := range m.inputs {
		if j == m.focus {
			cmds = append(cmds, m.inputs[j].Focus())
			continue
		}
		m.inputs[j].Blur()
	}
	return tea.Batch(cmds...)
}

func (m *loginModel) value(i int) string {
	return strings.TrimSpace(m.inputs[i].Value())
}

func (m *loginModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("SmaRTC chat login"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Username:\n%s\n\nPassword:\n%s\n\nRoom:\n%s\n",
		m.inputs[fieldUsername].View(),
		m.inputs[fieldPassword].View(),
		m.inputs[fieldRoom].View())
	if m.hint != "" {
		b.WriteString("\n" + m.hint + "\n")
	}
	b.WriteString(helpStyle.Render("[TAB] next field  [ENTER] log in  [ESC] cancel"))
	return appStyle.Render(b.String()) + "\n"
}

func (m *loginModel) credentials(defaultRoom string) Credentials {
	room := m.value(fieldRoom)
	if room == "" {
		room = defaultRoom
	}
	return Credentials{
		Username: m.value(fieldUsername),
		Password: m.inputs[fieldPassword].Value(),
		Room:     room,
	}
}

// PromptLogin shows the login form. ErrCancelled is returned when the user
// leaves it.
func PromptLogin(defaultRoom string, opts ...tea.ProgramOption) (Credentials, error) {
	m := newLoginModel(defaultRoom)
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		return Credentials{}, errors.Wrap(err, "run login form")
	}
	if m.cancelled || !m.done {
		return Credentials{}, ErrCancelled
	}
	return m.credentials(defaultRoom), nil
}
