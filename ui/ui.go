// Package ui is the interactive terminal shell: a login form followed by a
// chat view driving a client.Client.
package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"smartc/client"
	"smartc/config"
)

const maxMessages = 500

// messages delivered to the chat model
type (
	chatMsg         client.ChatMessage
	userJoinedMsg   string
	userLeftMsg     string
	connectedMsg    struct{}
	disconnectedMsg string
	errMsg          struct{ err error }
	readyMsg        struct{ err error }
)

// relay forwards facade events into the running program.
type relay struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *relay) attach(p *tea.Program) {
	r.mu.Lock()
	r.p = p
	r.mu.Unlock()
}

func (r *relay) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (r *relay) OnMessage(msg client.ChatMessage) { r.send(chatMsg(msg)) }
func (r *relay) OnUserJoined(username string)     { r.send(userJoinedMsg(username)) }
func (r *relay) OnUserLeft(username string)       { r.send(userLeftMsg(username)) }
func (r *relay) OnConnected()                     { r.send(connectedMsg{}) }
func (r *relay) OnDisconnected(reason string)     { r.send(disconnectedMsg(reason)) }
func (r *relay) OnError(err error)                { r.send(errMsg{err: err}) }

type model struct {
	ctx      context.Context
	c        *client.Client
	creds    Credentials
	messages []client.ChatMessage
	users    map[string]bool
	input    textinput.Model
	status   string
	err      error
	ready    bool
	width    int
	height   int
}

func newModel(ctx context.Context, c *client.Client, creds Credentials) model {
	ti := textinput.New()
	ti.Placeholder = "type a message, /help for commands"
	ti.Focus()
	ti.CharLimit = 1024
	ti.Prompt = ">>> "
	ti.PromptStyle = promptStyle

	return model{
		ctx:    ctx,
		c:      c,
		creds:  creds,
		users:  map[string]bool{creds.Username: true},
		input:  ti,
		status: "connecting...",
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			line := m.input.Value()
			m.input.Reset()
			return m.run(parseCommand(line))
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case chatMsg:
		m.push(client.ChatMessage(msg))
		return m, nil
	case userJoinedMsg:
		m.users[string(msg)] = true
		return m, nil
	case userLeftMsg:
		delete(m.users, string(msg))
		return m, nil
	case connectedMsg:
		m.status = "connected"
		return m, nil
	case disconnectedMsg:
		m.ready = false
		m.status = "disconnected"
		if msg != "" {
			m.status += ": " + string(msg)
		}
		return m, nil
	case errMsg:
		m.err = msg.err
		return m, nil
	case readyMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "not connected"
			return m, nil
		}
		m.ready = true
		m.err = nil
		m.status = fmt.Sprintf("in %s as %s", m.c.Room(), m.c.Username())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) run(cmd command) (tea.Model, tea.Cmd) {
	switch cmd.kind {
	case cmdQuit:
		return m, tea.Quit
	case cmdHelp:
		m.notice(helpText)
	case cmdRoom:
		room := m.c.Room()
		if room == "" {
			room = "none"
		}
		m.notice("current room: " + room)
	case cmdUsers:
		m.notice(fmt.Sprintf("you are %s; in the room: %s", m.c.Username(), strings.Join(m.userList(), ", ")))
	case cmdClear:
		m.messages = nil
	case cmdSend:
		if !m.ready {
			m.err = errors.New("not in a room yet")
			return m, nil
		}
		m.err = nil
		return m, m.send(cmd.text)
	}
	return m, nil
}

func (m model) send(text string) tea.Cmd {
	ctx, c := m.ctx, m.c
	return func() tea.Msg {
		if err := c.SendMessage(ctx, text); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m *model) push(msg client.ChatMessage) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// notice shows a local line that is not sent to anyone.
func (m *model) notice(text string) {
	m.push(client.ChatMessage{Sender: client.SystemSender, Content: text, Timestamp: time.Now(), System: true})
}

func (m model) userList() []string {
	users := make([]string, 0, len(m.users))
	for u := range m.users {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

func (m model) View() string {
	bar := statusBarStyle
	status := fmt.Sprintf("user: %s | %s | %s", m.creds.Username, m.status, time.Now().Format("15:04:05"))
	if m.err != nil {
		bar = errorBarStyle
		status += " | " + m.err.Error()
	}
	if m.width > 0 {
		bar = bar.Width(m.width - 4)
	}

	room := m.c.Room()
	if room == "" {
		room = m.creds.Room
	}
	header := roomHeaderStyle.Render("room " + room)

	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		lines = append(lines, m.renderMessage(msg))
	}
	if h := m.height - 10; h > 0 && len(lines) > h {
		lines = lines[len(lines)-h:]
	}
	messages := messagesStyle.Render(strings.Join(lines, "\n"))

	users := userListStyle.Render("online\n\n" + strings.Join(m.userList(), "\n"))
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, header, messages),
		users)

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		bar.Render(status),
		body,
		m.input.View(),
		helpStyle.Render("[ENTER] send  /help  [ESC] quit"),
	))
}

func (m model) renderMessage(msg client.ChatMessage) string {
	t := msg.Timestamp.Local().Format("15:04")
	switch {
	case msg.System:
		return systemMessageStyle.Render(fmt.Sprintf("[%s] %s", t, msg.Content))
	case msg.Sender == m.creds.Username:
		return myMessageStyle.Render(fmt.Sprintf("[%s] you: %s", t, msg.Content))
	}
	return otherMessageStyle.Render(fmt.Sprintf("[%s] %s: %s", t, msg.Sender, msg.Content))
}

// enter registers when asked, logs in, connects and joins the room.
func enter(ctx context.Context, c *client.Client, creds Credentials) error {
	if creds.Register {
		outcome, err := c.Register(ctx, creds.Username, creds.Password)
		if err != nil {
			return err
		}
		logrus.WithField("outcome", outcome.String()).Debug("register")
	}
	if _, err := c.Login(ctx, creds.Username, creds.Password); err != nil {
		return err
	}
	if err := c.ConnectToHub(ctx); err != nil {
		return err
	}
	return c.JoinRoom(ctx, creds.Room)
}

// Chat runs the chat view for creds until the user quits, then disconnects.
func Chat(ctx context.Context, conf config.Config, creds Credentials, opts ...client.Option) error {
	r := &relay{}
	c := client.New(conf, append(opts, client.WithObserver(r))...)
	p := tea.NewProgram(newModel(ctx, c, creds), tea.WithAltScreen(), tea.WithContext(ctx))
	r.attach(p)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return errors.Wrap(err, "run chat view")
	})
	g.Go(func() error {
		err := enter(gctx, c, creds)
		if err != nil {
			logrus.WithError(err).Warn("could not enter the room")
		}
		r.send(readyMsg{err: err})
		return nil
	})
	err := g.Wait()

	// the view is gone, nothing left to notify
	r.attach(nil)
	c.Disconnect(context.Background())
	return err
}

// Run shows the login form and then the chat view.
func Run(ctx context.Context, conf config.Config, register bool, opts ...client.Option) error {
	creds, err := PromptLogin(conf.Client.DefaultRoom)
	if errors.Is(err, ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}
	creds.Register = register
	return Chat(ctx, conf, creds, opts...)
}
