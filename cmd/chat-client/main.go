// Terminal client for the team-portal chat.
//
// A client.Session owns the websocket, reconnection, and state
// reconciliation; this program only renders. Session updates are bridged
// into the Bubbletea event loop one at a time via waitForUpdate (a
// tea.Cmd), which re-queues itself after each update is processed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/example/team-portal-chat/client"
	domain "github.com/example/team-portal-chat/domain/chat"
)

var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	yellow = lipgloss.Color("220")
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(purple).
			Foreground(white).
			Padding(0, 1)

	footerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true, false, false, false).
				BorderForeground(gray).
				Padding(0, 1)

	connStyle   = lipgloss.NewStyle().Foreground(green)
	deadStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)
	sysStyle    = lipgloss.NewStyle().Foreground(yellow).Italic(true)
	errStyle    = lipgloss.NewStyle().Foreground(red)
	tsStyle     = lipgloss.NewStyle().Foreground(gray)
	myNameStyle = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle   = lipgloss.NewStyle().Bold(true).Foreground(blue)
	titleStyle  = lipgloss.NewStyle().Foreground(gray).Italic(true)
)

// sessionUpdateMsg wraps one client.Update for the tea loop.
type sessionUpdateMsg struct{ update client.Update }

// sessionEndedMsg signals that the session's update stream closed.
type sessionEndedMsg struct{}

type model struct {
	session *client.Session
	me      string

	ready     bool
	viewport  viewport.Model
	input     textinput.Model
	lines     []string
	channel   string
	members   []string
	connected bool
	status    string

	width, height int
}

func newModel(session *client.Session, username, channel string) model {
	in := textinput.New()
	in.Placeholder = "Type a message, or /switch <channel>…"
	in.CharLimit = 2000
	in.Focus()

	return model{
		session:   session,
		me:        username,
		channel:   channel,
		connected: true,
		input:     in,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUpdate(m.session))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.vpHeight()
		}
		m.input.Width = msg.Width - 4
		return m, nil

	case sessionUpdateMsg:
		m = m.handleUpdate(msg.update)
		return m, waitForUpdate(m.session)

	case sessionEndedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlQ:
			m.session.Close()
			return m, tea.Quit

		case tea.KeyEnter:
			return m.submitInput()

		case tea.KeyPgUp:
			m.viewport.HalfViewUp()
			return m, nil

		case tea.KeyPgDown:
			m.viewport.HalfViewDown()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput sends the input line: either a /switch command or a message.
// Input is rejected locally while disconnected.
func (m model) submitInput() (model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if !m.connected {
		m.status = "disconnected, reconnecting..."
		return m, nil
	}

	if name, ok := strings.CutPrefix(text, "/switch "); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			m.status = "usage: /switch <channel>"
			return m, nil
		}
		if err := m.session.SwitchChannel(name); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.channel = name
		m.lines = nil
		m.members = nil
		m.syncViewport()
		m.input.Reset()
		return m, nil
	}

	if err := m.session.SendMessage(text); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.input.Reset()
	return m, nil
}

func (m model) handleUpdate(u client.Update) model {
	switch u := u.(type) {

	case client.Snapshot:
		m.lines = m.lines[:0]
		for _, msg := range u.Messages {
			m.lines = append(m.lines, renderMessage(msg, m.me))
		}
		m.syncViewport()

	case client.MessageReceived:
		m.lines = append(m.lines, renderMessage(u.Message, m.me))
		m.syncViewport()

	case client.MemberList:
		m.members = u.Members

	case client.ActionError:
		m.status = u.Message
		m.lines = append(m.lines, errStyle.Render("⚠ "+u.Message))
		m.syncViewport()

	case client.ConnState:
		m.connected = u.Connected
		if u.Connected {
			m.status = ""
		} else if u.Err != nil {
			m.status = "connection lost: " + u.Err.Error()
		} else {
			m.status = "connection lost"
		}
	}
	return m
}

func (m *model) syncViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func renderMessage(msg domain.Message, me string) string {
	ts := tsStyle.Render("[" + msg.Timestamp.Local().Format("15:04:05") + "]")
	if msg.Type == domain.MessageSystem {
		return ts + " " + sysStyle.Render("⚡ "+msg.Content)
	}

	var name string
	if msg.Author == me {
		name = myNameStyle.Render(msg.Author)
	} else {
		name = peerStyle.Render(msg.Author)
	}
	if msg.AuthorTitle != "" {
		name += " " + titleStyle.Render("〈"+msg.AuthorTitle+"〉")
	}
	return ts + " " + name + ": " + msg.Content
}

func (m model) vpHeight() int {
	// header (1) + footer border (1) + footer input (1) reserved
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (m model) View() string {
	if !m.ready {
		return "\n  Connecting…"
	}

	state := connStyle.Render("online")
	if !m.connected {
		state = deadStyle.Render("reconnecting…")
	}
	hdr := headerStyle.
		Width(m.width).
		Render(fmt.Sprintf(" #%s  ·  %s  ·  %d online  ·  %s  ·  /switch <ch>  Ctrl+C: quit",
			m.channel, m.me, len(m.members), state))

	footer := footerBorderStyle.
		Width(m.width - 2).
		Render(m.input.View())

	view := lipgloss.JoinVertical(lipgloss.Left, hdr, m.viewport.View(), footer)
	if m.status != "" {
		view += "\n" + errStyle.Render("  "+m.status)
	}
	return view
}

// waitForUpdate blocks until the session produces its next update.
func waitForUpdate(s *client.Session) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-s.Updates()
		if !ok {
			return sessionEndedMsg{}
		}
		return sessionUpdateMsg{update: u}
	}
}

func main() {
	url := flag.String("url", "ws://localhost:3000/ws", "chat server websocket URL")
	user := flag.String("user", "", "display name to claim")
	channel := flag.String("channel", "general", "initial channel")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: chat-client -user <name> [-url ws://...] [-channel general]")
		os.Exit(1)
	}

	session, err := client.Dial(context.Background(), client.Config{
		URL:      *url,
		Username: *user,
		Channel:  *channel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	p := tea.NewProgram(
		newModel(session, *user, *channel),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
