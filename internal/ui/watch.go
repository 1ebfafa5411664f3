package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JaykaiDos/signaling-server/internal/relay"
	"github.com/JaykaiDos/signaling-server/internal/signaling"
)

const maxWatchLines = 20

// eventMsg carries one relay event into the model.
type eventMsg struct{ msg *signaling.Message }

// streamClosedMsg reports that the connection dropped.
type streamClosedMsg struct{}

type watchLine struct {
	at    time.Time
	typ   string
	about string
}

// WatchModel is the bubbletea model behind `relayctl watch`.
type WatchModel struct {
	roomID   string
	events   <-chan *signaling.Message
	describe func(*signaling.Message) string

	spinner spinner.Model
	joined  bool
	players int
	lines   []watchLine
	total   int
	status  string
	ended   bool
}

// NewWatchModel builds the model. describe renders one event's detail.
func NewWatchModel(roomID string, events <-chan *signaling.Message, describe func(*signaling.Message) string) *WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle
	return &WatchModel{
		roomID:   roomID,
		events:   events,
		describe: describe,
		spinner:  s,
		status:   "joining " + roomID,
	}
}

func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *WatchModel) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{msg: msg}
	}
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ended = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(msg.msg)
		if m.ended {
			return m, tea.Quit
		}
		return m, m.listen()

	case streamClosedMsg:
		m.status = "connection closed"
		m.ended = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *WatchModel) apply(msg *signaling.Message) {
	at := msg.Time()
	if at.IsZero() {
		at = time.Now()
	}
	m.total++
	m.lines = append(m.lines, watchLine{at: at, typ: msg.Type, about: m.describe(msg)})
	if len(m.lines) > maxWatchLines {
		m.lines = m.lines[len(m.lines)-maxWatchLines:]
	}

	switch msg.Type {
	case relay.EventRoomJoined:
		m.joined = true
		m.players = msg.PlayerCount
		m.status = fmt.Sprintf("in %s", m.roomID)
	case relay.EventUserJoined:
		m.players++
	case relay.EventUserLeft:
		m.players = max(0, m.players-1)
	case relay.EventHostDisconnected:
		m.status = "host left, room is gone"
		m.ended = true
	case relay.EventRoomClosed:
		m.status = "room closed by the server"
		m.ended = true
	}
}

func (m *WatchModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s %s", IconRoom, m.roomID)))
	b.WriteString("\n")

	if !m.joined && !m.ended {
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), m.status))
	} else {
		b.WriteString(fmt.Sprintf("%s %s  %s %d  events %d\n",
			IconInfo, m.status, IconPeer, m.players, m.total))
	}
	b.WriteString("\n")

	for _, l := range m.lines {
		b.WriteString(MutedStyle.Render(l.at.Format("15:04:05.000")))
		b.WriteString(" ")
		b.WriteString(EventStyle.Render(l.typ))
		b.WriteString(l.about)
		b.WriteString("\n")
	}

	if !m.ended {
		b.WriteString(FooterStyle.Render("q to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

// Ended reports whether the watch is over.
func (m *WatchModel) Ended() bool { return m.ended }

// RunWatch runs the live view until the user quits or the room ends.
func RunWatch(model *WatchModel) error {
	_, err := tea.NewProgram(model).Run()
	return err
}
