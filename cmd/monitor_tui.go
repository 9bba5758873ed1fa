// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/link"
	"github.com/Thermoquad/wrocloud/pkg/mission"
	"github.com/Thermoquad/wrocloud/pkg/session"
	"github.com/Thermoquad/wrocloud/pkg/trace"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// action is one modem operation started from the TUI
type action int

const (
	actJoin action = iota
	actStatus
	actStart
	actEnd
	actDisconnect
)

func (a action) String() string {
	switch a {
	case actJoin:
		return "join"
	case actStatus:
		return "status"
	case actStart:
		return "start mission"
	case actEnd:
		return "end mission"
	case actDisconnect:
		return "disconnect"
	default:
		return "?"
	}
}

// What the text input is collecting
const (
	inputNone = iota
	inputMissionType
	inputMissionData
)

// snapshot is the session state captured by the worker after an action,
// so that View never touches the session while a worker runs.
type snapshot struct {
	state  link.State
	record mission.Record
	wifi   bool
	cloud  bool
}

func takeSnapshot(s *session.Stateful) snapshot {
	return snapshot{
		state:  s.State(),
		record: s.Record(),
		wifi:   s.WifiConnected(),
		cloud:  s.CloudConnected(),
	}
}

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	sess     *session.Stateful
	connInfo string
	protocol string

	snap    snapshot
	busy    bool
	current action

	spinner  spinner.Model
	input    textinput.Model
	inputFor int

	eventLog      []logEntry
	traffic       []logEntry
	maxLogEntries int

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type actionDoneMsg struct {
	act    action
	detail string
	err    error
	snap   snapshot
}

type trafficMsg struct {
	at   time.Time
	dir  trace.Direction
	data string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(sess *session.Stateful, connInfo, protocol string) monitorModel {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 30

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return monitorModel{
		sess:          sess,
		connInfo:      connInfo,
		protocol:      protocol,
		snap:          takeSnapshot(sess),
		spinner:       sp,
		input:         ti,
		inputFor:      inputNone,
		eventLog:      make([]logEntry, 0),
		traffic:       make([]logEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return nil
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionDoneMsg:
		m.busy = false
		m.snap = msg.snap
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed (%s): %v", msg.act, session.Classify(msg.err), msg.err), true)
		} else {
			m.addLogEntry(fmt.Sprintf("%s: %s", msg.act, msg.detail), false)
		}

	case trafficMsg:
		quoted := strings.Trim(fmt.Sprintf("%q", msg.data), `"`)
		m.traffic = appendEntry(m.traffic, logEntry{
			timestamp: msg.at,
			message:   fmt.Sprintf("%s %s", msg.dir, quoted),
		}, m.maxLogEntries)
	}

	return m, nil
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.inputFor != inputNone {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	}

	if m.busy {
		if strings.ContainsAny(msg.String(), "jsnedr") && len(msg.String()) == 1 {
			m.addLogEntry(fmt.Sprintf("Busy with %s", m.current), true)
		}
		return m, nil
	}

	switch msg.String() {
	case "j":
		return m.run(actJoin, func() (string, error) {
			if err := m.sess.JoinWiFi(); err != nil {
				return "", err
			}
			return "wifi up", nil
		})

	case "s":
		return m.run(actStatus, func() (string, error) {
			up, err := m.sess.RefreshWiFi()
			if err != nil {
				return "", err
			}
			if up {
				return "wifi up", nil
			}
			return "wifi down", nil
		})

	case "n":
		m.openInput(inputMissionType, "mission type")

	case "e":
		if !m.snap.record.IDValid() {
			m.addLogEntry("No mission to end: start one first", true)
			return m, nil
		}
		m.openInput(inputMissionData, "mission data")

	case "d":
		return m.run(actDisconnect, func() (string, error) {
			if err := m.sess.Disconnect(); err != nil {
				return "", err
			}
			return "closed", nil
		})

	case "r":
		m.sess.ResetMission()
		m.snap = takeSnapshot(m.sess)
		m.addLogEntry("Mission record reset", false)
	}

	return m, nil
}

func (m monitorModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		target := m.inputFor
		m.closeInput()

		if target == inputMissionType {
			return m.run(actStart, func() (string, error) {
				if err := m.sess.StartMission(value); err != nil {
					return "", err
				}
				return m.sess.Record().String(), nil
			})
		}
		id := m.snap.record.MissionID
		return m.run(actEnd, func() (string, error) {
			if err := m.sess.EndMission(id, value); err != nil {
				return "", err
			}
			return m.sess.Record().String(), nil
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

//////////////////////////////////////////////////////////////
// Actions
//////////////////////////////////////////////////////////////

// run starts fn on a worker. Only one action runs at a time and the
// session is touched by nothing else until it reports back.
func (m monitorModel) run(act action, fn func() (string, error)) (tea.Model, tea.Cmd) {
	m.busy = true
	m.current = act
	m.addLogEntry(fmt.Sprintf("Running %s...", act), false)

	sess := m.sess
	work := func() tea.Msg {
		detail, err := fn()
		return actionDoneMsg{act: act, detail: detail, err: err, snap: takeSnapshot(sess)}
	}
	return m, tea.Batch(m.spinner.Tick, work)
}

func (m *monitorModel) openInput(target int, placeholder string) {
	m.inputFor = target
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
}

func (m *monitorModel) closeInput() {
	m.inputFor = inputNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = appendEntry(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}, m.maxLogEntries)
}

// appendEntry keeps only the last max entries
func appendEntry(log []logEntry, e logEntry, max int) []logEntry {
	log = append(log, e)
	if len(log) > max {
		log = log[len(log)-max:]
	}
	return log
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
)

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Header
	s.WriteString(titleStyle.Render("WROCLOUD MONITOR"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | protocol %s | q=quit", m.connInfo, m.protocol)))
	s.WriteString("\n\n")

	half := (m.width - 6) / 2
	if half < 20 {
		half = 20
	}
	linkPanel := boxStyle.Width(half).Render(m.renderLink())
	missionPanel := boxStyle.Width(half).Render(m.renderMission())
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, linkPanel, " ", missionPanel))
	s.WriteString("\n")

	// Activity line
	switch {
	case m.inputFor != inputNone:
		s.WriteString(fmt.Sprintf(" %s %s  %s\n",
			labelStyle.Render(m.input.Placeholder+":"), m.input.View(),
			headerStyle.Render("enter=send esc=cancel")))
	case m.busy:
		s.WriteString(fmt.Sprintf(" %s %s\n", m.spinner.View(), warningStyle.Render("Running "+m.current.String()+"...")))
	default:
		s.WriteString(headerStyle.Render(" j=join s=status n=start e=end d=disconnect r=reset"))
		s.WriteString("\n")
	}

	s.WriteString(m.renderLog("EVENTS", m.eventLog, 6))
	s.WriteString("\n")
	s.WriteString(m.renderLog("TRAFFIC", m.traffic, 8))

	return s.String()
}

func (m monitorModel) renderLink() string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("LINK"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("State:"), valueStyle.Render(m.snap.state.String())))
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("WiFi: "), flag(m.snap.wifi)))
	s.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("Cloud:"), flag(m.snap.cloud)))
	return s.String()
}

func (m monitorModel) renderMission() string {
	r := m.snap.record
	var s strings.Builder
	s.WriteString(labelStyle.Render("MISSION"))
	s.WriteString("\n")

	id := valueStyle.Render(r.MissionID)
	if !r.IDValid() {
		id = errorStyle.Render(r.MissionID)
	}
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("ID:    "), id))
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("X, Y:  "),
		valueStyle.Render(fmt.Sprintf("%d, %d", r.X, r.Y))))

	result := valueStyle.Render(fmt.Sprintf("%d", r.Result))
	if !r.ResultValid() {
		result = headerStyle.Render(fmt.Sprintf("%d (unset)", r.Result))
	}
	s.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("Result:"), result))
	return s.String()
}

func flag(v bool) string {
	if v {
		return valueStyle.Render("connected")
	}
	return warningStyle.Render("not connected")
}

func (m monitorModel) renderLog(title string, entries []logEntry, height int) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render(title))
	s.WriteString("\n")

	if len(entries) == 0 {
		s.WriteString(headerStyle.Render("  (nothing yet)"))
		return boxStyle.Width(m.width - 4).Render(s.String())
	}

	startIdx := len(entries) - height
	if startIdx < 0 {
		startIdx = 0
	}
	for i := startIdx; i < len(entries); i++ {
		entry := entries[i]
		icon := "i"
		style := warningStyle
		if entry.isError {
			icon = "x"
			style = errorStyle
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
			style.Render(icon),
			entry.message))
	}

	return boxStyle.Width(m.width - 4).Render(strings.TrimRight(s.String(), "\n"))
}
