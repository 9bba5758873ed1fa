// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/session"
	"github.com/Thermoquad/wrocloud/pkg/trace"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for a stateful mission session",
	Long: `Drive a stateful mission session from an interactive terminal UI.

The TUI shows the link state, the WiFi and cloud flags, the current mission
record, an event log and the raw modem traffic.

Keys:
  j  join WiFi            s  check WiFi status
  n  start a mission      e  end the current mission
  d  disconnect           r  reset the mission record
  q  quit

Modem operations run one at a time; keys are ignored while one is busy.

Supports serial, WebSocket and simulated connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// tuiSink forwards modem traffic to the TUI
type tuiSink struct {
	p *tea.Program
}

func (s *tuiSink) Outbound(cmd string) {
	if s.p != nil {
		s.p.Send(trafficMsg{at: time.Now(), dir: trace.Outbound, data: cmd})
	}
}

func (s *tuiSink) Inbound(buf string) {
	if s.p != nil && buf != "" {
		s.p.Send(trafficMsg{at: time.Now(), dir: trace.Inbound, data: buf})
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	sink := &tuiSink{}
	st, err := openStation(true, sink)
	if err != nil {
		return err
	}
	defer st.Close()

	sess := session.NewStateful(st.link, st.proto, session.WithLogger(st.log.Named("session")))
	m := initialMonitorModel(sess, st.conn.info, st.proto.Name())

	p := tea.NewProgram(m, tea.WithAltScreen())
	sink.p = p

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
