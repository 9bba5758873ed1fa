// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/espat"
	"go.uber.org/zap"
)

// Settle pauses after each command, tuned per command
const (
	restoreSettle = 3000 * time.Millisecond
	resetSettle   = 2000 * time.Millisecond
	modeSettle    = 500 * time.Millisecond
	joinSettle    = 5000 * time.Millisecond
	closeSettle   = 1000 * time.Millisecond
	startSettle   = 100 * time.Millisecond
	querySettle   = 10 * time.Millisecond
	payloadSettle = 10 * time.Millisecond

	statusLatency     = 1000 * time.Millisecond
	statusReadTimeout = 3000 * time.Millisecond
	replyReadTimeout  = 3000 * time.Millisecond
)

// Manager owns the connection state machine of one modem.
//
// Unconfigured/Disconnected -JoinWiFi-> WifiJoining -StatusCheck-> WifiUp
// -ConnectCloud-> CloudConnecting -> CloudConnected -Disconnect-> Disconnected
//
// The modem is the source of truth: operations are not refused because of
// the current state (the firmware may have re-associated on its own with
// auto-connect enabled), except Transmit which needs an open connection.
type Manager struct {
	tr    *espat.Transport
	cfg   Config
	state State

	wifiRetry   RetryPolicy
	cloudRetry  RetryPolicy
	readTimeout time.Duration

	log *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithWifiRetry sets the policy of the WiFi status loop. Default: unbounded.
func WithWifiRetry(p RetryPolicy) Option {
	return func(m *Manager) { m.wifiRetry = p }
}

// WithCloudRetry sets the policy of ConnectCloud. Default: unbounded.
func WithCloudRetry(p RetryPolicy) Option {
	return func(m *Manager) { m.cloudRetry = p }
}

// WithReadTimeout sets the window for the CIPSTART response.
func WithReadTimeout(d time.Duration) Option {
	return func(m *Manager) { m.readTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a manager in state Unconfigured. cfg is copied and
// not changed afterwards.
func NewManager(tr *espat.Transport, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		tr:          tr,
		cfg:         cfg,
		state:       StateUnconfigured,
		wifiRetry:   Unbounded(),
		cloudRetry:  Unbounded(),
		readTimeout: espat.DefaultReadTimeout,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	return m.state
}

// Config returns the station configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) setState(s State) {
	if s != m.state {
		m.log.Info("link state", zap.Stringer("from", m.state), zap.Stringer("to", s))
	}
	m.state = s
}

// JoinWiFi restores and configures the modem for single-connection station
// mode, joins the access point and then polls the station address until it
// is up. Each failed status check re-issues the join command before the
// next check. The loop follows the WiFi retry policy; with the default
// policy it never gives up.
func (m *Manager) JoinWiFi() error {
	if err := m.cfg.WifiReady(); err != nil {
		return err
	}
	m.setState(StateWifiJoining)

	if err := m.bringUp(); err != nil {
		return err
	}

	ok, err := m.retry(m.wifiRetry, "wifi join", func(attempt int) (bool, error) {
		if attempt > 1 {
			if err := m.exec(espat.JoinCommand(m.cfg.SSID, m.cfg.Passphrase), joinSettle); err != nil {
				return false, err
			}
		}
		return m.StatusCheck()
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: could not join %q", ErrWifiDown, m.cfg.SSID)
	}
	return nil
}

// step is one command of the bring-up sequence.
type step struct {
	cmd    string
	settle time.Duration
}

func (m *Manager) bringUp() error {
	steps := []step{
		{espat.CmdRestore, restoreSettle},
		{espat.CmdReset, resetSettle},
		{espat.CmdEchoOff, modeSettle},
		{espat.CmdStationMode, modeSettle},
		{espat.CmdNormalTransfer, modeSettle},
	}
	if m.cfg.StationID != "" {
		steps = append(steps, step{espat.HostnameCommand(m.cfg.StationID), modeSettle})
	}
	steps = append(steps,
		step{espat.CmdSingleConnection, modeSettle},
		step{espat.CmdAutoConnect, modeSettle},
		step{espat.CmdSleepOff, modeSettle},
		step{espat.JoinCommand(m.cfg.SSID, m.cfg.Passphrase), joinSettle},
	)

	m.log.Info("wifi bring-up", zap.String("ssid", m.cfg.SSID), zap.Int("commands", len(steps)))
	for _, st := range steps {
		if err := m.tr.Drain(); err != nil {
			return err
		}
		if err := m.tr.Send(st.cmd, st.settle); err != nil {
			return err
		}
	}
	return m.tr.Drain()
}

// exec drains, sends cmd and drains its output.
func (m *Manager) exec(cmd string, settle time.Duration) error {
	if err := m.tr.Drain(); err != nil {
		return err
	}
	if err := m.tr.Send(cmd, settle); err != nil {
		return err
	}
	return m.tr.Drain()
}

// StatusCheck queries the station address once. The station is up when
// the reply carries the STAIP marker and not the all-zero address.
// Success moves Unconfigured, WifiJoining and Disconnected to WifiUp;
// failure moves WifiUp back to WifiJoining.
func (m *Manager) StatusCheck() (bool, error) {
	m.tr.Clock().Sleep(statusLatency)
	if err := m.tr.Drain(); err != nil {
		return false, err
	}
	if err := m.tr.Send(espat.CmdLocalAddress, querySettle); err != nil {
		return false, err
	}
	resp, err := m.tr.Read(statusReadTimeout)
	if err != nil {
		return false, err
	}

	up := StationUp(resp)
	m.log.Debug("wifi status", zap.Bool("up", up))

	switch {
	case up && (m.state == StateUnconfigured || m.state == StateWifiJoining || m.state == StateDisconnected):
		m.setState(StateWifiUp)
	case !up && m.state == StateWifiUp:
		m.setState(StateWifiJoining)
	}
	return up, nil
}

// StationUp classifies an AT+CIFSR response.
func StationUp(resp string) bool {
	return strings.Contains(resp, espat.MarkerStationIP) && !strings.Contains(resp, espat.MarkerNoAddress)
}

// ConnectCloud opens the TCP connection to the cloud endpoint, retrying
// under the cloud retry policy.
func (m *Manager) ConnectCloud() error {
	return m.connectCloud(m.cloudRetry)
}

// ConnectCloudOnce makes a single connection attempt regardless of policy.
func (m *Manager) ConnectCloudOnce() error {
	return m.connectCloud(SingleShot())
}

func (m *Manager) connectCloud(p RetryPolicy) error {
	if err := m.cfg.CloudReady(); err != nil {
		return err
	}
	m.setState(StateCloudConnecting)

	ok, err := m.retry(p, "cloud connect", func(int) (bool, error) {
		return m.openTCP()
	})
	if err != nil {
		m.setState(StateDisconnected)
		return err
	}
	if !ok {
		m.setState(StateDisconnected)
		return fmt.Errorf("%w: %s:%s", ErrCloudUnreachable, m.cfg.CloudHost, m.cfg.CloudPort)
	}
	m.setState(StateCloudConnected)
	return nil
}

// openTCP closes any previous connection and issues CIPSTART once.
func (m *Manager) openTCP() (bool, error) {
	if err := m.tr.Send(espat.CmdClose, closeSettle); err != nil {
		return false, err
	}
	if err := m.tr.Drain(); err != nil {
		return false, err
	}
	if err := m.tr.Send(espat.StartTCPCommand(m.cfg.CloudHost, m.cfg.CloudPort), startSettle); err != nil {
		return false, err
	}
	resp, err := m.tr.Read(m.readTimeout)
	if err != nil {
		return false, err
	}
	return strings.Contains(resp, espat.MarkerConnect), nil
}

// Transmit sends payload over the open connection and returns whatever the
// modem reports within the reply window. prepare is the pause granted to
// the modem after announcing the payload length.
func (m *Manager) Transmit(payload string, prepare time.Duration) (string, error) {
	if m.state != StateCloudConnected {
		return "", fmt.Errorf("%w (state %s)", ErrNotConnected, m.state)
	}

	// The announced length covers the terminator Send appends
	if err := m.tr.Send(espat.SendCommand(len(payload)+len(espat.Terminator)), prepare); err != nil {
		return "", err
	}
	if err := m.tr.Drain(); err != nil {
		return "", err
	}
	if err := m.tr.Send(payload, payloadSettle); err != nil {
		return "", err
	}
	return m.tr.Read(replyReadTimeout)
}

// Disconnect closes the TCP connection and marks the link Disconnected
// whatever the previous state. Calling it repeatedly is harmless.
func (m *Manager) Disconnect() error {
	err := m.tr.Send(espat.CmdClose, closeSettle)
	if err == nil {
		err = m.tr.Drain()
	}
	m.setState(StateDisconnected)
	return err
}

// retry runs attempt until it reports success, it fails hard, or the
// policy is exhausted.
func (m *Manager) retry(p RetryPolicy, op string, attempt func(n int) (bool, error)) (bool, error) {
	next := p.delays()
	for n := 1; ; n++ {
		ok, err := attempt(n)
		if err != nil {
			return false, err
		}
		if ok {
			if n > 1 {
				m.log.Info(op+" succeeded", zap.Int("attempts", n))
			}
			return true, nil
		}
		if !p.allows(n) {
			m.log.Warn(op+" gave up", zap.Int("attempts", n))
			return false, nil
		}
		d := next()
		m.log.Debug(op+" retry", zap.Int("attempt", n), zap.Duration("delay", d))
		m.tr.Clock().Sleep(d)
	}
}
