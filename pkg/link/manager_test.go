// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/espat"
	"github.com/Thermoquad/wrocloud/pkg/espat/espattest"
	"go.uber.org/zap/zaptest"
)

const (
	replyStationUp   = "+CIFSR:STAIP,\"10.0.0.5\"\r\n+CIFSR:STAMAC,\"5c:cf:7f:00:00:01\"\r\n\r\nOK\r\n"
	replyStationDown = "+CIFSR:STAIP,\"0.0.0.0\"\r\n+CIFSR:STAMAC,\"5c:cf:7f:00:00:01\"\r\n\r\nOK\r\n"
	replyConnect     = "CONNECT\r\n\r\nOK\r\n"
	replyRefused     = "ERROR\r\nCLOSED\r\n"
)

func testConfig() Config {
	return Config{
		SSID:       "net",
		Passphrase: "pw",
		CloudHost:  "1.2.3.4",
		CloudPort:  "80",
		StationID:  "ST1",
	}
}

func newTestManager(t *testing.T, dev *espattest.Device, cfg Config, opts ...Option) (*Manager, *espattest.Clock) {
	t.Helper()
	clock := espattest.NewClock()
	tr := espat.NewTransport(dev, espat.WithClock(clock))
	base := []Option{WithLogger(zaptest.NewLogger(t))}
	return NewManager(tr, cfg, append(base, opts...)...), clock
}

// ============================================================
// Status classification
// ============================================================

func TestStationUp(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want bool
	}{
		{"address assigned", replyStationUp, true},
		{"marker only", `+CIFSR:STAIP,"192.168.4.2"`, true},
		{"all-zero address", replyStationDown, false},
		{"zero address elsewhere in reply", "+CIFSR:STAIP,\"10.0.0.5\"\r\n+CIFSR:APIP,\"0.0.0.0\"\r\n", false},
		{"no marker", "ERROR\r\n", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StationUp(tt.resp); got != tt.want {
				t.Errorf("StationUp(%q) = %v, want %v", tt.resp, got, tt.want)
			}
		})
	}
}

func TestStatusCheck_Transitions(t *testing.T) {
	dev := espattest.NewDevice().OnSequence(espat.CmdLocalAddress, replyStationUp, replyStationDown)
	m, _ := newTestManager(t, dev, testConfig())

	up, err := m.StatusCheck()
	if err != nil || !up {
		t.Fatalf("StatusCheck() = %v, %v; want true, nil", up, err)
	}
	if m.State() != StateWifiUp {
		t.Errorf("State() = %v, want %v", m.State(), StateWifiUp)
	}

	up, err = m.StatusCheck()
	if err != nil || up {
		t.Fatalf("StatusCheck() = %v, %v; want false, nil", up, err)
	}
	if m.State() != StateWifiJoining {
		t.Errorf("State() = %v, want %v", m.State(), StateWifiJoining)
	}
}

// ============================================================
// WiFi join
// ============================================================

func TestJoinWiFi_CommandSequence(t *testing.T) {
	tests := []struct {
		name      string
		stationID string
		want      []string
	}{
		{
			name:      "with hostname",
			stationID: "ST1",
			want: []string{
				"AT+RESTORE", "AT+RST", "ATE0", "AT+CWMODE=1", "AT+CIPMODE=0",
				`AT+CWHOSTNAME="ST1"`,
				"AT+CIPMUX=0", "AT+CWAUTOCONN=1", "AT+SLEEP=0",
				`AT+CWJAP="net","pw"`, "AT+CIFSR",
			},
		},
		{
			name:      "without station id",
			stationID: "",
			want: []string{
				"AT+RESTORE", "AT+RST", "ATE0", "AT+CWMODE=1", "AT+CIPMODE=0",
				"AT+CIPMUX=0", "AT+CWAUTOCONN=1", "AT+SLEEP=0",
				`AT+CWJAP="net","pw"`, "AT+CIFSR",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := espattest.NewDevice().On(espat.CmdLocalAddress, replyStationUp)
			cfg := testConfig()
			cfg.StationID = tt.stationID
			m, _ := newTestManager(t, dev, cfg)

			if err := m.JoinWiFi(); err != nil {
				t.Fatalf("JoinWiFi() error: %v", err)
			}
			if got := dev.Lines(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lines() =\n%q\nwant\n%q", got, tt.want)
			}
			if m.State() != StateWifiUp {
				t.Errorf("State() = %v, want %v", m.State(), StateWifiUp)
			}
		})
	}
}

func TestJoinWiFi_DrainsStaleBoot(t *testing.T) {
	dev := espattest.NewDevice().
		On(espat.CmdReset, "\r\nets Jan  8 2013,rst cause:2, boot mode:(3,6)\r\nready\r\n+CIFSR:STAIP,\"0.0.0.0\"\r\n").
		On(espat.CmdLocalAddress, replyStationUp)
	m, _ := newTestManager(t, dev, testConfig())

	if err := m.JoinWiFi(); err != nil {
		t.Fatalf("JoinWiFi() error: %v", err)
	}
	if m.State() != StateWifiUp {
		t.Errorf("State() = %v; boot noise leaked into the status check", m.State())
	}
}

func TestJoinWiFi_RetriesJoinUntilUp(t *testing.T) {
	dev := espattest.NewDevice().
		OnSequence(espat.CmdLocalAddress, replyStationDown, "", replyStationDown, replyStationUp)
	m, _ := newTestManager(t, dev, testConfig())

	if err := m.JoinWiFi(); err != nil {
		t.Fatalf("JoinWiFi() error: %v", err)
	}

	if got := dev.Count(espat.CmdLocalAddress); got != 4 {
		t.Errorf("status checks = %d, want 4", got)
	}
	// One join from bring-up plus one before every re-check
	if got := dev.Count("AT+CWJAP="); got != 4 {
		t.Errorf("join commands = %d, want 4", got)
	}
	if got := dev.Count(espat.CmdRestore); got != 1 {
		t.Errorf("restore commands = %d, want 1", got)
	}
	if m.State() != StateWifiUp {
		t.Errorf("State() = %v, want %v", m.State(), StateWifiUp)
	}
}

func TestJoinWiFi_BoundedPolicyGivesUp(t *testing.T) {
	dev := espattest.NewDevice().On(espat.CmdLocalAddress, replyStationDown)
	policy := RetryPolicy{MaxAttempts: 3, Backoff: BackoffFixed, Delay: 7 * time.Second}
	m, clock := newTestManager(t, dev, testConfig(), WithWifiRetry(policy))

	err := m.JoinWiFi()
	if !errors.Is(err, ErrWifiDown) {
		t.Fatalf("JoinWiFi() error = %v, want ErrWifiDown", err)
	}
	if got := dev.Count(espat.CmdLocalAddress); got != 3 {
		t.Errorf("status checks = %d, want 3", got)
	}
	if m.State() != StateWifiJoining {
		t.Errorf("State() = %v, want %v", m.State(), StateWifiJoining)
	}
	if clock.Slept() < 14*time.Second {
		t.Errorf("slept %v, want the two 7s backoff pauses included", clock.Slept())
	}
}

func TestJoinWiFi_Unconfigured(t *testing.T) {
	dev := espattest.NewDevice()
	cfg := testConfig()
	cfg.Passphrase = ""
	m, _ := newTestManager(t, dev, cfg)

	err := m.JoinWiFi()
	if !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("JoinWiFi() error = %v, want ErrUnconfigured", err)
	}
	if len(dev.Lines()) != 0 {
		t.Errorf("wrote %q to an unconfigured modem", dev.Lines())
	}
	if m.State() != StateUnconfigured {
		t.Errorf("State() = %v, want %v", m.State(), StateUnconfigured)
	}
}

func TestJoinWiFi_WriteError(t *testing.T) {
	dev := espattest.NewDevice()
	dev.WriteErr = errors.New("EIO")
	m, _ := newTestManager(t, dev, testConfig())

	if err := m.JoinWiFi(); !errors.Is(err, dev.WriteErr) {
		t.Errorf("JoinWiFi() error = %v, want %v", err, dev.WriteErr)
	}
}

// ============================================================
// Cloud connect
// ============================================================

func TestConnectCloud_OneAttempt(t *testing.T) {
	endpoints := []struct{ host, port string }{
		{"1.2.3.4", "80"},
		{"cloud.example.org", "8080"},
		{"10.0.0.1", "65535"},
	}

	for _, ep := range endpoints {
		t.Run(fmt.Sprintf("%s:%s", ep.host, ep.port), func(t *testing.T) {
			dev := espattest.NewDevice().On("AT+CIPSTART", replyConnect)
			cfg := testConfig()
			cfg.CloudHost, cfg.CloudPort = ep.host, ep.port
			m, _ := newTestManager(t, dev, cfg)

			if err := m.ConnectCloud(); err != nil {
				t.Fatalf("ConnectCloud() error: %v", err)
			}
			if m.State() != StateCloudConnected {
				t.Errorf("State() = %v, want %v", m.State(), StateCloudConnected)
			}
			if got := dev.Count("AT+CIPSTART"); got != 1 {
				t.Errorf("CIPSTART count = %d, want 1", got)
			}
			want := espat.StartTCPCommand(ep.host, ep.port)
			lines := dev.Lines()
			if lines[len(lines)-1] != want {
				t.Errorf("last line = %q, want %q", lines[len(lines)-1], want)
			}
		})
	}
}

func TestConnectCloud_ClosesBeforeEachAttempt(t *testing.T) {
	dev := espattest.NewDevice().OnSequence("AT+CIPSTART", replyRefused, "", replyConnect)
	m, _ := newTestManager(t, dev, testConfig())

	if err := m.ConnectCloud(); err != nil {
		t.Fatalf("ConnectCloud() error: %v", err)
	}

	want := []string{
		"AT+CIPCLOSE", `AT+CIPSTART="TCP","1.2.3.4",80`,
		"AT+CIPCLOSE", `AT+CIPSTART="TCP","1.2.3.4",80`,
		"AT+CIPCLOSE", `AT+CIPSTART="TCP","1.2.3.4",80`,
	}
	if got := dev.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

func TestConnectCloudOnce_ReportsFailure(t *testing.T) {
	dev := espattest.NewDevice().On("AT+CIPSTART", replyRefused)
	m, _ := newTestManager(t, dev, testConfig())

	err := m.ConnectCloudOnce()
	if !errors.Is(err, ErrCloudUnreachable) {
		t.Fatalf("ConnectCloudOnce() error = %v, want ErrCloudUnreachable", err)
	}
	if got := dev.Count("AT+CIPSTART"); got != 1 {
		t.Errorf("CIPSTART count = %d, want 1", got)
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want %v", m.State(), StateDisconnected)
	}
}

func TestConnectCloud_Unconfigured(t *testing.T) {
	dev := espattest.NewDevice()
	cfg := testConfig()
	cfg.CloudPort = ""
	m, _ := newTestManager(t, dev, cfg)

	if err := m.ConnectCloud(); !errors.Is(err, ErrUnconfigured) {
		t.Errorf("ConnectCloud() error = %v, want ErrUnconfigured", err)
	}
	if len(dev.Lines()) != 0 {
		t.Errorf("wrote %q without an endpoint", dev.Lines())
	}
}

// ============================================================
// Transmit / Disconnect
// ============================================================

func TestTransmit_NotConnected(t *testing.T) {
	m, _ := newTestManager(t, espattest.NewDevice(), testConfig())

	if _, err := m.Transmit("S1;M2;", time.Second); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Transmit() error = %v, want ErrNotConnected", err)
	}
}

func TestTransmit_AnnouncesPayloadPlusTerminator(t *testing.T) {
	dev := espattest.NewDevice().
		On("AT+CIPSTART", replyConnect).
		On("AT+CIPSEND=", "\r\nOK\r\n> ").
		On("S1;M2;", "\r\nRecv 8 bytes\r\n\r\nSEND OK\r\n\r\n+IPD,9:MID1;3;4;CLOSED\r\n")
	m, _ := newTestManager(t, dev, testConfig())

	if err := m.ConnectCloud(); err != nil {
		t.Fatalf("ConnectCloud() error: %v", err)
	}
	resp, err := m.Transmit("S1;M2;", 2*time.Second)
	if err != nil {
		t.Fatalf("Transmit() error: %v", err)
	}

	lines := dev.Lines()
	tail := lines[len(lines)-2:]
	if want := []string{"AT+CIPSEND=8", "S1;M2;"}; !reflect.DeepEqual(tail, want) {
		t.Errorf("last lines = %q, want %q", tail, want)
	}
	if resp != "\r\nRecv 8 bytes\r\n\r\nSEND OK\r\n\r\n+IPD,9:MID1;3;4;CLOSED\r\n" {
		t.Errorf("Transmit() = %q; prompt should have been drained", resp)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	dev := espattest.NewDevice().On("AT+CIPSTART", replyConnect)
	m, _ := newTestManager(t, dev, testConfig())
	m.ConnectCloud()

	for i := 0; i < 2; i++ {
		if err := m.Disconnect(); err != nil {
			t.Fatalf("Disconnect() #%d error: %v", i+1, err)
		}
		if m.State() != StateDisconnected {
			t.Errorf("State() after Disconnect() #%d = %v, want %v", i+1, m.State(), StateDisconnected)
		}
	}
}

func TestDisconnect_FromUnconfigured(t *testing.T) {
	m, _ := newTestManager(t, espattest.NewDevice(), Config{})

	if err := m.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error: %v", err)
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want %v", m.State(), StateDisconnected)
	}
}

func TestStateString(t *testing.T) {
	for s := StateUnconfigured; s <= StateDisconnected; s++ {
		if got := s.String(); got == "" || got[0] == 'S' {
			t.Errorf("State(%d).String() = %q", int(s), got)
		}
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("State(42).String() = %q", got)
	}
}
