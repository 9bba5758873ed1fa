// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"errors"
	"testing"

	"github.com/Thermoquad/wrocloud/pkg/espat"
	"github.com/Thermoquad/wrocloud/pkg/espat/espattest"
	"github.com/Thermoquad/wrocloud/pkg/link"
	"github.com/Thermoquad/wrocloud/pkg/mission"
	"go.uber.org/zap/zaptest"
)

func newStateless(t *testing.T, dev *espattest.Device, p mission.Protocol) *Stateless {
	t.Helper()
	return NewStateless(newManager(t, dev), p, WithLogger(zaptest.NewLogger(t)))
}

func TestStateless_StartMission(t *testing.T) {
	dev := cloudDevice().On("ST1;M2;", replySendOK+"\r\n+IPD,9:MID1;3;4;CLOSED\r\n")
	s := newStateless(t, dev, mission.BasicMissionProtocol{StationID: "ST1"})

	got, err := s.StartMission("M2")
	if err != nil {
		t.Fatalf("StartMission() error: %v", err)
	}
	if got != "MID1;3;4;" {
		t.Errorf("StartMission() = %q, want %q", got, "MID1;3;4;")
	}
	if lastLine(dev) != espat.CmdClose {
		t.Errorf("last line = %q, want the connection closed", lastLine(dev))
	}
	if got := dev.Count("AT+CIPSEND=9"); got != 1 {
		t.Errorf("CIPSEND=9 count = %d, want 1", got)
	}
}

func TestStateless_CompleteMissionTokened(t *testing.T) {
	dev := cloudDevice().On("ST1;tok;MID1;42;", replySendOK+"+IPD,7:MID1;1;")
	s := newStateless(t, dev, mission.TokenedMissionProtocol{StationID: "ST1", Token: "tok"})

	got, err := s.CompleteMission("MID1", "42")
	if err != nil {
		t.Fatalf("CompleteMission() error: %v", err)
	}
	if got != "MID1;1;" {
		t.Errorf("CompleteMission() = %q, want %q", got, "MID1;1;")
	}
}

func TestStateless_FailureReplies(t *testing.T) {
	tests := []struct {
		name      string
		dev       *espattest.Device
		call      func(*Stateless) (string, error)
		want      string
		wantErr   error
		wantStart int
	}{
		{
			name: "no wifi",
			dev:  espattest.NewDevice().On(espat.CmdLocalAddress, replyStationDown),
			call: func(s *Stateless) (string, error) { return s.StartMission("M2") },
			want: ReplyNoWifi, wantErr: link.ErrWifiDown, wantStart: 0,
		},
		{
			name: "cloud refused",
			dev: espattest.NewDevice().
				On(espat.CmdLocalAddress, replyStationUp).
				On("AT+CIPSTART", "ERROR\r\nCLOSED\r\n"),
			call: func(s *Stateless) (string, error) { return s.CompleteMission("MID1", "1") },
			want: ReplyCloudFailed, wantErr: link.ErrCloudUnreachable, wantStart: 1,
		},
		{
			name: "start without +IPD",
			dev:  cloudDevice().On("ST1;M2;", replySendOK),
			call: func(s *Stateless) (string, error) { return s.StartMission("M2") },
			want: ReplyStartFailed, wantErr: mission.ErrNoReply, wantStart: 1,
		},
		{
			name: "complete without +IPD",
			dev:  cloudDevice(),
			call: func(s *Stateless) (string, error) { return s.CompleteMission("MID1", "1") },
			want: ReplyCompleteFailed, wantErr: mission.ErrNoReply, wantStart: 1,
		},
		{
			name: "delimiter in mission type",
			dev:  cloudDevice(),
			call: func(s *Stateless) (string, error) { return s.StartMission("a;b") },
			want: ReplyStartFailed, wantErr: mission.ErrFieldDelimiter, wantStart: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStateless(t, tt.dev, mission.BasicMissionProtocol{StationID: "ST1"})

			got, err := tt.call(s)
			if got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if n := tt.dev.Count("AT+CIPSTART"); n != tt.wantStart {
				t.Errorf("CIPSTART count = %d, want %d", n, tt.wantStart)
			}
		})
	}
}

func TestStateless_AlwaysDisconnects(t *testing.T) {
	dev := cloudDevice()
	m := newManager(t, dev)
	s := NewStateless(m, mission.BasicMissionProtocol{StationID: "ST1"})

	if _, err := s.StartMission("M2"); err == nil {
		t.Fatal("StartMission() succeeded without a reply")
	}
	if m.State() != link.StateDisconnected {
		t.Errorf("State() = %v, want %v", m.State(), link.StateDisconnected)
	}
	if lastLine(dev) != espat.CmdClose {
		t.Errorf("last line = %q, want %q", lastLine(dev), espat.CmdClose)
	}
}

func TestStateless_RequeriesStatusEveryCall(t *testing.T) {
	dev := cloudDevice().On("ST1;M2;", "+IPD,4:ok;;")
	s := newStateless(t, dev, mission.BasicMissionProtocol{StationID: "ST1"})

	for i := 0; i < 3; i++ {
		if _, err := s.StartMission("M2"); err != nil {
			t.Fatalf("StartMission() #%d error: %v", i+1, err)
		}
	}
	if got := dev.Count(espat.CmdLocalAddress); got != 3 {
		t.Errorf("status checks = %d, want 3", got)
	}
	if got := dev.Count(espat.CmdRestore); got != 0 {
		t.Errorf("restore count = %d, the stateless session never joins", got)
	}
}
