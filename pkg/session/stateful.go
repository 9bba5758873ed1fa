// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/link"
	"github.com/Thermoquad/wrocloud/pkg/mission"
	"go.uber.org/zap"
)

// Stateful keeps the connection flags and the Record of the current
// mission. WiFi is joined once under the manager's retry policy; the cloud
// connection is opened for each transaction and always closed after it.
//
// Failures leave the Record fields unset, so the validity accessors
// report them.
type Stateful struct {
	link  *link.Manager
	proto mission.Protocol
	log   *zap.Logger

	record         mission.Record
	wifiConnected  bool
	cloudConnected bool
}

// NewStateful creates a stateful session over m with an unset Record.
func NewStateful(m *link.Manager, p mission.Protocol, opts ...Option) *Stateful {
	o := buildOptions(opts)
	return &Stateful{
		link:   m,
		proto:  p,
		log:    o.log,
		record: mission.NewRecord(),
	}
}

// ResetMission clears the Record and the cloud flag.
func (s *Stateful) ResetMission() {
	s.record.Reset()
	s.cloudConnected = false
}

// StartMission resets the Record and asks the cloud for a new mission of
// missionType. A valid reply fills in the mission id and coordinates.
func (s *Stateful) StartMission(missionType string) error {
	s.ResetMission()

	payload, err := s.proto.EncodeStart(missionType)
	if err != nil {
		return err
	}
	body, err := s.transact(payload, startPrepare)
	if err != nil {
		return fmt.Errorf("mission start: %w", err)
	}
	reply, err := mission.DecodeStart(body)
	if err != nil {
		return err
	}

	s.record.ApplyStart(reply)
	s.log.Info("mission started", zap.Stringer("record", s.record))
	return nil
}

// EndMission reports data for missionID. A valid reply fills in the result.
func (s *Stateful) EndMission(missionID, data string) error {
	payload, err := s.proto.EncodeComplete(missionID, data)
	if err != nil {
		return err
	}
	body, err := s.transact(payload, completePrepare)
	if err != nil {
		return fmt.Errorf("mission end: %w", err)
	}
	reply, err := mission.DecodeComplete(body)
	if err != nil {
		return err
	}

	s.record.ApplyComplete(reply)
	s.log.Info("mission ended", zap.Stringer("record", s.record))
	return nil
}

// transact connects, sends payload and returns the unwrapped reply. The
// connection is closed whatever happens once it was opened.
func (s *Stateful) transact(payload string, prepare time.Duration) (string, error) {
	if err := s.connect(); err != nil {
		return "", err
	}

	resp, err := s.link.Transmit(payload, prepare)
	if derr := s.Disconnect(); derr != nil {
		err = errors.Join(err, derr)
	}
	if err != nil {
		return "", err
	}
	return mission.Unwrap(resp)
}

// JoinWiFi runs the full WiFi bring-up under the manager's retry policy.
func (s *Stateful) JoinWiFi() error {
	if err := s.link.JoinWiFi(); err != nil {
		s.wifiConnected = false
		return err
	}
	s.wifiConnected = true
	return nil
}

// RefreshWiFi re-queries the station address. When the modem lost its
// address the next transaction joins again.
func (s *Stateful) RefreshWiFi() (bool, error) {
	up, err := s.link.StatusCheck()
	if err != nil {
		return false, err
	}
	s.wifiConnected = up
	return up, nil
}

// Disconnect closes the cloud connection.
func (s *Stateful) Disconnect() error {
	s.cloudConnected = false
	return s.link.Disconnect()
}

func (s *Stateful) connect() error {
	if !s.wifiConnected {
		if err := s.JoinWiFi(); err != nil {
			return err
		}
	}

	if err := s.link.ConnectCloud(); err != nil {
		s.cloudConnected = false
		return err
	}
	s.cloudConnected = true
	return nil
}

// MissionID returns the current mission id, UnsetMissionID when unset.
func (s *Stateful) MissionID() string { return s.record.MissionID }

// MissionX returns the X coordinate of the current mission.
func (s *Stateful) MissionX() int { return s.record.X }

// MissionY returns the Y coordinate of the current mission.
func (s *Stateful) MissionY() int { return s.record.Y }

// MissionResult returns the result code of the current mission.
func (s *Stateful) MissionResult() int { return s.record.Result }

// IsMissionIDValid reports whether a mission id was received.
func (s *Stateful) IsMissionIDValid() bool { return s.record.IDValid() }

// IsMissionResultValid reports whether the result is 0 or 1.
func (s *Stateful) IsMissionResultValid() bool { return s.record.ResultValid() }

// Record returns a copy of the mission record.
func (s *Stateful) Record() mission.Record { return s.record }

// WifiConnected reports whether WiFi was joined by this session.
func (s *Stateful) WifiConnected() bool { return s.wifiConnected }

// CloudConnected reports whether a cloud connection is open.
func (s *Stateful) CloudConnected() bool { return s.cloudConnected }

// State returns the state of the underlying link.
func (s *Stateful) State() link.State { return s.link.State() }
