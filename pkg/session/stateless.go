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

// Fixed replies of a failed stateless transaction
const (
	ReplyNoWifi         = "ERROR;00;"
	ReplyCloudFailed    = "ERROR;01;"
	ReplyStartFailed    = "ERROR;02;"
	ReplyCompleteFailed = "ERROR;03;"
)

// Stateless runs each mission call as an independent transaction: query
// the WiFi status, connect once, send, read, disconnect. A call returns
// the reply payload, or one of the fixed Reply strings together with the
// error that caused it.
type Stateless struct {
	link  *link.Manager
	proto mission.Protocol
	log   *zap.Logger
}

// NewStateless creates a stateless session over m.
func NewStateless(m *link.Manager, p mission.Protocol, opts ...Option) *Stateless {
	o := buildOptions(opts)
	return &Stateless{link: m, proto: p, log: o.log}
}

// StartMission asks the cloud for a new mission of missionType.
func (s *Stateless) StartMission(missionType string) (string, error) {
	payload, err := s.proto.EncodeStart(missionType)
	if err != nil {
		return ReplyStartFailed, err
	}
	return s.transact("start", payload, startPrepare, ReplyStartFailed)
}

// CompleteMission reports data for missionID.
func (s *Stateless) CompleteMission(missionID, data string) (string, error) {
	payload, err := s.proto.EncodeComplete(missionID, data)
	if err != nil {
		return ReplyCompleteFailed, err
	}
	return s.transact("complete", payload, completePrepare, ReplyCompleteFailed)
}

func (s *Stateless) transact(op, payload string, prepare time.Duration, failed string) (string, error) {
	up, err := s.link.StatusCheck()
	if err != nil {
		return ReplyNoWifi, err
	}
	if !up {
		return ReplyNoWifi, link.ErrWifiDown
	}

	if err := s.link.ConnectCloudOnce(); err != nil {
		return ReplyCloudFailed, err
	}

	resp, err := s.link.Transmit(payload, prepare)
	if derr := s.link.Disconnect(); derr != nil {
		err = errors.Join(err, derr)
	}
	if err != nil && resp == "" {
		return failed, err
	}

	reply, uerr := mission.Unwrap(resp)
	if uerr != nil {
		s.log.Warn("mission "+op+" failed", zap.String("response", resp))
		return failed, errors.Join(fmt.Errorf("mission %s: %w", op, uerr), err)
	}
	s.log.Info("mission "+op, zap.String("reply", reply))
	return reply, err
}
