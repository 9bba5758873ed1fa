// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mission encodes mission requests for the cloud endpoint and
// decodes the replies it sends back inside +IPD notifications.
//
// Requests are plain text: fields joined by ';' with a trailing ';'.
// There is no escaping, so a field may not itself contain ';'.
package mission

import (
	"errors"
	"fmt"
	"strings"
)

// FieldSeparator delimits request and reply fields
const FieldSeparator = ";"

// ErrFieldDelimiter is returned when a request field contains FieldSeparator
var ErrFieldDelimiter = errors.New("field contains the ';' delimiter")

// Protocol encodes the two mission requests
type Protocol interface {
	// Name identifies the protocol in logs and the CLI
	Name() string
	// EncodeStart builds the request creating a mission of missionType
	EncodeStart(missionType string) (string, error)
	// EncodeComplete builds the request finalising missionID with data
	EncodeComplete(missionID, data string) (string, error)
}

// BasicMissionProtocol identifies the station by id only.
//
//	start:    <station_id>;<mission_type>;
//	complete: <mission_id>;<mission_data>;
type BasicMissionProtocol struct {
	StationID string
}

func (BasicMissionProtocol) Name() string { return "basic" }

func (p BasicMissionProtocol) EncodeStart(missionType string) (string, error) {
	return encode(p.StationID, missionType)
}

func (p BasicMissionProtocol) EncodeComplete(missionID, data string) (string, error) {
	return encode(missionID, data)
}

// TokenedMissionProtocol authenticates every request with the station token.
//
//	start:    <station_id>;<station_token>;<mission_type>;
//	complete: <station_id>;<station_token>;<mission_id>;<mission_data>;
type TokenedMissionProtocol struct {
	StationID string
	Token     string
}

func (TokenedMissionProtocol) Name() string { return "tokened" }

func (p TokenedMissionProtocol) EncodeStart(missionType string) (string, error) {
	return encode(p.StationID, p.Token, missionType)
}

func (p TokenedMissionProtocol) EncodeComplete(missionID, data string) (string, error) {
	return encode(p.StationID, p.Token, missionID, data)
}

// ForStation returns TokenedMissionProtocol when token is set and
// BasicMissionProtocol otherwise.
func ForStation(stationID, token string) Protocol {
	if token != "" {
		return TokenedMissionProtocol{StationID: stationID, Token: token}
	}
	return BasicMissionProtocol{StationID: stationID}
}

// SendLength returns the byte count announced with AT+CIPSEND for payload,
// which includes the CR LF terminator.
func SendLength(payload string) int {
	return len(payload) + 2
}

func encode(fields ...string) (string, error) {
	var sb strings.Builder
	for i, f := range fields {
		if strings.Contains(f, FieldSeparator) {
			return "", fmt.Errorf("%w: field %d %q", ErrFieldDelimiter, i, f)
		}
		sb.WriteString(f)
		sb.WriteString(FieldSeparator)
	}
	return sb.String(), nil
}
