// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link manages the modem's WiFi association and its single TCP
// connection to the cloud endpoint.
package link

import (
	"errors"
	"fmt"
)

// State is the connection state of a Manager.
type State int

const (
	StateUnconfigured State = iota
	StateWifiJoining
	StateWifiUp
	StateCloudConnecting
	StateCloudConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateWifiJoining:
		return "wifi-joining"
	case StateWifiUp:
		return "wifi-up"
	case StateCloudConnecting:
		return "cloud-connecting"
	case StateCloudConnected:
		return "cloud-connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrUnconfigured is returned when credentials or endpoint are missing.
	ErrUnconfigured = errors.New("link not configured")
	// ErrWifiDown is returned when the station has no IP address.
	ErrWifiDown = errors.New("wifi not connected")
	// ErrCloudUnreachable is returned when CIPSTART never reported CONNECT.
	ErrCloudUnreachable = errors.New("cloud connect failed")
	// ErrNotConnected is returned by Transmit outside CloudConnected.
	ErrNotConnected = errors.New("no cloud connection")
)
