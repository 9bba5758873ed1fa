// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/wrocloud/pkg/espat"
	"github.com/Thermoquad/wrocloud/pkg/espat/espattest"
	"github.com/Thermoquad/wrocloud/pkg/link"
)

// simMissionID is handed out by the simulated cloud
const simMissionID = "SIM0001"

// applySimulationDefaults fills in any station setting left empty so that
// --simulate works without further flags.
func applySimulationDefaults() {
	defaults := []struct {
		dst *string
		v   string
	}{
		{&ssid, "sim-net"},
		{&wifiPassphrase, "sim-pass"},
		{&cloudHost, "192.0.2.1"},
		{&cloudPort, "8080"},
		{&stationID, "SIM-ST"},
	}
	for _, d := range defaults {
		if *d.dst == "" {
			*d.dst = d.v
		}
	}
}

// ipdReply frames payload the way the firmware reports received data
func ipdReply(payload string) string {
	return fmt.Sprintf("\r\nSEND OK\r\n\r\n+IPD,%d:%sCLOSED\r\n", len(payload), payload)
}

// newSimulatedModem scripts a healthy modem in front of a cloud endpoint
// that answers every mission of cfg's station.
func newSimulatedModem(cfg link.Config) *espattest.Device {
	start := cfg.StationID + ";"
	complete := simMissionID + ";"
	if cfg.StationToken != "" {
		start += cfg.StationToken + ";"
		complete = start + complete
	}

	// Specific rules first: prefixes are tried in order
	return espattest.NewDevice().
		On(espat.CmdReset, "\r\nOK\r\n\r\nready\r\n").
		On(espat.CmdLocalAddress, "+CIFSR:STAIP,\"192.168.4.2\"\r\n+CIFSR:STAMAC,\"5c:cf:7f:00:00:01\"\r\n\r\nOK\r\n").
		On("AT+CIPSTART", "CONNECT\r\n\r\nOK\r\n").
		On("AT+CIPSEND=", "\r\nOK\r\n> ").
		On(espat.CmdClose, "CLOSED\r\n\r\nOK\r\n").
		On(complete, ipdReply(simMissionID+";1;")).
		On(start, ipdReply(simMissionID+";3;4;")).
		On(espat.CmdAttention, "\r\nOK\r\n")
}
