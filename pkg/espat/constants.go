// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package espat drives an ESP8266-class modem over a byte channel using
// textual AT commands.
//
// The package provides the command transport (send with settle pause, timed
// reads, drain of stale input), the byte channel abstraction with serial and
// WebSocket implementations, and the debug sideband used to mirror traffic.
// It knows nothing about WiFi or cloud state; see package link for that.
package espat

import (
	"fmt"
	"time"
)

// Terminator is appended to every outbound command line.
const Terminator = "\r\n"

// AT commands consumed by the station bring-up sequence
const (
	CmdAttention        = "AT"
	CmdRestore          = "AT+RESTORE"
	CmdReset            = "AT+RST"
	CmdEchoOff          = "ATE0"
	CmdStationMode      = "AT+CWMODE=1"
	CmdNormalTransfer   = "AT+CIPMODE=0"
	CmdSingleConnection = "AT+CIPMUX=0"
	CmdAutoConnect      = "AT+CWAUTOCONN=1"
	CmdSleepOff         = "AT+SLEEP=0"
	CmdLocalAddress     = "AT+CIFSR"
	CmdClose            = "AT+CIPCLOSE"
)

// Response markers. Classification is by substring containment because the
// firmware's line framing around result codes is not consistent.
const (
	MarkerOK        = "OK"
	MarkerStationIP = "+CIFSR:STAIP"
	MarkerNoAddress = "0.0.0.0"
	MarkerConnect   = "CONNECT"
	MarkerReceive   = "+IPD"
	MarkerPrompt    = ">"
)

// Transport defaults
const (
	DefaultReadLatency = 1000 * time.Millisecond // pause before the first poll of every read
	DefaultReadTimeout = 5000 * time.Millisecond
	DefaultDrainPause  = 500 * time.Millisecond
	DefaultPollPeriod  = 10 * time.Millisecond
	DefaultBufferSize  = 128 // RX/TX capacity of the reference hardware

	minPollPeriod = time.Millisecond
	maxDrainPolls = 64
)

// Command builders insert values verbatim, without escaping.

// HostnameCommand returns AT+CWHOSTNAME for the given station name.
func HostnameCommand(name string) string {
	return `AT+CWHOSTNAME="` + name + `"`
}

// JoinCommand returns AT+CWJAP joining the access point ssid.
func JoinCommand(ssid, passphrase string) string {
	return `AT+CWJAP="` + ssid + `","` + passphrase + `"`
}

// StartTCPCommand returns AT+CIPSTART opening a TCP connection to host:port.
func StartTCPCommand(host, port string) string {
	return `AT+CIPSTART="TCP","` + host + `",` + port
}

// SendCommand returns AT+CIPSEND announcing n bytes of payload.
func SendCommand(n int) string {
	return fmt.Sprintf("AT+CIPSEND=%d", n)
}
