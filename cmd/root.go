// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Station flags
	ssid       string
	cloudHost  string
	cloudPort  string
	stationID  string
	configPath string

	// Behaviour flags
	sessionMode string
	readMode    string
	maxAttempts int
	backoffKind string
	retryDelay  time.Duration
	simulate    bool

	// Diagnostics flags
	debugTraffic bool
	tracePath    string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "wrocloud",
	Short: "WROHellas cloud station over an ESP8266 modem",
	Long: `wrocloud - drive an ESP8266 WiFi modem with AT commands to join a network,
reach the WROHellas cloud endpoint and exchange mission requests.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]   (serial-over-websocket bridge)
  Offline:   --simulate                               (scripted modem, no hardware)

Station settings come from flags or from an HCL file given with --config;
flags win over the file. Secrets are never taken from flags:
  WROCLOUD_WIFI_PASSWORD    WiFi passphrase (prompted when unset)
  WROCLOUD_STATION_TOKEN    station token, selects the tokened mission protocol
  WROCLOUD_BRIDGE_PASSWORD  WebSocket bridge password (prompted when unset)`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	pf := rootCmd.PersistentFlags()

	// Serial connection flags
	pf.StringVarP(&portName, "port", "p", "", "Serial port device")
	pf.IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket bridge flags
	pf.StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	pf.StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	pf.BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Station flags
	pf.StringVar(&ssid, "ssid", "", "WiFi network name")
	pf.StringVar(&cloudHost, "host", "", "Cloud endpoint host")
	pf.StringVar(&cloudPort, "cloud-port", "", "Cloud endpoint TCP port")
	pf.StringVar(&stationID, "station", "", "Station id (also set as modem hostname)")
	pf.StringVar(&configPath, "config", "", "Station HCL file")

	// Behaviour flags
	pf.StringVar(&sessionMode, "mode", "stateless", "Session mode: stateless or stateful")
	pf.StringVar(&readMode, "read-mode", "early", "Response read mode: early or full")
	pf.IntVar(&maxAttempts, "max-attempts", 0, "Attempts for WiFi join and cloud connect (0 = until success)")
	pf.StringVar(&backoffKind, "backoff", "none", "Pause between attempts: none, fixed or exponential")
	pf.DurationVar(&retryDelay, "retry-delay", time.Second, "Fixed or initial exponential pause between attempts")
	pf.BoolVar(&simulate, "simulate", false, "Use a scripted in-memory modem")

	// Diagnostics flags
	pf.BoolVar(&debugTraffic, "debug", false, "Log every command and response")
	pf.StringVar(&tracePath, "trace", "", "Record modem traffic to a CBOR trace file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
