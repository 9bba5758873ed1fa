// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Environment variables holding secrets
const (
	envWifiPassword   = "WROCLOUD_WIFI_PASSWORD"
	envStationToken   = "WROCLOUD_STATION_TOKEN"
	envBridgePassword = "WROCLOUD_BRIDGE_PASSWORD"
)

// stationFile is the layout of the --config file:
//
//	station = "ST1"
//	mode    = "stateful"
//
//	wifi {
//	  ssid       = "net"
//	  passphrase = "pw"
//	}
//	cloud {
//	  host  = "1.2.3.4"
//	  port  = "80"
//	  token = "secret"
//	}
//	serial {
//	  port = "/dev/ttyUSB0"
//	  baud = 115200
//	}
//	retry {
//	  max_attempts = 5
//	  backoff      = "exponential"
//	  delay        = "2s"
//	}
type stationFile struct {
	Station string `hcl:"station"`
	Mode    string `hcl:"mode"`

	Wifi struct {
		SSID       string `hcl:"ssid"`
		Passphrase string `hcl:"passphrase"`
	} `hcl:"wifi"`

	Cloud struct {
		Host  string `hcl:"host"`
		Port  string `hcl:"port"`
		Token string `hcl:"token"`
	} `hcl:"cloud"`

	Serial struct {
		Port string `hcl:"port"`
		Baud int    `hcl:"baud"`
	} `hcl:"serial"`

	Retry struct {
		MaxAttempts int    `hcl:"max_attempts"`
		Backoff     string `hcl:"backoff"`
		Delay       string `hcl:"delay"`
	} `hcl:"retry"`
}

// Secrets, filled from the station file and the environment
var (
	wifiPassphrase string
	stationToken   string
)

func parseStationFile(data []byte) (*stationFile, error) {
	var f stationFile
	if err := hcl.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse station file: %w", err)
	}
	return &f, nil
}

func loadStationFile(path string) (*stationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read station file: %w", err)
	}
	return parseStationFile(data)
}

// applyStationFile copies file values into every setting whose flag was
// not given on the command line.
func applyStationFile(fs *pflag.FlagSet, f *stationFile) error {
	setString := func(flag string, dst *string, v string) {
		if v != "" && !fs.Changed(flag) {
			*dst = v
		}
	}

	setString("station", &stationID, f.Station)
	setString("mode", &sessionMode, f.Mode)
	setString("ssid", &ssid, f.Wifi.SSID)
	setString("host", &cloudHost, f.Cloud.Host)
	setString("cloud-port", &cloudPort, f.Cloud.Port)
	setString("port", &portName, f.Serial.Port)
	setString("backoff", &backoffKind, f.Retry.Backoff)

	if f.Serial.Baud > 0 && !fs.Changed("baud") {
		baudRate = f.Serial.Baud
	}
	if f.Retry.MaxAttempts > 0 && !fs.Changed("max-attempts") {
		maxAttempts = f.Retry.MaxAttempts
	}
	if f.Retry.Delay != "" && !fs.Changed("retry-delay") {
		d, err := time.ParseDuration(f.Retry.Delay)
		if err != nil {
			return fmt.Errorf("invalid retry delay %q: %w", f.Retry.Delay, err)
		}
		retryDelay = d
	}

	if f.Wifi.Passphrase != "" {
		wifiPassphrase = f.Wifi.Passphrase
	}
	if f.Cloud.Token != "" {
		stationToken = f.Cloud.Token
	}
	return nil
}

// applyEnvironment lets the environment override secrets from the file
func applyEnvironment() {
	if pw := os.Getenv(envWifiPassword); pw != "" {
		wifiPassphrase = pw
	}
	if tok := os.Getenv(envStationToken); tok != "" {
		stationToken = tok
	}
}

// loadSettings runs before every command
func loadSettings(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		f, err := loadStationFile(configPath)
		if err != nil {
			return err
		}
		if err := applyStationFile(cmd.Flags(), f); err != nil {
			return err
		}
	}
	applyEnvironment()
	if simulate {
		applySimulationDefaults()
	}
	return nil
}
