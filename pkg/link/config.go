// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "fmt"

// Config holds the WiFi and cloud settings of a station. StationToken is
// only used by the tokened mission protocol.
type Config struct {
	SSID         string
	Passphrase   string
	CloudHost    string
	CloudPort    string
	StationID    string
	StationToken string
}

// WifiReady reports whether the WiFi credentials are present.
func (c Config) WifiReady() error {
	if c.SSID == "" || c.Passphrase == "" {
		return fmt.Errorf("%w: wifi ssid and passphrase are required", ErrUnconfigured)
	}
	return nil
}

// CloudReady reports whether the cloud endpoint is present.
func (c Config) CloudReady() error {
	if c.CloudHost == "" || c.CloudPort == "" {
		return fmt.Errorf("%w: cloud host and port are required", ErrUnconfigured)
	}
	return nil
}
