// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// wrocloud - WROHellas cloud station over an ESP8266 modem
//
// A CLI tool that drives the modem with AT commands to join WiFi, reach the
// cloud endpoint and run mission transactions.

package main

import (
	"os"

	"github.com/Thermoquad/wrocloud/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
