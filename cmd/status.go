// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check once whether the modem has a WiFi address",
	Long: `Query the station address (AT+CIFSR) once and report whether WiFi is up.

The modem counts as connected when it reports a station IP other than
0.0.0.0. Nothing is configured or joined by this command.

Exit codes:
  0 - WiFi is up
  1 - WiFi is down
  2 - Connection error`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := openStation(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer st.Close()

	fmt.Printf("wrocloud - WiFi Status\n")
	fmt.Printf("Connection: %s\n\n", st.conn.info)

	up, err := st.link.StatusCheck()
	if err != nil {
		st.Close()
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)
	}

	if !up {
		st.Close()
		fmt.Fprintf(os.Stderr, "DOWN: modem has no station address\n")
		os.Exit(1)
	}

	fmt.Printf("UP: modem has a station address\n")
	return nil
}
