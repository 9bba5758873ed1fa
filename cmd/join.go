// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/wrocloud/pkg/session"
	"github.com/spf13/cobra"
)

var joinCloud bool

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Configure the modem and join the WiFi network",
	Long: `Restore the modem to factory settings, configure single-connection
station mode and join the WiFi network given by --ssid.

The WiFi status is polled until the station has an address. By default this
never gives up; bound it with --max-attempts and pace it with --backoff.

With --cloud, a single TCP connection to the cloud endpoint is opened and
closed again once WiFi is up.

Exit codes:
  0 - Joined (and reached the cloud with --cloud)
  1 - Gave up joining, or the cloud was unreachable
  2 - Connection or configuration error`,
	RunE: runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)
	joinCmd.Flags().BoolVar(&joinCloud, "cloud", false, "Also test the cloud endpoint")
}

func runJoin(cmd *cobra.Command, args []string) error {
	st, err := openStation(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer st.Close()

	fmt.Printf("wrocloud - WiFi Join\n")
	fmt.Printf("Connection: %s\n", st.conn.info)
	fmt.Printf("Network: %s\n\n", ssid)

	if err := st.link.JoinWiFi(); err != nil {
		exitOnFailure(st, "JOIN FAILED", err)
	}
	fmt.Printf("WiFi: %s\n", st.link.State())

	if joinCloud {
		if err := st.link.ConnectCloudOnce(); err != nil {
			exitOnFailure(st, "CLOUD FAILED", err)
		}
		fmt.Printf("Cloud: reached %s:%s\n", cloudHost, cloudPort)
		if err := st.link.Disconnect(); err != nil {
			return err
		}
	}
	return nil
}

// exitOnFailure reports err and exits with 2 for configuration and
// transport problems, 1 otherwise.
func exitOnFailure(st *station, label string, err error) {
	st.Close()
	outcome := session.Classify(err)
	fmt.Fprintf(os.Stderr, "%s (%s): %v\n", label, outcome, err)
	if outcome == session.OutcomeUnconfigured || outcome == session.OutcomeTransport {
		os.Exit(2)
	}
	os.Exit(1)
}
