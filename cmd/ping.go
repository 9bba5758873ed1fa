// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/espat"
	"github.com/spf13/cobra"
)

var (
	pingTimeout time.Duration
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the modem link by sending AT and waiting for OK",
	Long: `Send the bare AT command repeatedly and wait for OK.

This verifies that the channel works in both directions (serial port or
WebSocket bridge) and that the modem firmware is responsive, without
changing any modem setting.

Exit codes:
  0 - All pings answered
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 2*time.Second, "Timeout for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	st, err := openStation(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer st.Close()

	fmt.Printf("wrocloud - Modem Ping Test\n")
	fmt.Printf("Connection: %s\n", st.conn.info)
	fmt.Printf("Timeout: %v per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	clock := st.tr.Clock()
	successCount := 0
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		if err := st.tr.Drain(); err != nil {
			fmt.Printf("DRAIN FAILED: %v\n", err)
			failCount++
			continue
		}

		startTime := clock.Now()
		if err := st.tr.Send(espat.CmdAttention, 0); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		resp, err := st.tr.ReadUntil(espat.MarkerOK, pingTimeout)
		switch {
		case err != nil:
			fmt.Printf("READ FAILED: %v\n", err)
			failCount++
		case strings.Contains(resp, espat.MarkerOK):
			rtt := clock.Now().Sub(startTime)
			fmt.Printf("OK, rtt=%v\n", rtt.Round(time.Millisecond))
			successCount++
		default:
			fmt.Printf("TIMEOUT (no OK in %v)\n", pingTimeout)
			failCount++
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d answered, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		st.Close()
		os.Exit(1)
	}
	return nil
}
