// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/espat"
	"github.com/spf13/cobra"
)

var (
	atTimeout time.Duration
	atSettle  time.Duration
)

var atCmd = &cobra.Command{
	Use:   "at [command...]",
	Short: "Send raw AT commands and print the responses",
	Long: `Send AT commands to the modem and print whatever it answers.

Each argument is sent as one command line; pending input is drained first.
Without arguments, commands are read from stdin one per line, which makes
this an interactive console.

Examples:
  wrocloud at -p /dev/ttyUSB0 AT AT+GMR
  wrocloud at -p /dev/ttyUSB0 'AT+CWLAP'`,
	RunE: runAT,
}

func init() {
	rootCmd.AddCommand(atCmd)
	atCmd.Flags().DurationVar(&atTimeout, "timeout", espat.DefaultReadTimeout, "Response window per command")
	atCmd.Flags().DurationVar(&atSettle, "settle", 100*time.Millisecond, "Pause after writing each command")
}

func runAT(cmd *cobra.Command, args []string) error {
	st, err := openStation(false)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("wrocloud - AT Console\n")
	fmt.Printf("Connection: %s\n", st.conn.info)

	if len(args) > 0 {
		fmt.Println()
		for _, line := range args {
			if err := exchange(st.tr, line); err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Printf("Type commands, Ctrl+D to exit\n\n")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := exchange(st.tr, line); err != nil {
			return err
		}
	}
}

// exchange sends one command and prints the response
func exchange(tr *espat.Transport, line string) error {
	if err := tr.Drain(); err != nil {
		return err
	}
	if err := tr.Send(line, atSettle); err != nil {
		return err
	}
	resp, err := tr.Read(atTimeout)
	if err != nil {
		return err
	}

	fmt.Printf(">> %s\n", line)
	if resp == "" {
		fmt.Printf("(no response)\n\n")
		return nil
	}
	for _, l := range strings.Split(strings.TrimRight(resp, "\r\n"), espat.Terminator) {
		fmt.Printf("<< %s\n", l)
	}
	fmt.Println()
	return nil
}
