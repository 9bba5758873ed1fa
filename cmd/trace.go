// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/trace"
	"github.com/spf13/cobra"
)

var traceRelative bool

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Print a traffic trace recorded with --trace",
	Long: `Decode a CBOR traffic trace written by any command run with --trace and
print one line per command (>>) and response buffer (<<).

Control characters are escaped, so line terminators show as \r\n.`,
	Args: cobra.ExactArgs(1),
	// No modem or station settings are needed to read a trace
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().BoolVar(&traceRelative, "relative", false, "Show time relative to the first entry")
}

func runTrace(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	entries, err := trace.ReadAll(f)

	var start time.Time
	if traceRelative && len(entries) > 0 {
		start = entries[0].Timestamp()
	}

	outbound, inbound := 0, 0
	for _, e := range entries {
		fmt.Println(trace.Format(e, start))
		if e.Dir == trace.Outbound {
			outbound++
		} else {
			inbound++
		}
	}

	fmt.Printf("\n--- %d commands, %d responses ---\n", outbound, inbound)
	return err
}
