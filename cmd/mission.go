// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/wrocloud/pkg/mission"
	"github.com/Thermoquad/wrocloud/pkg/session"
	"github.com/spf13/cobra"
)

var missionCmd = &cobra.Command{
	Use:   "mission",
	Short: "Run mission transactions against the cloud endpoint",
	Long: `Start or complete a mission.

In stateless mode (default) every call checks WiFi, connects once, sends the
request and disconnects; the reply or a fixed ERROR;nn; string is printed.
In stateful mode WiFi is joined first and the decoded mission record is
printed.

Requests use the tokened protocol when WROCLOUD_STATION_TOKEN (or cloud.token
in the station file) is set, the basic protocol otherwise.

Exit codes:
  0 - Transaction succeeded
  1 - No or malformed reply, WiFi down or cloud unreachable
  2 - Connection or configuration error`,
}

var missionStartCmd = &cobra.Command{
	Use:   "start <type>",
	Short: "Create a mission of the given type",
	Args:  cobra.ExactArgs(1),
	RunE:  runMissionStart,
}

var missionCompleteCmd = &cobra.Command{
	Use:   "complete <id> <data>",
	Short: "Complete a mission with its result data",
	Args:  cobra.ExactArgs(2),
	RunE:  runMissionComplete,
}

func init() {
	rootCmd.AddCommand(missionCmd)
	missionCmd.AddCommand(missionStartCmd)
	missionCmd.AddCommand(missionCompleteCmd)
}

func runMissionStart(cmd *cobra.Command, args []string) error {
	return runMission(args[0], "", "")
}

func runMissionComplete(cmd *cobra.Command, args []string) error {
	return runMission("", args[0], args[1])
}

// runMission starts a mission of missionType, or completes missionID when
// missionType is empty.
func runMission(missionType, missionID, data string) error {
	mode, err := session.ParseMode(sessionMode)
	if err != nil {
		return err
	}

	st, err := openStation(mode == session.ModeStateful)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("wrocloud - Mission\n")
	fmt.Printf("Connection: %s\n", st.conn.info)
	fmt.Printf("Mode: %s, protocol: %s\n\n", mode, st.proto.Name())

	opts := []session.Option{session.WithLogger(st.log.Named("session"))}

	if mode == session.ModeStateless {
		s := session.NewStateless(st.link, st.proto, opts...)
		var reply string
		if missionType != "" {
			reply, err = s.StartMission(missionType)
		} else {
			reply, err = s.CompleteMission(missionID, data)
		}
		fmt.Printf("Reply: %s\n", reply)
		if err != nil {
			exitOnFailure(st, "MISSION FAILED", err)
		}
		return nil
	}

	s := session.NewStateful(st.link, st.proto, opts...)
	if missionType != "" {
		err = s.StartMission(missionType)
	} else {
		err = s.EndMission(missionID, data)
	}
	printRecord(s.Record())
	if err != nil {
		exitOnFailure(st, "MISSION FAILED", err)
	}
	return nil
}

func printRecord(r mission.Record) {
	fmt.Printf("Record: %s\n", r)
	fmt.Printf("Valid:  id=%v result=%v\n", r.IDValid(), r.ResultValid())
}
