// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mission

import (
	"fmt"
	"strings"
)

// Unset values of a Record
const (
	UnsetMissionID  = "ERROR"
	UnsetCoordinate = -999
	UnsetResult     = -1
)

// Record is the last known state of a mission
type Record struct {
	MissionID string
	X         int
	Y         int
	Result    int
}

// NewRecord returns a record with every field unset
func NewRecord() Record {
	return Record{
		MissionID: UnsetMissionID,
		X:         UnsetCoordinate,
		Y:         UnsetCoordinate,
		Result:    UnsetResult,
	}
}

// Reset restores every field to its unset value
func (r *Record) Reset() {
	*r = NewRecord()
}

// ApplyStart stores the fields of a start-mission reply
func (r *Record) ApplyStart(s StartReply) {
	r.MissionID = s.MissionID
	r.X = s.X
	r.Y = s.Y
}

// ApplyComplete stores the result of a complete-mission reply
func (r *Record) ApplyComplete(c CompleteReply) {
	r.Result = c.Result
}

// IDValid reports whether the mission id is set and carries no error
// marker, in any letter case.
func (r Record) IDValid() bool {
	return r.MissionID != "" && !strings.Contains(strings.ToLower(r.MissionID), "error")
}

// ResultValid reports whether the result is 0 or 1
func (r Record) ResultValid() bool {
	return r.Result == 0 || r.Result == 1
}

func (r Record) String() string {
	return fmt.Sprintf("id=%s x=%s y=%s result=%s",
		r.MissionID, formatField(r.X), formatField(r.Y), formatField(r.Result))
}

func formatField(v int) string {
	if v == NaN {
		return "NaN"
	}
	return fmt.Sprintf("%d", v)
}
