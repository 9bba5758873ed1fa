// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mission

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NaN marks a numeric reply field that did not start with a number
const NaN = math.MinInt32

const receiveMarker = "+IPD"

var (
	// ErrNoReply is returned when the response carries no +IPD notification
	ErrNoReply = errors.New("no +IPD reply")
	// ErrMalformed is returned when a reply has fewer fields than expected
	ErrMalformed = errors.New("malformed mission reply")
)

// StartReply holds the fields of a start-mission reply
type StartReply struct {
	MissionID string
	X         int
	Y         int
}

// CompleteReply holds the fields of a complete-mission reply
type CompleteReply struct {
	Result int
}

// Unwrap extracts the payload of the first +IPD notification in resp.
//
// Both "+IPD,<len>:<payload>" (firmware) and "+IPD:<len>:<payload>" are
// accepted, as is "+IPD:<payload>" without a length. When a length is
// given and more bytes follow, the payload is cut to that length so that
// trailing modem output such as CLOSED is dropped.
func Unwrap(resp string) (string, error) {
	i := strings.Index(resp, receiveMarker)
	if i < 0 {
		return "", ErrNoReply
	}
	rest := resp[i+len(receiveMarker):]
	if rest != "" && (rest[0] == ',' || rest[0] == ':') {
		rest = rest[1:]
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits == len(rest) || rest[digits] != ':' {
		// No length prefix: everything after the marker is payload
		return rest, nil
	}

	payload := rest[digits+1:]
	if n, err := strconv.Atoi(rest[:digits]); err == nil && n < len(payload) {
		payload = payload[:n]
	}
	return payload, nil
}

// DecodeStart splits a start-mission payload: field 0 is the mission id,
// fields 1 and 2 the X and Y coordinates.
func DecodeStart(payload string) (StartReply, error) {
	fields := strings.Split(payload, FieldSeparator)
	if len(fields) < 3 {
		return StartReply{}, fmt.Errorf("%w: start reply %q has %d fields, want 3", ErrMalformed, payload, len(fields))
	}
	return StartReply{
		MissionID: fields[0],
		X:         ParseInt(fields[1]),
		Y:         ParseInt(fields[2]),
	}, nil
}

// DecodeComplete splits a complete-mission payload: field 1 is the result.
func DecodeComplete(payload string) (CompleteReply, error) {
	fields := strings.Split(payload, FieldSeparator)
	if len(fields) < 2 {
		return CompleteReply{}, fmt.Errorf("%w: complete reply %q has %d fields, want 2", ErrMalformed, payload, len(fields))
	}
	return CompleteReply{Result: ParseInt(fields[1])}, nil
}

// ParseInt reads the leading base-10 integer of s, after optional
// whitespace and sign, ignoring whatever follows it. It returns NaN when
// s does not start with a digit or the value does not fit in 32 bits.
func ParseInt(s string) int {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return NaN
	}
	v, err := strconv.ParseInt(s[:end], 10, 32)
	if err != nil || v == NaN {
		return NaN
	}
	return int(v)
}
