// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package trace records modem traffic as a CBOR sequence and reads it back.
//
// Each entry is one CBOR map with integer keys:
//
//	1: timestamp, microseconds since the Unix epoch
//	2: direction, 0 outbound (command) or 1 inbound (read buffer)
//	3: data, raw bytes
package trace

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/espat"
	"github.com/fxamacker/cbor/v2"
)

// Direction of a traced buffer
type Direction uint8

const (
	Outbound Direction = 0
	Inbound  Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return ">>"
	case Inbound:
		return "<<"
	default:
		return fmt.Sprintf("?%d", uint8(d))
	}
}

// Entry is one traced command or read buffer
type Entry struct {
	Time int64     `cbor:"1,keyasint"`
	Dir  Direction `cbor:"2,keyasint"`
	Data []byte    `cbor:"3,keyasint"`
}

// Timestamp returns Time as a time.Time in UTC
func (e Entry) Timestamp() time.Time {
	return time.UnixMicro(e.Time).UTC()
}

// Recorder is an espat.Sink appending entries to a writer. Sink methods
// cannot fail, so the first write error is kept and returned by Err; later
// entries are dropped.
type Recorder struct {
	mu    sync.Mutex
	w     io.Writer
	clock espat.Clock
	count int
	err   error
}

// NewRecorder creates a recorder writing to w, timestamped by clock.
func NewRecorder(w io.Writer, clock espat.Clock) *Recorder {
	if clock == nil {
		clock = espat.SystemClock{}
	}
	return &Recorder{w: w, clock: clock}
}

func (r *Recorder) Outbound(cmd string) {
	r.record(Outbound, cmd)
}

func (r *Recorder) Inbound(buf string) {
	// Empty reads carry no traffic
	if buf == "" {
		return
	}
	r.record(Inbound, buf)
}

func (r *Recorder) record(dir Direction, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}

	data, err := cbor.Marshal(Entry{
		Time: r.clock.Now().UnixMicro(),
		Dir:  dir,
		Data: []byte(s),
	})
	if err != nil {
		r.err = fmt.Errorf("failed to encode trace entry: %w", err)
		return
	}
	if _, err := r.w.Write(data); err != nil {
		r.err = fmt.Errorf("failed to write trace entry: %w", err)
		return
	}
	r.count++
}

// Count returns how many entries were written
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first write error, if any
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ReadAll decodes every entry of a trace. Entries decoded before an error
// are returned with it.
func ReadAll(rd io.Reader) ([]Entry, error) {
	dec := cbor.NewDecoder(rd)
	var entries []Entry
	for {
		var e Entry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("failed to decode entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
}

// Format renders an entry as one line, relative to start when it is
// non-zero. Control characters are escaped so CR LF stays visible.
func Format(e Entry, start time.Time) string {
	var ts string
	if start.IsZero() {
		ts = e.Timestamp().Format("15:04:05.000")
	} else {
		ts = fmt.Sprintf("+%.3fs", e.Timestamp().Sub(start).Seconds())
	}
	quoted := fmt.Sprintf("%q", string(e.Data))
	return fmt.Sprintf("%s %s %s", ts, e.Dir, strings.Trim(quoted, `"`))
}
