// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package espattest provides a scripted modem and a virtual clock for
// exercising espat-based code without hardware or wall-clock pauses.
package espattest

import (
	"bytes"
	"strings"
	"sync"
)

type rule struct {
	pattern string
	replies []string
	next    int
}

func (r *rule) reply() string {
	s := r.replies[r.next]
	if r.next < len(r.replies)-1 {
		r.next++
	}
	return s
}

// Device is an espat.Channel that answers complete command lines from a
// script. A line is answered by the first rule whose pattern equals it, or
// failing that, the first rule whose pattern is a prefix of it. Lines
// without a matching rule get no reply.
type Device struct {
	mu      sync.Mutex
	rules   []*rule
	partial []byte
	pending bytes.Buffer
	lines   []string
	chunk   int

	// WriteErr, when set, fails every Write.
	WriteErr error
	// ReadErr, when set, fails every poll.
	ReadErr error
}

// NewDevice creates a device with an empty script.
func NewDevice() *Device {
	return &Device{}
}

// On answers lines matching pattern with reply, every time.
func (d *Device) On(pattern, reply string) *Device {
	return d.OnSequence(pattern, reply)
}

// OnSequence answers successive matching lines with successive replies;
// the last reply repeats once the sequence is exhausted.
func (d *Device) OnSequence(pattern string, replies ...string) *Device {
	if len(replies) == 0 {
		replies = []string{""}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules = append(d.rules, &rule{pattern: pattern, replies: replies})
	return d
}

// ChunkSize limits how many bytes a single poll returns. Zero means all.
func (d *Device) ChunkSize(n int) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chunk = n
	return d
}

// Inject makes s available to the next poll, as unsolicited output would.
func (d *Device) Inject(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending.WriteString(s)
}

// Lines returns every complete line written so far, terminators stripped.
func (d *Device) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// Count returns how many written lines start with prefix.
func (d *Device) Count(prefix string) int {
	n := 0
	for _, l := range d.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

// Pending returns how many reply bytes have not been polled yet.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending.Len()
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.WriteErr != nil {
		return 0, d.WriteErr
	}

	d.partial = append(d.partial, p...)
	for {
		i := bytes.Index(d.partial, []byte("\r\n"))
		if i < 0 {
			break
		}
		line := string(d.partial[:i])
		d.partial = d.partial[i+2:]
		d.lines = append(d.lines, line)
		if r := d.match(line); r != nil {
			d.pending.WriteString(r.reply())
		}
	}
	return len(p), nil
}

func (d *Device) match(line string) *rule {
	for _, r := range d.rules {
		if r.pattern == line {
			return r
		}
	}
	for _, r := range d.rules {
		if strings.HasPrefix(line, r.pattern) {
			return r
		}
	}
	return nil
}

func (d *Device) ReadAvailable() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ReadErr != nil {
		return nil, d.ReadErr
	}
	n := d.pending.Len()
	if n == 0 {
		return nil, nil
	}
	if d.chunk > 0 && n > d.chunk {
		n = d.chunk
	}
	out := make([]byte, n)
	copy(out, d.pending.Next(n))
	return out, nil
}
