// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package espat

import (
	"errors"
	"time"
)

// ErrConnectionClosed is returned when polling a channel whose underlying
// connection has gone away.
var ErrConnectionClosed = errors.New("connection closed")

// Channel is the duplex byte interface to the modem.
//
// ReadAvailable must not block: it returns whatever has arrived since the
// previous call, which may be nothing.
type Channel interface {
	Write(p []byte) (int, error)
	ReadAvailable() ([]byte, error)
}

// Clock supplies elapsed-time measurement and blocking pauses.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
