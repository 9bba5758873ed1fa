// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session runs mission transactions over a link.Manager.
//
// Two flavours share the same link: Stateless answers every call with a
// reply string and keeps nothing between calls, Stateful keeps the
// connection flags and the last mission Record.
package session

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Pauses granted to the modem after AT+CIPSEND before the payload
const (
	startPrepare    = 2000 * time.Millisecond
	completePrepare = 3000 * time.Millisecond
)

// Mode selects the session flavour
type Mode int

const (
	ModeStateless Mode = iota
	ModeStateful
)

func (m Mode) String() string {
	switch m {
	case ModeStateless:
		return "stateless"
	case ModeStateful:
		return "stateful"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "stateless" or "stateful".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "stateless", "":
		return ModeStateless, nil
	case "stateful":
		return ModeStateful, nil
	}
	return 0, fmt.Errorf("unknown session mode %q (use stateless or stateful)", s)
}

// Option configures a session
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
