// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package espat

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ReadMode selects when Read stops accumulating.
type ReadMode int

const (
	// ReadEarlyExit stops at the first empty poll once the quiet period has
	// passed since the last received byte. A device that pauses between
	// chunks can therefore be cut short well before the timeout.
	ReadEarlyExit ReadMode = iota
	// ReadFullTimeout keeps polling until the timeout elapses.
	ReadFullTimeout
)

func (m ReadMode) String() string {
	switch m {
	case ReadEarlyExit:
		return "early"
	case ReadFullTimeout:
		return "full"
	default:
		return fmt.Sprintf("ReadMode(%d)", int(m))
	}
}

// ParseReadMode parses "early" or "full".
func ParseReadMode(s string) (ReadMode, error) {
	switch strings.ToLower(s) {
	case "early", "":
		return ReadEarlyExit, nil
	case "full":
		return ReadFullTimeout, nil
	}
	return 0, fmt.Errorf("unknown read mode %q (use early or full)", s)
}

// Transport sends AT command lines over a Channel and collects responses.
// A Transport is not safe for concurrent use; only one exchange may be in
// flight at a time.
type Transport struct {
	ch    Channel
	clock Clock
	sink  Sink
	log   *zap.Logger

	mode       ReadMode
	latency    time.Duration
	quiet      time.Duration
	poll       time.Duration
	drainPause time.Duration
}

// Option configures a Transport.
type Option func(*Transport)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(t *Transport) { t.clock = c }
}

// WithSink enables the debug sideband.
func WithSink(s Sink) Option {
	return func(t *Transport) { t.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// WithReadMode selects early-exit or full-timeout reads.
func WithReadMode(m ReadMode) Option {
	return func(t *Transport) { t.mode = m }
}

// WithQuietPeriod sets how long the line must stay silent before an
// early-exit read gives up. Zero exits on the first empty poll.
func WithQuietPeriod(d time.Duration) Option {
	return func(t *Transport) { t.quiet = d }
}

// WithReadLatency overrides the fixed pause preceding every read.
func WithReadLatency(d time.Duration) Option {
	return func(t *Transport) { t.latency = d }
}

// WithPollPeriod sets the pause between empty polls.
func WithPollPeriod(d time.Duration) Option {
	return func(t *Transport) { t.poll = d }
}

// WithDrainPause overrides the pause preceding a drain.
func WithDrainPause(d time.Duration) Option {
	return func(t *Transport) { t.drainPause = d }
}

// NewTransport creates a transport over ch.
func NewTransport(ch Channel, opts ...Option) *Transport {
	t := &Transport{
		ch:         ch,
		clock:      SystemClock{},
		log:        zap.NewNop(),
		mode:       ReadEarlyExit,
		latency:    DefaultReadLatency,
		poll:       DefaultPollPeriod,
		drainPause: DefaultDrainPause,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.poll < minPollPeriod {
		t.poll = minPollPeriod
	}
	return t
}

// Clock returns the clock used for pauses.
func (t *Transport) Clock() Clock {
	return t.clock
}

// Mode returns the configured read mode.
func (t *Transport) Mode() ReadMode {
	return t.mode
}

// Send writes command followed by the line terminator, then pauses for
// settle so the firmware can process it.
func (t *Transport) Send(command string, settle time.Duration) error {
	if t.sink != nil {
		t.sink.Outbound(command)
	}
	t.log.Debug("send", zap.String("cmd", command), zap.Duration("settle", settle))

	if _, err := t.ch.Write([]byte(command + Terminator)); err != nil {
		return fmt.Errorf("failed to write %q: %w", command, err)
	}
	t.clock.Sleep(settle)
	return nil
}

// Read collects inbound bytes until the read mode says stop or timeout
// elapses. The timeout is an upper bound, not a guaranteed wait. Read always
// starts with the fixed read latency pause. On a channel error the bytes
// gathered so far are returned with the error.
func (t *Transport) Read(timeout time.Duration) (string, error) {
	return t.read("", false, timeout)
}

// ReadUntil is Read that also returns as soon as the buffer contains match.
// Empty polls never end a ReadUntil early.
func (t *Transport) ReadUntil(match string, timeout time.Duration) (string, error) {
	return t.read(match, true, timeout)
}

func (t *Transport) read(match string, until bool, timeout time.Duration) (string, error) {
	t.clock.Sleep(t.latency)

	start := t.clock.Now()
	lastData := start
	var buf strings.Builder
	var err error

	for {
		chunk, rerr := t.ch.ReadAvailable()
		now := t.clock.Now()
		if len(chunk) > 0 {
			buf.Write(chunk)
			lastData = now
		}
		if rerr != nil {
			err = fmt.Errorf("failed to read: %w", rerr)
			break
		}
		if until && strings.Contains(buf.String(), match) {
			break
		}
		if now.Sub(start) > timeout {
			break
		}
		if len(chunk) == 0 {
			if !until && t.mode == ReadEarlyExit && now.Sub(lastData) >= t.quiet {
				break
			}
			t.clock.Sleep(t.poll)
		}
	}

	s := buf.String()
	if t.sink != nil {
		t.sink.Inbound(s)
	}
	t.log.Debug("read", zap.Int("bytes", len(s)), zap.Duration("elapsed", t.clock.Now().Sub(start)))
	return s, err
}

// Drain pauses briefly, then discards whatever is pending on the channel so
// that leftovers of a previous exchange do not leak into the next response.
// Bytes arriving after the drain returns are not caught.
func (t *Transport) Drain() error {
	t.clock.Sleep(t.drainPause)

	discarded := 0
	for i := 0; i < maxDrainPolls; i++ {
		b, err := t.ch.ReadAvailable()
		if err != nil {
			return fmt.Errorf("failed to drain: %w", err)
		}
		if len(b) == 0 {
			break
		}
		discarded += len(b)
	}
	if discarded > 0 {
		t.log.Debug("drained stale input", zap.Int("bytes", discarded))
	}
	return nil
}
