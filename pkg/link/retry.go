// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"strings"
	"time"

	"github.com/jpillora/backoff"
)

// BackoffKind selects the pause between retry attempts.
type BackoffKind int

const (
	BackoffNone BackoffKind = iota
	BackoffFixed
	BackoffExponential
)

func (k BackoffKind) String() string {
	switch k {
	case BackoffNone:
		return "none"
	case BackoffFixed:
		return "fixed"
	case BackoffExponential:
		return "exponential"
	default:
		return fmt.Sprintf("BackoffKind(%d)", int(k))
	}
}

// ParseBackoff parses "none", "fixed" or "exponential".
func ParseBackoff(s string) (BackoffKind, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return BackoffNone, nil
	case "fixed":
		return BackoffFixed, nil
	case "exponential", "exp":
		return BackoffExponential, nil
	}
	return 0, fmt.Errorf("unknown backoff %q (use none, fixed or exponential)", s)
}

// Default delays for the fixed and exponential kinds
const (
	DefaultRetryDelay    = 1 * time.Second
	DefaultRetryMaxDelay = 30 * time.Second
)

// RetryPolicy bounds a retry loop. The zero value retries forever without
// pausing, which is the unattended-station behaviour.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts; zero or less is unbounded.
	MaxAttempts int
	Backoff     BackoffKind
	// Delay is the fixed pause, or the first exponential pause.
	Delay time.Duration
	// MaxDelay caps exponential growth.
	MaxDelay time.Duration
}

// Unbounded retries until success with no pause.
func Unbounded() RetryPolicy {
	return RetryPolicy{}
}

// SingleShot makes exactly one attempt.
func SingleShot() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// allows reports whether another attempt may follow attempt n (1-based).
func (p RetryPolicy) allows(n int) bool {
	return p.MaxAttempts <= 0 || n < p.MaxAttempts
}

// delays returns a generator of pauses between consecutive attempts.
func (p RetryPolicy) delays() func() time.Duration {
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	switch p.Backoff {
	case BackoffFixed:
		return func() time.Duration { return delay }
	case BackoffExponential:
		maxDelay := p.MaxDelay
		if maxDelay < delay {
			maxDelay = DefaultRetryMaxDelay
		}
		if maxDelay < delay {
			maxDelay = delay
		}
		b := &backoff.Backoff{
			Min:    delay,
			Max:    maxDelay,
			Factor: 2,
		}
		return b.Duration
	default:
		return func() time.Duration { return 0 }
	}
}

func (p RetryPolicy) String() string {
	attempts := "unbounded"
	if p.MaxAttempts > 0 {
		attempts = fmt.Sprintf("%d attempts", p.MaxAttempts)
	}
	return fmt.Sprintf("%s, backoff %s", attempts, p.Backoff)
}
