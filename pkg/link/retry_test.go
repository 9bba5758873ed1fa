// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"testing"
	"time"
)

func TestParseBackoff(t *testing.T) {
	tests := []struct {
		in      string
		want    BackoffKind
		wantErr bool
	}{
		{"", BackoffNone, false},
		{"none", BackoffNone, false},
		{"fixed", BackoffFixed, false},
		{"Exponential", BackoffExponential, false},
		{"exp", BackoffExponential, false},
		{"linear", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackoff(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBackoff(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseBackoff(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_Allows(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		n      int
		want   bool
	}{
		{"unbounded first", Unbounded(), 1, true},
		{"unbounded late", Unbounded(), 10000, true},
		{"single shot", SingleShot(), 1, false},
		{"bounded before limit", RetryPolicy{MaxAttempts: 3}, 2, true},
		{"bounded at limit", RetryPolicy{MaxAttempts: 3}, 3, false},
		{"negative is unbounded", RetryPolicy{MaxAttempts: -1}, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.allows(tt.n); got != tt.want {
				t.Errorf("allows(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_Delays(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		want   []time.Duration
	}{
		{
			name:   "none",
			policy: Unbounded(),
			want:   []time.Duration{0, 0, 0},
		},
		{
			name:   "fixed default",
			policy: RetryPolicy{Backoff: BackoffFixed},
			want:   []time.Duration{time.Second, time.Second, time.Second},
		},
		{
			name:   "fixed",
			policy: RetryPolicy{Backoff: BackoffFixed, Delay: 250 * time.Millisecond},
			want:   []time.Duration{250 * time.Millisecond, 250 * time.Millisecond},
		},
		{
			name:   "exponential capped",
			policy: RetryPolicy{Backoff: BackoffExponential, Delay: time.Second, MaxDelay: 5 * time.Second},
			want:   []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second},
		},
		{
			name:   "exponential cap below delay",
			policy: RetryPolicy{Backoff: BackoffExponential, Delay: time.Minute, MaxDelay: time.Second},
			want:   []time.Duration{time.Minute, time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := tt.policy.delays()
			for i, want := range tt.want {
				if got := next(); got != want {
					t.Errorf("delay #%d = %v, want %v", i+1, got, want)
				}
			}
		})
	}
}

func TestRetryPolicy_String(t *testing.T) {
	if got := Unbounded().String(); got != "unbounded, backoff none" {
		t.Errorf("Unbounded().String() = %q", got)
	}
	p := RetryPolicy{MaxAttempts: 4, Backoff: BackoffExponential}
	if got := p.String(); got != "4 attempts, backoff exponential" {
		t.Errorf("String() = %q", got)
	}
}
