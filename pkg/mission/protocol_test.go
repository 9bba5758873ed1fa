// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mission

import (
	"errors"
	"testing"
)

func TestEncodeStart(t *testing.T) {
	tests := []struct {
		name     string
		protocol Protocol
		typ      string
		want     string
	}{
		{"basic", BasicMissionProtocol{StationID: "S1"}, "M2", "S1;M2;"},
		{"basic empty type", BasicMissionProtocol{StationID: "S1"}, "", "S1;;"},
		{"tokened", TokenedMissionProtocol{StationID: "S1", Token: "tok"}, "M2", "S1;tok;M2;"},
		{"basic keeps colons", BasicMissionProtocol{StationID: "S:1"}, "M2", "S:1;M2;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.protocol.EncodeStart(tt.typ)
			if err != nil {
				t.Fatalf("EncodeStart(%q) error: %v", tt.typ, err)
			}
			if got != tt.want {
				t.Errorf("EncodeStart(%q) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}
}

func TestEncodeComplete(t *testing.T) {
	tests := []struct {
		name     string
		protocol Protocol
		id, data string
		want     string
	}{
		{"basic", BasicMissionProtocol{StationID: "S1"}, "MID1", "42", "MID1;42;"},
		{"tokened", TokenedMissionProtocol{StationID: "S1", Token: "tok"}, "MID1", "42", "S1;tok;MID1;42;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.protocol.EncodeComplete(tt.id, tt.data)
			if err != nil {
				t.Fatalf("EncodeComplete() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("EncodeComplete(%q, %q) = %q, want %q", tt.id, tt.data, got, tt.want)
			}
		})
	}
}

func TestEncode_RejectsDelimiter(t *testing.T) {
	cases := []struct {
		name string
		fn   func() (string, error)
	}{
		{"station id", func() (string, error) { return BasicMissionProtocol{StationID: "S;1"}.EncodeStart("M") }},
		{"mission type", func() (string, error) { return BasicMissionProtocol{StationID: "S1"}.EncodeStart("a;b") }},
		{"token", func() (string, error) {
			return TokenedMissionProtocol{StationID: "S1", Token: ";"}.EncodeComplete("MID", "1")
		}},
		{"data", func() (string, error) { return BasicMissionProtocol{}.EncodeComplete("MID", "1;2") }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.fn()
			if !errors.Is(err, ErrFieldDelimiter) {
				t.Errorf("error = %v, want ErrFieldDelimiter", err)
			}
			if got != "" {
				t.Errorf("payload = %q, want empty on error", got)
			}
		})
	}
}

func TestForStation(t *testing.T) {
	if p := ForStation("S1", ""); p.Name() != "basic" {
		t.Errorf("ForStation without token = %s, want basic", p.Name())
	}
	p := ForStation("S1", "tok")
	if p.Name() != "tokened" {
		t.Fatalf("ForStation with token = %s, want tokened", p.Name())
	}
	if got, _ := p.EncodeStart("M"); got != "S1;tok;M;" {
		t.Errorf("EncodeStart() = %q", got)
	}
}

func TestSendLength(t *testing.T) {
	if got := SendLength("S1;M2;"); got != 8 {
		t.Errorf("SendLength() = %d, want 8", got)
	}
	if got := SendLength(""); got != 2 {
		t.Errorf("SendLength(\"\") = %d, want 2", got)
	}
}
