// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package espat

import "go.uber.org/zap"

// Sink observes traffic on a Transport. Outbound receives every command
// line without its terminator; Inbound receives every accumulated read
// buffer. Sinks never influence protocol decisions.
type Sink interface {
	Outbound(cmd string)
	Inbound(buf string)
}

// LogSink mirrors traffic to a zap logger.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a sink writing to log.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Outbound(cmd string) {
	s.log.Info("tx", zap.String("cmd", cmd))
}

func (s *LogSink) Inbound(buf string) {
	s.log.Info("rx", zap.String("buf", buf), zap.Int("len", len(buf)))
}

type teeSink []Sink

// Tee fans traffic out to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	var t teeSink
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	return t
}

func (t teeSink) Outbound(cmd string) {
	for _, s := range t {
		s.Outbound(cmd)
	}
}

func (t teeSink) Inbound(buf string) {
	for _, s := range t {
		s.Inbound(buf)
	}
}
