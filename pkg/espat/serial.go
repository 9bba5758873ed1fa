// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package espat

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// ErrBufferUnsized is returned when a serial channel is opened without
// explicit buffer capacities.
var ErrBufferUnsized = errors.New("serial buffer sizes must be set before use")

// SerialConfig describes the UART to the modem.
type SerialConfig struct {
	PortName string
	BaudRate int

	// RxBufferSize bounds the bytes returned by one poll; TxBufferSize
	// bounds one write to the port. Both must be set.
	RxBufferSize int
	TxBufferSize int

	// PollTimeout is how long a single poll may wait for the first byte.
	PollTimeout time.Duration
}

// SerialChannel is a Channel over a local serial port.
type SerialChannel struct {
	port serial.Port
	rx   []byte
	tx   int
}

// OpenSerial opens and configures the serial port (8N1).
func OpenSerial(cfg SerialConfig) (*SerialChannel, error) {
	if cfg.PortName == "" {
		return nil, errors.New("serial port name is required")
	}
	if cfg.RxBufferSize <= 0 || cfg.TxBufferSize <= 0 {
		return nil, ErrBufferUnsized
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollPeriod
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.PortName, err)
	}

	if err := port.SetReadTimeout(cfg.PollTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &SerialChannel{
		port: port,
		rx:   make([]byte, cfg.RxBufferSize),
		tx:   cfg.TxBufferSize,
	}, nil
}

// Write sends p in chunks no larger than the TX buffer.
func (s *SerialChannel) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		end := written + s.tx
		if end > len(p) {
			end = len(p)
		}
		n, err := s.port.Write(p[written:end])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// ReadAvailable returns at most RxBufferSize bytes received within the poll
// timeout.
func (s *SerialChannel) ReadAvailable() ([]byte, error) {
	n, err := s.port.Read(s.rx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, s.rx[:n])
	return out, nil
}

// Close closes the port.
func (s *SerialChannel) Close() error {
	return s.port.Close()
}
