// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/wrocloud/pkg/espat"
	"github.com/Thermoquad/wrocloud/pkg/espat/espattest"
	"github.com/Thermoquad/wrocloud/pkg/link"
	"github.com/Thermoquad/wrocloud/pkg/mission"
	"github.com/Thermoquad/wrocloud/pkg/trace"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// UART buffer capacities of the modem adapter
const (
	serialBufferSize  = 128
	serialPollTimeout = 10 * time.Millisecond
	dialTimeout       = 15 * time.Second
)

// modemConn is an open byte channel to the modem
type modemConn struct {
	ch     espat.Channel
	closer io.Closer
	info   string
	clock  espat.Clock
}

func (c *modemConn) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// GetPassword retrieves a secret from envVar or prompts the user
func GetPassword(envVar, prompt string) (string, error) {
	// First check environment variable
	if pw := os.Getenv(envVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, prompt)

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// OpenConnection opens the simulated, WebSocket or serial channel based on flags
func OpenConnection() (*modemConn, error) {
	if simulate {
		dev := newSimulatedModem(stationConfig())
		return &modemConn{ch: dev, info: "Simulated modem", clock: espattest.NewClock()}, nil
	}

	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword(envBridgePassword, "Bridge password: ")
			if err != nil {
				return nil, err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		ch, err := espat.DialWebSocket(ctx, wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, err
		}
		return &modemConn{ch: ch, closer: ch, info: fmt.Sprintf("WebSocket: %s", wsURL), clock: espat.SystemClock{}}, nil
	}

	if portName != "" {
		ch, err := espat.OpenSerial(espat.SerialConfig{
			PortName:     portName,
			BaudRate:     baudRate,
			RxBufferSize: serialBufferSize,
			TxBufferSize: serialBufferSize,
			PollTimeout:  serialPollTimeout,
		})
		if err != nil {
			return nil, err
		}
		return &modemConn{ch: ch, closer: ch, info: fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), clock: espat.SystemClock{}}, nil
	}

	return nil, errors.New("one of --port, --url or --simulate must be specified")
}

// newLogger builds the CLI logger: development output with --verbose or
// --debug, warnings only otherwise.
func newLogger() (*zap.Logger, error) {
	if verbose || debugTraffic {
		cfg := zap.NewDevelopmentConfig()
		if !verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}

func stationConfig() link.Config {
	return link.Config{
		SSID:         ssid,
		Passphrase:   wifiPassphrase,
		CloudHost:    cloudHost,
		CloudPort:    cloudPort,
		StationID:    stationID,
		StationToken: stationToken,
	}
}

func retryPolicy() (link.RetryPolicy, error) {
	kind, err := link.ParseBackoff(backoffKind)
	if err != nil {
		return link.RetryPolicy{}, err
	}
	return link.RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     kind,
		Delay:       retryDelay,
	}, nil
}

// station bundles the layers every command works with
type station struct {
	conn  *modemConn
	tr    *espat.Transport
	link  *link.Manager
	proto mission.Protocol
	log   *zap.Logger

	recorder  *trace.Recorder
	traceFile *os.File
}

// openStation connects to the modem and builds transport, link manager and
// mission protocol from the flags. needWifi prompts for the passphrase
// when none was configured. extra sinks observe the traffic.
func openStation(needWifi bool, extra ...espat.Sink) (*station, error) {
	log, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	mode, err := espat.ParseReadMode(readMode)
	if err != nil {
		return nil, err
	}
	policy, err := retryPolicy()
	if err != nil {
		return nil, err
	}

	if needWifi && wifiPassphrase == "" && !simulate {
		wifiPassphrase, err = GetPassword(envWifiPassword, "WiFi passphrase: ")
		if err != nil {
			return nil, err
		}
	}

	conn, err := OpenConnection()
	if err != nil {
		return nil, err
	}
	st := &station{conn: conn, log: log}

	sinks := append([]espat.Sink{}, extra...)
	if debugTraffic {
		sinks = append(sinks, espat.NewLogSink(log.Named("modem")))
	}
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		st.traceFile = f
		st.recorder = trace.NewRecorder(f, conn.clock)
		sinks = append(sinks, st.recorder)
	}

	st.tr = espat.NewTransport(conn.ch,
		espat.WithClock(conn.clock),
		espat.WithSink(espat.Tee(sinks...)),
		espat.WithLogger(log.Named("espat")),
		espat.WithReadMode(mode),
	)
	st.link = link.NewManager(st.tr, stationConfig(),
		link.WithWifiRetry(policy),
		link.WithCloudRetry(policy),
		link.WithLogger(log.Named("link")),
	)
	st.proto = mission.ForStation(stationID, stationToken)

	log.Debug("station ready",
		zap.String("connection", conn.info),
		zap.String("protocol", st.proto.Name()),
		zap.Stringer("read_mode", mode),
		zap.Stringer("retry", policy))
	return st, nil
}

// Close releases the connection and flushes the trace.
func (s *station) Close() error {
	err := s.conn.Close()
	if s.traceFile != nil {
		if rerr := s.recorder.Err(); rerr != nil {
			err = errors.Join(err, rerr)
		}
		err = errors.Join(err, s.traceFile.Close())
		fmt.Fprintf(os.Stderr, "Trace: %d entries written to %s\n", s.recorder.Count(), tracePath)
	}
	s.log.Sync()
	return err
}
