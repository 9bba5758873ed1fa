// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package espat

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketChannel is a Channel to a modem exposed through a transparent
// serial-over-WebSocket bridge. Inbound frames are queued by a reader
// goroutine so that ReadAvailable never blocks.
type WebSocketChannel struct {
	conn   *websocket.Conn
	frames chan []byte
	errc   chan error
	closed bool
}

// DialWebSocket connects to a bridge with optional HTTP Basic auth.
func DialWebSocket(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (*WebSocketChannel, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return NewWebSocketChannel(conn), nil
}

// NewWebSocketChannel wraps an established connection and starts its
// reader goroutine.
func NewWebSocketChannel(conn *websocket.Conn) *WebSocketChannel {
	w := &WebSocketChannel{
		conn:   conn,
		frames: make(chan []byte, 64),
		errc:   make(chan error, 1),
	}
	go w.pump()
	return w
}

func (w *WebSocketChannel) pump() {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.errc <- err
			close(w.frames)
			return
		}
		// Bridges differ in framing; both carry raw UART bytes
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}
		w.frames <- data
	}
}

// ReadAvailable returns all queued frames concatenated. Once the reader
// goroutine has stopped and the queue is empty, it returns
// ErrConnectionClosed.
func (w *WebSocketChannel) ReadAvailable() ([]byte, error) {
	if w.closed {
		return nil, ErrConnectionClosed
	}

	var out []byte
	for {
		select {
		case data, ok := <-w.frames:
			if !ok {
				w.closed = true
				if len(out) > 0 {
					return out, nil
				}
				select {
				case err := <-w.errc:
					return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
				default:
					return nil, ErrConnectionClosed
				}
			}
			out = append(out, data...)
		default:
			return out, nil
		}
	}
}

// Write sends p as one binary frame.
func (w *WebSocketChannel) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the connection; the reader goroutine exits on its own.
func (w *WebSocketChannel) Close() error {
	return w.conn.Close()
}
