package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// FrameType distinguishes text and binary frames.
type FrameType int

const (
	FrameText FrameType = iota + 1
	FrameBinary
)

// Channel is one open duplex connection to the bridge. Reads happen on a
// single goroutine; writes may come from several and must be serialised by
// the implementation.
type Channel interface {
	// ReadFrame blocks until the next frame arrives. When the peer closes
	// the channel the error carries the close code (see CloseCode).
	ReadFrame() (FrameType, []byte, error)

	WriteText(data []byte) error
	WriteBinary(data []byte) error

	// CloseWithCode sends a close frame and releases the connection.
	CloseWithCode(code int, reason string) error

	// Close releases the connection without a close handshake.
	Close() error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context, url string) (Channel, error)
}

// CloseCode extracts the close code from a ReadFrame error. Errors that
// are not close frames map to 1006 (abnormal closure).
func CloseCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return closeAbnormal
}

// isCloseFrame reports whether err came from a close frame sent by the
// peer. gorilla/websocket reports a dropped connection as a synthetic 1006
// CloseError; no peer ever sends that code on the wire.
func isCloseFrame(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure
}

// WebSocketDialer dials channels with gorilla/websocket.
type WebSocketDialer struct {
	// Dialer is the underlying dialer. Nil selects websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Header is sent with the upgrade request. The bearer token is never
	// placed here; it travels in the first frame.
	Header http.Header
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Channel, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("bridge: dial %s: HTTP %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("bridge: dial %s: %w", url, err)
	}
	return &wsChannel{conn: conn}, nil
}

// wsChannel adapts *websocket.Conn to Channel.
type wsChannel struct {
	conn      *websocket.Conn
	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsChannel) ReadFrame() (FrameType, []byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return 0, nil, err
		}
		switch mt {
		case websocket.TextMessage:
			return FrameText, data, nil
		case websocket.BinaryMessage:
			return FrameBinary, data, nil
		}
	}
}

func (c *wsChannel) WriteText(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsChannel) WriteBinary(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsChannel) CloseWithCode(code int, reason string) error {
	c.wmu.Lock()
	err := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	c.wmu.Unlock()
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

var _ Channel = (*wsChannel)(nil)
