// Package client talks to the chat server: the WebSocket stream and the
// REST endpoints for history and translation catalogs.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPongTimeout  = 60 * time.Second
	defaultPingInterval = 30 * time.Second
	closeGrace          = time.Second
)

// Conn is one open connection to the chat server carrying JSON text frames.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WSDialer dials the chat server's WebSocket endpoint.
type WSDialer struct {
	URL          string
	Header       http.Header
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	PingInterval time.Duration
}

// NewWSDialer creates a dialer for url with the default keepalive timings.
func NewWSDialer(url string) *WSDialer {
	return &WSDialer{
		URL:          url,
		WriteTimeout: defaultWriteTimeout,
		PongTimeout:  defaultPongTimeout,
		PingInterval: defaultPingInterval,
	}
}

// Dial connects and starts the keepalive pinger. The context bounds the
// handshake only.
func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	c := &WSConn{
		conn:         conn,
		writeTimeout: orDefault(d.WriteTimeout, defaultWriteTimeout),
		pongTimeout:  orDefault(d.PongTimeout, defaultPongTimeout),
		done:         make(chan struct{}),
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	})
	conn.SetReadDeadline(time.Now().Add(c.pongTimeout))

	go c.pingLoop(orDefault(d.PingInterval, defaultPingInterval))
	return c, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// WSConn is a gorilla connection with serialized writes and a keepalive
// pinger. ReadFrame must only be called from one goroutine at a time.
type WSConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	pongTimeout  time.Duration

	writeMu   sync.Mutex // serialises all conn writes (frames, pings, close)
	closeOnce sync.Once
	done      chan struct{}
}

// ReadFrame blocks until the next text frame arrives. Control frames are
// handled internally; binary frames are skipped.
func (c *WSConn) ReadFrame() ([]byte, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ == websocket.TextMessage {
			return data, nil
		}
	}
}

// WriteFrame sends data as one text frame.
func (c *WSConn) WriteFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal-closure frame, stops the pinger and closes the
// socket. It is safe to call more than once.
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace)); werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			log.Printf("ws close frame: %v", werr)
		}
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// pingLoop sends periodic pings until the connection is closed.
func (c *WSConn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// IsNormalClose reports whether err is a peer close with status 1000 or
// 1001, the only closures that are not transport errors.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
