// Package channel is the websocket transport between a terminal session and
// the phirepass server.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dimitrmo/phirepass-widgets/internal/protocol"
	"github.com/dimitrmo/phirepass-widgets/internal/session"
	"github.com/dimitrmo/phirepass-widgets/pkg/logger"
)

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 15 * time.Second
)

var (
	// ErrNotConnected is returned when sending on a connection that is not open.
	ErrNotConnected = errors.New("channel not connected")
	// ErrClosed is returned when connecting a client that was disconnected.
	ErrClosed = errors.New("channel closed")
	// ErrAlreadyConnected is returned by a second Connect call.
	ErrAlreadyConnected = errors.New("channel already connected")
)

// Client is a single websocket connection. A Client is not reusable: once
// disconnected or closed by the server, create a new one.
type Client struct {
	url      string
	events   session.TransportEvents
	encoding protocol.Encoding
	dialer   *websocket.Dialer
	log      *logrus.Entry

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	hbStop    chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

var _ session.Transport = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithEncoding selects the frame encoding for outbound messages. Inbound
// frames are decoded by frame type regardless.
func WithEncoding(enc protocol.Encoding) Option {
	return func(c *Client) { c.encoding = enc }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithHandshakeTimeout bounds the websocket handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		dialer := *c.dialer
		dialer.HandshakeTimeout = d
		c.dialer = &dialer
	}
}

// New returns an unconnected client for url that reports to events.
func New(url string, events session.TransportEvents, opts ...Option) *Client {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout
	c := &Client{
		url:      url,
		events:   events,
		encoding: protocol.EncodingMessagePack,
		dialer:   &dialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.WithFields(logger.Fields{"conn": uuid.NewString(), "url": url})
	return c
}

// Factory returns a session.TransportFactory creating one Client per
// connection.
func Factory(url string, opts ...Option) session.TransportFactory {
	return func(identity string, events session.TransportEvents) (session.Transport, error) {
		c := New(url, events, opts...)
		c.log = c.log.WithField("node", identity)
		return c, nil
	}
}

// Connect dials the server. On success OnOpen is raised before any message.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.conn != nil:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	c.log.Debug("dialing")
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.log.Info("connected")
	c.events.OnOpen()
	go c.readLoop(conn)
	return nil
}

// Disconnect closes the connection without raising OnClose. It is safe to
// call more than once and does not wait for the read loop.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.stopHeartbeatLocked()
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	c.log.Debug("disconnecting")
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return conn.Close()
}

// IsConnected reports whether the connection is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// StartHeartbeat sends a Heartbeat frame every interval, replacing any
// heartbeat already running.
func (c *Client) StartHeartbeat(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.mu.Lock()
	c.stopHeartbeatLocked()
	stop := make(chan struct{})
	c.hbStop = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				err := c.send(protocol.Heartbeat{})
				if errors.Is(err, ErrNotConnected) {
					return
				}
				if err != nil {
					c.log.WithError(err).Warn("heartbeat failed")
				}
			}
		}
	}()
}

// StopHeartbeat stops the heartbeat. It is a no-op when none is running.
func (c *Client) StopHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopHeartbeatLocked()
}

func (c *Client) stopHeartbeatLocked() {
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
}

// OpenTunnel asks the server for an SSH tunnel to identity.
func (c *Client) OpenTunnel(identity string, creds session.Credentials) error {
	return c.send(protocol.OpenTunnel{
		Protocol: protocol.TunnelSSH,
		NodeID:   identity,
		Username: creds.Username,
		Password: creds.Password,
	})
}

// SendTunnelData forwards raw terminal input to the tunnel.
func (c *Client) SendTunnelData(identity string, tunnelID uint32, data []byte) error {
	return c.send(protocol.TunnelData{NodeID: identity, SID: tunnelID, Data: protocol.Bytes(data)})
}

// SendResize reports terminal geometry for the tunnel.
func (c *Client) SendResize(identity string, tunnelID uint32, cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("invalid geometry %dx%d", cols, rows)
	}
	return c.send(protocol.Resize{NodeID: identity, SID: tunnelID, Cols: uint32(cols), Rows: uint32(rows)})
}

func (c *Client) send(web protocol.Web) error {
	c.mu.Lock()
	conn, ok := c.conn, c.connected
	c.mu.Unlock()
	if !ok || conn == nil {
		return ErrNotConnected
	}

	raw, err := protocol.Encode(protocol.NewMessage(c.encoding, web))
	if err != nil {
		return fmt.Errorf("encode %s: %w", web.Type(), err)
	}
	frameType := websocket.BinaryMessage
	if c.encoding == protocol.EncodingJSON {
		frameType = websocket.TextMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(frameType, raw); err != nil {
		return fmt.Errorf("write %s: %w", web.Type(), err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			c.finish(conn, err)
			return
		}

		var enc protocol.Encoding
		switch frameType {
		case websocket.BinaryMessage:
			enc = protocol.EncodingMessagePack
		case websocket.TextMessage:
			enc = protocol.EncodingJSON
		default:
			continue
		}

		msg, err := protocol.Decode(enc, data)
		if err != nil {
			entry := c.log.WithError(err).WithField("bytes", len(data))
			if errors.Is(err, protocol.ErrUnknownType) {
				entry.Debug("discarding message of unknown type")
			} else {
				entry.Warn("discarding undecodable frame")
			}
			continue
		}
		c.events.OnMessage(msg)
	}
}

// finish ends a connection the server or network closed. Callbacks are not
// raised when Disconnect started the teardown.
func (c *Client) finish(conn *websocket.Conn, err error) {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.connected = false
	c.stopHeartbeatLocked()
	c.mu.Unlock()
	_ = conn.Close()

	if wasClosed {
		return
	}

	reason := err.Error()
	unexpected := true
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		reason = closeErr.Text
		if reason == "" {
			reason = fmt.Sprintf("close %d", closeErr.Code)
		}
		unexpected = websocket.IsUnexpectedCloseError(closeErr, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	}
	if unexpected {
		c.log.WithError(err).Warn("connection lost")
		c.events.OnError(err)
	} else {
		c.log.WithField("reason", reason).Info("connection closed")
	}
	c.closeOnce.Do(func() { c.events.OnClose(reason) })
}
