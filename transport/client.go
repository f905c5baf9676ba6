// Package transport carries the chat over websockets: one Client per connection,
// a read pump feeding the engine and a write pump draining the outbound queue.
package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/errors"
	"huddle/runtime"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrClientClosed   = fmt.Errorf("client closed")
	ErrSendBufferFull = fmt.Errorf("send buffer full")
)

// Frames up to maxFrameFactor times MaxMessageSize are read and discarded with an
// error event, bigger ones end the connection.
const maxFrameFactor = 16

type ClientConfig struct {
	SendBufferSize int
	MaxMessageSize int64
	PongWait       time.Duration
	PingInterval   time.Duration
	WriteWait      time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 256
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 * 1024
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	return c
}

// Client is the websocket side of one session. It is the session's EventSink:
// Consume only queues, the write pump does the network I/O.
type Client struct {
	conn       *websocket.Conn
	log        *slog.Logger
	cfg        ClientConfig
	addr       string
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	dispatcher *runtime.Dispatcher
}

func NewClient(conn *websocket.Conn, log *slog.Logger, cfg ClientConfig, addr string) *Client {
	cfg = cfg.withDefaults()
	conn.SetReadLimit(cfg.MaxMessageSize * maxFrameFactor)
	return &Client{
		conn: conn,
		log:  log,
		cfg:  cfg,
		addr: addr,
		send: make(chan []byte, cfg.SendBufferSize),
		done: make(chan struct{}),
	}
}

// Consume never blocks: a slow client loses the event instead of stalling the group.
func (c *Client) Consume(ctx context.Context, e event.DomainEvent) error {
	payload, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSendBufferFull
	}
}

// Serve runs both pumps and returns once the connection is gone and cleaned up.
// Whatever ended the read loop, the engine receives the same disconnect intent.
func (c *Client) Serve(ctx context.Context, dispatcher *runtime.Dispatcher) {
	c.dispatcher = dispatcher
	go c.writePump()

	reason := c.readPump(ctx)

	if err := dispatcher.Dispatch(context.WithoutCancel(ctx), domain.DisconnectIntent{Reason: reason}); err != nil {
		c.log.Debug("Disconnect failed", "addr", c.addr, "error", err)
	}
	c.close()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump decodes frames and dispatches them in order until the transport fails.
func (c *Client) readPump(ctx context.Context) string {
	c.setupReadConnection()

	for {
		raw, oversized, err := c.readFrame()
		if err != nil {
			return c.readErrorReason(err)
		}
		if oversized {
			c.log.Debug("Frame exceeded maximum size", "addr", c.addr, "max", c.cfg.MaxMessageSize)
			_ = c.Consume(ctx, event.Failure{Message: errors.ClientMessage(errors.ErrContentTooLong)})
			continue
		}

		intent, err := DecodeIntent(raw)
		if err != nil {
			c.log.Debug("Invalid frame", "addr", c.addr, "error", err)
			_ = c.Consume(ctx, event.Failure{Message: "Invalid request"})
			continue
		}
		if err := c.dispatcher.Dispatch(ctx, intent); err != nil {
			c.log.Debug("Intent not applied", "addr", c.addr, "session", c.dispatcher.SessionID(), "error", err)
		}
	}
}

// readFrame keeps at most MaxMessageSize bytes of a frame, the rest is drained
// so the next frame can still be read.
func (c *Client) readFrame() ([]byte, bool, error) {
	_, r, err := c.conn.NextReader()
	if err != nil {
		return nil, false, err
	}
	raw, err := io.ReadAll(io.LimitReader(r, c.cfg.MaxMessageSize+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(raw)) <= c.cfg.MaxMessageSize {
		return raw, false, nil
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.log.Warn("Error setting initial read deadline", "addr", c.addr, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})
}

func (c *Client) readErrorReason(err error) string {
	switch {
	case stderrors.Is(err, websocket.ErrReadLimit):
		c.log.Info("Frame exceeded hard limit", "addr", c.addr, "max", c.cfg.MaxMessageSize*maxFrameFactor)
		return "message too big"
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.log.Debug("Client closed the connection", "addr", c.addr)
		return "closed"
	case stderrors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Debug("Connection closed", "addr", c.addr, "error", err)
		return "connection lost"
	default:
		c.log.Info("Websocket read error", "addr", c.addr, "error", err)
		return "read error"
	}
}

// writePump is the only goroutine writing to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("Error closing connection", "addr", c.addr, "error", err)
		}
	}()

	for {
		select {
		case payload := <-c.send:
			if !c.write(websocket.TextMessage, payload) {
				return
			}
		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}
		case <-c.done:
			c.drain()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain flushes what was queued before the close.
func (c *Client) drain() {
	for {
		select {
		case payload := <-c.send:
			if !c.write(websocket.TextMessage, payload) {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, payload []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.log.Debug("Error setting write deadline", "addr", c.addr, "error", err)
		return false
	}
	if err := c.conn.WriteMessage(messageType, payload); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug("Websocket write error", "addr", c.addr, "error", err)
		}
		// The read pump notices the broken connection and runs the cleanup
		_ = c.conn.Close()
		return false
	}
	return true
}

func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
