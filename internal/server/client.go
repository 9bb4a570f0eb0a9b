package server

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hexfield/hexfield/internal/packets"
)

// transport is one bidirectional packet stream. The TCP and websocket
// frontends each provide an implementation.
type transport interface {
	ReadPacket() (*packets.Envelope, error)
	WritePacket(env *packets.Envelope) error
	Close() error
	RemoteAddr() string
}

// Client represents one live transport session. Writes go through a bounded
// hand-off queue drained by a dedicated writer goroutine, so the goroutines
// producing packets (including broadcast fan-out) never block on a slow
// client's socket. A client that manages to fill the queue is treated as
// dead and disconnected; dropping it preserves liveness for everyone else.
type Client struct {
	transport transport
	logger    *logrus.Logger

	mu      sync.Mutex
	id      int
	name    string
	pending bool

	queue     chan *packets.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(t transport, id int, queueSize int, logger *logrus.Logger) *Client {
	return &Client{
		transport: t,
		logger:    logger,
		id:        id,
		pending:   true,
		queue:     make(chan *packets.Envelope, queueSize),
		done:      make(chan struct{}),
	}
}

func (c *Client) ID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Pending reports whether the client is still in name negotiation.
func (c *Client) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// admit completes the handshake, binding the client to its final connection
// id and display name. On reconnection the id is the identity's old one, not
// the id assigned at accept time.
func (c *Client) admit(id int, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.name = name
	c.pending = false
}

func (c *Client) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// Send queues a packet for delivery. It never blocks: a full queue closes
// the connection and the packet is dropped, as is anything sent after close.
func (c *Client) Send(env *packets.Envelope) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.queue <- env:
	default:
		c.logger.Warnf("send queue overflow for client %s, disconnecting", c.RemoteAddr())
		c.Close()
	}
}

// runWriter drains the outbound queue onto the transport until the client
// closes or a write fails.
func (c *Client) runWriter() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.queue:
			if err := c.transport.WritePacket(env); err != nil {
				c.logger.Warnf("write to client %s failed: %v", c.RemoteAddr(), err)
				c.Close()
				return
			}
		}
	}
}

// Close tears down the transport. Safe to call multiple times and from any
// goroutine; the first call wins.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.transport.Close(); err != nil {
			c.logger.Debugf("closing client %s: %v", c.RemoteAddr(), err)
		}
	})
}
