package game

import (
	"sync"

	"github.com/google/uuid"

	"trainvoc/models"
)

// DefaultSendBuffer is the outbound queue size of a connection.
const DefaultSendBuffer = 256

// Conn is the transport handle of one client. Rooms only write to it through
// Send, which never blocks; the transport drains Outbound.
type Conn struct {
	ID string

	out       chan models.Event
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	roomCode string
	playerID string
}

func NewConn(buffer int) *Conn {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Conn{
		ID:     uuid.NewString(),
		out:    make(chan models.Event, buffer),
		closed: make(chan struct{}),
	}
}

// Send queues ev for delivery. It returns false when the connection is closed
// or its buffer is full.
func (c *Conn) Send(ev models.Event) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.out <- ev:
		return true
	default:
		return false
	}
}

func (c *Conn) Outbound() <-chan models.Event { return c.out }

func (c *Conn) Done() <-chan struct{} { return c.closed }

func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Binding returns the room and player this connection currently speaks for.
func (c *Conn) Binding() (roomCode, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode, c.playerID
}

func (c *Conn) bind(roomCode, playerID string) {
	c.mu.Lock()
	c.roomCode, c.playerID = roomCode, playerID
	c.mu.Unlock()
}

// tryBind claims an unbound connection for a pending create or join.
func (c *Conn) tryBind(roomCode string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomCode != "" {
		return false
	}
	c.roomCode = roomCode
	return true
}

// unbind clears the binding if it still points at roomCode.
func (c *Conn) unbind(roomCode string) {
	c.mu.Lock()
	if c.roomCode == roomCode {
		c.roomCode, c.playerID = "", ""
	}
	c.mu.Unlock()
}
