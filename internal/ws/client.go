package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"chatcore/internal/fanout"
)

// client is one connected websocket, usable as a fan-out subscriber.
// gorilla/websocket allows one concurrent writer, so writes serialize on mu.
type client struct {
	userID int64
	conn   *websocket.Conn
	mu     sync.Mutex
}

var _ fanout.Subscriber = (*client)(nil)

func (c *client) Send(event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(event)
}
