package chattest

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roomchat/chat-tui/internal/protocol"
)

type peer struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	name   string
	left   bool
	closed bool
}

func newPeer(conn *websocket.Conn) *peer {
	c := &peer{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *peer) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// deliver queues data unless the peer is closed. It reports false when the
// queue is full.
func (c *peer) deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *peer) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// register records the peer's name on its first frame and reports whether
// this was the first.
func (c *peer) register(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.name != "" {
		return false
	}
	c.name = name
	return true
}

func (c *peer) markLeft() (name string, first bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	first = !c.left && c.name != ""
	c.left = true
	return c.name, first
}

type broadcaster struct {
	mu      sync.RWMutex
	peers map[*peer]bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{peers: make(map[*peer]bool)}
}

func (b *broadcaster) add(conn *websocket.Conn) *peer {
	c := newPeer(conn)
	b.mu.Lock()
	b.peers[c] = true
	b.mu.Unlock()
	return c
}

func (b *broadcaster) remove(c *peer) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.peers[c]; !ok {
		return false
	}
	delete(b.peers, c)
	c.close()
	return true
}

func (b *broadcaster) snapshot() []*peer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	peers := make([]*peer, 0, len(b.peers))
	for c := range b.peers {
		peers = append(peers, c)
	}
	return peers
}

func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.peers)
}

func (b *broadcaster) sendTo(c *peer, m protocol.ChatMessage) {
	data, err := protocol.Encode(m)
	if err != nil {
		log.Printf("chattest: encode: %v", err)
		return
	}
	if !c.deliver(data) {
		log.Printf("chattest: peer too slow, disconnecting")
		b.remove(c)
	}
}

func (b *broadcaster) broadcast(m protocol.ChatMessage) {
	for _, c := range b.snapshot() {
		b.sendTo(c, m)
	}
}

// closeAll ends every connection with the given close code.
func (b *broadcaster) closeAll(code int) {
	msg := websocket.FormatCloseMessage(code, "")
	for _, c := range b.snapshot() {
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		b.remove(c)
	}
}
