package inspector

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

const (
	messageSnapshot = "snapshot"
	messageChange   = "change"
	messageFilter   = "filter"
)

// message is a frame of the websocket stream.
type message struct {
	Type   string     `json:"type"`
	Vars   []VarState `json:"vars,omitempty"`
	Change *Change    `json:"change,omitempty"`
	Names  []string   `json:"names,omitempty"`
}

// client is one websocket connection.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	filter map[string]bool
	closed bool
}

func (c *client) wants(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.filter) == 0 || c.filter[name]
}

func (c *client) setFilter(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = make(map[string]bool, len(names))
	for _, n := range names {
		c.filter[n] = true
	}
}

// enqueue queues data, reporting false if the client is full or closed.
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// ServeWS upgrades the request and streams changes until the client leaves.
func (in *Inspector) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := in.upgrader.Upgrade(w, r, nil)
	if err != nil {
		in.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	in.mu.Lock()
	in.clients[c] = struct{}{}
	count := len(in.clients)
	in.mu.Unlock()
	in.logger.Info("inspector client connected", "remote", r.RemoteAddr, "clients", count)

	data, _ := json.Marshal(message{Type: messageSnapshot, Vars: in.Vars()})
	c.enqueue(data)

	go in.writeLoop(c)
	in.readLoop(c)

	in.removeClient(c)
	in.logger.Info("inspector client disconnected", "remote", r.RemoteAddr)
}

func (in *Inspector) removeClient(c *client) {
	in.mu.Lock()
	delete(in.clients, c)
	in.mu.Unlock()
	c.close()
}

// readLoop handles filter messages and keeps the connection alive.
func (in *Inspector) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				in.logger.Debug("inspector read error", "error", err)
			}
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			in.logger.Debug("invalid inspector message", "error", err)
			continue
		}
		if msg.Type == messageFilter {
			c.setFilter(msg.Names)
		}
	}
}

// writeLoop sends queued messages and pings.
func (in *Inspector) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// broadcast sends msg to every client interested in it. Clients whose
// buffer is full are dropped.
func (in *Inspector) broadcast(msg message) {
	in.mu.RLock()
	if len(in.clients) == 0 {
		in.mu.RUnlock()
		return
	}
	clients := make([]*client, 0, len(in.clients))
	for c := range in.clients {
		clients = append(clients, c)
	}
	in.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		in.logger.Error("failed to encode inspector message", "error", err)
		return
	}

	for _, c := range clients {
		if msg.Change != nil && !c.wants(msg.Change.Name) {
			continue
		}
		if !c.enqueue(data) {
			in.logger.Warn("dropping slow inspector client", "remote", c.conn.RemoteAddr().String())
			in.removeClient(c)
		}
	}
}

// ClientCount returns the number of connected websocket clients.
func (in *Inspector) ClientCount() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.clients)
}

// Close disconnects every websocket client.
func (in *Inspector) Close() {
	in.mu.Lock()
	clients := in.clients
	in.clients = make(map[*client]struct{})
	in.mu.Unlock()
	for c := range clients {
		c.close()
	}
}
