package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/discovery"
	"github.com/muurk/devmon/internal/logging"
	"github.com/muurk/devmon/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Queued outbound messages per client before it is considered stalled
	clientQueueSize = 64
)

// Message types sent to websocket clients
const (
	MessageDeviceFound    = "device-found"
	MessageDevicesCleared = "devices-cleared"
	MessageError          = "error"
)

// Actions accepted from websocket clients
const (
	ActionDiscover = "discover"
	ActionClear    = "clear"
)

// Message is one event on the websocket stream
type Message struct {
	Type      string                 `json:"type"`
	Device    *protocol.DeviceRecord `json:"device,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Request is a command sent by a websocket client
type Request struct {
	Action string `json:"action"`
}

// messageFromEvent maps a registry event onto the wire message.
// Added and updated records are both reported as device-found.
func messageFromEvent(evt discovery.Event) Message {
	if evt.Type == discovery.EventCleared {
		return Message{Type: MessageDevicesCleared, Timestamp: time.Now()}
	}
	dev := evt.Device
	return Message{Type: MessageDeviceFound, Device: &dev, Timestamp: time.Now()}
}

type wsClient struct {
	id         string
	remoteAddr string
	conn       *websocket.Conn
	send       chan Message

	closeOnce sync.Once
	done      chan struct{}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// queue hands msg to the writer without blocking. It reports false when the
// client is not keeping up or is already closed.
func (c *wsClient) queue(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Failed to upgrade to WebSocket",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("origin", r.Header.Get("Origin")),
			zap.Error(err),
		)
		return
	}

	c := &wsClient{
		id:         uuid.NewString(),
		remoteAddr: r.RemoteAddr,
		conn:       conn,
		send:       make(chan Message, clientQueueSize),
		done:       make(chan struct{}),
	}

	// Subscribe before the snapshot so no change falls between the two
	events, unsubscribe := s.backend.Subscribe(clientQueueSize)

	s.addClient(c)
	logging.LogConnection(c.remoteAddr, c.id, "websocket_opened")

	defer func() {
		unsubscribe()
		s.removeClient(c)
		c.close()
		logging.LogConnection(c.remoteAddr, c.id, "websocket_closed")
	}()

	// Snapshot first; writePump has not started so this goroutine is the only writer
	for _, dev := range s.backend.Devices() {
		if err := c.write(Message{Type: MessageDeviceFound, Device: &dev, Timestamp: time.Now()}); err != nil {
			return
		}
	}

	go s.readPump(c)
	s.writePump(c, events)
}

// readPump handles client actions until the connection closes
func (s *Server) readPump(c *wsClient) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("WebSocket read failed",
					zap.String("client_id", c.id),
					zap.Error(err),
				)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.queue(Message{Type: MessageError, Error: "invalid request: " + err.Error(), Timestamp: time.Now()})
			continue
		}

		logging.Debug("WebSocket action received",
			zap.String("client_id", c.id),
			zap.String("action", req.Action),
		)

		switch req.Action {
		case ActionDiscover:
			if err := s.backend.Discover(); err != nil {
				c.queue(Message{Type: MessageError, Error: err.Error(), Timestamp: time.Now()})
			}
		case ActionClear:
			s.backend.Clear()
		default:
			c.queue(Message{Type: MessageError, Error: "unknown action: " + req.Action, Timestamp: time.Now()})
		}
	}
}

// writePump is the only writer on the connection
func (s *Server) writePump(c *wsClient, events <-chan discovery.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := c.write(messageFromEvent(evt)); err != nil {
				return
			}

		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) write(msg Message) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		logging.Debug("WebSocket write failed",
			zap.String("client_id", c.id),
			zap.Error(err),
		)
		return err
	}
	return nil
}
