package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/pushgate/internal/infrastructure/config"
	"github.com/nerrad567/pushgate/internal/infrastructure/logging"
	"github.com/nerrad567/pushgate/internal/push"
)

// WebSocket frame types.
const (
	WSTypeJoin  = "join"
	WSTypePing  = "ping"
	WSTypePong  = "pong"
	WSTypeError = "error"

	// defaultSendBuffer applies when websocket.send_buffer is unset.
	defaultSendBuffer = 64
)

// Connection send errors.
var (
	// ErrConnectionClosed is returned by Send after the socket has closed.
	ErrConnectionClosed = errors.New("api: websocket connection closed")

	// ErrSendBufferFull is returned by Send when the client is not keeping up.
	ErrSendBufferFull = errors.New("api: websocket send buffer full")
)

// Frame is a server to client WebSocket message.
type Frame struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// ClientFrame is a client to server WebSocket message.
//
//	{"type": "join", "channel": "news", "token": "..."}
//	{"type": "ping"}
type ClientFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Token   string `json:"token,omitempty"`
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// WSClient is one client WebSocket registered with the push manager as a
// push.Connection.
type WSClient struct {
	id        string
	userID    string
	authToken string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
	manager   *push.Manager
	logger    *logging.Logger
}

// ID implements push.Connection.
func (c *WSClient) ID() string { return c.id }

// AuthToken implements push.TokenBearer.
func (c *WSClient) AuthToken() string { return c.authToken }

// Send implements push.Connection. It encodes msg and queues it for the
// write pump without blocking.
func (c *WSClient) Send(msg push.Message) error {
	data, err := json.Marshal(Frame{
		Type:      msg.Type,
		Channel:   msg.Channel,
		Data:      msg.Data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return c.trySend(data)
}

// Close implements push.Connection. It is safe to call more than once.
func (c *WSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// trySend queues data for the write pump. Full buffers drop the frame.
func (c *WSClient) trySend(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("websocket send buffer full, dropping frames",
				"uid", c.userID,
				"connection", c.id,
			)
		}
		return ErrSendBufferFull
	}
}

// handleWebSocket authenticates the client token, upgrades the connection
// and registers it with the push manager.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeFailed(w, http.StatusUnauthorized, msgMissingParameters)
		return
	}
	claims, err := ParseClientToken(token, s.secCfg.JWT.Secret)
	if err != nil {
		s.logger.Debug("websocket token rejected", "error", err)
		writeFailed(w, http.StatusUnauthorized, "Invalid token.")
		return
	}
	if err := push.ValidateUserID(claims.Subject); err != nil {
		writeManagerError(w, err, "")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	buffer := s.wsCfg.SendBuffer
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	client := &WSClient{
		id:        uuid.NewString(),
		userID:    claims.Subject,
		authToken: claims.AuthToken,
		conn:      conn,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
		manager:   s.manager,
		logger:    s.logger,
	}

	if err := s.manager.Register(client.userID, client); err != nil {
		s.logger.Warn("websocket registration failed", "uid", client.userID, "error", err)
		client.Close() //nolint:errcheck // connection is being discarded
		return
	}
	s.logger.Debug("websocket client connected",
		"uid", client.userID,
		"connection", client.id,
		"connections", s.manager.CountConnections(),
	)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads frames from the client until the socket fails or closes,
// then unregisters the connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.manager.Unregister(c.id)
		c.Close() //nolint:errcheck // best-effort close
		c.logger.Debug("websocket client disconnected", "uid", c.userID, "connection", c.id)
	}()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	silence := cfg.ReadDeadline()
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(silence))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(silence))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", "uid", c.userID, "error", err)
			}
			return
		}
		// Any client frame keeps the connection alive.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(silence))
		c.handleFrame(message)
	}
}

// writePump writes queued frames and keepalive pings until the client is
// closed.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		c.Close() //nolint:errcheck // best-effort close
	}()

	writeWait := cfg.PongWait()

	for {
		select {
		case <-c.done:
			//nolint:errcheck // Best-effort close frame
			c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(time.Second))
			return
		case message := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame processes one client frame.
func (c *WSClient) handleFrame(data []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch frame.Type {
	case WSTypeJoin:
		c.handleJoin(frame)
	case WSTypePing:
		c.sendFrame(WSTypePong, "", nil)
	default:
		c.sendError("", "unknown message type: "+frame.Type)
	}
}

// handleJoin adds the client's user to a channel the presented token
// grants access to.
func (c *WSClient) handleJoin(frame ClientFrame) {
	if frame.Channel == "" || frame.Token == "" {
		c.sendError(frame.Channel, msgMissingParameters)
		return
	}
	if err := c.manager.JoinWithToken(frame.Channel, c.userID, frame.Token); err != nil {
		_, message := describeError(err, frame.Channel)
		c.sendError(frame.Channel, message)
		return
	}
	c.logger.Debug("websocket client joined channel", "uid", c.userID, "channel", frame.Channel)
	c.sendFrame(WSTypeJoin, frame.Channel, json.RawMessage(`{"status":"success"}`))
}

// sendFrame queues a control frame for the client.
func (c *WSClient) sendFrame(frameType, channel string, data json.RawMessage) {
	//nolint:errcheck // a dropped control frame is not actionable
	c.Send(push.Message{Type: frameType, Channel: channel, Data: data})
}

// sendError queues an error frame for the client.
func (c *WSClient) sendError(channel, message string) {
	//nolint:errcheck // map of strings always marshals
	data, _ := json.Marshal(map[string]string{"message": message})
	c.sendFrame(WSTypeError, channel, data)
}
