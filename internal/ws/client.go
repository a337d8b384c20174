package ws

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mavi-pizzeria/api/internal/auth"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Origins are checked in Gateway.ServeHTTP before the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// PrinterDirectory records the printers an agent reports.
type PrinterDirectory interface {
	SetAvailable(storeID string, names []string)
}

// Client represents a single WebSocket connection.
type Client struct {
	hub     *Hub
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte

	// printer is set for agents authenticated with the printer secret.
	printer bool
	storeID string

	// rooms and closed are guarded by hub.mu.
	rooms  map[string]bool
	closed bool
}

// ReadPump pumps messages from the connection to the hub. It runs in a
// per-connection goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Warn("websocket read error", zap.Error(err))
			}
			break
		}
		c.handle(message)
	}
}

// WritePump pumps messages from the hub to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One frame per event; clients parse each frame as a single JSON object.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// --- Inbound messages ---

type joinPayload struct {
	Type    string `json:"type"`
	Token   string `json:"token"`
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
}

type printersPayload struct {
	Printers []string `json:"printers"`
}

func (c *Client) handle(message []byte) {
	var ev Event
	if err := json.Unmarshal(message, &ev); err != nil {
		zap.L().Debug("ws: ignoring malformed message", zap.Error(err))
		return
	}

	switch ev.Type {
	case MessageJoin:
		var p joinPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		if room, ok := c.authorizeJoin(p); ok {
			c.hub.joinRoom(c, room)
		} else {
			zap.L().Debug("ws: join refused", zap.String("type", p.Type), zap.String("user_id", p.UserID))
		}

	case MessagePrinters:
		if !c.printer || c.gateway.printers == nil {
			return
		}
		var p printersPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		c.gateway.printers.SetAvailable(c.storeID, p.Printers)
	}
}

// authorizeJoin resolves a join request to a room. Staff rooms need an admin
// token (printer agents are trusted), user rooms a token for that user or
// staff, and order rooms only a well-formed order id.
func (c *Client) authorizeJoin(p joinPayload) (string, bool) {
	secret := c.gateway.cfg.JWTSecret

	switch {
	case p.Type == "admin":
		if c.printer {
			return AdminRoom, true
		}
		claims, err := auth.ValidateToken(secret, p.Token)
		if err != nil || !claims.IsAdmin() {
			return "", false
		}
		return AdminRoom, true

	case p.UserID != "":
		userID, err := uuid.Parse(p.UserID)
		if err != nil {
			return "", false
		}
		claims, err := auth.ValidateToken(secret, p.Token)
		if err != nil || (claims.UserID != userID && !claims.IsAdmin()) {
			return "", false
		}
		return UserRoom(userID.String()), true

	case p.OrderID != "":
		orderID, err := uuid.Parse(p.OrderID)
		if err != nil {
			return "", false
		}
		return OrderRoom(orderID.String()), true
	}
	return "", false
}

// --- Handshake ---

// GatewayConfig controls who may open a connection.
type GatewayConfig struct {
	JWTSecret      string
	PrinterSecret  string
	AllowedOrigins []string
	DefaultStoreID string
}

// Gateway upgrades HTTP requests into hub clients.
type Gateway struct {
	hub      *Hub
	cfg      GatewayConfig
	origins  map[string]bool
	printers PrinterDirectory
}

func NewGateway(hub *Hub, cfg GatewayConfig, printers PrinterDirectory) *Gateway {
	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[strings.TrimRight(o, "/")] = true
	}
	return &Gateway{hub: hub, cfg: cfg, origins: origins, printers: printers}
}

// ServeHTTP handles GET /ws. Browsers are admitted by origin; printer agents
// by presenting the printer secret as ?token= or x-api-key.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	printer := g.isPrinter(r)
	if !printer && !g.origins[strings.TrimRight(r.Header.Get("Origin"), "/")] {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:     g.hub,
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, 256),
		printer: printer,
		rooms:   make(map[string]bool),
	}
	if printer {
		client.storeID = r.URL.Query().Get("store")
		if client.storeID == "" {
			client.storeID = g.cfg.DefaultStoreID
		}
		client.rooms[PrinterRoom(client.storeID)] = true
	}
	if !g.hub.Register(client) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (g *Gateway) isPrinter(r *http.Request) bool {
	if g.cfg.PrinterSecret == "" {
		return false
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("x-api-key")
	}
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(g.cfg.PrinterSecret)) == 1
}
