package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"skattjakt-backend/internal/models"
	"skattjakt-backend/internal/services"
)

// tickPeriod drives the mm:ss display refresh. The elapsed value is always
// recomputed from the stored start timestamp, so missed ticks are harmless.
const tickPeriod = 500 * time.Millisecond

// sendQueueSize bounds the per-connection outbound queue. A slow reader
// loses ticks and cues rather than blocking anyone upstream.
const sendQueueSize = 16

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes timer ticks and feedback cues to connected
// sessions. It is the engine's FeedbackSink: cue delivery is advisory and
// write failures are dropped.
type WebSocketHandler struct {
	store services.ProgressStore
	hub   *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

// Client is one connected session. All writes to the connection go through
// the send queue; writePump is the connection's only writer.
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	send      chan *Message
	done      chan struct{}
}

type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data"`
}

func NewWebSocketHandler(store services.ProgressStore) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{
		store: store,
		hub:   hub,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	sessionID := c.GetString("session_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		SessionID: sessionID,
		Conn:      conn,
		send:      make(chan *Message, sendQueueSize),
		done:      make(chan struct{}),
	}

	h.hub.register <- client

	go client.writePump()
	go h.tickLoop(client)

	defer func() {
		close(client.done)
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendTick(client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.sendPong(client)
	}
}

// writePump drains the send queue onto the connection. It exits on the first
// write error or when the connection's read loop finishes.
func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.Conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue hands a message to the connection's writer, dropping it when the
// queue is full. Everything on this channel is advisory.
func (c *Client) enqueue(msg *Message) {
	select {
	case c.send <- msg:
	default:
	}
}

// tickLoop queues a timer update every 500ms until the connection closes.
func (h *WebSocketHandler) tickLoop(client *Client) {
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sendTick(client)
		case <-client.done:
			return
		}
	}
}

func (h *WebSocketHandler) sendTick(client *Client) {
	progress, err := h.store.LoadProgress(client.SessionID)
	if err != nil {
		return
	}

	elapsed := progress.Elapsed(time.Now())
	client.enqueue(&Message{
		Type: "TIMER_TICK",
		Data: gin.H{
			"elapsed_ms": elapsed.Milliseconds(),
			"display":    models.FormatElapsed(elapsed),
			"running":    progress != nil && progress.Started && progress.CompletedAt == 0,
			"timestamp":  time.Now().UnixMilli(),
		},
	})
}

func (h *WebSocketHandler) sendPong(client *Client) {
	client.enqueue(&Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	})
}

// PlayCue implements services.FeedbackSink.
func (h *WebSocketHandler) PlayCue(sessionID string, cue services.Cue) {
	msg := &Message{
		Type:      "CUE",
		SessionID: sessionID,
		Data: gin.H{
			"cue":       string(cue),
			"timestamp": time.Now().UnixMilli(),
		},
	}

	select {
	case h.hub.broadcast <- msg:
	default:
		// Cues are advisory; drop rather than block the engine.
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.SessionID] = client
			log.Printf("Client registered: %s", client.SessionID)

		case client := <-hub.unregister:
			if cur, ok := hub.clients[client.SessionID]; ok && cur == client {
				delete(hub.clients, client.SessionID)
				log.Printf("Client unregistered: %s", client.SessionID)
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.SessionID != "" {
		if client, ok := hub.clients[message.SessionID]; ok {
			client.enqueue(message)
		}
	} else {
		for _, client := range hub.clients {
			client.enqueue(message)
		}
	}
}
