package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/eveul/storefront/internal/events"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

// writeWait bounds how long a single message may take to reach a client
const writeWait = 10 * time.Second

type Handler struct {
	Upgrader websocket.Upgrader
	Log      hclog.Logger
	EventBus *events.EventBus[any]
}

type Message struct {
	EventType string      `json:"event-type"`
	Data      interface{} `json:"data"`
}

// NewHandler creates the event stream handler. Browsers are only accepted
// from allowedOrigins, a "*" entry accepts any origin.
func NewHandler(log hclog.Logger, eventBus *events.EventBus[any], allowedOrigins []string) *Handler {
	return &Handler{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		Log:      log,
		EventBus: eventBus,
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non browser clients send no origin
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Error("Unable to upgrade to WebSocket", "error", err)
		return
	}
	defer conn.Close()

	// Subscribe to events
	subscriber := h.EventBus.Subscribe()
	defer h.EventBus.Unsubscribe(subscriber)

	// Create a done channel to signal when to connection is closed
	done := make(chan struct{})

	// Handle incoming requests (if any)
	go h.readPump(conn, done)

	// Listen for events and send them to WebSocket client
	for {
		select {
		case event, ok := <-subscriber:
			if !ok {
				// the bus is shutting down
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait),
				)
				return
			}

			name, known := events.Name(event)
			if !known {
				h.Log.Warn("Unknown event type", "event", event)
				continue
			}

			payload, err := json.Marshal(Message{EventType: name, Data: event})
			if err != nil {
				h.Log.Error("Error marshalling message", "error", err)
				continue
			}

			// Send the message over the WebSocket connection
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.Log.Error("Error writing message to WebSocket", "error", err)
				// Connection might be closed, exit the loop
				return
			}
		case <-done:
			// The connection has been closed
			h.Log.Debug("WebSocket connection closed by the client")
			return
		}
	}
}

func (h *Handler) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Log.Error("Error reading message", "error", err)
			}
			break
		}
	}
}
