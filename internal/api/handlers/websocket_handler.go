package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	ws "github.com/isdelr/shelf-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades HTTP connections to the live book feed.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. checkOrigin decides
// which browser origins may connect; nil allows any.
func NewWebSocketHandler(hub *ws.Hub, checkOrigin func(r *http.Request) bool) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeBooks subscribes the connection to book change events.
func (h *WebSocketHandler) ServeBooks(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, ws.TopicBooks)
	h.hub.Subscribe(client)

	go client.WritePump()
	go client.ReadPump(h.handleIncomingWSMessage)
}

// handleIncomingWSMessage processes messages received from a websocket client.
// The feed is one-way; clients may only ping.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		h.reply(client, ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case "ping":
		h.reply(client, ws.NewMessage("pong", nil))
	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		h.reply(client, ws.NewErrorMessage("Unknown action: "+msg.Action))
	}
}

func (h *WebSocketHandler) reply(client *ws.Client, message []byte) {
	h.hub.SendTo(client, message)
}
