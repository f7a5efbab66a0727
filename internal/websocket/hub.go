package websocket

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// TopicBooks is the topic book change events are published on.
const TopicBooks = "books"

type envelope struct {
	topic   string
	message []byte
}

type directMessage struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// All maps are owned by the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// A map of topics to the set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool

	publish  chan envelope
	direct   chan directMessage
	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		publish:       make(chan envelope),
		direct:        make(chan directMessage),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.addSubscription(client, client.Topic)
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.Topic).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case d := <-h.direct:
			if h.clients[d.client] {
				select {
				case d.client.Send <- d.message:
				default:
				}
			}
		case env := <-h.publish:
			for client := range h.subscriptions[env.topic] {
				select {
				case client.Send <- env.message:
				default:
					// Slow consumer; it reconnects and refetches.
					log.Warn().Str("topic", env.topic).Msg("Dropping websocket client with full send buffer")
					h.drop(client)
				}
			}
		}
	}
}

// Stop terminates Run and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Subscribe registers a client for its topic.
func (h *Hub) Subscribe(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unsubscribe removes a client and closes its send channel.
func (h *Hub) Unsubscribe(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendTo delivers a message to a single registered client, dropping it if
// the client's buffer is full.
func (h *Hub) SendTo(client *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: client, message: message}:
	case <-h.done:
	}
}

// Publish queues a message for every client subscribed to topic. It never
// blocks after Stop.
func (h *Hub) Publish(topic string, message []byte) {
	if message == nil {
		return
	}
	select {
	case h.publish <- envelope{topic: topic, message: message}:
	case <-h.done:
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	h.removeSubscription(client)
	close(client.Send)
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[*Client]bool)
	}
	h.subscriptions[topic][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for topic, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, topic)
			}
		}
	}
}
