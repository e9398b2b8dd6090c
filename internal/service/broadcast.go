package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kvanc/server/internal/dto"
	"github.com/sirupsen/logrus"
)

const maxBindMessageSize = 512

// Conn is the part of a real-time connection the hub relies on. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Subscriber is a live connection registered with the hub
type Subscriber struct {
	ID     string
	conn   Conn
	send   chan []byte
	voteID string
}

// HubConfig tunes per-subscriber queueing and keepalive
type HubConfig struct {
	QueueSize  int
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		QueueSize:  16,
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
	}
}

// BroadcastHub pushes question and result frames to every connected subscriber
type BroadcastHub interface {
	Register(conn Conn) *Subscriber
	Unregister(subscriber *Subscriber)
	Send(subscriber *Subscriber, question string) bool
	PushMessage(question string)
	PushResults(snapshot dto.ResultSnapshot)
	Bind(subscriber *Subscriber, voteID string)
	Reset()
	Count() int
	Bound() int
	Close()
}

type broadcastHub struct {
	config          HubConfig
	subscribers     map[string]*Subscriber
	subscriberMutex sync.RWMutex
	closed          bool
}

func newBroadcastHub(config HubConfig) BroadcastHub {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultHubConfig().QueueSize
	}
	return &broadcastHub{
		config:      config,
		subscribers: make(map[string]*Subscriber),
	}
}

// Register stores the connection and starts its read and write pumps.
// It returns nil when the hub is already closed.
func (h *broadcastHub) Register(conn Conn) *Subscriber {
	subscriber := &Subscriber{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.config.QueueSize),
	}

	h.subscriberMutex.Lock()
	if h.closed {
		h.subscriberMutex.Unlock()
		conn.Close()
		return nil
	}
	h.subscribers[subscriber.ID] = subscriber
	h.subscriberMutex.Unlock()

	go h.writePump(subscriber)
	go h.readPump(subscriber)

	logrus.WithField("subscriber", subscriber.ID).Debug("Subscriber connected")
	return subscriber
}

func (h *broadcastHub) Unregister(subscriber *Subscriber) {
	h.subscriberMutex.Lock()
	defer h.subscriberMutex.Unlock()

	if h.remove(subscriber) {
		logrus.WithField("subscriber", subscriber.ID).Debug("Subscriber disconnected")
	}
}

// remove must be called with subscriberMutex held
func (h *broadcastHub) remove(subscriber *Subscriber) bool {
	existing, exists := h.subscribers[subscriber.ID]
	if !exists || existing != subscriber {
		return false
	}
	delete(h.subscribers, subscriber.ID)
	close(subscriber.send)
	return true
}

func (h *broadcastHub) Send(subscriber *Subscriber, question string) bool {
	payload, err := json.Marshal(dto.PushMessage{Type: dto.PushTypeQuestion, Question: question})
	if err != nil {
		logrus.Errorf("Error marshaling question: %v", err)
		return false
	}

	h.subscriberMutex.Lock()
	defer h.subscriberMutex.Unlock()

	if existing, exists := h.subscribers[subscriber.ID]; !exists || existing != subscriber {
		return false
	}
	return h.deliver(subscriber, payload)
}

func (h *broadcastHub) PushMessage(question string) {
	payload, err := json.Marshal(dto.PushMessage{Type: dto.PushTypeQuestion, Question: question})
	if err != nil {
		logrus.Errorf("Error marshaling question: %v", err)
		return
	}
	h.broadcast(payload)
}

func (h *broadcastHub) PushResults(snapshot dto.ResultSnapshot) {
	payload, err := json.Marshal(dto.PushMessage{Type: dto.PushTypeResults, Results: &snapshot})
	if err != nil {
		logrus.Errorf("Error marshaling results: %v", err)
		return
	}
	h.broadcast(payload)
}

func (h *broadcastHub) broadcast(payload []byte) {
	h.subscriberMutex.Lock()
	defer h.subscriberMutex.Unlock()

	for _, subscriber := range h.subscribers {
		h.deliver(subscriber, payload)
	}
}

// deliver never blocks: a subscriber whose queue is full is dropped.
// Must be called with subscriberMutex held.
func (h *broadcastHub) deliver(subscriber *Subscriber, payload []byte) bool {
	select {
	case subscriber.send <- payload:
		return true
	default:
		logrus.WithField("subscriber", subscriber.ID).Warn("Subscriber queue full, dropping connection")
		h.remove(subscriber)
		subscriber.conn.Close()
		return false
	}
}

func (h *broadcastHub) Bind(subscriber *Subscriber, voteID string) {
	h.subscriberMutex.Lock()
	defer h.subscriberMutex.Unlock()

	if existing, exists := h.subscribers[subscriber.ID]; exists && existing == subscriber {
		subscriber.voteID = voteID
	}
}

// Reset clears the vote association of every subscriber; connections stay open.
func (h *broadcastHub) Reset() {
	h.subscriberMutex.Lock()
	defer h.subscriberMutex.Unlock()

	for _, subscriber := range h.subscribers {
		subscriber.voteID = ""
	}
}

func (h *broadcastHub) Count() int {
	h.subscriberMutex.RLock()
	defer h.subscriberMutex.RUnlock()

	return len(h.subscribers)
}

func (h *broadcastHub) Bound() int {
	h.subscriberMutex.RLock()
	defer h.subscriberMutex.RUnlock()

	bound := 0
	for _, subscriber := range h.subscribers {
		if subscriber.voteID != "" {
			bound++
		}
	}
	return bound
}

func (h *broadcastHub) Close() {
	h.subscriberMutex.Lock()
	defer h.subscriberMutex.Unlock()

	for _, subscriber := range h.subscribers {
		h.remove(subscriber)
	}
	h.closed = true
}

func (h *broadcastHub) writePump(subscriber *Subscriber) {
	ticker := time.NewTicker(h.config.PingPeriod)
	defer func() {
		ticker.Stop()
		subscriber.conn.Close()
	}()

	for {
		select {
		case message, ok := <-subscriber.send:
			subscriber.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if !ok {
				subscriber.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := subscriber.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("subscriber", subscriber.ID).Debugf("Error writing to subscriber: %v", err)
				h.Unregister(subscriber)
				return
			}

		case <-ticker.C:
			subscriber.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := subscriber.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unregister(subscriber)
				return
			}
		}
	}
}

func (h *broadcastHub) readPump(subscriber *Subscriber) {
	defer h.Unregister(subscriber)

	subscriber.conn.SetReadLimit(maxBindMessageSize)
	subscriber.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	subscriber.conn.SetPongHandler(func(string) error {
		return subscriber.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})

	for {
		_, message, err := subscriber.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithField("subscriber", subscriber.ID).Warnf("Unexpected close: %v", err)
			}
			return
		}

		var bind dto.BindMessage
		if err := json.Unmarshal(message, &bind); err != nil || bind.VoteID == "" {
			logrus.WithField("subscriber", subscriber.ID).Debug("Ignoring malformed subscriber message")
			continue
		}
		h.Bind(subscriber, bind.VoteID)
	}
}
