package realtime

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/websocket"
)

// Hub is the in-process broadcast fabric. It implements Port for engine-side
// subscribers and serves a websocket endpoint fanning the same topics out to
// remote clients.
type Hub struct {
	mu     sync.Mutex
	nextID int
	topics map[string]*hubTopic
	closed bool
}

type hubTopic struct {
	handlers map[int]func(payload []byte)
	peers    map[*wsPeer]struct{}
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]*hubTopic)}
}

// Subscribe registers a handler for a topic. The returned unsubscribe is
// idempotent.
func (h *Hub) Subscribe(topic string, handler func(payload []byte)) (func(), error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.New("hub is closed")
	}

	h.nextID++
	id := h.nextID
	h.topicLocked(topic).handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if entry, ok := h.topics[topic]; ok {
				delete(entry.handlers, id)
				h.dropIfEmptyLocked(topic, entry)
			}
		})
	}, nil
}

// Publish fans a payload out to every local handler and connected peer
// subscribed to the topic.
func (h *Hub) Publish(topic string, payload []byte) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("topic is required")
	}

	h.mu.Lock()
	entry, ok := h.topics[topic]
	if !ok {
		h.mu.Unlock()
		return nil
	}
	handlers := make([]func([]byte), 0, len(entry.handlers))
	for _, handler := range entry.handlers {
		handlers = append(handlers, handler)
	}
	peers := make([]*wsPeer, 0, len(entry.peers))
	for peer := range entry.peers {
		peers = append(peers, peer)
	}
	h.mu.Unlock()

	for _, handler := range handlers {
		handler(payload)
	}
	frame := wsFrame{Type: "event", Topic: topic, Payload: payload}
	for _, peer := range peers {
		if err := peer.writeFrame(frame); err != nil {
			log.Printf("realtime: dropping peer after write failure topic=%s err=%v", topic, err)
			h.detachPeer(peer)
		}
	}
	return nil
}

// Close detaches every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.topics = make(map[string]*hubTopic)
	h.mu.Unlock()
}

func (h *Hub) topicLocked(topic string) *hubTopic {
	entry, ok := h.topics[topic]
	if !ok {
		entry = &hubTopic{
			handlers: make(map[int]func(payload []byte)),
			peers:    make(map[*wsPeer]struct{}),
		}
		h.topics[topic] = entry
	}
	return entry
}

func (h *Hub) dropIfEmptyLocked(topic string, entry *hubTopic) {
	if len(entry.handlers) == 0 && len(entry.peers) == 0 {
		delete(h.topics, topic)
	}
}

func (h *Hub) detachPeer(peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, entry := range h.topics {
		delete(entry.peers, peer)
		h.dropIfEmptyLocked(topic, entry)
	}
}

// wsFrame is the websocket wire frame, both directions.
type wsFrame struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// Handler serves the hub over HTTP: a health probe at /up and the websocket
// endpoint at /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		h.handleConn(conn)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
	return mux
}

func (h *Hub) handleConn(conn *websocket.Conn) {
	peer := newWSPeer(json.NewEncoder(conn))
	decoder := json.NewDecoder(conn)
	defer func() {
		h.detachPeer(peer)
		_ = conn.Close()
	}()

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("realtime: websocket decode failed err=%v", err)
			}
			return
		}

		switch frame.Type {
		case "subscribe":
			if strings.TrimSpace(frame.Topic) == "" {
				_ = peer.writeFrame(wsFrame{Type: "error", Error: "topic is required"})
				continue
			}
			h.mu.Lock()
			if !h.closed {
				h.topicLocked(frame.Topic).peers[peer] = struct{}{}
			}
			h.mu.Unlock()
			_ = peer.writeFrame(wsFrame{Type: "subscribed", Topic: frame.Topic})

		case "unsubscribe":
			h.mu.Lock()
			if entry, ok := h.topics[frame.Topic]; ok {
				delete(entry.peers, peer)
				h.dropIfEmptyLocked(frame.Topic, entry)
			}
			h.mu.Unlock()

		case "publish":
			if err := h.Publish(frame.Topic, frame.Payload); err != nil {
				_ = peer.writeFrame(wsFrame{Type: "error", Topic: frame.Topic, Error: err.Error()})
			}

		default:
			_ = peer.writeFrame(wsFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}
