// Package realtime fans WorkItemChanged events out to websocket subscribers.
//
// Services publish through the Publisher interface; the Hub keeps one room
// per topic and a buffered queue per peer. A peer whose queue is full is
// dropped rather than allowed to stall the publisher.
package realtime

import (
	"sync"

	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type EventType string

const (
	Created EventType = "CREATED"
	Updated EventType = "UPDATED"
	Deleted EventType = "DELETED"
)

// Event is the JSON frame sent to subscribers. WorkItem is nil for deletes.
type Event struct {
	Type       EventType        `json:"type"`
	WorkItem   *models.WorkItem `json:"workItem"`
	WorkItemID string           `json:"workItemId"`
}

// ProjectTopic names the topic a project's board listens on.
func ProjectTopic(projectID primitive.ObjectID) string {
	return "/topic/project/" + projectID.Hex()
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(topic string, ev Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(string, Event) {}

const peerQueue = 32

// Peer is one subscription. Read Events until Done closes.
type Peer struct {
	ID     string
	topic  string
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (p *Peer) Events() <-chan Event   { return p.events }
func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) close() {
	p.once.Do(func() { close(p.done) })
}

type room struct {
	peers map[*Peer]struct{}
}

// Hub is safe for concurrent use.
type Hub struct {
	mu      sync.Mutex
	rooms   map[string]*room
	stopped bool
	logger  *zap.Logger
	metrics Observer
}

// Observer receives hub counters; system/metrics implements it.
type Observer interface {
	PeerJoined()
	PeerLeft()
	EventDropped()
	EventPublished()
}

type nopObserver struct{}

func (nopObserver) PeerJoined()     {}
func (nopObserver) PeerLeft()       {}
func (nopObserver) EventDropped()   {}
func (nopObserver) EventPublished() {}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{rooms: make(map[string]*room), logger: logger, metrics: nopObserver{}}
}

// SetObserver wires metrics. Call before serving traffic.
func (h *Hub) SetObserver(o Observer) {
	if o != nil {
		h.metrics = o
	}
}

// Subscribe registers a peer on topic. The returned cancel func is
// idempotent. After Stop, Subscribe returns an already-closed peer.
func (h *Hub) Subscribe(topic string) (*Peer, func()) {
	p := &Peer{
		ID:     uuid.NewString(),
		topic:  topic,
		events: make(chan Event, peerQueue),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		p.close()
		return p, func() {}
	}
	r, ok := h.rooms[topic]
	if !ok {
		r = &room{peers: make(map[*Peer]struct{})}
		h.rooms[topic] = r
	}
	r.peers[p] = struct{}{}
	h.mu.Unlock()
	h.metrics.PeerJoined()

	return p, func() { h.leave(p) }
}

func (h *Hub) leave(p *Peer) {
	h.mu.Lock()
	r, ok := h.rooms[p.topic]
	removed := false
	if ok {
		if _, in := r.peers[p]; in {
			delete(r.peers, p)
			removed = true
		}
		if len(r.peers) == 0 {
			delete(h.rooms, p.topic)
		}
	}
	h.mu.Unlock()
	p.close()
	if removed {
		h.metrics.PeerLeft()
	}
}

// Publish delivers ev to every peer on topic without blocking.
func (h *Hub) Publish(topic string, ev Event) {
	h.mu.Lock()
	r, ok := h.rooms[topic]
	var peers []*Peer
	if ok {
		peers = make([]*Peer, 0, len(r.peers))
		for p := range r.peers {
			peers = append(peers, p)
		}
	}
	h.mu.Unlock()

	h.metrics.EventPublished()
	for _, p := range peers {
		select {
		case p.events <- ev:
		default:
			h.logger.Warn("realtime peer too slow; dropping",
				zap.String("topic", topic),
				zap.String("peer", p.ID))
			h.metrics.EventDropped()
			h.leave(p)
		}
	}
}

// Subscribers returns the number of peers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[topic]; ok {
		return len(r.peers)
	}
	return 0
}

// Stop closes every peer and rejects new subscriptions.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	rooms := h.rooms
	h.rooms = make(map[string]*room)
	h.mu.Unlock()

	for _, r := range rooms {
		for p := range r.peers {
			p.close()
			h.metrics.PeerLeft()
		}
	}
}
