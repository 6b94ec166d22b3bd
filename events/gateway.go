// Package events fans application events out to the local front-end and to
// remote subscribers connected over the socket server.
package events

import (
	"slices"
	"sync"

	"aiderdesk/config"
)

// RemoteEventName is the name every remote frame is emitted under.
const RemoteEventName = "event"

// LocalSink receives every event, unfiltered. A closed sink is skipped.
type LocalSink interface {
	Send(eventType string, data any)
	Closed() bool
}

// Connection is a remote client able to receive named frames.
type Connection interface {
	ID() string
	Emit(event string, data any) error
}

// Filters restricts the events delivered to a subscriber. A nil list means
// "no restriction"; an empty non-nil list matches nothing.
type Filters struct {
	EventTypes []string `json:"eventTypes,omitempty"`
	BaseDirs   []string `json:"baseDirs,omitempty"`
}

// Matches reports whether an event of eventType scoped to baseDir passes the
// filters. Events without a baseDir are never filtered by directory.
func (f Filters) Matches(eventType, baseDir string) bool {
	if f.EventTypes != nil && !slices.Contains(f.EventTypes, eventType) {
		return false
	}
	if f.BaseDirs != nil && baseDir != "" && !slices.Contains(f.BaseDirs, baseDir) {
		return false
	}
	return true
}

// Envelope is the body of a remote frame.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type subscriber struct {
	conn    Connection
	filters Filters
	queue   chan Envelope
	done    chan struct{}
	stopped bool
}

// Gateway delivers events to an optional local sink and to any number of
// filtered remote subscribers.
//
// Each subscriber is served by its own goroutine reading a bounded FIFO queue,
// so a slow or broken connection never blocks Emit or other subscribers.
// A subscriber whose queue overflows or whose delivery fails is unsubscribed.
type Gateway struct {
	mu          sync.Mutex
	local       LocalSink
	subscribers map[string]*subscriber
	queueSize   int
	closed      bool
	wg          sync.WaitGroup
}

// NewGateway creates a gateway. queueSize bounds each subscriber's pending
// events; values below 1 use config.DefaultEventQueueSize.
func NewGateway(local LocalSink, queueSize int) *Gateway {
	if queueSize < 1 {
		queueSize = config.DefaultEventQueueSize
	}
	return &Gateway{
		local:       local,
		subscribers: make(map[string]*subscriber),
		queueSize:   queueSize,
	}
}

// SetLocalSink replaces the local sink. nil disables local delivery.
func (g *Gateway) SetLocalSink(local LocalSink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.local = local
}

// Emit sends an event to the local sink and queues it for every matching
// remote subscriber. It never blocks on delivery and never fails.
func (g *Gateway) Emit(eventType string, data any) {
	g.mu.Lock()
	local := g.local
	g.mu.Unlock()

	if local != nil && !local.Closed() {
		local.Send(eventType, data)
	}

	baseDir := BaseDirOf(data)
	envelope := Envelope{Type: eventType, Data: data}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}

	config.Logger().Debug("Broadcasting event to connectors", "connectors", len(g.subscribers), "eventType", eventType)

	for id, s := range g.subscribers {
		if !s.filters.Matches(eventType, baseDir) {
			continue
		}
		select {
		case s.queue <- envelope:
		default:
			config.Logger().Warn("Event queue full, dropping subscriber", "connectionId", id, "eventType", eventType)
			g.removeLocked(s)
		}
	}
}

// Subscribe registers conn with the given filters. Subscribing again with the
// same connection id replaces the previous filters entirely.
func (g *Gateway) Subscribe(conn Connection, filters Filters) {
	id := conn.ID()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}

	config.Logger().Info("Subscribing to events", "connectionId", id, "eventTypes", filters.EventTypes, "baseDirs", filters.BaseDirs)

	if existing, ok := g.subscribers[id]; ok {
		if existing.conn == conn {
			existing.filters = filters
			return
		}
		g.removeLocked(existing)
	}

	s := &subscriber{
		conn:    conn,
		filters: filters,
		queue:   make(chan Envelope, g.queueSize),
		done:    make(chan struct{}),
	}
	g.subscribers[id] = s

	g.wg.Add(1)
	go g.deliver(s)
}

// Unsubscribe removes the subscription for connectionID, if any.
func (g *Gateway) Unsubscribe(connectionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	before := len(g.subscribers)
	if s, ok := g.subscribers[connectionID]; ok {
		g.removeLocked(s)
	}
	config.Logger().Info("Unsubscribed from events", "before", before, "after", len(g.subscribers))
}

// Subscribed reports whether connectionID currently has a subscription.
func (g *Gateway) Subscribed(connectionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.subscribers[connectionID]
	return ok
}

// SubscriberCount returns the number of active subscriptions.
func (g *Gateway) SubscriberCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subscribers)
}

// Close drops every subscription and waits for pending deliveries to stop.
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	for _, s := range g.subscribers {
		g.removeLocked(s)
	}
	g.mu.Unlock()

	g.wg.Wait()
}

func (g *Gateway) deliver(s *subscriber) {
	defer g.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case envelope := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			if err := s.conn.Emit(RemoteEventName, envelope); err != nil {
				config.Logger().Warn("Event delivery failed, removing subscriber",
					"connectionId", s.conn.ID(), "eventType", envelope.Type, "err", err)
				g.drop(s)
				return
			}
		}
	}
}

// drop removes s if it is still the current subscription for its connection.
func (g *Gateway) drop(s *subscriber) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(s)
}

func (g *Gateway) removeLocked(s *subscriber) {
	id := s.conn.ID()
	if current, ok := g.subscribers[id]; ok && current == s {
		delete(g.subscribers, id)
	}
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
}

// BaseDirOf returns the project directory an event payload is scoped to, or
// "" when the payload carries none.
func BaseDirOf(data any) string {
	switch v := data.(type) {
	case interface{ GetBaseDir() string }:
		return v.GetBaseDir()
	case map[string]any:
		s, _ := v["baseDir"].(string)
		return s
	case map[string]string:
		return v["baseDir"]
	default:
		return ""
	}
}
