package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/courier-client/internal/observability"
)

// Event is a named notification pushed by the backend. Payloads are
// at-most-once hints: subscribers re-fetch authoritative state over HTTP
// instead of trusting them, since the channel offers no ordering or replay
// across reconnects.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Handler func(Event)

// Conn is the subset of a websocket connection the channel needs; tests
// substitute scripted implementations.
type Conn interface {
	ReadJSON(v any) error
	Close() error
}

// Channel is a single persistent connection shared by every consumer in the
// process. Subscriptions are keyed per consumer so independent subscribers
// to the same event never clobber each other.
type Channel struct {
	url  string
	log  *slog.Logger
	dial func(ctx context.Context) (Conn, error)

	mu       sync.Mutex
	handlers map[string]map[uint64]Handler
	nextID   uint64
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewChannel(url string, log *slog.Logger) *Channel {
	c := &Channel{
		url:      url,
		log:      log,
		handlers: make(map[string]map[uint64]Handler),
	}
	c.dial = func(ctx context.Context) (Conn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return c
}

// Connect starts the read loop. Safe to call from multiple consumers; only
// the first call dials, the rest reuse the running connection.
func (c *Channel) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx)
}

// Close stops the read loop and waits for it to exit.
func (c *Channel) Close() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	cancel()
	<-done
}

type Subscription struct {
	ch    *Channel
	event string
	id    uint64
}

// Cancel removes only this consumer's handler; other subscribers to the
// same event keep receiving.
func (s *Subscription) Cancel() {
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	if hs, ok := s.ch.handlers[s.event]; ok {
		delete(hs, s.id)
	}
}

func (c *Channel) Subscribe(event string, h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = h
	return &Subscription{ch: c, event: event, id: id}
}

const maxReconnectBackoff = 30 * time.Second

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	backoff := time.Second
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			observability.RealtimeReconnects.Inc()
			c.log.Warn("realtime dial failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxReconnectBackoff {
				backoff = maxReconnectBackoff
			}
			continue
		}
		backoff = time.Second
		c.readLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		observability.RealtimeReconnects.Inc()
		c.log.Info("realtime connection lost, reconnecting")
	}
}

func (c *Channel) readLoop(ctx context.Context, conn Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close() // unblocks the pending read
		case <-stop:
		}
	}()
	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() == nil {
				c.log.Warn("realtime read failed", "error", err)
			}
			return
		}
		c.dispatch(evt)
	}
}

// dispatch fans the event out to every handler registered for its name.
func (c *Channel) dispatch(evt Event) {
	c.mu.Lock()
	hs := make([]Handler, 0, len(c.handlers[evt.Name]))
	for _, h := range c.handlers[evt.Name] {
		hs = append(hs, h)
	}
	c.mu.Unlock()
	if len(hs) == 0 {
		return
	}
	observability.RealtimeEventsTotal.WithLabelValues(evt.Name).Inc()
	for _, h := range hs {
		h(evt)
	}
}
