package realtime

import (
	"log/slog"
	"sync"

	"github.com/sudo-init-do/taskhub/internal/metrics"
)

// Kind classifies a row-level change event.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
)

// Tables subscribers can filter on.
const (
	TableBookings      = "service_bookings"
	TableMessages      = "messages"
	TableNotifications = "notifications"
)

// Change is a row-level change event. Participants lists the user ids whose
// subscriptions qualify for delivery (e.g. both conversation participants for
// a message row).
type Change struct {
	Kind         Kind     `json:"kind"`
	Table        string   `json:"table"`
	RowID        string   `json:"row_id"`
	Participants []string `json:"-"`
	Payload      any      `json:"payload"`
}

// Subscription is a live registration for one user's change events. Callbacks
// run synchronously with delivery, on the publisher's goroutine.
type Subscription struct {
	hub      *Hub
	id       uint64
	userID   string
	tables   map[string]struct{}
	onInsert func(Change)
	onUpdate func(Change)
}

// Hub routes change events to per-user subscriptions.
type Hub struct {
	mu      sync.RWMutex
	nextID  uint64
	byUser  map[string]map[uint64]*Subscription
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHub builds a hub. Metrics may be nil.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		byUser:  make(map[string]map[uint64]*Subscription),
		logger:  logger.With("component", "realtime"),
		metrics: m,
	}
}

// Subscribe registers callbacks for change events on the given tables where
// the user is a participant. An empty user id yields no subscription. Nil
// callbacks are skipped at delivery. Empty tables means all tables.
func (h *Hub) Subscribe(userID string, tables []string, onInsert, onUpdate func(Change)) *Subscription {
	if userID == "" {
		return nil
	}

	sub := &Subscription{
		hub:      h,
		userID:   userID,
		onInsert: onInsert,
		onUpdate: onUpdate,
	}
	if len(tables) > 0 {
		sub.tables = make(map[string]struct{}, len(tables))
		for _, t := range tables {
			sub.tables[t] = struct{}{}
		}
	}

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[uint64]*Subscription)
	}
	h.byUser[userID][sub.id] = sub
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RealtimeSubs.Inc()
	}
	return sub
}

// Close tears the subscription down. Safe to call on a nil subscription and
// safe to call twice.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.hub.mu.Lock()
	subs := s.hub.byUser[s.userID]
	_, open := subs[s.id]
	if open {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(s.hub.byUser, s.userID)
		}
	}
	s.hub.mu.Unlock()

	if open && s.hub.metrics != nil {
		s.hub.metrics.RealtimeSubs.Dec()
	}
}

// Rebind moves the subscription to a new identity, e.g. after a session
// switch. An empty user id closes it.
func (s *Subscription) Rebind(userID string) {
	if s == nil {
		return
	}
	if userID == "" {
		s.Close()
		return
	}

	s.hub.mu.Lock()
	if subs := s.hub.byUser[s.userID]; subs != nil {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(s.hub.byUser, s.userID)
		}
	}
	s.userID = userID
	if s.hub.byUser[userID] == nil {
		s.hub.byUser[userID] = make(map[uint64]*Subscription)
	}
	s.hub.byUser[userID][s.id] = s
	s.hub.mu.Unlock()
}

func (s *Subscription) wants(table string) bool {
	if s.tables == nil {
		return true
	}
	_, ok := s.tables[table]
	return ok
}

// Publish delivers the change to every qualifying subscription. Delivery
// order across subscribers is unspecified; events for one publisher arrive in
// publish order.
func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	var targets []*Subscription
	for _, userID := range c.Participants {
		for _, sub := range h.byUser[userID] {
			if sub.wants(c.Table) {
				targets = append(targets, sub)
			}
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		switch c.Kind {
		case KindInsert:
			if sub.onInsert != nil {
				sub.onInsert(c)
			}
		case KindUpdate:
			if sub.onUpdate != nil {
				sub.onUpdate(c)
			}
		}
	}

	if h.metrics != nil && len(targets) > 0 {
		h.metrics.RealtimeEvents.WithLabelValues(c.Table, string(c.Kind)).Add(float64(len(targets)))
	}
}

// Default is the process-wide hub wired in main.
var Default *Hub

// Init builds and installs the default hub.
func Init(logger *slog.Logger, m *metrics.Metrics) *Hub {
	Default = NewHub(logger, m)
	return Default
}

// Publish delivers through the default hub; a no-op before Init (tests that
// exercise handlers without realtime wiring).
func Publish(c Change) {
	if Default != nil {
		Default.Publish(c)
	}
}
