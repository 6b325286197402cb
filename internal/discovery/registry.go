package discovery

import (
	"bytes"
	"net"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/logging"
	"github.com/muurk/devmon/internal/protocol"
)

// DefaultSubscriberBuffer is the channel size used when Subscribe is given zero
const DefaultSubscriberBuffer = 64

// EventType identifies a registry change
type EventType int

const (
	EventAdded   EventType = iota // First response from a new IP
	EventUpdated                  // Later response for a known IP
	EventCleared                  // Registry emptied
)

func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventUpdated:
		return "updated"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers on every registry change.
// Device is the zero value for EventCleared.
type Event struct {
	Type   EventType
	Device protocol.DeviceRecord
}

// Registry is the in-memory table of discovered devices keyed by IP.
//
// A later record for the same IP replaces the earlier one wholesale. Records
// are only removed by Clear; there is no expiry. Two devices answering with
// the same IP collapse to a single entry.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]protocol.DeviceRecord

	subs    map[int]chan Event
	nextSub int
	dropped uint64
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]protocol.DeviceRecord),
		subs:    make(map[int]chan Event),
	}
}

// Upsert inserts rec or replaces the record with the same IP.
// It reports whether the IP was new.
func (r *Registry) Upsert(rec protocol.DeviceRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.devices[rec.IP]
	r.devices[rec.IP] = rec

	evt := Event{Type: EventAdded, Device: rec}
	if exists {
		evt.Type = EventUpdated
	}
	r.publish(evt)

	return !exists
}

// Get returns the record for ip
func (r *Registry) Get(ip string) (protocol.DeviceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.devices[ip]
	return rec, ok
}

// Len returns the number of known devices
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Snapshot returns a copy of all records in unspecified order
func (r *Registry) Snapshot() []protocol.DeviceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.DeviceRecord, 0, len(r.devices))
	for _, rec := range r.devices {
		out = append(out, rec)
	}
	return out
}

// Sorted returns a snapshot ordered by IP address
func (r *Registry) Sorted() []protocol.DeviceRecord {
	out := r.Snapshot()
	slices.SortFunc(out, func(a, b protocol.DeviceRecord) int {
		return compareIP(a.IP, b.IP)
	})
	return out
}

// Clear removes every record
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.devices)
	r.publish(Event{Type: EventCleared})
}

// Subscribe returns a channel receiving every subsequent registry change and
// a function that unsubscribes and closes the channel.
//
// Delivery never blocks the caller of Upsert or Clear: when the channel is
// full the event is dropped for that subscriber.
func (r *Registry) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}

	return ch, unsubscribe
}

// Dropped returns the number of events dropped for slow subscribers
func (r *Registry) Dropped() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dropped
}

// publish fans evt out to subscribers. Caller must hold r.mu for writing.
func (r *Registry) publish(evt Event) {
	for id, ch := range r.subs {
		select {
		case ch <- evt:
		default:
			r.dropped++
			logging.Warn("Dropping registry event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("event", evt.Type.String()),
				zap.String("ip", evt.Device.IP),
			)
		}
	}
}

// compareIP orders dotted-quad strings numerically, falling back to string order
func compareIP(a, b string) int {
	ipA := net.ParseIP(a).To4()
	ipB := net.ParseIP(b).To4()
	if ipA == nil || ipB == nil {
		return strings.Compare(a, b)
	}
	return bytes.Compare(ipA, ipB)
}
