// Package changefeed fans out consultation write events to live viewers.
// The engine only publishes; delivery beyond the process boundary (retry,
// offline buffering) belongs to the gateway consuming the subscriptions.
package changefeed

import (
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// EventKind labels what changed.
type EventKind string

const (
	EventMessage EventKind = "message" // a new message was appended
	EventStatus  EventKind = "status"  // the consultation status changed
)

// Event is one change on a consultation. Events for the same consultation
// are delivered in append order; there is no cross-consultation ordering.
type Event struct {
	ConsultationID uint      `json:"consultationID"`
	Kind           EventKind `json:"kind"`
	Status         string    `json:"status,omitempty"`
	MessageID      uint      `json:"messageID,omitempty"`
	SenderID       uint      `json:"senderID,omitempty"`
	At             time.Time `json:"at"`
}

// subscriberBuffer bounds how far a viewer may lag before it is dropped.
const subscriberBuffer = 16

type subscriber struct {
	ch chan Event
}

// Feed is an in-process publish/subscribe hub keyed by consultation id.
type Feed struct {
	mu   sync.Mutex
	subs map[uint][]*subscriber
}

func New() *Feed {
	return &Feed{subs: make(map[uint][]*subscriber)}
}

// Subscribe registers a viewer for one consultation. The returned cancel
// function must be called when the viewer disconnects; the channel is
// closed by the feed, never by the caller.
func (f *Feed) Subscribe(consultationID uint) (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, subscriberBuffer)}

	f.mu.Lock()
	f.subs[consultationID] = append(f.subs[consultationID], s)
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.subs[consultationID]
		for i, sub := range list {
			if sub == s {
				f.subs[consultationID] = append(list[:i], list[i+1:]...)
				close(s.ch)
				break
			}
		}
		if len(f.subs[consultationID]) == 0 {
			delete(f.subs, consultationID)
		}
	}
	return s.ch, cancel
}

// Publish delivers the event to every subscriber of its consultation.
// Publish never blocks the writer: a subscriber whose buffer is full
// misses the event and is expected to re-fetch on reconnect.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs[ev.ConsultationID] {
		select {
		case s.ch <- ev:
		default:
			klog.V(2).Infof("changefeed: dropping event for slow subscriber of consultation %d", ev.ConsultationID)
		}
	}
}

// SubscriberCount is used by metrics.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, list := range f.subs {
		n += len(list)
	}
	return n
}
