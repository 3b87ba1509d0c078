package changefeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInOrder(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(7)
	defer cancel()

	for i := uint(1); i <= 3; i++ {
		f.Publish(Event{ConsultationID: 7, Kind: EventMessage, MessageID: i, At: time.Now()})
	}

	for want := uint(1); want <= 3; want++ {
		ev := <-events
		assert.Equal(t, want, ev.MessageID)
	}
}

func TestSubscribersAreScopedByConsultation(t *testing.T) {
	f := New()
	mine, cancelMine := f.Subscribe(1)
	defer cancelMine()
	other, cancelOther := f.Subscribe(2)
	defer cancelOther()

	f.Publish(Event{ConsultationID: 1, Kind: EventStatus, Status: "resolved"})

	ev := <-mine
	assert.Equal(t, uint(1), ev.ConsultationID)
	select {
	case ev := <-other:
		t.Fatalf("unexpected event for consultation 2: %+v", ev)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(3)

	require.Equal(t, 1, f.SubscriberCount())
	cancel()
	assert.Equal(t, 0, f.SubscriberCount())

	_, open := <-events
	assert.False(t, open)

	// Cancel is idempotent and publishing after cancel is a no-op.
	cancel()
	f.Publish(Event{ConsultationID: 3, Kind: EventStatus})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(5)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Twice the buffer; the excess must be dropped, not block.
		for i := 0; i < subscriberBuffer*2; i++ {
			f.Publish(Event{ConsultationID: 5, Kind: EventMessage, MessageID: uint(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// The buffered prefix survives in order.
	for i := 0; i < subscriberBuffer; i++ {
		ev := <-events
		assert.Equal(t, uint(i), ev.MessageID)
	}
	select {
	case ev := <-events:
		t.Fatalf("expected drops beyond the buffer, got %+v", ev)
	default:
	}
}
