package services

import (
	"time"

	"github.com/Gokul0616/scrapi/models"
)

// DefaultProgressCapacity bounds the event buffer when none is given.
const DefaultProgressCapacity = 64

// ProgressBus is a bounded event channel the pipeline publishes to and the
// caller drains asynchronously. Publishing never blocks the pipeline: when the
// consumer lags and the buffer is full, the oldest event is dropped in favour
// of the newest.
type ProgressBus struct {
	events chan models.ProgressEvent
}

// NewProgressBus creates a bus with the given buffer capacity.
func NewProgressBus(capacity int) *ProgressBus {
	if capacity <= 0 {
		capacity = DefaultProgressCapacity
	}
	return &ProgressBus{events: make(chan models.ProgressEvent, capacity)}
}

// Publish enqueues a progress message, timestamped now.
func (b *ProgressBus) Publish(message string) {
	ev := models.ProgressEvent{Message: message, At: time.Now()}

	select {
	case b.events <- ev:
		return
	default:
	}

	// Buffer full: make room by discarding the oldest event.
	select {
	case <-b.events:
	default:
	}
	select {
	case b.events <- ev:
	default:
	}
}

// Events is the stream the consumer ranges over.
func (b *ProgressBus) Events() <-chan models.ProgressEvent {
	return b.events
}

// Close ends the stream. Only call after the pipeline has returned; publishing
// to a closed bus panics.
func (b *ProgressBus) Close() {
	close(b.events)
}
