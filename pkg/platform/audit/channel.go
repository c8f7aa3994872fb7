package audit

import (
	"context"

	id "admitto/pkg/domain"
	"admitto/pkg/platform/sentinel"
)

// ChannelStore is a Store that hands events to the background worker instead
// of persisting inline. Appends never block request handling: when the inbox
// is full the event is dropped and the caller keeps going.
type ChannelStore struct {
	inbox chan Event
}

func NewChannelStore(capacity int) *ChannelStore {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ChannelStore{inbox: make(chan Event, capacity)}
}

// Inbox exposes the receive side for the worker.
func (c *ChannelStore) Inbox() <-chan Event { return c.inbox }

func (c *ChannelStore) Append(_ context.Context, event Event) error {
	select {
	case c.inbox <- event:
		return nil
	default:
		return sentinel.ErrUnavailable
	}
}

// ListByUser is not supported on the write-side channel; read from the
// worker's backing store instead.
func (c *ChannelStore) ListByUser(context.Context, id.UserID) ([]Event, error) {
	return nil, sentinel.ErrUnavailable
}
