package audit

import (
	"context"
	"time"

	"github.com/mssola/useragent"

	id "admitto/pkg/domain"
	"admitto/pkg/requestcontext"
)

// Store is the persistence sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit records an event, filling timestamp, request correlation, and client
// metadata from the context when the caller left them empty.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if base.RequestID == "" {
		base.RequestID = requestcontext.RequestID(ctx)
	}
	if base.Category == CategorySecurity {
		if base.ClientIP == "" {
			base.ClientIP = requestcontext.ClientIP(ctx)
		}
		if base.Device == "" {
			base.Device = deviceLabel(requestcontext.UserAgent(ctx))
		}
	}
	return p.store.Append(ctx, base)
}

func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// deviceLabel condenses a raw User-Agent into "browser version (os)" for
// security event review. Raw UA strings are too noisy to store verbatim.
func deviceLabel(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return rawUA
	}
	label := name
	if version != "" {
		label += " " + version
	}
	if os := ua.OS(); os != "" {
		label += " (" + os + ")"
	}
	return label
}
