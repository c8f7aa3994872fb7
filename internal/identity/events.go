package identity

// Event is the closed set of normalized user lifecycle events. The webhook
// boundary produces exactly one Event per verified delivery; everything
// downstream switches over the concrete types instead of re-inspecting raw
// payloads.
type Event interface {
	event()
}

// UserUpserted carries the fields persisted for a created or updated user.
// PrimaryEmail is always non-empty; normalization rejects events without a
// resolvable primary email before any sync attempt.
type UserUpserted struct {
	ExternalID   string
	PrimaryEmail string
	FirstName    string
	LastName     string
	AvatarURL    string
	PrimaryPhone string
}

// UserDeleted requests removal of the user row keyed by ExternalID.
type UserDeleted struct {
	ExternalID string
}

// Unhandled is an event type the system does not act on. Acknowledged
// without side effects, for forward compatibility with provider event types.
type Unhandled struct {
	Type string
}

func (UserUpserted) event() {}
func (UserDeleted) event()  {}
func (Unhandled) event()    {}
