package bluesky

import "context"

// Notification reasons the bot reacts to. Everything else (likes, follows,
// reposts, quotes) is marked handled and ignored.
const (
	ReasonMention = "mention"
	ReasonReply   = "reply"
)

// Identity pairs the mutable display handle with the durable DID.
// Cooldown state must always key on the DID.
type Identity struct {
	Handle string
	DID    string
}

// Ref points at a record for reply threading.
type Ref struct {
	URI string
	CID string
}

// Notification is the core-facing view of a platform notification.
type Notification struct {
	URI    string
	CID    string
	Reason string
	Author Identity

	// Text is empty when the notification's record is not a post or the
	// post carries no text.
	Text string

	// Root is the thread root of the notifying post, used so replies land
	// in the right thread. Equal to the post itself when it starts a thread.
	Root Ref

	// IndexedAt is the platform's sequencing marker; it advances the
	// seen-cursor once this notification is processed.
	IndexedAt string

	IsRead bool
}

// ID is the identifier recorded in the handled ledger. The URI alone is not
// unique across reasons (one post can both mention and reply), so the reason
// is part of the key.
func (n Notification) ID() string { return n.Reason + ":" + n.URI }

// Actionable reports whether this notification kind can carry a command.
func (n Notification) Actionable() bool {
	return n.Reason == ReasonMention || n.Reason == ReasonReply
}

// Client is the platform capability the processor consumes. *Session is the
// real implementation; tests substitute fakes.
type Client interface {
	ListNotifications(ctx context.Context, limit int64) ([]Notification, error)
	UpdateSeen(ctx context.Context, indexedAt string) error
	Reply(ctx context.Context, to Notification, text string) error
}
