package notification

import "context"

// Store defines the interface for notification storage
type Store interface {
	// Append persists a new notification, assigning its sequence id
	Append(ctx context.Context, n *Notification) (*Notification, error)

	// MarkRead sets the read flag and read timestamp.
	// Marking an already-read notification is a no-op.
	MarkRead(ctx context.Context, id int64) (*Notification, error)

	// ListByRecipient returns a recipient's notifications newest first,
	// optionally only unread ones, up to limit (0 means no limit)
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*Notification, error)

	// Delete removes a single notification
	Delete(ctx context.Context, id int64) error

	// PurgeByRecipient removes all notifications for a recipient and
	// returns how many were removed
	PurgeByRecipient(ctx context.Context, recipientID string) (int, error)
}
